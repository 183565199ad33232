// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/apex/log"
)

// DefaultRoot is where entries live when nothing else is configured. It is
// relative to the build's working directory.
const DefaultRoot = ".cache/data"

const entryExt = ".json"

// ResolveRoot resolves the store root.
// Precedence:
//  1. explicit, if non-empty
//  2. BUILDMEMO_ROOT, if set and non-empty
//  3. DefaultRoot
func ResolveRoot(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if r, ok := os.LookupEnv("BUILDMEMO_ROOT"); ok && r != "" {
		return r
	}
	return DefaultRoot
}

// Enabled returns true unless BUILDMEMO_CACHE explicitly disables it
// ("0"/"false").
func Enabled() bool {
	enabled, _ := os.LookupEnv("BUILDMEMO_CACHE")
	return enabled == "" || (enabled != "0" && enabled != "false")
}

// DirStore is a directory-backed Store with one <key>.json file per key. The
// root directory is created on the first Put, not on construction.
type DirStore struct {
	root string
	now  func() time.Time
}

// DirOption customizes a DirStore.
type DirOption func(*DirStore)

// WithDirClock overrides the clock used to compute entry ages.
func WithDirClock(now func() time.Time) DirOption {
	return func(s *DirStore) { s.now = now }
}

// NewDirStore returns a store rooted at root. It does not touch the
// filesystem.
func NewDirStore(root string, opts ...DirOption) *DirStore {
	s := &DirStore{root: root, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the store root directory.
func (s *DirStore) Root() string {
	return s.root
}

// Location returns the path of the entry for key.
func (s *DirStore) Location(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(s.root, key+entryExt), nil
}

func (s *DirStore) Has(_ context.Context, key string) (bool, error) {
	p, err := s.Location(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, storeErr("stat", key, err)
	}
	return true, nil
}

func (s *DirStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := s.Location(key)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, storeErr("read", key, err)
	}
	return b, nil
}

// Put writes data to a temporary file beside the entry and renames it into
// place so readers never observe a partial entry.
func (s *DirStore) Put(ctx context.Context, key string, data []byte) error {
	p, err := s.Location(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil { //nolint:mnd
		return storeErr("create cache directory for", key, err)
	}

	tmp, err := os.CreateTemp(s.root, "."+key+".*.tmp")
	if err != nil {
		return storeErr("create temp file for", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return storeErr("write", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return storeErr("write", key, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		_ = os.Remove(tmpName)
		return storeErr("write", key, err)
	}
	return nil
}

func (s *DirStore) Delete(_ context.Context, key string) error {
	p, err := s.Location(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return storeErr("delete", key, err)
	}
	return nil
}

func (s *DirStore) StatAge(_ context.Context, key string) (time.Duration, error) {
	p, err := s.Location(key)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return 0, storeErr("stat", key, err)
	}
	return s.now().Sub(info.ModTime()), nil
}

// Touch sets the entry's modification time, which is what its age is
// measured from.
func (s *DirStore) Touch(_ context.Context, key string, t time.Time) error {
	p, err := s.Location(key)
	if err != nil {
		return err
	}
	if err := os.Chtimes(p, t, t); err != nil {
		return storeErr("touch", key, err)
	}
	return nil
}

// List returns every entry sorted by key. A root that does not exist yet is
// an empty store.
func (s *DirStore) List(ctx context.Context) ([]Info, error) {
	dirents, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to read cache directory: %w", ErrStore, err)
	}

	var infos []Info
	for _, d := range dirents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := d.Name()
		// In-flight temp files end in .tmp, so the extension check drops them.
		if d.IsDir() || filepath.Ext(name) != entryExt {
			continue
		}
		fi, err := d.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		infos = append(infos, Info{
			Key:     strings.TrimSuffix(name, entryExt),
			Path:    filepath.Join(s.root, name),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Clear removes every entry and returns how many were removed.
func (s *DirStore) Clear(ctx context.Context) (int, error) {
	infos, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	var removed int
	for _, i := range infos {
		if err := os.Remove(i.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, storeErr("delete", i.Key, err)
		}
		removed++
	}
	log.Debugf("cleared %d cache entries from %s", removed, s.root)
	return removed, nil
}

// Purge removes entries older than maxAge and returns how many were removed.
// If maxAge <= 0 it is a no-op. Failures to remove a single entry are logged
// and skipped.
func (s *DirStore) Purge(ctx context.Context, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		log.Debug("cache cleaning disabled")
		return 0, nil
	}
	infos, err := s.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}

	now := s.now()
	var removed int
	for _, i := range infos {
		if now.Sub(i.ModTime) <= maxAge {
			continue
		}
		if err := os.Remove(i.Path); err == nil {
			removed++
			log.Debugf("removed cache file %s", i.Path)
		} else {
			log.WithError(err).Warnf("failed to remove cache file %s", i.Path)
		}
	}
	return removed, nil
}

// Stats summarizes the store. Entries older than timeout count as expired.
func (s *DirStore) Stats(ctx context.Context, timeout time.Duration) (Stats, error) {
	infos, err := s.List(ctx)
	if err != nil {
		return Stats{Dir: s.root}, err
	}
	return Summarize(s.root, infos, s.now(), timeout), nil
}
