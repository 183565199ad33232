// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrStore wraps every I/O failure reported by a Store.
	ErrStore = errors.New("cache store failure")
	// ErrNotFound is returned by Get and StatAge when the key has no entry.
	ErrNotFound = errors.New("cache entry not found")
	// ErrInvalidKey is returned when a key cannot be mapped to a single entry
	// location beneath the store root.
	ErrInvalidKey = errors.New("invalid cache key")
)

// Store is the persistence behind the memoizer. Implementations must make a
// Put visible all at once: a concurrent Get sees either the old or the new
// value, never a mix.
type Store interface {
	Has(ctx context.Context, key string) (bool, error)
	// Get returns the entry exactly as it was Put.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	// Delete removes the entry. A missing entry is not an error.
	Delete(ctx context.Context, key string) error
	// StatAge is now minus the time the entry was last written.
	StatAge(ctx context.Context, key string) (time.Duration, error)
	List(ctx context.Context) ([]Info, error)
}

// Info describes a stored entry without its payload.
type Info struct {
	Key     string    `json:"key"`
	Path    string    `json:"path,omitempty"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
}

// Stats summarizes a store.
type Stats struct {
	Dir        string `json:"dir"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"totalBytes"`
	Expired    int    `json:"expired"`
}

// ValidateKey rejects keys that would not map to exactly one file directly
// beneath the root.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case key == "." || key == "..":
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	case strings.ContainsAny(key, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, key)
	}
	return nil
}

// Summarize computes Stats for a listing. Entries older than timeout count
// as expired; timeout <= 0 means nothing expires.
func Summarize(dir string, infos []Info, now time.Time, timeout time.Duration) Stats {
	stats := Stats{Dir: dir}
	for _, i := range infos {
		stats.Entries++
		stats.TotalBytes += i.Size
		if timeout > 0 && now.Sub(i.ModTime) > timeout {
			stats.Expired++
		}
	}
	return stats
}

func storeErr(op, key string, err error) error {
	return fmt.Errorf("%w: failed to %s %q: %w", ErrStore, op, key, err)
}
