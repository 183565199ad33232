// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type memEntry struct {
	data    []byte
	written time.Time
}

// MemStore is an in-memory Store. Ages come from the configured clock, so
// tests can expire entries without sleeping.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	now     func() time.Time
}

// MemOption customizes a MemStore.
type MemOption func(*MemStore)

// WithClock overrides the clock used for write times and ages.
func WithClock(now func() time.Time) MemOption {
	return func(s *MemStore) { s.now = now }
}

func NewMemStore(opts ...MemOption) *MemStore {
	s := &MemStore{entries: make(map[string]memEntry), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemStore) Has(_ context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok, nil
}

func (s *MemStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), e.data...), nil
}

func (s *MemStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memEntry{data: append([]byte(nil), data...), written: s.now()}
	return nil
}

func (s *MemStore) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemStore) StatAge(_ context.Context, key string) (time.Duration, error) {
	if err := ValidateKey(key); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return s.now().Sub(e.written), nil
}

func (s *MemStore) List(_ context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	infos := make([]Info, 0, len(s.entries))
	for k, e := range s.entries {
		infos = append(infos, Info{Key: k, Size: int64(len(e.data)), ModTime: e.written})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
