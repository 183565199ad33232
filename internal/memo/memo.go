// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package memo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/singleflight"

	"github.com/staranto/buildmemo/internal/store"
)

var (
	// ErrEncode is wrapped when a produced value cannot be encoded as JSON.
	ErrEncode = errors.New("failed to encode cache value")
	// ErrDecode is wrapped when a stored entry is not valid JSON for the
	// requested type.
	ErrDecode = errors.New("failed to decode cache entry")
)

// Producer computes the value to be memoized.
type Producer[T any] func(context.Context) (T, error)

// Func is a memoized Producer.
type Func[T any] func(context.Context) (T, error)

// Cache binds memoized functions to a store.
type Cache struct {
	store   store.Store
	logger  log.Interface
	enabled bool
	sf      singleflight.Group
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithLogger sets the logger used for hit/miss events. Defaults to log.Log.
func WithLogger(l log.Interface) CacheOption {
	return func(c *Cache) { c.logger = l }
}

// WithEnabled turns caching on or off. A disabled Cache runs the producer on
// every call and never touches the store.
func WithEnabled(enabled bool) CacheOption {
	return func(c *Cache) { c.enabled = enabled }
}

// New returns an enabled Cache backed by s.
func New(s store.Store, opts ...CacheOption) *Cache {
	c := &Cache{store: s, logger: log.Log, enabled: true}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether the cache consults the store at all.
func (c *Cache) Enabled() bool {
	return c.enabled
}

type options struct {
	timeout      time.Duration
	singleFlight bool
}

// Option customizes a single wrapped producer.
type Option func(*options)

// WithTimeout sets how long an entry stays fresh. Zero or negative means
// entries never expire by age.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithSingleFlight makes concurrent misses on the same key within this
// process share one producer call. Without it, racing misses each run the
// producer and the last write wins.
func WithSingleFlight() Option {
	return func(o *options) { o.singleFlight = true }
}

// Wrap returns a Func that serves the value stored under key while it is
// fresh, and otherwise runs producer and stores its result.
//
// Producer errors are returned unchanged and leave no entry behind. Encoding
// and decoding failures wrap ErrEncode and ErrDecode; store failures wrap
// store.ErrStore. Nothing is retried.
func Wrap[T any](c *Cache, key string, producer Producer[T], opts ...Option) Func[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return func(ctx context.Context) (T, error) {
		if !c.enabled {
			return producer(ctx)
		}
		if !o.singleFlight {
			return load(ctx, c, key, producer, o)
		}

		// Each caller waits on its own ctx. The shared load ignores
		// cancellation.
		ch := c.sf.DoChan(flightKey[T](key), func() (any, error) {
			return load(context.WithoutCancel(ctx), c, key, producer, o)
		})

		var zero T
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if res.Shared {
				c.logger.WithField("key", key).Debug("shared in-flight result")
			}
			if res.Err != nil {
				return zero, res.Err
			}
			t, ok := res.Val.(T)
			if !ok && res.Val != nil {
				return zero, fmt.Errorf("%w %q: shared result is %T", ErrDecode, key, res.Val)
			}
			return t, nil
		}
	}
}

// flightKey scopes single-flight sharing to one result type, so wrappers of
// the same key with different types never share a call.
func flightKey[T any](key string) string {
	t := reflect.TypeFor[T]()
	return t.PkgPath() + "." + t.String() + "\x00" + key
}

func load[T any](ctx context.Context, c *Cache, key string, producer Producer[T], o options) (T, error) {
	var zero T
	entry := c.logger.WithField("key", key)

	if v, hit, err := lookup[T](ctx, c, key, o, entry); err != nil || hit {
		return v, err
	}

	value, err := producer(ctx)
	if err != nil {
		return zero, err
	}
	entry.Debug("function ran")

	data, err := json.Marshal(value)
	if err != nil {
		return zero, fmt.Errorf("%w for %q: %w", ErrEncode, key, err)
	}
	if err := c.store.Put(ctx, key, data); err != nil {
		return zero, err
	}
	entry.Info("function result cached")

	return value, nil
}

// lookup returns the stored value and true on a fresh hit. An expired entry
// is deleted before lookup reports a miss.
func lookup[T any](ctx context.Context, c *Cache, key string, o options, entry *log.Entry) (T, bool, error) {
	var zero T

	ok, err := c.store.Has(ctx, key)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		entry.Debug("running function for the first time")
		return zero, false, nil
	}

	age, err := c.store.StatAge(ctx, key)
	if err != nil {
		return zero, false, ignoreNotFound(err)
	}

	if o.timeout > 0 && age > o.timeout {
		if err := c.store.Delete(ctx, key); err != nil {
			return zero, false, err
		}
		entry.WithField("age", age.String()).Info("stale cache removed")
		return zero, false, nil
	}

	data, err := c.store.Get(ctx, key)
	if err != nil {
		return zero, false, ignoreNotFound(err)
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return zero, false, fmt.Errorf("%w %q: %w", ErrDecode, key, err)
	}
	entry.Debug("cache hit")
	return v, true, nil
}

// ignoreNotFound turns an entry that vanished between the existence check
// and the read into a plain miss.
func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
