// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package memo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mylog "github.com/staranto/buildmemo/internal/log"
	"github.com/staranto/buildmemo/internal/store"
)

// counted returns a producer that counts its invocations.
func counted[T any](n *int32, fn func() T) Producer[T] {
	return func(context.Context) (T, error) {
		atomic.AddInt32(n, 1)
		return fn(), nil
	}
}

func TestWrap_FirstCallPersistsSecondCallHits(t *testing.T) {
	root := t.TempDir()
	c := New(store.NewDirStore(root))
	ctx := context.Background()

	var calls int32
	foo := Wrap(c, "foo", counted(&calls, func() int { return 42 }))

	v, err := foo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	b, err := os.ReadFile(filepath.Join(root, "foo.json"))
	require.NoError(t, err)
	assert.Equal(t, "42", string(b))

	v, err = foo(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWrap_ExpiresAfterTimeout(t *testing.T) {
	type stamp struct {
		N int64 `json:"n"`
	}

	c := New(store.NewDirStore(t.TempDir()))
	ctx := context.Background()

	var calls int32
	bar := Wrap(c, "bar",
		counted(&calls, func() stamp { return stamp{N: time.Now().UnixNano()} }),
		WithTimeout(10*time.Millisecond),
	)

	first, err := bar(ctx)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	second, err := bar(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.NotEqual(t, first, second)
}

func TestWrap_FreshEntryIsIdempotent(t *testing.T) {
	now := time.Now()
	s := store.NewMemStore(store.WithClock(func() time.Time { return now }))
	c := New(s)
	ctx := context.Background()

	var calls int32
	next := 0
	fn := Wrap(c, "k", counted(&calls, func() int { next++; return next }), WithTimeout(time.Hour))

	_, err := fn(ctx)
	require.NoError(t, err)
	persisted, err := s.Get(ctx, "k")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		now = now.Add(5 * time.Minute)
		v, err := fn(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, v)

		b, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, persisted, b)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWrap_NoTimeoutNeverExpires(t *testing.T) {
	now := time.Now()
	s := store.NewMemStore(store.WithClock(func() time.Time { return now }))
	c := New(s)

	var calls int32
	fn := Wrap(c, "k", counted(&calls, func() string { return "v" }))

	_, err := fn(context.Background())
	require.NoError(t, err)
	now = now.Add(10 * 365 * 24 * time.Hour)
	_, err = fn(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWrap_ExpiredEntryDeletedBeforeRegeneration(t *testing.T) {
	now := time.Now()
	s := store.NewDirStore(t.TempDir(), store.WithDirClock(func() time.Time { return now }))
	c := New(s)
	ctx := context.Background()

	loc, err := s.Location("k")
	require.NoError(t, err)

	var calls int32
	var existedDuringRegen []bool
	fn := Wrap(c, "k", func(context.Context) (int32, error) {
		n := atomic.AddInt32(&calls, 1)
		_, statErr := os.Stat(loc)
		existedDuringRegen = append(existedDuringRegen, statErr == nil)
		return n, nil
	}, WithTimeout(time.Minute))

	v, err := fn(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v)

	require.NoError(t, s.Touch(ctx, "k", now.Add(-2*time.Minute)))

	v, err = fn(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), v, "stale value must not be returned")

	assert.Equal(t, []bool{false, false}, existedDuringRegen)

	b, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "2", string(b))
}

func TestWrap_RoundTrip(t *testing.T) {
	type inner struct {
		Name string `json:"name"`
	}
	type value struct {
		S   string            `json:"s"`
		I   int               `json:"i"`
		F   float64           `json:"f"`
		B   bool              `json:"b"`
		L   []string          `json:"l"`
		M   map[string]int    `json:"m"`
		P   *inner            `json:"p"`
		Nil *inner            `json:"nil"`
		U   string            `json:"u"`
		E   map[string]string `json:"e"`
	}

	want := value{
		S: "hello \"world\"",
		I: -7,
		F: 3.25,
		B: true,
		L: []string{"a", "b"},
		M: map[string]int{"x": 1, "y": 2},
		P: &inner{Name: "nested"},
		U: "ünïcødé ✓",
		E: map[string]string{},
	}

	c := New(store.NewDirStore(t.TempDir()))
	fn := Wrap(c, "rt", func(context.Context) (value, error) { return want, nil })

	first, err := fn(context.Background())
	require.NoError(t, err)
	second, err := fn(context.Background())
	require.NoError(t, err)

	assert.Equal(t, want, first)
	assert.Equal(t, want, second)
}

func TestWrap_ProducerErrorPropagatesUnchanged(t *testing.T) {
	s := store.NewMemStore()
	c := New(s)
	ctx := context.Background()

	boom := errors.New("rate limited")
	var calls int32
	fail := true
	fn := Wrap(c, "k", func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		if fail {
			return "", boom
		}
		return "ok", nil
	})

	_, err := fn(ctx)
	assert.Same(t, boom, err)

	ok, err := s.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "a failed attempt must not leave an entry")

	fail = false
	v, err := fn(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestWrap_EncodeFailure(t *testing.T) {
	s := store.NewMemStore()
	c := New(s)

	fn := Wrap(c, "k", func(context.Context) (map[string]any, error) {
		return map[string]any{"ch": make(chan int)}, nil
	})

	_, err := fn(context.Background())
	assert.ErrorIs(t, err, ErrEncode)

	infos, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestWrap_CorruptEntryIsAnError(t *testing.T) {
	s := store.NewMemStore()
	c := New(s)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "k", []byte("{not json")))

	var calls int32
	fn := Wrap(c, "k", counted(&calls, func() int { return 1 }))

	_, err := fn(ctx)
	assert.ErrorIs(t, err, ErrDecode)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "a corrupt entry is not a miss")
}

func TestWrap_StoreFailurePropagates(t *testing.T) {
	// A regular file where the root directory should be makes every write fail.
	root := filepath.Join(t.TempDir(), "root")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o600))

	c := New(store.NewDirStore(root))
	var calls int32
	fn := Wrap(c, "k", counted(&calls, func() int { return 1 }))

	_, err := fn(context.Background())
	assert.ErrorIs(t, err, store.ErrStore)
	assert.NotErrorIs(t, err, store.ErrNotFound, "an I/O failure is not a miss")
}

func TestWrap_InvalidKey(t *testing.T) {
	c := New(store.NewMemStore())
	var calls int32
	fn := Wrap(c, "../etc/passwd", counted(&calls, func() int { return 1 }))

	_, err := fn(context.Background())
	assert.ErrorIs(t, err, store.ErrInvalidKey)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestWrap_Disabled(t *testing.T) {
	s := store.NewMemStore()
	c := New(s, WithEnabled(false))
	assert.False(t, c.Enabled())

	var calls int32
	fn := Wrap(c, "k", counted(&calls, func() int { return 1 }))
	for i := 0; i < 3; i++ {
		_, err := fn(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	infos, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestWrap_SingleFlight(t *testing.T) {
	c := New(store.NewDirStore(t.TempDir()))

	var calls int32
	release := make(chan struct{})
	fn := Wrap(c, "k", func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 7, nil
	}, WithSingleFlight())

	const callers = 8
	var started, done sync.WaitGroup
	results := make([]int, callers)
	errs := make([]error, callers)
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			results[i], errs[i] = fn(context.Background())
		}(i)
	}

	started.Wait()
	time.Sleep(20 * time.Millisecond)
	close(release)
	done.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, 7, results[i])
	}
	// Late arrivals find the persisted entry, so the producer runs once.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWrap_SingleFlightCancelledCallerDoesNotFailOthers(t *testing.T) {
	c := New(store.NewMemStore())

	entered := make(chan struct{})
	release := make(chan struct{})
	var producerErr atomic.Value
	fn := Wrap(c, "k", func(ctx context.Context) (int, error) {
		close(entered)
		<-release
		producerErr.Store(fmt.Sprint(ctx.Err()))
		return 7, nil
	}, WithSingleFlight())

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := fn(first)
		firstErr <- err
	}()
	<-entered

	type result struct {
		v   int
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := fn(context.Background())
		second <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, 7, got.v)
	assert.Equal(t, "<nil>", producerErr.Load())
}

func TestWrap_SingleFlightScopedByType(t *testing.T) {
	c := New(store.NewMemStore())

	var entered int32
	release := make(chan struct{})
	asString := Wrap(c, "k", func(context.Context) (string, error) {
		atomic.AddInt32(&entered, 1)
		<-release
		return "seven", nil
	}, WithSingleFlight())
	asInt := Wrap(c, "k", func(context.Context) (int, error) {
		atomic.AddInt32(&entered, 1)
		<-release
		return 7, nil
	}, WithSingleFlight())

	var wg sync.WaitGroup
	var s string
	var n int
	var sErr, nErr error
	wg.Add(2)
	go func() { defer wg.Done(); s, sErr = asString(context.Background()) }()
	go func() { defer wg.Done(); n, nErr = asInt(context.Background()) }()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&entered) == 2 },
		time.Second, 5*time.Millisecond, "each type runs its own producer")
	close(release)
	wg.Wait()

	require.NoError(t, sErr)
	require.NoError(t, nErr)
	assert.Equal(t, "seven", s)
	assert.Equal(t, 7, n)
}

func TestFlightKey(t *testing.T) {
	assert.NotEqual(t, flightKey[int]("k"), flightKey[string]("k"))
	assert.Equal(t, flightKey[int]("k"), flightKey[int]("k"))
	assert.NotEqual(t, flightKey[int]("a"), flightKey[int]("b"))
}

func TestWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := &log.Logger{Handler: mylog.NewHandler(&buf), Level: log.DebugLevel}
	c := New(store.NewMemStore(), WithLogger(logger))

	fn := Wrap(c, "logged", func(context.Context) (int, error) { return 1, nil })
	_, err := fn(context.Background())
	require.NoError(t, err)
	_, err = fn(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "function result cached")
	assert.Contains(t, buf.String(), "cache hit")
	assert.Contains(t, buf.String(), "logged")
}

func TestWrap_ConcurrentMissesLastWriterWins(t *testing.T) {
	s := store.NewDirStore(t.TempDir())
	c := New(s)
	ctx := context.Background()

	var calls int32
	fn := Wrap(c, "k", func(context.Context) ([]int, error) {
		n := int(atomic.AddInt32(&calls, 1))
		return []int{n, n, n}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fn(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Whoever wrote last, the entry is a whole value.
	v, err := fn(ctx)
	require.NoError(t, err)
	require.Len(t, v, 3)
	assert.Equal(t, v[0], v[2])
}
