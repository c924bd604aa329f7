// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/kvcache/internal/codec"
	"github.com/staranto/kvcache/internal/entry"
	"github.com/staranto/kvcache/internal/expiry"
	"github.com/staranto/kvcache/internal/store"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu        sync.Mutex
	hits      int
	misses    int
	stored    map[codec.Method]int
	evicted   map[string]int
	fallbacks map[string]int
}

func newRecorder() *recorder {
	return &recorder{
		stored:    map[codec.Method]int{},
		evicted:   map[string]int{},
		fallbacks: map[string]int{},
	}
}

func (r *recorder) Hit()  { r.mu.Lock(); r.hits++; r.mu.Unlock() }
func (r *recorder) Miss() { r.mu.Lock(); r.misses++; r.mu.Unlock() }

func (r *recorder) Stored(m codec.Method, _ int) {
	r.mu.Lock()
	r.stored[m]++
	r.mu.Unlock()
}

func (r *recorder) Evicted(reason string) {
	r.mu.Lock()
	r.evicted[reason]++
	r.mu.Unlock()
}

func (r *recorder) Fallback(from, to codec.Method) {
	r.mu.Lock()
	r.fallbacks[from.String()+">"+to.String()]++
	r.mu.Unlock()
}

func (r *recorder) Entries(int, int) {}

func newEngine(t *testing.T, st store.Store, opts ...Option) (*Engine, *expiry.Manual) {
	t.Helper()
	clock := expiry.NewManual(epoch)
	opts = append([]Option{WithClock(clock), WithCleanupInterval(0)}, opts...)
	e, err := New(st, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, clock
}

func forEachStore(t *testing.T, fn func(t *testing.T, st store.Store)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, store.NewMemory())
	})
	t.Run("disk", func(t *testing.T) {
		st, err := store.NewDisk(t.TempDir())
		require.NoError(t, err)
		fn(t, st)
	})
}

func compressible(n int) []byte {
	return bytes.Repeat([]byte("kvcache "), n/8+1)[:n]
}

func TestNew_NilStore(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSetGet(t *testing.T) {
	tests := []struct {
		name  string
		value []byte
	}{
		{name: "small", value: []byte("hello")},
		{name: "empty", value: []byte{}},
		{name: "binary", value: []byte{0, 1, 2, 255, 254}},
		{name: "large", value: compressible(64 << 10)},
	}

	forEachStore(t, func(t *testing.T, st store.Store) {
		e, _ := newEngine(t, st)
		ctx := context.Background()

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				require.NoError(t, e.Set(ctx, tt.name, tt.value))
				got, ok, err := e.Get(ctx, tt.name)
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, tt.value, got)
			})
		}

		got, ok, err := e.Get(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)
	})
}

func TestSet_InvalidArgument(t *testing.T) {
	e, _ := newEngine(t, store.NewMemory())
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
		opts []SetOption
	}{
		{name: "empty key", key: ""},
		{name: "invalid utf8 key", key: "bad\xff"},
		{name: "zero ttl", key: "k", opts: []SetOption{WithTTL(0)}},
		{name: "negative ttl", key: "k", opts: []SetOption{WithTTL(-time.Second)}},
		{name: "sub millisecond ttl", key: "k", opts: []SetOption{WithTTL(500 * time.Microsecond)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Set(ctx, tt.key, []byte("v"), tt.opts...)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	_, _, err := e.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = e.Has(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, e.Remove(ctx, ""), ErrInvalidArgument)

	ok, err := e.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "rejected set must not store anything")
}

func TestTTL(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.Store) {
		rec := newRecorder()
		e, clock := newEngine(t, st, WithMetrics(rec))
		ctx := context.Background()

		require.NoError(t, e.Set(ctx, "k", []byte("v"), WithTTL(time.Second)))

		clock.Advance(time.Second)
		ok, err := e.Has(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok, "entry is live at exactly its deadline")

		clock.Advance(time.Millisecond)
		got, ok, err := e.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, got)

		n, err := st.Len(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "expired entry is evicted on lookup")
		assert.Equal(t, 1, rec.evicted[ReasonExpired])
	})
}

func TestTTL_RealClock(t *testing.T) {
	if testing.Short() {
		t.Skip("sleeps")
	}

	e, err := New(store.NewMemory(), WithCleanupInterval(0))
	require.NoError(t, err)
	defer e.Close()
	ctx := context.Background()

	require.NoError(t, e.Set(ctx, "k", []byte("v"), WithTTL(time.Second)))
	ok, err := e.Has(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(1100 * time.Millisecond)

	ok, err = e.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOverwrite(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.Store) {
		e, clock := newEngine(t, st)
		ctx := context.Background()

		require.NoError(t, e.Set(ctx, "k", []byte("v1"), WithTTL(time.Second)))
		require.NoError(t, e.Set(ctx, "k", []byte("v2")))

		clock.Advance(time.Hour)

		got, ok, err := e.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok, "overwrite drops the old ttl")
		assert.Equal(t, []byte("v2"), got)

		s, err := e.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{Total: 1, Active: 1}, s)
	})
}

func TestCompressionPolicy(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Compression
		size       int
		opts       []SetOption
		compressed bool
		method     codec.Method
	}{
		{name: "at threshold", cfg: DefaultCompression(), size: 1024, method: codec.None},
		{name: "above threshold", cfg: DefaultCompression(), size: 1025, compressed: true, method: codec.Zlib},
		{name: "per call off", cfg: DefaultCompression(), size: 4096, opts: []SetOption{Compress(false)}, method: codec.None},
		{name: "per call method", cfg: DefaultCompression(), size: 4096, opts: []SetOption{UseMethod(codec.Lzma2)}, compressed: true, method: codec.Lzma2},
		{name: "method none", cfg: DefaultCompression(), size: 4096, opts: []SetOption{UseMethod(codec.None)}, method: codec.None},
		{name: "disabled", cfg: Compression{Enabled: false, Level: 6, Threshold: 0, Method: codec.Zlib}, size: 4096, method: codec.None},
		{name: "disabled per call on", cfg: Compression{Enabled: false, Level: 6, Threshold: 0, Method: codec.Lzma2}, size: 4096, opts: []SetOption{Compress(true)}, compressed: true, method: codec.Lzma2},
		{name: "zero threshold", cfg: Compression{Enabled: true, Level: 1, Threshold: 0, Method: codec.Zlib}, size: 1, compressed: true, method: codec.Zlib},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newEngine(t, store.NewMemory(), WithCompression(tt.cfg))
			ctx := context.Background()
			value := compressible(tt.size)

			require.NoError(t, e.Set(ctx, "k", value, tt.opts...))

			info, ok, err := e.Inspect(ctx, "k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.compressed, info.Compressed)
			assert.Equal(t, tt.method, info.Method)

			got, ok, err := e.Get(ctx, "k")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, value, got)
		})
	}
}

func TestConfigure(t *testing.T) {
	e, _ := newEngine(t, store.NewMemory())
	ctx := context.Background()

	e.Configure(Compression{Enabled: true, Level: 42, Threshold: -5, Method: codec.Method(9)})
	cfg := e.Compression()
	assert.Equal(t, codec.MaxLevel, cfg.Level)
	assert.Zero(t, cfg.Threshold)
	assert.Equal(t, codec.Zlib, cfg.Method)

	require.NoError(t, e.Set(ctx, "before", compressible(2048)))
	e.Configure(Compression{Enabled: false})
	require.NoError(t, e.Set(ctx, "after", compressible(2048)))

	before, _, err := e.Inspect(ctx, "before")
	require.NoError(t, err)
	after, _, err := e.Inspect(ctx, "after")
	require.NoError(t, err)
	assert.True(t, before.Compressed, "existing entries keep their encoding")
	assert.False(t, after.Compressed)
}

func TestLzma2Limit(t *testing.T) {
	rec := newRecorder()
	e, _ := newEngine(t, store.NewMemory(), WithMetrics(rec), WithLzma2Limit(2048))
	ctx := context.Background()
	value := compressible(4096)

	require.NoError(t, e.Set(ctx, "k", value, UseMethod(codec.Lzma2)))

	info, _, err := e.Inspect(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, codec.Zlib, info.Method)
	assert.Equal(t, 1, rec.fallbacks["lzma2>zlib"])

	got, _, err := e.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestLzma2_IncompressibleEveryLevel(t *testing.T) {
	sizes := []int{64<<10 - 1, 64 << 10, 64<<10 + 1, 1<<20 - 1, 1 << 20, 1<<20 + 1}
	rnd := rand.New(rand.NewSource(11))
	ctx := context.Background()

	for _, size := range sizes {
		if testing.Short() && size > 64<<10+1 {
			continue
		}
		value := make([]byte, size)
		_, _ = rnd.Read(value)

		for level := codec.MinLevel; level <= codec.MaxLevel; level++ {
			t.Run(fmt.Sprintf("%d/level%d", size, level), func(t *testing.T) {
				rec := newRecorder()
				e, _ := newEngine(t, store.NewMemory(), WithMetrics(rec), WithCompression(Compression{
					Enabled:   true,
					Level:     level,
					Threshold: 0,
					Method:    codec.Lzma2,
				}))

				require.NoError(t, e.Set(ctx, "blob", value))

				info, ok, err := e.Inspect(ctx, "blob")
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, codec.Lzma2, info.Method)
				assert.Empty(t, rec.fallbacks)

				got, ok, err := e.Get(ctx, "blob")
				require.NoError(t, err)
				require.True(t, ok)
				assert.True(t, bytes.Equal(value, got), "round trip mismatch")
			})
		}
	}
}

func TestEncodeFallback(t *testing.T) {
	failing := errors.New("boom")

	tests := []struct {
		name    string
		fails   map[codec.Method]bool
		request codec.Method
		want    codec.Method
		falls   []string
	}{
		{name: "lzma2 to zlib", fails: map[codec.Method]bool{codec.Lzma2: true}, request: codec.Lzma2, want: codec.Zlib, falls: []string{"lzma2>zlib"}},
		{name: "zlib to raw", fails: map[codec.Method]bool{codec.Zlib: true}, request: codec.Zlib, want: codec.None, falls: []string{"zlib>none"}},
		{name: "all to raw", fails: map[codec.Method]bool{codec.Zlib: true, codec.Lzma2: true}, request: codec.Lzma2, want: codec.None, falls: []string{"lzma2>zlib", "zlib>none"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newRecorder()
			e, _ := newEngine(t, store.NewMemory(), WithMetrics(rec))
			e.encoder = func(b []byte, m codec.Method, level int) ([]byte, error) {
				if tt.fails[m] {
					return nil, failing
				}
				return codec.Encode(b, m, level)
			}
			ctx := context.Background()
			value := compressible(4096)

			require.NoError(t, e.Set(ctx, "k", value, UseMethod(tt.request)))

			info, _, err := e.Inspect(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Method)
			for _, f := range tt.falls {
				assert.Equal(t, 1, rec.fallbacks[f], f)
			}

			got, _, err := e.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, value, got)
		})
	}
}

func TestRemoveAndClear(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.Store) {
		e, _ := newEngine(t, st)
		ctx := context.Background()

		for _, k := range []string{"a", "b", "c"} {
			require.NoError(t, e.Set(ctx, k, []byte(k)))
		}

		require.NoError(t, e.Remove(ctx, "a"))
		require.NoError(t, e.Remove(ctx, "a"), "removing a missing key is fine")
		ok, err := e.Has(ctx, "a")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, e.Clear(ctx))
		s, err := e.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{}, s)
	})
}

func TestStats(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.Store) {
		e, clock := newEngine(t, st)
		ctx := context.Background()

		require.NoError(t, e.Set(ctx, "a", []byte("1")))
		require.NoError(t, e.Set(ctx, "b", []byte("2")))
		require.NoError(t, e.Set(ctx, "c", []byte("3"), WithTTL(time.Second)))
		clock.Advance(2 * time.Second)

		s, err := e.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{Total: 3, Active: 2}, s, "stats does not evict")
		assert.Equal(t, 1, s.Expired())

		ok, err := e.Has(ctx, "c")
		require.NoError(t, err)
		assert.False(t, ok)

		s, err = e.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{Total: 2, Active: 2}, s)
	})
}

func TestStats_CountsCorruptUnits(t *testing.T) {
	st, err := store.NewDisk(t.TempDir())
	require.NoError(t, err)
	e, _ := newEngine(t, st)
	ctx := context.Background()

	require.NoError(t, e.Set(ctx, "good", []byte("1")))
	require.NoError(t, e.Set(ctx, "bad", []byte("2")))
	require.NoError(t, os.WriteFile(st.Path("bad"), []byte("{not json"), 0o600))

	s, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Active: 1}, s)

	ok, err := e.Has(ctx, "bad")
	require.NoError(t, err)
	assert.False(t, ok)

	s, err = e.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 1, Active: 1}, s, "corrupt unit is gone after a read")
}

func TestKeys(t *testing.T) {
	e, clock := newEngine(t, store.NewMemory())
	ctx := context.Background()

	require.NoError(t, e.Set(ctx, "zeta", []byte("z")))
	require.NoError(t, e.Set(ctx, "alpha", []byte("a")))
	require.NoError(t, e.Set(ctx, "gone", []byte("g"), WithTTL(time.Millisecond)))
	clock.Advance(time.Second)

	keys, err := e.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta"}, keys)
}

func TestInspect(t *testing.T) {
	e, clock := newEngine(t, store.NewMemory())
	ctx := context.Background()

	require.NoError(t, e.Set(ctx, "k", []byte("value"), WithTTL(90*time.Second)))
	clock.Advance(30 * time.Second)

	info, ok, err := e.Inspect(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "k", info.Key)
	assert.False(t, info.Compressed)
	assert.Equal(t, codec.None, info.Method)
	assert.Equal(t, codec.HeaderSize+len("value"), info.StoredSize)
	assert.Equal(t, epoch, info.CreatedAt.UTC())
	assert.Equal(t, epoch.Add(90*time.Second), info.ExpiresAt.UTC())
	assert.Equal(t, 60*time.Second, info.TTL(clock.Now()))

	_, ok, err = e.Inspect(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSweep(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.Store) {
		rec := newRecorder()
		e, clock := newEngine(t, st, WithMetrics(rec))
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			require.NoError(t, e.Set(ctx, fmt.Sprintf("short-%d", i), []byte("x"), WithTTL(time.Second)))
		}
		require.NoError(t, e.Set(ctx, "long", []byte("x"), WithTTL(time.Hour)))
		require.NoError(t, e.Set(ctx, "forever", []byte("x")))

		clock.Advance(time.Minute)

		n, err := e.Sweep(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		assert.Equal(t, 3, rec.evicted[ReasonJanitor])

		s, err := e.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{Total: 2, Active: 2}, s)

		n, err = e.Sweep(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestJanitor(t *testing.T) {
	st := store.NewMemory()
	e, clock := newEngine(t, st, WithCleanupInterval(10*time.Millisecond))
	ctx := context.Background()

	require.NoError(t, e.Set(ctx, "a", []byte("x"), WithTTL(time.Second)))
	require.NoError(t, e.Set(ctx, "b", []byte("x")))
	clock.Advance(2 * time.Second)

	require.Eventually(t, func() bool {
		n, err := st.Len(ctx)
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	ok, err := e.Has(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCorruptRecord(t *testing.T) {
	st, err := store.NewDisk(t.TempDir())
	require.NoError(t, err)
	rec := newRecorder()
	e, _ := newEngine(t, st, WithMetrics(rec))
	ctx := context.Background()

	require.NoError(t, e.Set(ctx, "k", []byte("v")))
	path := st.Path("k")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	got, ok, err := e.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.NoFileExists(t, path)
	assert.Equal(t, 1, rec.evicted[ReasonCorrupt])

	require.NoError(t, e.Set(ctx, "k", []byte("again")))
	got, ok, err = e.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("again"), got)
}

func TestUndecodablePayload(t *testing.T) {
	st := store.NewMemory()
	e, _ := newEngine(t, st)
	ctx := context.Background()

	bad, err := entry.New("k", []byte{1, byte(codec.Zlib), 'n', 'o', 'p', 'e'}, epoch, time.Time{})
	require.NoError(t, err)
	require.NoError(t, st.Put(ctx, bad))

	_, ok, err := e.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrDecode)
	assert.False(t, ok)

	ok, err = e.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "undecodable entry is discarded")
}

func TestConcurrentAccess(t *testing.T) {
	forEachStore(t, func(t *testing.T, st store.Store) {
		e, _ := newEngine(t, st, WithCompression(Compression{Enabled: true, Level: 1, Threshold: 16, Method: codec.Zlib}))
		ctx := context.Background()

		const workers, rounds = 8, 50
		keys := []string{"alpha", "beta", "gamma"}

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < rounds; i++ {
					key := keys[(w+i)%len(keys)]
					value := []byte(fmt.Sprintf("%s|%d|%d|%s", key, w, i, strings.Repeat("x", i)))
					if err := e.Set(ctx, key, value); err != nil {
						t.Errorf("set: %v", err)
						return
					}
					got, ok, err := e.Get(ctx, key)
					if err != nil {
						t.Errorf("get: %v", err)
						return
					}
					if ok && !bytes.HasPrefix(got, []byte(key+"|")) {
						t.Errorf("torn value for %s: %q", key, got)
						return
					}
					if i%10 == 0 {
						_ = e.Remove(ctx, key)
					}
				}
			}(w)
		}
		wg.Wait()

		_, err := e.Stats(ctx)
		require.NoError(t, err)
	})
}

func TestClose(t *testing.T) {
	e, err := New(store.NewMemory(), WithCleanupInterval(time.Millisecond))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	assert.ErrorIs(t, e.Set(ctx, "k", []byte("v")), ErrClosed)
	_, _, err = e.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = e.Has(ctx, "k")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, e.Remove(ctx, "k"), ErrClosed)
	assert.ErrorIs(t, e.Clear(ctx), ErrClosed)
	_, err = e.Stats(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = e.Sweep(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}
