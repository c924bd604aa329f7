// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/apex/log"

	"github.com/staranto/kvcache/internal/codec"
	"github.com/staranto/kvcache/internal/entry"
	"github.com/staranto/kvcache/internal/expiry"
	"github.com/staranto/kvcache/internal/store"
	"github.com/staranto/kvcache/internal/task"
)

// Engine is safe for concurrent use. Operations on one key are serialized;
// operations on different keys run in parallel. Clear excludes everything
// else for its duration.
type Engine struct {
	store   store.Store
	policy  expiry.Policy
	metrics Metrics

	cfgMu       sync.RWMutex
	compression Compression

	lzma2Limit      int
	cleanupInterval time.Duration
	encoder         func([]byte, codec.Method, int) ([]byte, error)

	mu     sync.RWMutex
	locks  keyLocks
	closed atomic.Bool

	janitor *task.Recurring
}

// New builds an Engine over st and starts its janitor.
func New(st store.Store, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: nil store", ErrInvalidArgument)
	}

	e := &Engine{
		store:           st,
		policy:          expiry.NewPolicy(nil),
		metrics:         NoopMetrics{},
		compression:     DefaultCompression(),
		lzma2Limit:      DefaultLzma2Limit,
		cleanupInterval: DefaultCleanupInterval,
		encoder:         codec.Encode,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.janitor = task.NewRecurring("janitor", e.cleanupInterval, func(ctx context.Context) error {
		_, err := e.sweep(ctx, ReasonJanitor)
		return err
	})
	e.janitor.Start(context.Background())

	log.WithFields(log.Fields{
		"interval":    e.cleanupInterval,
		"compression": e.compression.Enabled,
		"method":      e.compression.Method,
	}).Debug("cache engine started")

	return e, nil
}

// Configure replaces the compression defaults used by later Set calls.
// Entries already stored keep their encoding.
func (e *Engine) Configure(cfg Compression) {
	cfg = cfg.normalize()
	e.cfgMu.Lock()
	e.compression = cfg
	e.cfgMu.Unlock()
}

// Compression returns the current compression defaults.
func (e *Engine) Compression() Compression {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.compression
}

// Set stores value under key, replacing any previous entry.
func (e *Engine) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	if err := e.check(key); err != nil {
		return err
	}

	var so setOptions
	for _, opt := range opts {
		opt(&so)
	}

	// Timestamps persist at millisecond resolution.
	now := e.policy.Now().Truncate(time.Millisecond)
	var expiresAt time.Time
	if so.hasTTL {
		ttl := so.ttl.Truncate(time.Millisecond)
		if ttl <= 0 {
			return fmt.Errorf("%w: ttl %s must be at least 1ms", ErrInvalidArgument, so.ttl)
		}
		expiresAt = expiry.Deadline(now, ttl)
	}

	cfg := e.Compression()
	compress := cfg.Enabled
	if so.compress != nil {
		compress = *so.compress
	}
	method := cfg.Method
	if so.hasMethod {
		method = so.method
	}

	payload, used := e.encode(value, compress, method, cfg)
	en, err := entry.New(key, payload, now, expiresAt)
	if err != nil {
		return err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	l := e.locks.of(key)
	l.Lock()
	defer l.Unlock()

	if err := e.store.Put(ctx, en); err != nil {
		return err
	}

	e.metrics.Stored(used, len(payload))
	log.WithFields(log.Fields{
		"key":    key,
		"size":   len(value),
		"stored": len(payload),
		"method": used,
	}).Debug("set")

	return nil
}

// Get returns the decoded value for key. An absent or expired key is a miss
// reported as (nil, false, nil).
func (e *Engine) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := e.check(key); err != nil {
		return nil, false, err
	}

	en, ok, err := e.lookup(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}

	value, err := codec.Decode(en.Payload)
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("discarding undecodable entry")
		e.mu.RLock()
		_, derr := e.evict(ctx, key, ReasonDecode, func(cur entry.Entry, cerr error) bool {
			return cerr == nil && sameEntry(cur, en)
		})
		e.mu.RUnlock()
		if derr != nil {
			log.WithError(derr).WithField("key", key).Warn("evict failed")
		}
		return nil, false, fmt.Errorf("key %q: %w", key, err)
	}

	e.metrics.Hit()
	return value, true, nil
}

// Has reports whether key holds a live entry. An expired entry is evicted.
func (e *Engine) Has(ctx context.Context, key string) (bool, error) {
	if err := e.check(key); err != nil {
		return false, err
	}
	_, ok, err := e.lookup(ctx, key)
	return ok, err
}

// Remove deletes key. Removing a missing key is not an error.
func (e *Engine) Remove(ctx context.Context, key string) error {
	if err := e.check(key); err != nil {
		return err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	l := e.locks.of(key)
	l.Lock()
	defer l.Unlock()

	return e.store.Delete(ctx, key)
}

// Clear deletes every entry, live or expired.
func (e *Engine) Clear(ctx context.Context) error {
	if e.closed.Load() {
		return ErrClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.store.Clear(ctx); err != nil {
		return err
	}
	log.Debug("cleared")
	return nil
}

// Close stops the janitor and closes the store. Close is idempotent.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.janitor.Stop()
	return e.store.Close()
}

func (e *Engine) check(key string) error {
	if e.closed.Load() {
		return ErrClosed
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidArgument)
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("%w: key is not valid UTF-8", ErrInvalidArgument)
	}
	return nil
}

// lookup reads key under its stripe lock and resolves expiry and corruption.
// Expired and corrupt units are evicted and reported as a miss.
func (e *Engine) lookup(ctx context.Context, key string) (entry.Entry, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	l := e.locks.of(key)
	l.RLock()
	en, ok, err := e.store.Get(ctx, key)
	l.RUnlock()

	var reason string
	var match func(entry.Entry, error) bool
	switch {
	case errors.Is(err, store.ErrCorrupt):
		log.WithError(err).WithField("key", key).Warn("discarding corrupt entry")
		reason, match = ReasonCorrupt, isCorrupt
	case err != nil:
		return entry.Entry{}, false, err
	case !ok:
		e.metrics.Miss()
		return entry.Entry{}, false, nil
	case e.policy.Expired(en.ExpiresAt):
		reason, match = ReasonExpired, e.isExpired
	default:
		return en, true, nil
	}

	// Upgrade to the write lock. Another caller may have replaced or removed
	// the entry in between, so match re-checks before deleting.
	if _, err := e.evict(ctx, key, reason, match); err != nil {
		log.WithError(err).WithField("key", key).Warn("evict failed")
	}
	e.metrics.Miss()
	return entry.Entry{}, false, nil
}

// evict deletes key if its current unit satisfies match. The caller holds
// e.mu for reading.
func (e *Engine) evict(ctx context.Context, key, reason string, match func(entry.Entry, error) bool) (bool, error) {
	l := e.locks.of(key)
	l.Lock()
	defer l.Unlock()

	cur, ok, err := e.store.Get(ctx, key)
	switch {
	case errors.Is(err, store.ErrCorrupt):
	case err != nil:
		return false, err
	case !ok:
		return false, nil
	}
	if !match(cur, err) {
		return false, nil
	}

	if err := e.store.Delete(ctx, key); err != nil {
		return false, err
	}
	e.metrics.Evicted(reason)
	log.WithFields(log.Fields{"key": key, "reason": reason}).Debug("evicted")
	return true, nil
}

func (e *Engine) isExpired(cur entry.Entry, err error) bool {
	return err == nil && e.policy.Expired(cur.ExpiresAt)
}

func isCorrupt(_ entry.Entry, err error) bool {
	return err != nil
}

func sameEntry(a, b entry.Entry) bool {
	return a.CreatedAt.Equal(b.CreatedAt) && bytes.Equal(a.Payload, b.Payload)
}

// encode picks the payload form for value. Compression failures degrade to
// Zlib and then to raw bytes; Set never fails because of the codec.
func (e *Engine) encode(value []byte, compress bool, m codec.Method, cfg Compression) ([]byte, codec.Method) {
	if !compress || m == codec.None || len(value) <= cfg.Threshold {
		return codec.Raw(value), codec.None
	}
	if !m.Valid() {
		m = codec.Zlib
	}

	if m == codec.Lzma2 && len(value) > e.lzma2Limit {
		log.WithFields(log.Fields{"size": len(value), "limit": e.lzma2Limit}).Debug("value too large for lzma2, using zlib")
		e.metrics.Fallback(codec.Lzma2, codec.Zlib)
		m = codec.Zlib
	}

	out, err := e.encoder(value, m, cfg.Level)
	if err == nil {
		return out, m
	}
	log.WithError(err).WithField("method", m).Warn("compression failed")

	if m != codec.Zlib {
		e.metrics.Fallback(m, codec.Zlib)
		if out, err = e.encoder(value, codec.Zlib, cfg.Level); err == nil {
			return out, codec.Zlib
		}
		log.WithError(err).WithField("method", codec.Zlib).Warn("compression failed")
	}

	e.metrics.Fallback(codec.Zlib, codec.None)
	return codec.Raw(value), codec.None
}
