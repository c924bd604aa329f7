// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"sort"
	"time"

	"github.com/apex/log"

	"github.com/staranto/kvcache/internal/codec"
	"github.com/staranto/kvcache/internal/entry"
)

// Stats counts stored entries. Total includes expired entries the janitor
// has not removed yet; Active counts only live ones.
type Stats struct {
	Total  int `json:"total" yaml:"total"`
	Active int `json:"active" yaml:"active"`
}

// Expired is the number of entries waiting to be purged.
func (s Stats) Expired() int {
	return s.Total - s.Active
}

// Info describes one stored entry without decoding it.
type Info struct {
	Key        string
	Compressed bool
	Method     codec.Method
	StoredSize int
	CreatedAt  time.Time
	// ExpiresAt is zero when the entry never expires.
	ExpiresAt time.Time
}

// TTL is the time left before the entry expires, zero for no expiry.
func (i Info) TTL(now time.Time) time.Duration {
	if i.ExpiresAt.IsZero() {
		return 0
	}
	if d := i.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Stats counts the stored units and scans them for live ones. Total comes
// from the store, so it includes units too corrupt to parse; Active only
// counts entries that parse and have not expired. Stats does not evict.
// Entries written or removed during the scan may or may not be counted.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	if e.closed.Load() {
		return Stats{}, ErrClosed
	}

	total, err := e.store.Len(ctx)
	if err != nil {
		return Stats{}, err
	}

	var s Stats
	err = e.store.Scan(ctx, func(en entry.Entry) bool {
		if e.policy.Live(en.ExpiresAt) {
			s.Active++
		}
		return true
	})
	if err != nil {
		return Stats{}, err
	}
	// Writes between Len and Scan.
	s.Total = max(total, s.Active)

	e.metrics.Entries(s.Total, s.Active)
	return s, nil
}

// Keys returns the live keys in sorted order.
func (e *Engine) Keys(ctx context.Context) ([]string, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	keys := []string{}
	err := e.store.Scan(ctx, func(en entry.Entry) bool {
		if e.policy.Live(en.ExpiresAt) {
			keys = append(keys, en.Key)
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}

// Inspect returns metadata for a live entry. It follows the same miss and
// eviction rules as Has.
func (e *Engine) Inspect(ctx context.Context, key string) (Info, bool, error) {
	if err := e.check(key); err != nil {
		return Info{}, false, err
	}

	en, ok, err := e.lookup(ctx, key)
	if err != nil || !ok {
		return Info{}, false, err
	}

	return Info{
		Key:        en.Key,
		Compressed: en.Compressed,
		Method:     en.Method,
		StoredSize: len(en.Payload),
		CreatedAt:  en.CreatedAt,
		ExpiresAt:  en.ExpiresAt,
	}, true, nil
}

// Sweep removes every expired entry now and returns how many it removed.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}
	return e.sweep(ctx, ReasonJanitor)
}

// sweep collects expired keys in one pass and then evicts them one at a
// time, so foreground callers wait on at most a single entry.
func (e *Engine) sweep(ctx context.Context, reason string) (int, error) {
	start := time.Now()

	var expired []string
	err := e.store.Scan(ctx, func(en entry.Entry) bool {
		if e.policy.Expired(en.ExpiresAt) {
			expired = append(expired, en.Key)
		}
		return true
	})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range expired {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		e.mu.RLock()
		ok, err := e.evict(ctx, key, reason, e.isExpired)
		e.mu.RUnlock()

		if err != nil {
			log.WithError(err).WithField("key", key).Warn("sweep evict failed")
			continue
		}
		if ok {
			removed++
		}
	}

	if len(expired) > 0 {
		log.WithFields(log.Fields{
			"candidates": len(expired),
			"removed":    removed,
			"elapsed":    time.Since(start),
		}).Debug("sweep")
	}
	return removed, nil
}
