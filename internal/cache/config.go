// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"time"

	"github.com/staranto/kvcache/internal/codec"
	"github.com/staranto/kvcache/internal/expiry"
)

const (
	// DefaultThreshold is the size a value must exceed before it is compressed.
	DefaultThreshold = 1024
	// DefaultLzma2Limit is the largest value Lzma2 is used for. Larger values
	// are compressed with Zlib.
	DefaultLzma2Limit = 10 << 20
	// DefaultCleanupInterval is how often the janitor runs.
	DefaultCleanupInterval = 60 * time.Second
)

// Compression holds the defaults applied by Set.
type Compression struct {
	Enabled   bool
	Level     int
	Threshold int
	Method    codec.Method
}

// DefaultCompression returns compression on, level 6, 1 KiB threshold, Zlib.
func DefaultCompression() Compression {
	return Compression{
		Enabled:   true,
		Level:     codec.DefaultLevel,
		Threshold: DefaultThreshold,
		Method:    codec.Zlib,
	}
}

func (c Compression) normalize() Compression {
	c.Level = codec.ClampLevel(c.Level)
	if c.Threshold < 0 {
		c.Threshold = 0
	}
	if !c.Method.Valid() {
		c.Method = codec.Zlib
	}
	return c
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithCompression sets the initial compression defaults.
func WithCompression(cfg Compression) Option {
	return func(e *Engine) {
		e.compression = cfg.normalize()
	}
}

// WithCleanupInterval sets the janitor period. d <= 0 disables the janitor;
// lazy expiry on lookup still applies.
func WithCleanupInterval(d time.Duration) Option {
	return func(e *Engine) {
		e.cleanupInterval = d
	}
}

// WithClock replaces the wall clock.
func WithClock(c expiry.Clock) Option {
	return func(e *Engine) {
		e.policy = expiry.NewPolicy(c)
	}
}

// WithMetrics reports engine events to m.
func WithMetrics(m Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithLzma2Limit sets the size above which Lzma2 requests fall back to Zlib.
func WithLzma2Limit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.lzma2Limit = n
		}
	}
}

// SetOption overrides an engine default for one Set call.
type SetOption func(*setOptions)

type setOptions struct {
	ttl       time.Duration
	hasTTL    bool
	compress  *bool
	method    codec.Method
	hasMethod bool
}

// WithTTL makes the entry expire ttl after it is written. The TTL must be at
// least a millisecond.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = ttl
		o.hasTTL = true
	}
}

// Compress overrides the engine's compression switch.
func Compress(on bool) SetOption {
	return func(o *setOptions) {
		o.compress = &on
	}
}

// UseMethod overrides the engine's compression method.
func UseMethod(m codec.Method) SetOption {
	return func(o *setOptions) {
		o.method = m
		o.hasMethod = true
	}
}
