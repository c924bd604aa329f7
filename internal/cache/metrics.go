// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import "github.com/staranto/kvcache/internal/codec"

// Eviction reasons reported to Metrics.
const (
	ReasonExpired = "expired"
	ReasonJanitor = "janitor"
	ReasonCorrupt = "corrupt"
	ReasonDecode  = "decode"
)

// Metrics receives engine events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	Hit()
	Miss()
	Stored(m codec.Method, size int)
	Evicted(reason string)
	Fallback(from, to codec.Method)
	Entries(total, active int)
}

// NoopMetrics ignores every event.
type NoopMetrics struct{}

func (NoopMetrics) Hit()                                 {}
func (NoopMetrics) Miss()                                {}
func (NoopMetrics) Stored(codec.Method, int)             {}
func (NoopMetrics) Evicted(string)                       {}
func (NoopMetrics) Fallback(codec.Method, codec.Method) {}
func (NoopMetrics) Entries(int, int)                     {}
