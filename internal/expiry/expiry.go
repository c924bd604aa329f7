// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package expiry decides whether a cache entry is still live.
package expiry

import (
	"sync"
	"time"
)

// Clock supplies the current time. Tests swap in a Manual clock.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Policy evaluates absolute expiry timestamps against a Clock. A zero
// expiresAt means the entry never expires.
type Policy struct {
	Clock Clock
}

// NewPolicy returns a Policy on clock, or on the wall clock if clock is nil.
func NewPolicy(clock Clock) Policy {
	if clock == nil {
		clock = System{}
	}
	return Policy{Clock: clock}
}

func (p Policy) now() time.Time {
	if p.Clock == nil {
		return time.Now()
	}
	return p.Clock.Now()
}

// Now returns the policy's current time.
func (p Policy) Now() time.Time { return p.now() }

// Expired reports whether now is strictly after expiresAt.
func (p Policy) Expired(expiresAt time.Time) bool {
	return !expiresAt.IsZero() && p.now().After(expiresAt)
}

// Live is the negation of Expired, so an entry is live at exactly expiresAt.
func (p Policy) Live(expiresAt time.Time) bool {
	return !p.Expired(expiresAt)
}

// Deadline computes the absolute expiry for an entry created at createdAt.
// A non-positive ttl yields the zero time.
func Deadline(createdAt time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return createdAt.Add(ttl)
}

// Manual is a Clock that only moves when told to.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock reading start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Set moves the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}
