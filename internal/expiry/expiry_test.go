// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Expired(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	clock := NewManual(start)
	p := NewPolicy(clock)

	deadline := Deadline(start, time.Second)

	assert.False(t, p.Expired(time.Time{}), "zero deadline never expires")
	assert.False(t, p.Expired(deadline))

	clock.Advance(time.Second)
	assert.False(t, p.Expired(deadline), "live at exactly the deadline")
	assert.True(t, p.Live(deadline))

	clock.Advance(time.Millisecond)
	assert.True(t, p.Expired(deadline))
	assert.False(t, p.Live(deadline))
	assert.False(t, p.Expired(time.Time{}))
}

func TestDeadline(t *testing.T) {
	now := time.Now()
	assert.True(t, Deadline(now, 0).IsZero())
	assert.True(t, Deadline(now, -time.Second).IsZero())
	assert.Equal(t, now.Add(time.Minute), Deadline(now, time.Minute))
}

func TestNewPolicy_DefaultsToSystem(t *testing.T) {
	p := NewPolicy(nil)
	assert.IsType(t, System{}, p.Clock)
	assert.WithinDuration(t, time.Now(), p.Now(), time.Second)

	var zero Policy
	assert.True(t, zero.Expired(time.Now().Add(-time.Hour)))
}

func TestManual(t *testing.T) {
	start := time.Unix(0, 0)
	m := NewManual(start)
	m.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), m.Now())

	later := time.Unix(1000, 0)
	m.Set(later)
	assert.Equal(t, later, m.Now())
}
