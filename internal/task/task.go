// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package task runs a function on a fixed interval until it is stopped.
// Cancellation is cooperative: the running function receives a context that
// is cancelled by Stop and is expected to return promptly once it is.
package task

import (
	"context"
	"sync"
	"time"

	"github.com/apex/log"
)

// State is the lifecycle position of a Recurring task.
type State int32

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Func is one cycle of work.
type Func func(ctx context.Context) error

// Recurring calls fn every interval: Idle -> Running -> Idle, repeating, and
// Idle or Running -> Stopped once Stop is called.
type Recurring struct {
	name     string
	interval time.Duration
	fn       Func

	mu      sync.Mutex
	state   State
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	runs    int
}

// NewRecurring builds a task. It does nothing until Start.
func NewRecurring(name string, interval time.Duration, fn Func) *Recurring {
	return &Recurring{
		name:     name,
		interval: interval,
		fn:       fn,
		done:     make(chan struct{}),
	}
}

// Start launches the loop. Calling Start twice, or after Stop, is a no-op.
func (r *Recurring) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.state == Stopped || r.interval <= 0 {
		return
	}
	r.started = true

	ctx, r.cancel = context.WithCancel(ctx)
	go r.loop(ctx)
}

func (r *Recurring) loop(ctx context.Context) {
	defer close(r.done)
	defer r.setState(Stopped)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// Stop may have raced with the tick.
		if ctx.Err() != nil {
			return
		}
		r.setState(Running)
		if err := r.fn(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).WithField("task", r.name).Warn("recurring task cycle failed")
		}
		r.mu.Lock()
		r.runs++
		if r.state == Running {
			r.state = Idle
		}
		r.mu.Unlock()
	}
}

func (r *Recurring) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// Stop cancels the loop and waits for the current cycle to observe it.
// Stop is safe to call multiple times and before Start.
func (r *Recurring) Stop() {
	r.mu.Lock()
	started := r.started
	cancel := r.cancel
	r.state = Stopped
	r.mu.Unlock()

	if !started {
		return
	}
	cancel()
	<-r.done
}

// State reports where the task is in its lifecycle.
func (r *Recurring) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Runs is the number of completed cycles.
func (r *Recurring) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}
