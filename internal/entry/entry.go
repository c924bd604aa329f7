// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package entry defines the unit of storage held by a store and the record
// format used when an entry is persisted.
package entry

import (
	"errors"
	"fmt"
	"time"

	"github.com/staranto/kvcache/internal/codec"
)

// ErrCorrupt marks a persisted unit that cannot be turned back into an Entry.
var ErrCorrupt = errors.New("corrupt entry")

// Entry is one cached value. Payload is always the codec form: the two byte
// header followed by raw or compressed bytes.
type Entry struct {
	Key        string
	Payload    []byte
	Compressed bool
	Method     codec.Method
	CreatedAt  time.Time
	// ExpiresAt is zero when the entry never expires.
	ExpiresAt time.Time
}

// New builds an Entry and derives the compression flags from the payload
// header so the two can never disagree.
func New(key string, payload []byte, createdAt, expiresAt time.Time) (Entry, error) {
	compressed, m, err := codec.Header(payload)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Key:        key,
		Payload:    payload,
		Compressed: compressed,
		Method:     m,
		CreatedAt:  createdAt,
		ExpiresAt:  expiresAt,
	}, nil
}

// HasExpiry reports whether the entry carries a deadline.
func (e Entry) HasExpiry() bool {
	return !e.ExpiresAt.IsZero()
}

// Validate checks the invariants between the flags and the payload header.
func (e Entry) Validate() error {
	if e.Key == "" {
		return errors.New("entry has empty key")
	}
	compressed, m, err := codec.Header(e.Payload)
	if err != nil {
		return err
	}
	if compressed != e.Compressed {
		return fmt.Errorf("compressed flag %t disagrees with payload header", e.Compressed)
	}
	if !e.Compressed && e.Method != codec.None {
		return fmt.Errorf("uncompressed entry carries method %s", e.Method)
	}
	if e.Compressed && e.Method != m {
		return fmt.Errorf("method %s disagrees with payload header %s", e.Method, m)
	}
	if e.HasExpiry() && e.ExpiresAt.Before(e.CreatedAt) {
		return errors.New("entry expires before it was created")
	}
	return nil
}

// Clone returns a copy that shares no memory with e.
func (e Entry) Clone() Entry {
	if e.Payload != nil {
		p := make([]byte, len(e.Payload))
		copy(p, e.Payload)
		e.Payload = p
	}
	return e
}

// Size is the number of payload bytes held, header included.
func (e Entry) Size() int {
	return len(e.Payload)
}
