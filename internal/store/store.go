// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package store holds cache entries. Memory keeps them for the life of the
// process; Disk keeps one file per key and survives restarts. Both are safe
// for concurrent use and never hand out memory they still own.
package store

import (
	"context"
	"errors"

	"github.com/staranto/kvcache/internal/entry"
)

var (
	// ErrStorage wraps every I/O failure of a durable store.
	ErrStorage = errors.New("storage error")
	// ErrCorrupt is returned by Get when a persisted unit cannot be parsed.
	ErrCorrupt = entry.ErrCorrupt
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store is closed")
)

// Store maps keys to entries.
type Store interface {
	// Get returns a copy of the entry for key. A missing key is (Entry{}, false, nil).
	Get(ctx context.Context, key string) (entry.Entry, bool, error)

	// Put stores e, replacing any entry with the same key.
	Put(ctx context.Context, e entry.Entry) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Scan calls fn for each entry in no particular order until fn returns
	// false. Entries added or removed during a scan may or may not be seen.
	Scan(ctx context.Context, fn func(entry.Entry) bool) error

	// Len counts stored entries, expired ones included.
	Len(ctx context.Context) (int, error)

	// Close releases resources. Close is idempotent.
	Close() error
}
