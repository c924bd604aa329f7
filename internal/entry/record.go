// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package entry

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Record is the JSON document written for one persisted entry. Timestamps are
// Unix milliseconds. The compression method lives in the value header, not
// here, so the value stays self-describing.
type Record struct {
	Key          string `json:"key"`
	Value        string `json:"value"`
	IsCompressed bool   `json:"is_compressed"`
	CreatedAt    int64  `json:"created_at"`
	ExpiresAt    *int64 `json:"expires_at,omitempty"`
}

// Marshal encodes e as a Record.
func Marshal(e Entry) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	rec := Record{
		Key:          e.Key,
		Value:        base64.StdEncoding.EncodeToString(e.Payload),
		IsCompressed: e.Compressed,
		CreatedAt:    e.CreatedAt.UnixMilli(),
	}
	if e.HasExpiry() {
		ms := e.ExpiresAt.UnixMilli()
		rec.ExpiresAt = &ms
	}
	return json.Marshal(rec)
}

// Unmarshal decodes a Record. Every failure wraps ErrCorrupt.
func Unmarshal(b []byte) (Entry, error) {
	var rec Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if rec.Key == "" {
		return Entry{}, fmt.Errorf("%w: record has no key", ErrCorrupt)
	}
	payload, err := base64.StdEncoding.DecodeString(rec.Value)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: value: %v", ErrCorrupt, err)
	}

	var expiresAt time.Time
	if rec.ExpiresAt != nil {
		expiresAt = time.UnixMilli(*rec.ExpiresAt)
	}
	e, err := New(rec.Key, payload, time.UnixMilli(rec.CreatedAt), expiresAt)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if e.Compressed != rec.IsCompressed {
		return Entry{}, fmt.Errorf("%w: is_compressed=%t but header says %t", ErrCorrupt, rec.IsCompressed, e.Compressed)
	}
	return e, nil
}
