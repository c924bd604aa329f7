// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"errors"

	"github.com/staranto/kvcache/internal/codec"
	"github.com/staranto/kvcache/internal/store"
)

var (
	// ErrInvalidArgument is returned for an empty or non UTF-8 key and for an
	// explicit TTL that is not positive.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("cache is closed")
	// ErrDecode is wrapped when a stored payload cannot be decoded.
	ErrDecode = codec.ErrDecode
	// ErrStorage is wrapped by I/O failures of a durable store.
	ErrStorage = store.ErrStorage
)
