// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package codec encodes cache payloads into a self-describing compressed form
// and back. Every encoded payload starts with a two byte header: a compressed
// flag followed by the method tag. The codec is stateless and safe for
// concurrent use.
package codec
