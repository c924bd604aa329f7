// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"
	"fmt"
)

// HeaderSize is the length of the prefix carried by every payload.
const HeaderSize = 2

const (
	MinLevel     = 0
	MaxLevel     = 9
	DefaultLevel = 6
)

const (
	flagRaw        byte = 0
	flagCompressed byte = 1
)

var (
	// ErrDecode is wrapped by every Decode failure.
	ErrDecode = errors.New("decode failed")
	// ErrEncode is wrapped by every Encode failure.
	ErrEncode = errors.New("encode failed")
)

// ClampLevel forces level into MinLevel..MaxLevel.
func ClampLevel(level int) int {
	if level < MinLevel {
		return MinLevel
	}
	if level > MaxLevel {
		return MaxLevel
	}
	return level
}

// Encode compresses data with m at the given level and prefixes the result
// with the header. Only Zlib and Lzma2 are accepted.
func Encode(data []byte, m Method, level int) ([]byte, error) {
	level = ClampLevel(level)

	var (
		body []byte
		err  error
	)
	switch m {
	case Zlib:
		body, err = zlibEncode(data, level)
	case Lzma2:
		body, err = lzma2Encode(data, level)
	default:
		return nil, fmt.Errorf("%w: method %s cannot compress", ErrEncode, m)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncode, m, err)
	}

	out := make([]byte, 0, HeaderSize+len(body))
	out = append(out, flagCompressed, byte(m))
	return append(out, body...), nil
}

// Raw wraps data in the "not compressed" header without touching it.
func Raw(data []byte) []byte {
	out := make([]byte, 0, HeaderSize+len(data))
	out = append(out, flagRaw, byte(None))
	return append(out, data...)
}

// Header parses the two byte prefix of an encoded payload.
func Header(data []byte) (compressed bool, m Method, err error) {
	if len(data) < HeaderSize {
		return false, None, fmt.Errorf("%w: payload shorter than header (%d bytes)", ErrDecode, len(data))
	}
	switch data[0] {
	case flagRaw:
		return false, None, nil
	case flagCompressed:
		m = Method(data[1])
		if m != Zlib && m != Lzma2 {
			return true, m, fmt.Errorf("%w: unknown method tag %d", ErrDecode, data[1])
		}
		return true, m, nil
	default:
		return false, None, fmt.Errorf("%w: bad header flag %d", ErrDecode, data[0])
	}
}

// Decode reverses Encode and Raw. The returned slice never aliases data.
func Decode(data []byte) ([]byte, error) {
	compressed, m, err := Header(data)
	if err != nil {
		return nil, err
	}
	body := data[HeaderSize:]
	if !compressed {
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	}

	var out []byte
	switch m {
	case Zlib:
		out, err = zlibDecode(body)
	case Lzma2:
		out, err = lzma2Decode(body)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, m, err)
	}
	return out, nil
}
