// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
	"strings"
)

// Method identifies the compressor that produced a payload. The numeric value
// is the tag written in the second header byte.
type Method uint8

const (
	None  Method = 0
	Zlib  Method = 1
	Lzma2 Method = 2
)

// Methods lists the concrete compression methods.
var Methods = []Method{Zlib, Lzma2}

func (m Method) String() string {
	switch m {
	case None:
		return "none"
	case Zlib:
		return "zlib"
	case Lzma2:
		return "lzma2"
	default:
		return fmt.Sprintf("method(%d)", uint8(m))
	}
}

// Valid reports whether m is one of the known methods, None included.
func (m Method) Valid() bool {
	return m == None || m == Zlib || m == Lzma2
}

// ParseMethod converts a method name as it appears in config files and flags.
// The empty string parses as None.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "raw":
		return None, nil
	case "zlib":
		return Zlib, nil
	case "lzma2", "lzma":
		return Lzma2, nil
	default:
		return None, fmt.Errorf("unknown compression method %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid compression method %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(b []byte) error {
	v, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
