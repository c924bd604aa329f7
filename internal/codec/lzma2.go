// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// MaxDictCap is the largest dictionary the Lzma2 encoder will allocate.
// Decoders use it as well, so every payload written here can be read back.
const MaxDictCap = 1 << 20

// The raw LZMA2 stream carries no checksum, so the encoder appends a CRC-32
// of the plain text after the end-of-stream marker.
const crcSize = 4

var errChecksum = errors.New("lzma2 checksum mismatch")

// DictCap returns the dictionary size used for an input of n bytes: the
// lesser of n and MaxDictCap, never below the library minimum. The level
// does not shrink it; a dictionary smaller than the input can yield streams
// the reader rejects.
func DictCap(n int) int {
	return max(lzma.MinDictCap, min(n, MaxDictCap))
}

func lzma2Encode(data []byte, level int) ([]byte, error) {
	cfg := lzma.Writer2Config{
		DictCap: DictCap(len(data)),
		Matcher: lzma.BinaryTree,
	}
	if level <= 3 {
		cfg.Matcher = lzma.HashTable4
	}
	if err := cfg.Verify(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w, err := cfg.NewWriter2(&buf)
	if err != nil {
		return nil, err
	}
	for off := 0; off < len(data); off += chunkSize {
		end := min(off+chunkSize, len(data))
		if _, err := w.Write(data[off:end]); err != nil {
			_ = w.Close()
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	out := binary.BigEndian.AppendUint32(buf.Bytes(), crc32.ChecksumIEEE(data))

	// Never hand back a payload that does not read back.
	if _, err := lzma2Decode(out); err != nil {
		return nil, fmt.Errorf("lzma2 stream does not verify: %w", err)
	}
	return out, nil
}

func lzma2Decode(body []byte) ([]byte, error) {
	if len(body) < crcSize {
		return nil, io.ErrUnexpectedEOF
	}
	stream := bytes.NewReader(body[:len(body)-crcSize])
	want := binary.BigEndian.Uint32(body[len(body)-crcSize:])

	cfg := lzma.Reader2Config{DictCap: MaxDictCap}
	r, err := cfg.NewReader2(stream)
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if stream.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after end of stream", stream.Len())
	}
	if crc32.ChecksumIEEE(out) != want {
		return nil, errChecksum
	}
	return out, nil
}
