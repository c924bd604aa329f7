// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// chunkSize bounds each Write into the compressor so large values do not
// produce one giant internal copy.
const chunkSize = 64 * 1024

func zlibEncode(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
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
	return buf.Bytes(), nil
}

func zlibDecode(body []byte) ([]byte, error) {
	stream := bytes.NewReader(body)
	r, err := zlib.NewReader(stream)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if stream.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after end of stream", stream.Len())
	}
	return out, nil
}
