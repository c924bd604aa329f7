// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v2"
)

// ErrNotJSON is returned by Query when the value is not a JSON document.
var ErrNotJSON = errors.New("value is not valid JSON")

// Query extracts path from a JSON value using gjson syntax. The result is the
// raw JSON of the match, or false when nothing matches.
func Query(value []byte, path string) ([]byte, bool, error) {
	if !gjson.ValidBytes(value) {
		return nil, false, ErrNotJSON
	}
	res := gjson.GetBytes(value, path)
	if !res.Exists() {
		return nil, false, nil
	}
	if res.Type == gjson.String {
		return []byte(res.Str), true, nil
	}
	return []byte(res.Raw), true, nil
}

type valueDoc struct {
	Key      string `json:"key" yaml:"key"`
	Value    string `json:"value" yaml:"value"`
	Encoding string `json:"encoding,omitempty" yaml:"encoding,omitempty"`
}

// Value writes one cached value. raw writes the bytes untouched, text adds a
// trailing newline, json and yaml wrap the value with its key and base64
// encode it when it is not UTF-8.
func Value(w io.Writer, key string, value []byte, format string) error {
	switch format {
	case FormatRaw:
		_, err := w.Write(value)
		return err
	case FormatJSON, FormatYAML:
		doc := valueDoc{Key: key, Value: string(value)}
		if !utf8.Valid(value) {
			doc.Value = base64.StdEncoding.EncodeToString(value)
			doc.Encoding = "base64"
		}

		var out []byte
		var err error
		if format == FormatJSON {
			out, err = json.Marshal(doc)
			out = append(out, '\n')
		} else {
			out, err = yaml.Marshal(doc)
		}
		if err != nil {
			return fmt.Errorf("failed to marshal value: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		if _, err := w.Write(value); err != nil {
			return err
		}
		if len(value) == 0 || value[len(value)-1] != '\n' {
			_, err := io.WriteString(w, "\n")
			return err
		}
		return nil
	}
}
