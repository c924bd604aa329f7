// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestSortDataset(t *testing.T) {
	testData := []map[string]interface{}{
		{"name": "zebra", "count": 3.0, "type": "aws_instance"},
		{"name": "alpha", "count": 1.0, "type": "gcp_compute"},
		{"name": "beta", "count": 2.0, "type": "azure_vm"},
	}

	tests := []struct {
		name      string
		spec      string
		wantOrder []string
	}{
		{name: "ascending by name", spec: "name", wantOrder: []string{"alpha", "beta", "zebra"}},
		{name: "descending by name", spec: "-name", wantOrder: []string{"zebra", "beta", "alpha"}},
		{name: "ascending by count", spec: "count", wantOrder: []string{"alpha", "beta", "zebra"}},
		{name: "descending by count", spec: "-count", wantOrder: []string{"zebra", "beta", "alpha"}},
		{name: "case sensitive", spec: "!name", wantOrder: []string{"alpha", "beta", "zebra"}},
		{name: "multiple fields", spec: "count,name", wantOrder: []string{"alpha", "beta", "zebra"}},
		{name: "empty spec", spec: "", wantOrder: []string{"zebra", "alpha", "beta"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]map[string]interface{}, len(testData))
			copy(data, testData)

			SortDataset(data, tt.spec)

			got := make([]string, 0, len(data))
			for _, row := range data {
				got = append(got, row["name"].(string))
			}
			assert.Equal(t, tt.wantOrder, got)
		})
	}
}

func TestSortDataset_TypedValues(t *testing.T) {
	now := time.Now()
	data := []map[string]interface{}{
		{"key": "b", "size": Bytes(2048), "created": now},
		{"key": "a", "size": Bytes(10), "created": now.Add(time.Hour)},
		{"key": "C", "size": Bytes(300), "created": now.Add(-time.Hour)},
	}

	SortDataset(data, "-size")
	assert.Equal(t, "b", data[0]["key"])
	assert.Equal(t, "a", data[2]["key"])

	SortDataset(data, "created")
	assert.Equal(t, "C", data[0]["key"])

	SortDataset(data, "key")
	assert.Equal(t, "a", data[0]["key"])
	assert.Equal(t, "C", data[2]["key"], "case insensitive by default")

	SortDataset(data, "!key")
	assert.Equal(t, "C", data[0]["key"])
}

func TestInterfaceToString(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		emptyVal string
		want     string
	}{
		{name: "string", value: "hello", want: "hello"},
		{name: "int", value: 42, want: "42"},
		{name: "float64", value: 42.5, want: "42"},
		{name: "float64 with decimal", value: 42.7, want: "43"},
		{name: "bool true", value: true, want: "true"},
		{name: "bool false is zero value", value: false, want: ""},
		{name: "nil default", value: nil, want: ""},
		{name: "nil custom", value: nil, emptyVal: "-", want: "-"},
		{name: "slice", value: []string{"a", "b"}, want: `["a","b"]`},
		{name: "map", value: map[string]int{"x": 1}, want: `{"x":1}`},
		{name: "zero value int", value: 0, want: ""},
		{name: "zero value with custom empty", value: 0, emptyVal: "N/A", want: "N/A"},
		{name: "bytes", value: Bytes(2048), want: "2.0 KiB"},
		{name: "zero count", value: Count(0), emptyVal: "-", want: "0"},
		{name: "duration", value: 1500 * time.Millisecond, want: "1.5s"},
		{name: "zero time", value: time.Time{}, emptyVal: "-", want: "-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			if tt.emptyVal != "" {
				got = InterfaceToString(tt.value, tt.emptyVal)
			} else {
				got = InterfaceToString(tt.value)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildFilters(t *testing.T) {
	tests := []struct {
		spec string
		want []Filter
	}{
		{spec: "", want: nil},
		{spec: "method=zlib", want: []Filter{{Key: "method", Operand: "=", Target: "zlib"}}},
		{spec: "key^user:", want: []Filter{{Key: "key", Operand: "^", Target: "user:"}}},
		{spec: "key!@tmp", want: []Filter{{Key: "key", Negate: true, Operand: "@", Target: "tmp"}}},
		{spec: "key/^a.b$,method=none", want: []Filter{
			{Key: "key", Operand: "/", Target: "^a.b$"},
			{Key: "method", Operand: "=", Target: "none"},
		}},
		{spec: "nooperator", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildFilters(tt.spec))
		})
	}
}

func TestFilterDataset(t *testing.T) {
	rows := []map[string]interface{}{
		{"key": "user:1", "method": "zlib"},
		{"key": "user:2", "method": "none"},
		{"key": "session:9", "method": "lzma2"},
	}

	keys := func(rows []map[string]interface{}) []string {
		out := []string{}
		for _, r := range rows {
			out = append(out, r["key"].(string))
		}
		return out
	}

	assert.Equal(t, []string{"user:1", "user:2", "session:9"}, keys(FilterDataset(rows, "")))
	assert.Equal(t, []string{"user:1", "user:2"}, keys(FilterDataset(rows, "key^user:")))
	assert.Equal(t, []string{"user:1"}, keys(FilterDataset(rows, "key^user:,method=zlib")))
	assert.Equal(t, []string{"session:9"}, keys(FilterDataset(rows, "key!^user")))
	assert.Equal(t, []string{"user:2"}, keys(FilterDataset(rows, "method~NONE")))
	assert.Equal(t, []string{"user:1", "user:2", "session:9"}, keys(FilterDataset(rows, "missing=x")), "unknown keys are ignored")
}

func TestSliceDiceSpit(t *testing.T) {
	ds := Dataset{
		Columns: []string{"key", "size", "expires"},
		Rows: []map[string]interface{}{
			{"key": "b", "size": Bytes(2048), "expires": time.Time{}},
			{"key": "a", "size": Bytes(10), "expires": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		},
	}

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, SliceDiceSpit(ds, Options{Format: FormatJSON, Sort: "key"}, &buf))

		var got []map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0]["key"])
		assert.Equal(t, 10.0, got[0]["size"])
		assert.Equal(t, "2026-01-01T00:00:00Z", got[0]["expires"])
		assert.Nil(t, got[1]["expires"])
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, SliceDiceSpit(ds, Options{Format: FormatYAML, Filter: "key=b"}, &buf))

		var got []map[string]interface{}
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, 2048, got[0]["size"])
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, SliceDiceSpit(ds, Options{Format: FormatText, Titles: true}, &buf))
		out := buf.String()
		assert.Contains(t, out, "key")
		assert.Contains(t, out, "2.0 KiB")
		assert.Contains(t, out, "10 B")
	})

	t.Run("single", func(t *testing.T) {
		single := Dataset{
			Columns: []string{"total", "active"},
			Rows:    []map[string]interface{}{{"total": 3, "active": 2}},
			Single:  true,
		}
		var buf bytes.Buffer
		require.NoError(t, SliceDiceSpit(single, Options{Format: FormatJSON}, &buf))
		assert.JSONEq(t, `{"total":3,"active":2}`, buf.String())
	})

	t.Run("empty text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, SliceDiceSpit(Dataset{Columns: []string{"key"}}, Options{Format: FormatText}, &buf))
		assert.Empty(t, buf.String())
	})
}

func TestValue(t *testing.T) {
	tests := []struct {
		name   string
		value  []byte
		format string
		want   string
	}{
		{name: "raw", value: []byte("abc"), format: FormatRaw, want: "abc"},
		{name: "text adds newline", value: []byte("abc"), format: FormatText, want: "abc\n"},
		{name: "text keeps newline", value: []byte("abc\n"), format: FormatText, want: "abc\n"},
		{name: "json", value: []byte("abc"), format: FormatJSON, want: `{"key":"k","value":"abc"}` + "\n"},
		{name: "json binary", value: []byte{0xff, 0x00}, format: FormatJSON, want: `{"key":"k","value":"/wA=","encoding":"base64"}` + "\n"},
		{name: "yaml", value: []byte("abc"), format: FormatYAML, want: "key: k\nvalue: abc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Value(&buf, "k", tt.value, tt.format))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestQuery(t *testing.T) {
	doc := []byte(`{"user":{"name":"ada","langs":["go","c"]},"n":3}`)

	got, ok, err := Query(doc, "user.name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ada", string(got))

	got, ok, err = Query(doc, "user.langs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["go","c"]`, string(got))

	_, ok, err = Query(doc, "user.age")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = Query([]byte("not json"), "a")
	assert.ErrorIs(t, err, ErrNotJSON)
}

func TestGetColors(t *testing.T) {
	header, even, odd := getColors("colors")

	assert.NotEmpty(t, header)
	assert.NotEmpty(t, even)
	assert.NotEmpty(t, odd)
}

func BenchmarkSortDataset(b *testing.B) {
	testData := []map[string]interface{}{
		{"name": "zebra", "count": 3.0},
		{"name": "alpha", "count": 1.0},
		{"name": "beta", "count": 2.0},
	}

	spec := "name"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		data := make([]map[string]interface{}, len(testData))
		copy(data, testData)
		SortDataset(data, spec)
	}
}

func BenchmarkInterfaceToString(b *testing.B) {
	values := []interface{}{
		"string",
		42,
		42.5,
		Bytes(1 << 20),
		nil,
		[]string{"a", "b"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, v := range values {
			InterfaceToString(v)
		}
	}
}
