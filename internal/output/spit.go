// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"
	"gopkg.in/yaml.v2"

	"github.com/staranto/kvcache/internal/config"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatRaw  = "raw"
)

// Formats lists every accepted --output value.
var Formats = []string{FormatText, FormatJSON, FormatRaw, FormatYAML}

// Bytes is a size rendered with IEC units in text output.
type Bytes int

// Count is a number that renders as 0 rather than the empty value.
type Count int

// Options controls how a dataset is emitted.
type Options struct {
	Format string
	Color  bool
	Titles bool
	Filter string
	Sort   string
}

// Dataset is a list of rows with the columns to show, in order. A Single
// dataset is emitted as one object rather than a list in json and yaml.
type Dataset struct {
	Columns []string
	Rows    []map[string]interface{}
	Single  bool
}

// SliceDiceSpit filters, sorts and renders the dataset according to opts.
func SliceDiceSpit(ds Dataset, opts Options, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	rows := FilterDataset(ds.Rows, opts.Filter)
	SortDataset(rows, opts.Sort)

	var doc interface{} = normalize(ds.Columns, rows)
	if ds.Single && len(rows) == 1 {
		doc = normalize(ds.Columns, rows)[0]
	}

	switch opts.Format {
	case FormatJSON, FormatRaw:
		out, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal json: %w", err)
		}
		if opts.Format == FormatJSON {
			out = append(out, '\n')
		}
		_, err = w.Write(out)
		return err
	case FormatYAML:
		out, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	default:
		TableWriter(ds.Columns, rows, opts, w)
		return nil
	}
}

// normalize turns typed cells into plain JSON/YAML scalars, keeping only the
// listed columns.
func normalize(columns []string, rows []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]interface{}, len(columns))
		for _, c := range columns {
			switch v := row[c].(type) {
			case Bytes:
				m[c] = int(v)
			case Count:
				m[c] = int(v)
			case time.Time:
				if v.IsZero() {
					m[c] = nil
				} else {
					m[c] = v.UTC().Format(time.RFC3339Nano)
				}
			case time.Duration:
				m[c] = v.String()
			default:
				m[c] = v
			}
		}
		out = append(out, m)
	}
	return out
}

// TableWriter renders rows in a tabular form honoring color and titles.
func TableWriter(columns []string, rows []map[string]interface{}, opts Options, w io.Writer) {
	if len(rows) == 0 {
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if opts.Color && colorCapable(w) {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
	}

	pad, _ := config.GetInt("padding", 1)
	log.Debugf("padding: %v", pad)

	cells := make([][]string, 0, len(rows))
	for _, result := range rows {
		row := make([]string, 0, len(columns))
		for _, c := range columns {
			row = append(row, InterfaceToString(result[c], "-"))
		}
		cells = append(cells, row)
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(cells...)

	if opts.Titles {
		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(columns...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)
}

// colorCapable reports whether w is a terminal.
func colorCapable(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// getColors returns configured color values for table rendering.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(fmt.Sprintf("%s.title", key), "#f6be00")
	even, _ = config.GetString(fmt.Sprintf("%s.even", key), "#ffffff")
	odd, _ = config.GetString(fmt.Sprintf("%s.odd", key), "#00c8f0")
	return
}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if c, ok := value.(Count); ok {
		return strconv.Itoa(int(c))
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case Bytes:
		return humanize.IBytes(uint64(value))
	case time.Time:
		return value.Local().Format("2006-01-02 15:04:05")
	case time.Duration:
		return value.Round(time.Millisecond).String()
	case float64:
		// Our current use cases have no use for an actual float, so we're just
		// going to return an integer.
		return fmt.Sprintf("%.0f", value)
	case bool:
		return strconv.FormatBool(value)
	case fmt.Stringer:
		return value.String()
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}
