package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Format selects how a QueryResult is rendered.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// NullMarker is how SQL NULL appears in markdown output.
const NullMarker = "NULL"

// QueryResult is the uniformly shaped result of a dispatched statement.
type QueryResult struct {
	DatabaseID string
	Columns    []string
	Rows       [][]any
	Truncated  bool
}

// Render formats a result as a markdown table or as a JSON array of row
// objects.
func Render(r *QueryResult, f Format) (string, error) {
	switch f {
	case FormatMarkdown:
		return renderMarkdown(r), nil
	case FormatJSON:
		return renderJSON(r)
	default:
		return "", fmt.Errorf("unknown result format %q", f)
	}
}

func renderMarkdown(r *QueryResult) string {
	if len(r.Columns) == 0 {
		return "Statement executed, no result set returned."
	}

	var b strings.Builder
	table := tablewriter.NewWriter(&b)
	table.SetHeader(r.Columns)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range r.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = markdownCell(v)
		}
		table.Append(cells)
	}
	table.Render()
	return strings.TrimRight(b.String(), "\n")
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

func markdownCell(v any) string {
	switch v := v.(type) {
	case nil:
		return NullMarker
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case []byte:
		return markdownEscaper.Replace(string(v))
	default:
		return markdownEscaper.Replace(fmt.Sprint(v))
	}
}

func renderJSON(r *QueryResult) (string, error) {
	rows := make([]orderedRow, len(r.Rows))
	for i, values := range r.Rows {
		rows[i] = orderedRow{columns: r.Columns, values: values}
	}
	out, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("failed to marshal results: %w", err)
	}
	return string(out), nil
}

// orderedRow marshals as a JSON object whose keys follow column order.
type orderedRow struct {
	columns []string
	values  []any
}

func (r orderedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var v any
		if i < len(r.values) {
			v = r.values[i]
		}
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
