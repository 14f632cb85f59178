package table

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownColumn is returned when a column name is not part of the table.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrColumnLength is returned when an appended column does not match the row count.
	ErrColumnLength = errors.New("column length mismatch")
)

// Column is a derived column appended after the schema columns.
type Column struct {
	Name   string
	Values []float64
}

// CleanTable holds rows whose every field parsed as a finite number.
// Row order is input order; timestamps are not re-sorted.
type CleanTable struct {
	Schema      Schema
	Header      []string // header as seen in the input, or synthesized
	HeaderFound bool
	Rows        []RawRow
	Extra       []Column
	Discarded   int
}

// Clean filters lines into a CleanTable. The first header line is kept as
// metadata; every other line must parse as exactly Width() numeric fields or
// it is discarded. A header that extends the schema with additional columns
// (a previously filtered file) widens the accepted rows accordingly.
func Clean(lines []string, schema Schema) *CleanTable {
	t := &CleanTable{Schema: schema}
	width := schema.Width()
	var extra []string

	for _, line := range lines {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}

		if !t.HeaderFound && schema.IsHeader(text) {
			t.HeaderFound = true
			t.Header = splitHeader(text)
			if len(t.Header) > width && len(t.Rows) == 0 {
				extra = t.Header[width:]
				width = len(t.Header)
			}
			continue
		}

		row, err := ParseRow(text, width)
		if err != nil {
			t.Discarded++
			continue
		}

		if len(extra) > 0 {
			n := len(schema.Channels)
			for j, name := range extra {
				col := t.extraColumn(name)
				col.Values = append(col.Values, row.Channels[n+j])
			}
			row.Channels = row.Channels[:n:n]
		}
		t.Rows = append(t.Rows, row)
	}

	if !t.HeaderFound && len(t.Rows) > 0 {
		t.Header = schema.Header()
	}

	return t
}

// Len returns the number of data rows.
func (t *CleanTable) Len() int {
	return len(t.Rows)
}

// Times returns the time column in milliseconds.
func (t *CleanTable) Times() []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.TimeMS
	}
	return out
}

// Columns returns all column names: schema columns followed by derived ones.
func (t *CleanTable) Columns() []string {
	names := t.Schema.Header()
	for _, c := range t.Extra {
		names = append(names, c.Name)
	}
	return names
}

// Column returns a copy of the named column's values.
func (t *CleanTable) Column(name string) ([]float64, error) {
	switch name {
	case t.Schema.Sample:
		out := make([]float64, len(t.Rows))
		for i, r := range t.Rows {
			out[i] = float64(r.Sample)
		}
		return out, nil
	case t.Schema.Time:
		return t.Times(), nil
	}

	if idx := t.Schema.ChannelIndex(name); idx >= 0 {
		out := make([]float64, len(t.Rows))
		for i, r := range t.Rows {
			out[i] = r.Channels[idx]
		}
		return out, nil
	}

	for _, c := range t.Extra {
		if c.Name == name {
			return append([]float64(nil), c.Values...), nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
}

// HasColumn reports whether name is a schema or derived column.
func (t *CleanTable) HasColumn(name string) bool {
	for _, c := range t.Columns() {
		if c == name {
			return true
		}
	}
	return false
}

// AppendColumn adds a derived column, replacing an existing one of the same name.
func (t *CleanTable) AppendColumn(name string, values []float64) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("%w: %s has %d values, table has %d rows", ErrColumnLength, name, len(values), len(t.Rows))
	}
	for _, h := range t.Schema.Header() {
		if h == name {
			return fmt.Errorf("column %s is part of the schema", name)
		}
	}

	col := t.extraColumn(name)
	col.Values = append(col.Values[:0], values...)
	return nil
}

func (t *CleanTable) extraColumn(name string) *Column {
	for i := range t.Extra {
		if t.Extra[i].Name == name {
			return &t.Extra[i]
		}
	}
	t.Extra = append(t.Extra, Column{Name: name})
	return &t.Extra[len(t.Extra)-1]
}

func splitHeader(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
