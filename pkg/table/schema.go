package table

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/itohio/godaq/pkg/config"
)

// FilteredSuffix is appended to a channel name to form its filtered column name.
const FilteredSuffix = "_filtered"

// Schema names the columns of a capture: sample index, timestamp and N analog channels.
type Schema struct {
	Sample   string
	Time     string
	Channels []string
}

// DefaultSchema is the six column layout written by the reference firmware.
var DefaultSchema = Schema{
	Sample:   "Sample",
	Time:     "Time(ms)",
	Channels: config.DefaultChannels,
}

// NewSchema returns the default sample/time columns with the given channels.
func NewSchema(channels []string) Schema {
	return Schema{
		Sample:   DefaultSchema.Sample,
		Time:     DefaultSchema.Time,
		Channels: append([]string(nil), channels...),
	}
}

// Width returns the number of fields in a data row.
func (s Schema) Width() int {
	return 2 + len(s.Channels)
}

// Header returns the column names in order.
func (s Schema) Header() []string {
	h := make([]string, 0, s.Width())
	h = append(h, s.Sample, s.Time)
	return append(h, s.Channels...)
}

// HeaderLine returns the header as a comma separated line.
func (s Schema) HeaderLine() string {
	return strings.Join(s.Header(), ",")
}

// IsHeader reports whether line looks like a header of this schema.
func (s Schema) IsHeader(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), s.Sample+","+s.Time)
}

// ChannelIndex returns the position of a channel within Channels, or -1.
func (s Schema) ChannelIndex(name string) int {
	for i, ch := range s.Channels {
		if ch == name {
			return i
		}
	}
	return -1
}

// RawRow is one parsed data line.
type RawRow struct {
	Sample   int64
	TimeMS   float64
	Channels []float64
}

// RowParseError describes why a line could not be turned into a RawRow.
type RowParseError struct {
	Text   string
	Reason string
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("row %q: %s", e.Text, e.Reason)
}

// ParseRow parses exactly width comma separated numeric fields.
// Format: sample,time_ms,v0,...,vN-1
// Example: 12,24,2.503,2.497,0.000,4.998
func ParseRow(text string, width int) (RawRow, error) {
	parts := strings.Split(strings.TrimSpace(text), ",")
	if len(parts) != width || width < 2 {
		return RawRow{}, &RowParseError{Text: text, Reason: fmt.Sprintf("expected %d fields, got %d", width, len(parts))}
	}

	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return RawRow{}, &RowParseError{Text: text, Reason: fmt.Sprintf("field %d: not a number", i+1)}
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return RawRow{}, &RowParseError{Text: text, Reason: fmt.Sprintf("field %d: not finite", i+1)}
		}
		values[i] = v
	}

	if values[0] != math.Trunc(values[0]) || math.Abs(values[0]) > math.MaxInt64/2 {
		return RawRow{}, &RowParseError{Text: text, Reason: "sample index is not an integer"}
	}

	return RawRow{
		Sample:   int64(values[0]),
		TimeMS:   values[1],
		Channels: values[2:],
	}, nil
}
