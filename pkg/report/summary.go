// Package report summarizes and plots cleaned captures.
package report

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/itohio/godaq/pkg/table"
)

// Summary is the data summary printed with every plot.
type Summary struct {
	DurationMS   float64
	Samples      int
	SampleRateHz float64 // samples / duration, 0 when the duration is zero
	RawMin       float64
	RawMax       float64
	HasFiltered  bool
	FilteredMin  float64
	FilteredMax  float64
}

// Summarize computes ranges over every schema channel and every *_filtered column.
func Summarize(tbl *table.CleanTable) Summary {
	s := Summary{Samples: tbl.Len()}
	if s.Samples == 0 {
		return s
	}

	times := tbl.Times()
	s.DurationMS = floats.Max(times) - floats.Min(times)
	if s.DurationMS > 0 {
		s.SampleRateHz = float64(s.Samples) / (s.DurationMS / 1000)
	}

	first := true
	for _, ch := range tbl.Schema.Channels {
		values, err := tbl.Column(ch)
		if err != nil {
			continue
		}
		lo, hi := floats.Min(values), floats.Max(values)
		if first || lo < s.RawMin {
			s.RawMin = lo
		}
		if first || hi > s.RawMax {
			s.RawMax = hi
		}
		first = false
	}

	for _, c := range tbl.Extra {
		if !strings.HasSuffix(c.Name, table.FilteredSuffix) || len(c.Values) == 0 {
			continue
		}
		lo, hi := floats.Min(c.Values), floats.Max(c.Values)
		if !s.HasFiltered || lo < s.FilteredMin {
			s.FilteredMin = lo
		}
		if !s.HasFiltered || hi > s.FilteredMax {
			s.FilteredMax = hi
		}
		s.HasFiltered = true
	}

	return s
}

func (s Summary) String() string {
	var b strings.Builder
	b.WriteString("Data summary:\n")
	fmt.Fprintf(&b, "Duration: %.1f ms\n", s.DurationMS)
	fmt.Fprintf(&b, "Samples: %d\n", s.Samples)
	fmt.Fprintf(&b, "Sample rate: %.1f Hz\n", s.SampleRateHz)
	fmt.Fprintf(&b, "Raw data range: %.3f - %.3f V\n", s.RawMin, s.RawMax)
	if s.HasFiltered {
		fmt.Fprintf(&b, "Filtered data range: %.3f - %.3f V\n", s.FilteredMin, s.FilteredMax)
	}
	return b.String()
}
