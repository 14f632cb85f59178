package pipeline

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/itohio/godaq/pkg/table"
)

// CaptureName returns <prefix>_<YYYYmmdd_HHMMSS>.csv for a capture started at t.
func CaptureName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s.csv", prefix, t.Format("20060102_150405"))
}

// Paths are the files derived from one raw capture. Derived files go to Dir.
type Paths struct {
	Raw      string
	Dir      string
	Clean    string
	Filtered string
}

// PathsFor derives output names next to the raw capture.
func PathsFor(raw string) Paths {
	return PathsIn(raw, "")
}

// PathsIn derives output names in dir. An empty dir means the directory of raw.
func PathsIn(raw, dir string) Paths {
	if dir == "" {
		dir = filepath.Dir(raw)
	}
	p := Paths{Raw: raw, Dir: dir}
	p.Clean = p.base() + "_clean.csv"
	p.Filtered = p.base() + table.FilteredSuffix + ".csv"
	return p
}

// Plot returns the plot file name for the chosen layout.
func (p Paths) Plot(overlap bool) string {
	if overlap {
		return p.base() + "_overlapped_plot.png"
	}
	return p.base() + "_subplots_plot.png"
}

// Comparison returns the comparison plot name, filter_comparison_<name>.png.
func (p Paths) Comparison() string {
	return filepath.Join(p.Dir, "filter_comparison_"+p.name()+".png")
}

func (p Paths) name() string {
	return strings.TrimSuffix(filepath.Base(p.Raw), filepath.Ext(p.Raw))
}

func (p Paths) base() string {
	return filepath.Join(p.Dir, p.name())
}

// Outcome is the result of Process.
type Outcome struct {
	Paths  Paths
	Table  *table.CleanTable
	Report *Report
}

// Process cleans paths.Raw, writes paths.Clean, filters it and writes
// paths.Filtered. A capture with no valid rows yields an ErrNoData error
// after the (empty) clean file is written.
func Process(paths Paths, schema table.Schema, params Params) (*Outcome, error) {
	logf := params.Logf
	if logf == nil {
		logf = log.Printf
	}

	raw := paths.Raw
	out := &Outcome{Paths: paths}

	tbl, err := table.ReadFile(raw, schema)
	if err != nil {
		return out, err
	}
	out.Table = tbl
	logf("Cleaned %s: %d rows kept, %d discarded", raw, tbl.Len(), tbl.Discarded)

	if err := table.WriteFile(out.Paths.Clean, tbl); err != nil {
		return out, err
	}

	rep, err := Filter(tbl, params)
	if err != nil {
		return out, err
	}
	out.Report = rep

	if err := table.WriteFile(out.Paths.Filtered, tbl); err != nil {
		return out, err
	}
	logf("Filtered data saved to %s", out.Paths.Filtered)
	return out, nil
}
