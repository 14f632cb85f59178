package pipeline

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/godaq/pkg/config"
	"github.com/itohio/godaq/pkg/filter"
	"github.com/itohio/godaq/pkg/table"
)

// captureLines renders n rows sampled every 2ms with a slow sine plus a fast ripple.
func captureLines(n int) []string {
	lines := []string{table.DefaultSchema.HeaderLine()}
	for i := 0; i < n; i++ {
		t := float64(i) * 0.002
		slow := 2.5 + math.Sin(2*math.Pi*0.5*t)
		ripple := 0.2 * math.Sin(2*math.Pi*60*t)
		lines = append(lines, fmt.Sprintf("%d,%d,%.4f,%.4f,2.5,%.4f", i+1, 2*i, slow+ripple, slow, ripple))
	}
	return lines
}

func TestParamsFromConfig(t *testing.T) {
	cfg := config.Default().Filter
	p := ParamsFromConfig(cfg)
	assert.Equal(t, 2.0, p.CutoffHz)
	assert.Equal(t, 4, p.Order)
	assert.Zero(t, p.SampleRateHz)
	assert.Equal(t, config.DefaultChannels, p.Channels)

	p.Channels[0] = "changed"
	assert.Equal(t, "A0(V)", cfg.Channels[0])
}

func TestFilter(t *testing.T) {
	tbl := table.Clean(captureLines(2500), table.DefaultSchema)
	require.Equal(t, 2500, tbl.Len())

	rep, err := Filter(tbl, Params{CutoffHz: 2, Order: 4, Logf: t.Logf})
	require.NoError(t, err)
	require.NoError(t, rep.Err())

	assert.True(t, rep.Estimated)
	assert.Equal(t, 500.0, rep.Spec.SampleRateHz)
	assert.Equal(t, 2500, rep.Rows)
	assert.Equal(t, []string{"A0(V)_filtered", "A1(V)_filtered", "A2(V)_filtered", "A3(V)_filtered"}, rep.Filtered)
	assert.Equal(t, append(table.DefaultSchema.Header(), rep.Filtered...), tbl.Columns())

	// The ripple is removed and the slow signal kept.
	a0, err := tbl.Column("A0(V)_filtered")
	require.NoError(t, err)
	a1, err := tbl.Column("A1(V)")
	require.NoError(t, err)
	// Away from the odd-extension edges.
	for i := 500; i < 2000; i++ {
		assert.InDelta(t, a1[i], a0[i], 0.01, "row %d", i)
	}

	a2, err := tbl.Column("A2(V)_filtered")
	require.NoError(t, err)
	for _, v := range a2 {
		assert.InDelta(t, 2.5, v, 1e-6)
	}
}

func TestFilter_FixedRate(t *testing.T) {
	tbl := table.Clean(captureLines(200), table.DefaultSchema)

	rep, err := Filter(tbl, Params{CutoffHz: 2, Order: 2, SampleRateHz: 400, Channels: []string{"A1(V)"}, Logf: t.Logf})
	require.NoError(t, err)
	assert.False(t, rep.Estimated)
	assert.Equal(t, 400.0, rep.Spec.SampleRateHz)
	assert.Equal(t, []string{"A1(V)_filtered"}, rep.Filtered)
	assert.False(t, tbl.HasColumn("A0(V)_filtered"))
}

func TestFilter_ChannelIsolation(t *testing.T) {
	tbl := table.Clean(captureLines(100), table.DefaultSchema)

	rep, err := Filter(tbl, Params{
		CutoffHz: 2,
		Order:    4,
		Channels: []string{"A0(V)", "A9(V)", "A3(V)"},
		Logf:     t.Logf,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"A0(V)_filtered", "A3(V)_filtered"}, rep.Filtered)
	require.Len(t, rep.ChannelErrors, 1)
	assert.Equal(t, "A9(V)", rep.ChannelErrors[0].Channel)
	assert.ErrorIs(t, rep.Err(), table.ErrUnknownColumn)
}

func TestFilter_ShortRecording(t *testing.T) {
	// 10 rows cannot be padded for order 4.
	tbl := table.Clean(captureLines(10), table.DefaultSchema)

	rep, err := Filter(tbl, Params{CutoffHz: 2, Order: 4, Logf: t.Logf})
	require.NoError(t, err)
	assert.Empty(t, rep.Filtered)
	assert.Len(t, rep.ChannelErrors, 4)
	assert.ErrorIs(t, rep.Err(), filter.ErrInsufficientSignalLength)

	// A lower order fits.
	rep, err = Filter(tbl, Params{CutoffHz: 2, Order: 1, Logf: t.Logf})
	require.NoError(t, err)
	assert.NoError(t, rep.Err())
	assert.Len(t, rep.Filtered, 4)
}

func TestFilter_Errors(t *testing.T) {
	t.Run("no rows", func(t *testing.T) {
		_, err := Filter(table.Clean(nil, table.DefaultSchema), Params{CutoffHz: 2, Order: 4, Logf: t.Logf})
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("one row", func(t *testing.T) {
		_, err := Filter(table.Clean(captureLines(1), table.DefaultSchema), Params{CutoffHz: 2, Order: 4, Logf: t.Logf})
		assert.ErrorIs(t, err, filter.ErrInsufficientRows)
	})

	t.Run("cutoff above nyquist", func(t *testing.T) {
		_, err := Filter(table.Clean(captureLines(100), table.DefaultSchema), Params{CutoffHz: 300, Order: 4, Logf: t.Logf})
		assert.ErrorIs(t, err, filter.ErrInvalidSpec)
	})

	t.Run("ill-conditioned order", func(t *testing.T) {
		_, err := Filter(table.Clean(captureLines(100), table.DefaultSchema), Params{CutoffHz: 2, Order: 10, Logf: t.Logf})
		assert.ErrorIs(t, err, filter.ErrInvalidSpec)
	})

	t.Run("zero order", func(t *testing.T) {
		_, err := Filter(table.Clean(captureLines(100), table.DefaultSchema), Params{CutoffHz: 2, Order: 0, Logf: t.Logf})
		assert.ErrorIs(t, err, filter.ErrInvalidSpec)
	})
}

func TestFilter_Cache(t *testing.T) {
	cache := filter.NewCache()
	for range 3 {
		tbl := table.Clean(captureLines(100), table.DefaultSchema)
		_, err := Filter(tbl, Params{CutoffHz: 2, Order: 4, Cache: cache, Logf: t.Logf})
		require.NoError(t, err)
	}
	assert.Equal(t, 1, cache.Len())
}

func TestCompare(t *testing.T) {
	tbl := table.Clean(captureLines(500), table.DefaultSchema)
	variants := append(DefaultVariants(), Variant{CutoffHz: 400, Order: 2})

	got, err := Compare(tbl, "A0(V)", 0, variants)
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.Equal(t, Variant{CutoffHz: 1, Order: 2}, got[0].Variant)
	assert.Equal(t, Variant{CutoffHz: 1, Order: 4}, got[1].Variant)
	assert.Equal(t, Variant{CutoffHz: 2, Order: 2}, got[2].Variant)
	assert.Equal(t, Variant{CutoffHz: 2, Order: 4}, got[3].Variant)
	for _, c := range got[:4] {
		assert.NoError(t, c.Err)
		assert.Len(t, c.Values, 500)
		assert.Equal(t, 500.0, c.Spec.SampleRateHz)
	}
	assert.ErrorIs(t, got[4].Err, filter.ErrInvalidSpec)
	assert.False(t, tbl.HasColumn("A0(V)_filtered"))

	_, err = Compare(tbl, "missing", 0, variants)
	assert.ErrorIs(t, err, table.ErrUnknownColumn)
}

func TestPaths(t *testing.T) {
	p := PathsFor(filepath.Join("data", "arduino_daq_data_20250101_120000.csv"))
	assert.Equal(t, filepath.Join("data", "arduino_daq_data_20250101_120000_clean.csv"), p.Clean)
	assert.Equal(t, filepath.Join("data", "arduino_daq_data_20250101_120000_filtered.csv"), p.Filtered)
	assert.Equal(t, filepath.Join("data", "arduino_daq_data_20250101_120000_subplots_plot.png"), p.Plot(false))
	assert.Equal(t, filepath.Join("data", "arduino_daq_data_20250101_120000_overlapped_plot.png"), p.Plot(true))
	assert.Equal(t, filepath.Join("data", "filter_comparison_arduino_daq_data_20250101_120000.png"), p.Comparison())

	out := PathsIn(p.Raw, "results")
	assert.Equal(t, p.Raw, out.Raw)
	assert.Equal(t, filepath.Join("results", "arduino_daq_data_20250101_120000_clean.csv"), out.Clean)
	assert.Equal(t, filepath.Join("results", "arduino_daq_data_20250101_120000_filtered.csv"), out.Filtered)
	assert.Equal(t, filepath.Join("results", "arduino_daq_data_20250101_120000_overlapped_plot.png"), out.Plot(true))
	assert.Equal(t, filepath.Join("results", "filter_comparison_arduino_daq_data_20250101_120000.png"), out.Comparison())

	assert.Equal(t, "capture_clean.csv", PathsFor("capture.csv").Clean)

	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	assert.Equal(t, "arduino_daq_data_20250304_050607.csv", CaptureName("arduino_daq_data", ts))
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "capture.csv")

	lines := captureLines(300)
	noisy := append([]string{"RECORDING_STARTED"}, lines[1:]...)
	noisy = append(noisy, "RECORDING_COMPLETE", "SAMPLES_COLLECTED:300")
	require.NoError(t, table.WriteLines(raw, lines[0], noisy))

	out, err := Process(PathsFor(raw), table.DefaultSchema, Params{CutoffHz: 2, Order: 4, Logf: t.Logf})
	require.NoError(t, err)
	assert.Equal(t, 300, out.Table.Len())
	assert.Equal(t, 3, out.Table.Discarded)
	assert.Len(t, out.Report.Filtered, 4)

	clean, err := os.ReadFile(out.Paths.Clean)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(clean)), "\n"), 301)

	// The filtered file reads back with its extra columns.
	back, err := table.ReadFile(out.Paths.Filtered, table.DefaultSchema)
	require.NoError(t, err)
	assert.Equal(t, 300, back.Len())
	assert.Zero(t, back.Discarded)
	assert.Len(t, back.Extra, 4)
}

func TestProcess_OutputDir(t *testing.T) {
	raw := filepath.Join(t.TempDir(), "capture.csv")
	require.NoError(t, table.WriteLines(raw, "", captureLines(300)))
	dir := t.TempDir()

	out, err := Process(PathsIn(raw, dir), table.DefaultSchema, Params{CutoffHz: 2, Order: 4, Logf: t.Logf})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "capture_clean.csv"))
	assert.FileExists(t, filepath.Join(dir, "capture_filtered.csv"))
	assert.Equal(t, filepath.Join(dir, "capture_filtered.csv"), out.Paths.Filtered)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(raw), "capture_clean.csv"))
}

func TestProcess_Empty(t *testing.T) {
	dir := t.TempDir()
	raw := filepath.Join(dir, "empty.csv")
	require.NoError(t, table.WriteLines(raw, "", []string{"garbage", "more garbage"}))

	out, err := Process(PathsFor(raw), table.DefaultSchema, Params{CutoffHz: 2, Order: 4, Logf: t.Logf})
	assert.ErrorIs(t, err, ErrNoData)
	assert.Zero(t, out.Table.Len())
	assert.FileExists(t, out.Paths.Clean)
	assert.NoFileExists(t, out.Paths.Filtered)
}
