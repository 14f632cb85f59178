package report

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"

	"github.com/itohio/godaq/pkg/table"
)

func testTable(t *testing.T, n int) *table.CleanTable {
	t.Helper()
	lines := []string{table.DefaultSchema.HeaderLine()}
	for i := 0; i < n; i++ {
		v := 2.5 + math.Sin(float64(i)/10)
		lines = append(lines, fmt.Sprintf("%d,%d,%.3f,%.3f,1.000,4.000", i+1, 2*i, v, 5-v))
	}
	tbl := table.Clean(lines, table.DefaultSchema)
	require.Equal(t, n, tbl.Len())
	return tbl
}

func TestSummarize(t *testing.T) {
	tbl := table.Clean([]string{
		"1,0,1.0,2.0,3.0,4.0",
		"2,10,0.5,2.0,3.0,4.5",
		"3,20,1.0,2.0,3.0,4.0",
	}, table.DefaultSchema)

	s := Summarize(tbl)
	assert.Equal(t, 3, s.Samples)
	assert.Equal(t, 20.0, s.DurationMS)
	assert.Equal(t, 150.0, s.SampleRateHz)
	assert.Equal(t, 0.5, s.RawMin)
	assert.Equal(t, 4.5, s.RawMax)
	assert.False(t, s.HasFiltered)
	assert.NotContains(t, s.String(), "Filtered")

	require.NoError(t, tbl.AppendColumn("A0(V)_filtered", []float64{0.9, 0.8, 0.9}))
	require.NoError(t, tbl.AppendColumn("note", []float64{100, 100, 100}))
	s = Summarize(tbl)
	assert.True(t, s.HasFiltered)
	assert.Equal(t, 0.8, s.FilteredMin)
	assert.Equal(t, 0.9, s.FilteredMax)

	text := s.String()
	assert.Contains(t, text, "Duration: 20.0 ms")
	assert.Contains(t, text, "Samples: 3")
	assert.Contains(t, text, "Sample rate: 150.0 Hz")
	assert.Contains(t, text, "Raw data range: 0.500 - 4.500 V")
	assert.Contains(t, text, "Filtered data range: 0.800 - 0.900 V")
}

func TestSummarize_Degenerate(t *testing.T) {
	s := Summarize(table.Clean(nil, table.DefaultSchema))
	assert.Zero(t, s.Samples)
	assert.Zero(t, s.SampleRateHz)

	s = Summarize(table.Clean([]string{"1,5,1,1,1,1"}, table.DefaultSchema))
	assert.Equal(t, 1, s.Samples)
	assert.Zero(t, s.DurationMS)
	assert.Zero(t, s.SampleRateHz)
}

func TestDownsample(t *testing.T) {
	xs := make([]float64, 100)
	ys := make([]float64, 100)
	for i := range xs {
		xs[i] = float64(i)
		ys[i] = float64(i) * 0.5
	}

	t.Run("no downsampling", func(t *testing.T) {
		got := Downsample(nil, xs[:3], ys[:3], 10)
		assert.Equal(t, plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 0.5}, {X: 2, Y: 1}}, got)
	})

	t.Run("decimates and keeps ends", func(t *testing.T) {
		got := Downsample(nil, xs, ys, 10)
		require.Len(t, got, 10)
		assert.Equal(t, plotter.XY{X: 0, Y: 0}, got[0])
		assert.Equal(t, plotter.XY{X: 99, Y: 49.5}, got[9])
		for i := 1; i < len(got); i++ {
			assert.Greater(t, got[i].X, got[i-1].X)
		}
	})

	t.Run("reuses destination", func(t *testing.T) {
		dst := make(plotter.XYs, 0, 20)
		got := Downsample(dst, xs, ys, 10)
		assert.Equal(t, cap(dst), cap(got))
	})

	t.Run("unbounded", func(t *testing.T) {
		assert.Len(t, Downsample(nil, xs, ys, 0), 100)
	})

	t.Run("single point", func(t *testing.T) {
		assert.Len(t, Downsample(nil, xs, ys, 1), 2)
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		assert.Len(t, Downsample(nil, xs, ys[:5], 10), 5)
		assert.Empty(t, Downsample(nil, nil, nil, 10))
	})
}

func assertPNG(t *testing.T, filename string) {
	t.Helper()
	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), "%s is not a PNG", filename)
}

func TestPlotChannels(t *testing.T) {
	dir := t.TempDir()
	tbl := testTable(t, 300)
	filtered, err := tbl.Column("A0(V)")
	require.NoError(t, err)
	require.NoError(t, tbl.AppendColumn("A0(V)_filtered", filtered))

	for _, overlap := range []bool{false, true} {
		name := filepath.Join(dir, fmt.Sprintf("plot_%v.png", overlap))
		require.NoError(t, PlotChannels(tbl, name, Options{Overlap: overlap, MaxPoints: 100}))
		assertPNG(t, name)
	}

	err = PlotChannels(table.Clean(nil, table.DefaultSchema), filepath.Join(dir, "empty.png"), Options{})
	assert.Error(t, err)
}

func TestPlotComparison(t *testing.T) {
	dir := t.TempDir()
	tbl := testTable(t, 200)
	raw, err := tbl.Column("A0(V)")
	require.NoError(t, err)

	variants := []Series{
		{Name: "1Hz, order 2", Values: raw},
		{Name: "1Hz, order 4", Values: raw},
		{Name: "2Hz, order 2", Values: raw},
		{Name: "2Hz, order 4"},
	}
	name := filepath.Join(dir, "compare.png")
	require.NoError(t, PlotComparison(name, tbl.Times(), Series{Name: "A0(V)", Values: raw}, variants, Options{}))
	assertPNG(t, name)

	assert.Error(t, PlotComparison(name, tbl.Times(), Series{Name: "A0(V)", Values: raw}, nil, Options{}))
}

func TestPlotResponse(t *testing.T) {
	name := filepath.Join(t.TempDir(), "response.png")
	freqs := []float64{0.1, 1, 10, 100, 250}
	curves := []Series{
		{Name: "single pass", Values: []float64{0, -0.1, -50, -150, math.Inf(-1)}},
		{Name: "forward-backward", Values: []float64{0, -0.2, -100, -300, math.Inf(-1)}},
	}
	require.NoError(t, PlotResponse(name, freqs, curves, 2, Options{Title: "Response"}))
	assertPNG(t, name)
}
