package report

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/itohio/godaq/pkg/table"
)

// Palette colours channels in order, wrapping around.
var Palette = []color.Color{
	colornames.Blue,
	colornames.Green,
	colornames.Red,
	colornames.Purple,
	colornames.Darkorange,
	colornames.Teal,
}

// Options control plot rendering.
type Options struct {
	Title     string
	Overlap   bool // all channels on one plot instead of one subplot per channel
	Width     vg.Length
	Height    vg.Length
	MaxPoints int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 12 * vg.Inch
	}
	if o.Height <= 0 {
		o.Height = 8 * vg.Inch
	}
	if o.MaxPoints == 0 {
		o.MaxPoints = DefaultMaxPoints
	}
	if o.Title == "" {
		o.Title = "Arduino DAQ Data"
	}
	return o
}

const floorDB = -120

// Series is a named sequence of values sharing the time axis.
type Series struct {
	Name   string
	Values []float64
}

// PlotChannels renders raw channels and, where present, their filtered
// columns against time and writes a PNG to filename.
func PlotChannels(tbl *table.CleanTable, filename string, opts Options) error {
	opts = opts.withDefaults()
	if tbl.Len() == 0 || len(tbl.Schema.Channels) == 0 {
		return fmt.Errorf("nothing to plot: table has no rows")
	}

	times := tbl.Times()
	summary := Summarize(tbl)
	caption := fmt.Sprintf("%d samples, %.1f ms, %.1f Hz", summary.Samples, summary.DurationMS, summary.SampleRateHz)

	var plots []*plot.Plot
	if opts.Overlap {
		p := newPlot(opts.Title+" ("+caption+")", "Voltage (V)")
		for i, ch := range tbl.Schema.Channels {
			raw, filtered := channelSeries(tbl, ch)
			c := Palette[i%len(Palette)]
			if err := addLine(p, times, raw, c, 0.5, !hasFiltered(tbl), opts.MaxPoints); err != nil {
				return err
			}
			if filtered.Values != nil {
				if err := addLine(p, times, filtered, c, 2, true, opts.MaxPoints); err != nil {
					return err
				}
			}
		}
		plots = append(plots, p)
	} else {
		for i, ch := range tbl.Schema.Channels {
			raw, filtered := channelSeries(tbl, ch)
			p := newPlot("Channel "+ch, "Voltage (V)")
			if err := addLine(p, times, raw, colornames.Lightgray, 1, true, opts.MaxPoints); err != nil {
				return err
			}
			if filtered.Values != nil {
				if err := addLine(p, times, filtered, Palette[i%len(Palette)], 2, true, opts.MaxPoints); err != nil {
					return err
				}
			}
			plots = append(plots, p)
		}
		if len(plots) > 0 {
			plots[0].Title.Text = opts.Title + " (" + caption + ")\n" + plots[0].Title.Text
		}
	}
	plots[len(plots)-1].X.Label.Text = "Time (ms)"

	return saveGrid(filename, plots, 1, opts)
}

// PlotComparison draws each variant over the raw signal in a two column grid.
func PlotComparison(filename string, times []float64, raw Series, variants []Series, opts Options) error {
	opts = opts.withDefaults()
	if len(variants) == 0 {
		return fmt.Errorf("nothing to plot: no variants")
	}

	plots := make([]*plot.Plot, 0, len(variants))
	for i, v := range variants {
		p := newPlot(v.Name, "Voltage (V)")
		p.X.Label.Text = "Time (ms)"
		if err := addLine(p, times, Series{Name: "Raw " + raw.Name, Values: raw.Values}, colornames.Lightgray, 1, true, opts.MaxPoints); err != nil {
			return err
		}
		if v.Values != nil {
			if err := addLine(p, times, v, Palette[i%len(Palette)], 2, true, opts.MaxPoints); err != nil {
				return err
			}
		}
		plots = append(plots, p)
	}
	plots[0].Title.Text = opts.Title + "\n" + plots[0].Title.Text

	return saveGrid(filename, plots, 2, opts)
}

// PlotResponse draws magnitude curves in dB on a logarithmic frequency axis.
// Frequencies must be positive.
func PlotResponse(filename string, freqs []float64, curves []Series, cutoffHz float64, opts Options) error {
	opts = opts.withDefaults()

	p := newPlot(opts.Title, "Magnitude (dB)")
	p.X.Label.Text = "Frequency (Hz)"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}

	for i, c := range curves {
		// Zeros of the response are -Inf dB.
		clamped := Series{Name: c.Name, Values: make([]float64, len(c.Values))}
		for j, v := range c.Values {
			clamped.Values[j] = max(v, floorDB)
		}
		if err := addLine(p, freqs, clamped, Palette[i%len(Palette)], 1.5, true, 0); err != nil {
			return err
		}
	}

	if cutoffHz > 0 {
		marker, err := plotter.NewLine(plotter.XYs{{X: cutoffHz, Y: 0}, {X: cutoffHz, Y: floorDB}})
		if err != nil {
			return fmt.Errorf("failed to create cutoff marker: %w", err)
		}
		marker.Color = colornames.Red
		marker.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(marker)
		p.Legend.Add(fmt.Sprintf("Cutoff %g Hz", cutoffHz), marker)
	}
	p.Y.Min = floorDB

	return saveGrid(filename, []*plot.Plot{p}, 1, opts)
}

func hasFiltered(tbl *table.CleanTable) bool {
	for _, c := range tbl.Extra {
		if strings.HasSuffix(c.Name, table.FilteredSuffix) {
			return true
		}
	}
	return false
}

func channelSeries(tbl *table.CleanTable, ch string) (raw, filtered Series) {
	raw.Name = ch
	raw.Values, _ = tbl.Column(ch)

	name := ch + table.FilteredSuffix
	if tbl.HasColumn(name) {
		filtered.Name = name
		filtered.Values, _ = tbl.Column(name)
	}
	return raw, filtered
}

func newPlot(title, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = yLabel
	p.BackgroundColor = colornames.Snow
	p.Legend.Top = true
	p.Legend.Padding = vg.Points(5)
	p.Add(plotter.NewGrid())
	return p
}

func addLine(p *plot.Plot, xs []float64, s Series, c color.Color, width float64, legend bool, maxPoints int) error {
	line, err := plotter.NewLine(Downsample(nil, xs, s.Values, maxPoints))
	if err != nil {
		return fmt.Errorf("failed to create line %s: %w", s.Name, err)
	}
	line.Color = c
	line.Width = vg.Points(width)
	p.Add(line)
	if legend {
		p.Legend.Add(s.Name, line)
	}
	return nil
}

// saveGrid aligns plots into a grid with cols columns and writes it as PNG.
func saveGrid(filename string, plots []*plot.Plot, cols int, opts Options) error {
	if len(plots)%cols != 0 {
		cols = 1
	}
	rows := (len(plots) + cols - 1) / cols
	grid := make([][]*plot.Plot, rows)
	for i := range grid {
		grid[i] = make([]*plot.Plot, cols)
	}
	for i, p := range plots {
		grid[i/cols][i%cols] = p
	}

	img := vgimg.New(opts.Width, opts.Height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows,
		Cols: cols,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}

	canvases := plot.Align(grid, tiles, dc)
	for r := range grid {
		for c, p := range grid[r] {
			if p != nil {
				p.Draw(canvases[r][c])
			}
		}
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}
	return f.Close()
}
