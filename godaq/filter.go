package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itohio/godaq/pkg/report"
	"github.com/itohio/godaq/pkg/table"
)

// filterFlags override the filter and output sections.
type filterFlags struct {
	cutoff  float64
	order   int
	fs      float64
	overlap bool
	noPlot  bool
	outDir  string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.cutoff, "cutoff", 0, "Low-pass cutoff frequency in Hz (overrides config)")
	cmd.Flags().IntVar(&f.order, "order", 0, "Filter order (overrides config)")
	cmd.Flags().Float64Var(&f.fs, "fs", 0, "Sample rate in Hz, 0 = estimate from timestamps (overrides config)")
	cmd.Flags().BoolVar(&f.overlap, "overlap", false, "Overlap all channels in one plot")
	cmd.Flags().BoolVar(&f.noPlot, "no-plot", false, "Do not render a plot")
	cmd.Flags().StringVarP(&f.outDir, "out", "o", "", "Output directory (overrides config)")
}

func (f *filterFlags) apply(cmd *cobra.Command, a *app) {
	flags := cmd.Flags()
	if flags.Changed("cutoff") {
		a.cfg.Filter.CutoffHz = f.cutoff
	}
	if flags.Changed("order") {
		a.cfg.Filter.Order = f.order
	}
	if flags.Changed("fs") {
		a.cfg.Filter.SampleRateHz = f.fs
	}
	if flags.Changed("overlap") {
		a.cfg.Output.Overlap = f.overlap
	}
	if f.noPlot {
		a.cfg.Output.Plot = false
	}
	if f.outDir != "" {
		a.cfg.Output.Dir = f.outDir
		a.outDir = f.outDir
	}
}

func newFilterCmd(a *app) *cobra.Command {
	var fp filterFlags

	cmd := &cobra.Command{
		Use:   "filter <file.csv>",
		Short: "Clean and filter an existing capture",
		Long:  "Clean a capture file, apply the low-pass filter to every channel and write <name>_clean.csv and <name>_filtered.csv next to it, or in --out.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fp.apply(cmd, a)
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.process(args[0], cmd.OutOrStdout())
		},
	}
	fp.register(cmd)

	return cmd
}

func summaryOf(tbl *table.CleanTable) string {
	return report.Summarize(tbl).String()
}

func plotChannels(tbl *table.CleanTable, filename string, overlap bool) error {
	if err := report.PlotChannels(tbl, filename, report.Options{Overlap: overlap}); err != nil {
		return fmt.Errorf("failed to plot %s: %w", filename, err)
	}
	return nil
}
