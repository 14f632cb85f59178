package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itohio/godaq/pkg/pipeline"
	"github.com/itohio/godaq/pkg/report"
	"github.com/itohio/godaq/pkg/table"
)

func newCompareCmd(a *app) *cobra.Command {
	var (
		cutoffs []float64
		orders  []int
		channel string
		fs      float64
		outDir  string
	)

	cmd := &cobra.Command{
		Use:   "compare <file.csv>",
		Short: "Compare filter settings on one channel",
		Long:  "Apply every combination of --cutoffs and --orders to one channel and plot the results side by side as filter_comparison_<name>.png.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			schema := table.NewSchema(a.cfg.Filter.Channels)
			if channel == "" {
				channel = schema.Channels[0]
			}

			tbl, err := table.ReadFile(args[0], schema)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Loaded %s: %d rows, %d discarded\n", args[0], tbl.Len(), tbl.Discarded)

			comps, err := pipeline.Compare(tbl, channel, fs, pipeline.Grid(cutoffs, orders))
			if err != nil {
				return err
			}

			raw, _ := tbl.Column(channel)
			variants := make([]report.Series, len(comps))
			for i, c := range comps {
				variants[i] = report.Series{Name: fmt.Sprintf("Cutoff: %gHz, Order: %d", c.Variant.CutoffHz, c.Variant.Order)}
				if c.Err != nil {
					fmt.Fprintf(out, "Warning: %s: %v\n", c.Variant, c.Err)
					continue
				}
				variants[i].Values = c.Values
			}

			if len(comps) > 0 {
				fmt.Fprintf(out, "Sampling frequency: %.2f Hz\n", comps[0].Spec.SampleRateHz)
			}

			if outDir != "" {
				a.outDir = outDir
			}
			paths, err := a.paths(args[0])
			if err != nil {
				return err
			}
			plotFile := paths.Comparison()
			err = report.PlotComparison(plotFile, tbl.Times(), report.Series{Name: channel, Values: raw}, variants,
				report.Options{Title: "Low-Pass Filter Comparison - " + channel})
			if err != nil {
				return fmt.Errorf("failed to plot %s: %w", plotFile, err)
			}
			fmt.Fprintf(out, "Plot saved as %s\n", plotFile)
			return nil
		},
	}

	cmd.Flags().Float64SliceVar(&cutoffs, "cutoffs", []float64{1, 2}, "Cutoff frequencies in Hz")
	cmd.Flags().IntSliceVar(&orders, "orders", []int{2, 4}, "Filter orders")
	cmd.Flags().StringVar(&channel, "channel", "", "Channel to compare (default: first channel)")
	cmd.Flags().Float64Var(&fs, "fs", 0, "Sample rate in Hz, 0 = estimate from timestamps")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for the comparison plot (default: next to the capture)")

	return cmd
}
