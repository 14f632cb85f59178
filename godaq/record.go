package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/itohio/godaq/pkg/daq"
	"github.com/itohio/godaq/pkg/pipeline"
	"github.com/itohio/godaq/pkg/session"
	"github.com/itohio/godaq/pkg/table"
)

func newRecordCmd(a *app) *cobra.Command {
	var (
		strict  bool
		metrics string
		fp      filterFlags
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record one capture from the device, then clean, filter and plot it",
		Long:  "Wait for the device ready marker, send the start command and collect rows until the device reports completion.\nThe raw capture is saved even when the session times out or is interrupted (Ctrl+C).",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("strict-ready") {
				a.cfg.Session.StrictReady = strict
			}
			if metrics != "" {
				a.cfg.Output.MetricsFile = metrics
			}
			fp.apply(cmd, a)
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.record(ctx, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&strict, "strict-ready", false, "Fail when the device ready marker does not arrive in time")
	cmd.Flags().StringVar(&metrics, "metrics", "", "Write session metrics in Prometheus text format to this file")
	fp.register(cmd)

	return cmd
}

func (a *app) transport() daq.Transport {
	if a.mock {
		return daq.NewSimulator(&a.cfg.Mock, &a.cfg.Session)
	}
	return daq.NewSerial(a.cfg.Serial)
}

func (a *app) record(ctx context.Context, out io.Writer) error {
	cfg := a.cfg
	schema := table.NewSchema(cfg.Filter.Channels)

	if a.mock {
		fmt.Fprintln(out, "Using simulated device")
	} else {
		fmt.Fprintf(out, "Connecting to %s at %d baud\n", cfg.Serial.Port, cfg.Serial.BaudRate)
	}

	reg := prometheus.NewRegistry()
	metrics, err := session.NewMetrics(reg)
	if err != nil {
		return err
	}

	s := session.New(a.transport(), cfg.Session, session.Options{
		Schema:      schema,
		ReadTimeout: cfg.Serial.ReadTimeout,
		Metrics:     metrics,
	})
	res := s.Run(ctx)

	fmt.Fprintf(out, "Session %s %s after %s: %d rows captured, %d lines discarded\n",
		res.ID, res.State, res.Duration.Round(time.Millisecond), len(res.Rows), res.Discarded)
	if n, ok := res.DeviceSamples(); ok && n != len(res.Rows) {
		fmt.Fprintf(out, "Device reported %d samples\n", n)
	}
	if cfg.Output.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.Output.MetricsFile, reg); err != nil {
			log.Printf("Failed to write metrics to %s: %v", cfg.Output.MetricsFile, err)
		}
	}

	if res.State == session.Aborted && len(res.Rows) == 0 {
		return res.Err
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	started := res.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	raw := filepath.Join(cfg.Output.Dir, pipeline.CaptureName(cfg.Output.Prefix, started))

	header := res.Header
	if header == "" {
		header = schema.HeaderLine()
	}
	if err := table.WriteLines(raw, header, res.Lines()); err != nil {
		return err
	}
	fmt.Fprintf(out, "Data saved to %s\n", raw)

	if res.State == session.Aborted {
		return res.Err
	}
	if errors.Is(res.Err, session.ErrProtocolTimeout) {
		fmt.Fprintf(out, "Warning: %v\n", res.Err)
	}

	return a.process(raw, out)
}

// process is the offline part of a recording: clean, filter, save and plot.
func (a *app) process(raw string, out io.Writer) error {
	cfg := a.cfg
	schema := table.NewSchema(cfg.Filter.Channels)

	paths, err := a.paths(raw)
	if err != nil {
		return err
	}
	outcome, err := pipeline.Process(paths, schema, pipeline.ParamsFromConfig(cfg.Filter))
	if outcome != nil && outcome.Table != nil {
		fmt.Fprintf(out, "Cleaned data saved to %s (%d rows, %d discarded)\n",
			outcome.Paths.Clean, outcome.Table.Len(), outcome.Table.Discarded)
	}
	if err != nil {
		return err
	}

	rep := outcome.Report
	fmt.Fprintf(out, "Applied low-pass filter: %s\n", rep.Spec)
	for _, ce := range rep.ChannelErrors {
		fmt.Fprintf(out, "Warning: %v\n", ce)
	}
	fmt.Fprintf(out, "Filtered data saved to %s\n", outcome.Paths.Filtered)
	fmt.Fprint(out, summaryOf(outcome.Table))

	if !cfg.Output.Plot {
		return nil
	}
	plotFile := outcome.Paths.Plot(cfg.Output.Overlap)
	if err := plotChannels(outcome.Table, plotFile, cfg.Output.Overlap); err != nil {
		return err
	}
	fmt.Fprintf(out, "Plot saved as %s\n", plotFile)
	return nil
}

// paths places derived files in --out when given, otherwise next to raw.
func (a *app) paths(raw string) (pipeline.Paths, error) {
	if a.outDir != "" {
		if err := os.MkdirAll(a.outDir, 0o755); err != nil {
			return pipeline.Paths{}, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return pipeline.PathsIn(raw, a.outDir), nil
}
