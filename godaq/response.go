package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/itohio/godaq/pkg/filter"
	"github.com/itohio/godaq/pkg/report"
)

const (
	responsePoints = 800
	chirpSeconds   = 10
	chirpStartHz   = 0.1
)

func newResponseCmd(a *app) *cobra.Command {
	var (
		cutoff   float64
		order    int
		fs       float64
		plotFile string
		specFile string
	)

	cmd := &cobra.Command{
		Use:   "response",
		Short: "Analyze the frequency response of the low-pass filter",
		Long:  "Print the filter parameters with theoretical and measured roll-off for a single pass and for the forward-backward pass, optionally plotting both magnitude curves.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !cmd.Flags().Changed("cutoff") {
				cutoff = a.cfg.Filter.CutoffHz
			}
			if !cmd.Flags().Changed("order") {
				order = a.cfg.Filter.Order
			}

			spec := filter.Spec{CutoffHz: cutoff, Order: order, SampleRateHz: fs}
			wn, err := spec.Normalized()
			if err != nil {
				return err
			}
			coefs, err := filter.Design(spec)
			if err != nil {
				return err
			}

			lo, hi := filter.TransitionBand(cutoff)
			hi = min(hi, spec.Nyquist()*0.9)

			fmt.Fprintln(out, "Filter Specifications:")
			fmt.Fprintln(out, "  - Type: Butterworth low-pass")
			fmt.Fprintf(out, "  - Order: %d (poles)\n", order)
			fmt.Fprintf(out, "  - Cutoff frequency: %g Hz\n", cutoff)
			fmt.Fprintf(out, "  - Sampling frequency: %g Hz\n", fs)
			fmt.Fprintf(out, "  - Normalized cutoff: %.6f\n", wn)
			fmt.Fprintf(out, "  - Theoretical roll-off: %.0f dB/decade\n", filter.TheoreticalRollOff(order))
			if hi > lo {
				single := filter.RollOff(coefs, lo, hi, fs)
				fmt.Fprintf(out, "  - Measured roll-off (%g-%g Hz): %.1f dB/decade\n", lo, hi, single)
				fmt.Fprintf(out, "  - Measured forward-backward roll-off: %.1f dB/decade\n", 2*single)
			}

			h := filter.Response(coefs, []float64{cutoff}, fs)[0]
			fmt.Fprintf(out, "  - Gain at cutoff: %.2f dB single pass, %.2f dB forward-backward\n",
				filter.MagnitudeDB(h), filter.ZeroPhaseDB(h))
			fmt.Fprintf(out, "  - Phase at cutoff: %.1f deg single pass, 0 deg forward-backward\n", filter.PhaseDeg(h))

			if specFile != "" {
				if err := plotSpectrum(out, specFile, spec, coefs); err != nil {
					return err
				}
			}
			if plotFile == "" {
				return nil
			}

			freqs := filter.LogFrequencies(0.1, spec.Nyquist(), responsePoints)
			resp := filter.Response(coefs, freqs, fs)
			once := make([]float64, len(resp))
			twice := make([]float64, len(resp))
			for i, v := range resp {
				once[i] = filter.MagnitudeDB(v)
				twice[i] = filter.ZeroPhaseDB(v)
			}

			err = report.PlotResponse(plotFile, freqs, []report.Series{
				{Name: "Single pass", Values: once},
				{Name: "Forward-backward", Values: twice},
			}, cutoff, report.Options{
				Title: fmt.Sprintf("Butterworth low-pass (cutoff %g Hz, order %d, fs %g Hz)", cutoff, order, fs),
			})
			if err != nil {
				return fmt.Errorf("failed to plot %s: %w", plotFile, err)
			}
			fmt.Fprintf(out, "Plot saved as %s\n", plotFile)
			return nil
		},
	}

	cmd.Flags().Float64Var(&cutoff, "cutoff", 0, "Cutoff frequency in Hz (default from config)")
	cmd.Flags().IntVar(&order, "order", 0, "Filter order (default from config)")
	cmd.Flags().Float64Var(&fs, "fs", 500, "Sample rate in Hz")
	cmd.Flags().StringVar(&plotFile, "plot", "", "Write the magnitude response to this PNG file")
	cmd.Flags().StringVar(&specFile, "spectrum", "", "Filter a logarithmic chirp and write its spectra to this PNG file")

	return cmd
}

// plotSpectrum filters a chirp sweeping up to Nyquist with both passes and
// plots the spectra relative to the unfiltered peak.
func plotSpectrum(out io.Writer, filename string, spec filter.Spec, coefs filter.Coefficients) error {
	fs := spec.SampleRateHz
	chirp := filter.Chirp(fs, chirpSeconds, chirpStartHz, spec.Nyquist())

	once, _ := filter.LFilter(coefs, chirp, nil)
	twice, err := filter.FiltFilt(coefs, chirp)
	if err != nil {
		return err
	}

	signals := [][]float64{chirp, once, twice}
	spectra := make([]filter.Spectrum, len(signals))
	for i, x := range signals {
		if spectra[i], err = filter.ComputeSpectrum(x, fs); err != nil {
			return err
		}
	}
	ref := spectra[0].Peak()
	for i := range spectra {
		spectra[i] = spectra[i].Relative(ref)
	}

	probe := min(10*spec.CutoffHz, spec.Nyquist()*0.9)
	fmt.Fprintf(out, "Chirp attenuation at %g Hz: %.1f dB single pass, %.1f dB forward-backward\n",
		probe, spectra[1].At(probe)-spectra[0].At(probe), spectra[2].At(probe)-spectra[0].At(probe))

	err = report.PlotResponse(filename, spectra[0].Freqs, []report.Series{
		{Name: "Original chirp", Values: spectra[0].DB},
		{Name: "Single pass", Values: spectra[1].DB},
		{Name: "Forward-backward", Values: spectra[2].DB},
	}, spec.CutoffHz, report.Options{
		Title: fmt.Sprintf("Chirp spectrum through %s", spec),
	})
	if err != nil {
		return fmt.Errorf("failed to plot %s: %w", filename, err)
	}
	fmt.Fprintf(out, "Spectrum plot saved as %s\n", filename)
	return nil
}
