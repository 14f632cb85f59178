// Package pipeline turns a cleaned capture into filtered columns.
package pipeline

import (
	"errors"
	"fmt"
	"log"

	"github.com/itohio/godaq/pkg/config"
	"github.com/itohio/godaq/pkg/filter"
	"github.com/itohio/godaq/pkg/table"
)

// ErrNoData is returned when a table has no rows to filter.
var ErrNoData = errors.New("no data rows available")

// Params selects the filter and the channels it is applied to.
type Params struct {
	CutoffHz     float64
	Order        int
	SampleRateHz float64  // 0 = estimate from the time column
	Channels     []string // nil = every schema channel

	Cache *filter.Cache
	Logf  func(format string, args ...any)
}

// ParamsFromConfig builds Params from the filter section.
func ParamsFromConfig(cfg config.FilterConfig) Params {
	return Params{
		CutoffHz:     cfg.CutoffHz,
		Order:        cfg.Order,
		SampleRateHz: cfg.SampleRateHz,
		Channels:     append([]string(nil), cfg.Channels...),
	}
}

// ChannelError records why one channel was not filtered.
type ChannelError struct {
	Channel string
	Err     error
}

func (e ChannelError) Error() string {
	return fmt.Sprintf("%s: %v", e.Channel, e.Err)
}

func (e ChannelError) Unwrap() error {
	return e.Err
}

// Report describes a Filter run.
type Report struct {
	Spec          filter.Spec
	Estimated     bool // sample rate came from the time column
	Coefficients  filter.Coefficients
	Rows          int
	Filtered      []string // appended column names, in channel order
	ChannelErrors []ChannelError
}

// Err joins the per-channel errors, or returns nil if every channel was filtered.
func (r *Report) Err() error {
	errs := make([]error, len(r.ChannelErrors))
	for i := range r.ChannelErrors {
		errs[i] = r.ChannelErrors[i]
	}
	return errors.Join(errs...)
}

// SampleRate returns the fixed rate if set, otherwise the rate estimated from the table.
func SampleRate(tbl *table.CleanTable, fixed float64) (fs float64, estimated bool, err error) {
	if fixed > 0 {
		return fixed, false, nil
	}
	fs, err = filter.EstimateSampleRate(tbl.Times())
	if err != nil {
		return 0, false, fmt.Errorf("failed to estimate sample rate: %w", err)
	}
	return fs, true, nil
}

// Filter designs one low-pass filter and applies it zero-phase to each channel
// in declaration order, appending <channel>_filtered columns to tbl.
//
// A channel that cannot be filtered is recorded in the report and the rest
// continue. An error is returned only when nothing can be filtered at all:
// no rows, no usable sample rate or an invalid filter spec.
func Filter(tbl *table.CleanTable, params Params) (*Report, error) {
	logf := params.Logf
	if logf == nil {
		logf = log.Printf
	}

	if tbl.Len() == 0 {
		return nil, ErrNoData
	}

	fs, estimated, err := SampleRate(tbl, params.SampleRateHz)
	if err != nil {
		return nil, err
	}
	if estimated {
		logf("Estimated sampling frequency: %.2f Hz", fs)
	}

	spec := filter.Spec{CutoffHz: params.CutoffHz, Order: params.Order, SampleRateHz: fs}
	coefs, err := design(params.Cache, spec)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Spec:         spec,
		Estimated:    estimated,
		Coefficients: coefs,
		Rows:         tbl.Len(),
	}

	channels := params.Channels
	if len(channels) == 0 {
		channels = tbl.Schema.Channels
	}

	for _, ch := range channels {
		values, err := tbl.Column(ch)
		if err != nil {
			rep.ChannelErrors = append(rep.ChannelErrors, ChannelError{Channel: ch, Err: err})
			logf("Skipping %s: %v", ch, err)
			continue
		}

		y, err := filter.FiltFilt(coefs, values)
		if err != nil {
			rep.ChannelErrors = append(rep.ChannelErrors, ChannelError{Channel: ch, Err: err})
			logf("Skipping %s: %v", ch, err)
			continue
		}

		name := ch + table.FilteredSuffix
		if err := tbl.AppendColumn(name, y); err != nil {
			rep.ChannelErrors = append(rep.ChannelErrors, ChannelError{Channel: ch, Err: err})
			continue
		}
		rep.Filtered = append(rep.Filtered, name)
		logf("Filtered %s (%s)", ch, spec)
	}

	return rep, nil
}

func design(cache *filter.Cache, spec filter.Spec) (filter.Coefficients, error) {
	if cache != nil {
		return cache.Design(spec)
	}
	return filter.Design(spec)
}
