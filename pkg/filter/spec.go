// Package filter designs Butterworth low-pass filters and applies them with
// zero phase, forward and backward over a whole recording.
package filter

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidSpec is returned for a cutoff outside (0, Nyquist) or a non-positive order.
	ErrInvalidSpec = errors.New("invalid filter spec")
	// ErrInsufficientSignalLength is returned when a signal is too short to pad.
	ErrInsufficientSignalLength = errors.New("insufficient signal length")
)

// Spec describes a low-pass design.
type Spec struct {
	CutoffHz     float64
	Order        int
	SampleRateHz float64
}

func (s Spec) String() string {
	return fmt.Sprintf("order %d, %gHz @ %gHz", s.Order, s.CutoffHz, s.SampleRateHz)
}

// Nyquist returns half the sample rate.
func (s Spec) Nyquist() float64 {
	return s.SampleRateHz / 2
}

// Validate checks 0 < cutoff < Nyquist and order > 0.
func (s Spec) Validate() error {
	if s.Order <= 0 {
		return fmt.Errorf("%w: order must be positive, got %d", ErrInvalidSpec, s.Order)
	}
	if math.IsNaN(s.SampleRateHz) || math.IsInf(s.SampleRateHz, 0) || s.SampleRateHz <= 0 {
		return fmt.Errorf("%w: sample rate must be positive, got %g", ErrInvalidSpec, s.SampleRateHz)
	}
	if math.IsNaN(s.CutoffHz) || s.CutoffHz <= 0 {
		return fmt.Errorf("%w: cutoff must be positive, got %g", ErrInvalidSpec, s.CutoffHz)
	}
	if s.CutoffHz >= s.Nyquist() {
		return fmt.Errorf("%w: cutoff %gHz must be below Nyquist %gHz", ErrInvalidSpec, s.CutoffHz, s.Nyquist())
	}
	return nil
}

// Normalized returns the cutoff as a fraction of Nyquist, Wn in (0, 1).
func (s Spec) Normalized() (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	return s.CutoffHz / s.Nyquist(), nil
}
