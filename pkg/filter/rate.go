package filter

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrInsufficientRows is returned when fewer than two timestamps are available.
	ErrInsufficientRows = errors.New("insufficient rows")
	// ErrZeroInterval is returned when the median timestamp delta is not positive.
	ErrZeroInterval = errors.New("zero sample interval")
)

// EstimateSampleRate returns 1000 / median(diff(timesMS)) in Hz.
// The median keeps dropped or duplicated samples from skewing the estimate.
func EstimateSampleRate(timesMS []float64) (float64, error) {
	if len(timesMS) < 2 {
		return 0, fmt.Errorf("%w: need at least 2 timestamps, got %d", ErrInsufficientRows, len(timesMS))
	}

	deltas := make([]float64, len(timesMS)-1)
	for i := range deltas {
		deltas[i] = timesMS[i+1] - timesMS[i]
	}

	dt := median(deltas)
	if dt <= 0 {
		return 0, fmt.Errorf("%w: median delta %gms", ErrZeroInterval, dt)
	}
	return 1000 / dt, nil
}

// median sorts v in place.
func median(v []float64) float64 {
	sort.Float64s(v)
	mid := len(v) / 2
	if len(v)%2 == 1 {
		return v[mid]
	}
	return (v[mid-1] + v[mid]) / 2
}
