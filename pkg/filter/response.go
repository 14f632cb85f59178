package filter

import (
	"math"
	"math/cmplx"
)

// Response evaluates H(e^jw) at each frequency in Hz for sample rate fs.
func Response(c Coefficients, freqs []float64, fs float64) []complex128 {
	h := make([]complex128, len(freqs))
	for i, f := range freqs {
		w := 2 * math.Pi * f / fs
		h[i] = evalPoly(c.B, w) / evalPoly(c.A, w)
	}
	return h
}

// evalPoly returns sum(c[k] * e^(-jwk)).
func evalPoly(c []float64, w float64) complex128 {
	var sum complex128
	for k, v := range c {
		sum += complex(v, 0) * cmplx.Exp(complex(0, -w*float64(k)))
	}
	return sum
}

// MagnitudeDB returns 20*log10(|h|).
func MagnitudeDB(h complex128) float64 {
	return 20 * math.Log10(cmplx.Abs(h))
}

// ZeroPhaseDB is the magnitude of a forward-backward pass: the single pass magnitude squared.
func ZeroPhaseDB(h complex128) float64 {
	return 2 * MagnitudeDB(h)
}

// PhaseDeg returns the phase of h in degrees.
func PhaseDeg(h complex128) float64 {
	return cmplx.Phase(h) * 180 / math.Pi
}

// TheoreticalRollOff is the asymptotic Butterworth slope, -20*order dB/decade.
func TheoreticalRollOff(order int) float64 {
	return -20 * float64(order)
}

// RollOff measures the single pass slope in dB/decade between f1 and f2.
func RollOff(c Coefficients, f1, f2, fs float64) float64 {
	h := Response(c, []float64{f1, f2}, fs)
	return (MagnitudeDB(h[1]) - MagnitudeDB(h[0])) / math.Log10(f2/f1)
}

// LogFrequencies returns n points spaced logarithmically from lo to hi inclusive. lo must be positive.
func LogFrequencies(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	ratio := math.Log(hi / lo)
	for i := range out {
		out[i] = lo * math.Exp(ratio*float64(i)/float64(n-1))
	}
	out[n-1] = hi
	return out
}

// TransitionBand returns the band, 2x to 10x cutoff, over which roll-off is measured.
func TransitionBand(cutoffHz float64) (lo, hi float64) {
	return 2 * cutoffHz, 10 * cutoffHz
}
