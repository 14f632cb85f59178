package filter

import (
	"cmp"
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// spectrumFloor keeps log10 finite for empty bins.
const spectrumFloor = 1e-10

// Spectrum is the one-sided magnitude spectrum of a Hann windowed signal.
// The DC bin is omitted so the frequencies can go on a log axis.
type Spectrum struct {
	Freqs []float64
	DB    []float64
}

// ComputeSpectrum returns the spectrum of x sampled at fs. x is not modified.
func ComputeSpectrum(x []float64, fs float64) (Spectrum, error) {
	if len(x) < 4 {
		return Spectrum{}, fmt.Errorf("%w: spectrum needs at least 4 samples, got %d", ErrInsufficientSignalLength, len(x))
	}
	if !(fs > 0) || math.IsInf(fs, 0) {
		return Spectrum{}, fmt.Errorf("%w: sample rate %g", ErrInvalidSpec, fs)
	}

	w := slices.Clone(x)
	window.Apply(w, window.Hann)
	bins := fft.FFTReal(w)

	n := len(x)
	half := n / 2
	s := Spectrum{
		Freqs: make([]float64, half),
		DB:    make([]float64, half),
	}
	for k := 1; k <= half; k++ {
		s.Freqs[k-1] = float64(k) * fs / float64(n)
		s.DB[k-1] = 20 * math.Log10(cmplx.Abs(bins[k])+spectrumFloor)
	}
	return s, nil
}

// Peak returns the largest magnitude in dB.
func (s Spectrum) Peak() float64 {
	if len(s.DB) == 0 {
		return math.Inf(-1)
	}
	return slices.MaxFunc(s.DB, cmp.Compare[float64])
}

// Relative returns a copy with ref dB subtracted from every bin.
func (s Spectrum) Relative(ref float64) Spectrum {
	out := Spectrum{Freqs: slices.Clone(s.Freqs), DB: make([]float64, len(s.DB))}
	for i, v := range s.DB {
		out.DB[i] = v - ref
	}
	return out
}

// At returns the magnitude of the bin closest to f.
func (s Spectrum) At(f float64) float64 {
	if len(s.Freqs) == 0 {
		return math.Inf(-1)
	}
	i, _ := slices.BinarySearch(s.Freqs, f)
	switch {
	case i >= len(s.Freqs):
		i = len(s.Freqs) - 1
	case i > 0 && f-s.Freqs[i-1] < s.Freqs[i]-f:
		i--
	}
	return s.DB[i]
}

// Chirp returns a logarithmic sweep from f0 to f1 Hz over the given duration.
func Chirp(fs, seconds, f0, f1 float64) []float64 {
	n := int(seconds * fs)
	out := make([]float64, n)
	if n == 0 || f0 <= 0 || f1 <= 0 {
		return out
	}

	ratio := f1 / f0
	if ratio == 1 {
		for i := range out {
			out[i] = math.Cos(2 * math.Pi * f0 * float64(i) / fs)
		}
		return out
	}

	scale := 2 * math.Pi * f0 * seconds / math.Log(ratio)
	for i := range out {
		t := float64(i) / fs
		out[i] = math.Cos(scale * (math.Pow(ratio, t/seconds) - 1))
	}
	return out
}
