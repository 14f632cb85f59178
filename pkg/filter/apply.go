package filter

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// normalize pads B and A to equal length and scales so that A[0] == 1.
func (c Coefficients) normalize() (b, a []float64) {
	n := max(len(c.A), len(c.B))
	b = make([]float64, n)
	a = make([]float64, n)
	copy(b, c.B)
	copy(a, c.A)
	if a[0] != 1 && a[0] != 0 {
		floats.Scale(1/a[0], b)
		floats.Scale(1/a[0], a)
	}
	return b, a
}

// LFilter runs the recurrence
//
//	y[n] = sum(b[i]*x[n-i]) - sum(a[i]*y[n-i], i >= 1)
//
// once over x in transposed direct form II. zi is the initial state of
// length Order() and may be nil for a zero state. The final state is returned
// alongside the output.
func LFilter(c Coefficients, x, zi []float64) (y, zf []float64) {
	b, a := c.normalize()
	n := len(b)

	z := make([]float64, n)
	copy(z, zi)

	y = make([]float64, len(x))
	for k, xv := range x {
		yv := b[0]*xv + z[0]
		for i := 0; i < n-2; i++ {
			z[i] = b[i+1]*xv + z[i+1] - a[i+1]*yv
		}
		if n > 1 {
			z[n-2] = b[n-1]*xv - a[n-1]*yv
		}
		y[k] = yv
	}
	return y, z[:n-1]
}

// SteadyState returns the LFilter state that corresponds to the steady state
// of a unit step input, scaled by x[0] to start a filter without a transient.
func SteadyState(c Coefficients) ([]float64, error) {
	b, a := c.normalize()
	n := len(b) - 1
	if n == 0 {
		return nil, nil
	}

	// (I - companion(a)^T) zi = b[1:] - a[1:]*b[0]
	m := mat.NewDense(n, n, nil)
	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
		m.Set(i, 0, m.At(i, 0)+a[i+1])
		if i+1 < n {
			m.Set(i, i+1, -1)
		}
		rhs.SetVec(i, b[i+1]-a[i+1]*b[0])
	}

	var zi mat.VecDense
	if err := zi.SolveVec(m, rhs); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return nil, fmt.Errorf("failed to solve steady state: %w", err)
		}
	}
	return slices.Clone(zi.RawVector().Data), nil
}

// FiltFilt applies c forward and then backward so that the phase of the two
// passes cancels. The magnitude response is squared. The input is extended at
// both ends by an odd reflection of PadLen samples, and each pass starts from
// the steady state scaled to its first sample. Output length equals input length.
func FiltFilt(c Coefficients, x []float64) ([]float64, error) {
	padlen := c.PadLen()
	if len(x) <= padlen {
		return nil, fmt.Errorf("%w: need more than %d samples for order %d, got %d",
			ErrInsufficientSignalLength, padlen, c.Order(), len(x))
	}

	zi, err := SteadyState(c)
	if err != nil {
		return nil, err
	}
	state := make([]float64, len(zi))

	ext := oddExtend(x, padlen)

	floats.ScaleTo(state, ext[0], zi)
	y, _ := LFilter(c, ext, state)

	floats.Reverse(y)
	floats.ScaleTo(state, y[0], zi)
	y, _ = LFilter(c, y, state)
	floats.Reverse(y)

	return y[padlen : padlen+len(x)], nil
}

// oddExtend reflects n samples about each end point: 2*x[0]-x[n..1] and
// 2*x[last]-x[last-1..last-n].
func oddExtend(x []float64, n int) []float64 {
	last := len(x) - 1
	out := make([]float64, 0, len(x)+2*n)
	for i := n; i >= 1; i-- {
		out = append(out, 2*x[0]-x[i])
	}
	out = append(out, x...)
	for i := 1; i <= n; i++ {
		out = append(out, 2*x[last]-x[last-i])
	}
	return out
}
