package filter

import (
	"fmt"
	"math"
	"math/cmplx"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// dcTolerance bounds |B(1)/A(1) - 1|. Designs outside it no longer pass a
// constant signal unchanged.
const dcTolerance = 1e-4

// Coefficients of a transfer function H(z) = B(z)/A(z), A[0] == 1.
type Coefficients struct {
	B []float64
	A []float64
}

// Order returns the filter order.
func (c Coefficients) Order() int {
	return max(len(c.A), len(c.B)) - 1
}

// PadLen is the number of samples reflected at each end by FiltFilt.
func (c Coefficients) PadLen() int {
	return 3 * max(len(c.A), len(c.B))
}

// Clone returns a deep copy.
func (c Coefficients) Clone() Coefficients {
	return Coefficients{B: slices.Clone(c.B), A: slices.Clone(c.A)}
}

// Design computes a digital Butterworth low-pass filter.
//
// The analog prototype poles are spaced evenly on the left half of the unit
// circle, scaled to the pre-warped cutoff and mapped to the z-plane with the
// bilinear transform. All N zeros land on z = -1.
//
// Expanding many poles close to z = 1 into polynomial form loses precision,
// so high orders at a low normalized cutoff are rejected with ErrInvalidSpec
// when the expanded filter is no longer unity gain at DC or no longer stable.
func Design(spec Spec) (Coefficients, error) {
	wn, err := spec.Normalized()
	if err != nil {
		return Coefficients{}, err
	}

	// Work at fs = 2 so Nyquist is 1 and wn is used as is.
	const fs = 2.0
	n := spec.Order
	warped := 2 * fs * math.Tan(math.Pi*wn/fs)

	poles := make([]complex128, 0, n)
	for m := -n + 1; m < n; m += 2 {
		p := -cmplx.Exp(complex(0, math.Pi*float64(m)/float64(2*n)))
		poles = append(poles, p*complex(warped, 0))
	}
	gain := math.Pow(warped, float64(n))

	// Bilinear transform.
	const fs2 = 2 * fs
	zp := make([]complex128, n)
	den := complex(1, 0)
	for i, p := range poles {
		zp[i] = (fs2 + p) / (fs2 - p)
		den *= fs2 - p
	}
	gain *= real(1 / den)

	zeros := make([]complex128, n)
	for i := range zeros {
		zeros[i] = -1
	}

	b := realPart(poly(zeros))
	for i := range b {
		b[i] *= gain
	}
	c := Coefficients{B: b, A: realPart(poly(zp))}
	if err := c.checkConditioning(); err != nil {
		return Coefficients{}, fmt.Errorf("%w: %s is ill-conditioned: %w", ErrInvalidSpec, spec, err)
	}
	return c, nil
}

// checkConditioning verifies unity DC gain and that every root of A lies
// strictly inside the unit circle.
func (c Coefficients) checkConditioning() error {
	var sb, sa float64
	for _, v := range c.B {
		sb += v
	}
	for _, v := range c.A {
		sa += v
	}
	if dc := sb / sa; math.IsNaN(dc) || math.Abs(dc-1) > dcTolerance {
		return fmt.Errorf("DC gain %g", dc)
	}

	if r := c.PoleRadius(); !(r < 1) {
		return fmt.Errorf("pole radius %g", r)
	}
	return nil
}

// PoleRadius returns the largest magnitude among the roots of A, found as
// the eigenvalues of its companion matrix.
func (c Coefficients) PoleRadius() float64 {
	n := len(c.A) - 1
	if n < 1 {
		return 0
	}

	comp := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		comp.Set(0, j, -c.A[j+1]/c.A[0])
	}
	for i := 1; i < n; i++ {
		comp.Set(i, i-1, 1)
	}

	var eig mat.Eigen
	if !eig.Factorize(comp, mat.EigenNone) {
		return math.Inf(1)
	}
	var r float64
	for _, v := range eig.Values(nil) {
		r = max(r, cmplx.Abs(v))
	}
	return r
}

// poly expands prod(x - r) into coefficients, highest power first.
func poly(roots []complex128) []complex128 {
	c := make([]complex128, 1, len(roots)+1)
	c[0] = 1
	for _, r := range roots {
		c = append(c, 0)
		for j := len(c) - 1; j > 0; j-- {
			c[j] -= r * c[j-1]
		}
	}
	return c
}

// realPart drops the imaginary residue left by conjugate pole pairs.
func realPart(c []complex128) []float64 {
	out := make([]float64, len(c))
	for i, v := range c {
		out[i] = real(v)
	}
	return out
}
