package report

import "gonum.org/v1/plot/plotter"

// DefaultMaxPoints caps the number of points drawn per line.
const DefaultMaxPoints = 4000

// Downsample pairs xs and ys into plot points, decimating to at most maxPoints.
// Destination-based: reuses dst if it has sufficient capacity, otherwise allocates new.
// The last point is always kept so a line spans the full time range.
func Downsample(dst plotter.XYs, xs, ys []float64, maxPoints int) plotter.XYs {
	n := min(len(xs), len(ys))
	if maxPoints <= 0 || n <= maxPoints {
		maxPoints = n
	}
	if maxPoints == 1 && n > 1 {
		maxPoints = 2
	}

	if cap(dst) >= maxPoints {
		dst = dst[:0]
	} else {
		dst = make(plotter.XYs, 0, maxPoints)
	}
	if n == 0 {
		return dst
	}

	if maxPoints == n {
		for i := range n {
			dst = append(dst, plotter.XY{X: xs[i], Y: ys[i]})
		}
		return dst
	}

	step := float64(n-1) / float64(maxPoints-1)
	for i := range maxPoints {
		idx := int(float64(i)*step + 0.5)
		dst = append(dst, plotter.XY{X: xs[idx], Y: ys[idx]})
	}
	return dst
}
