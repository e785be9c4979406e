package utils

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// TimeTolerance is the tolerance used when matching model times against a simulated grid.
const TimeTolerance = 1.0e-8

// Linspace returns n equidistant points from lo to hi (both inclusive).
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := floats.Span(make([]float64, n), lo, hi)
	out[n-1] = hi
	return out
}

// Bracket returns indices (i, i+1) of an ascending grid such that xs[i] <= x < xs[i+1].
//
// It assumes xs has at least two elements. Outside the grid the nearest boundary pair is returned.
func Bracket(xs []float64, x float64) (int, int) {
	if len(xs) < 2 {
		panic("Bracket: need at least 2 points")
	}
	// First index with xs[i] > x.
	i := sort.Search(len(xs), func(i int) bool {
		return xs[i] > x
	})
	if i <= 0 {
		return 0, 1
	}
	if i >= len(xs) {
		return len(xs) - 2, len(xs) - 1
	}
	return i - 1, i
}

// Interp linearly interpolates ys over ascending xs at x, clamping to the end values outside the grid.
func Interp(x float64, xs, ys []float64) float64 {
	switch {
	case len(xs) == 0:
		return math.NaN()
	case len(xs) == 1 || x <= xs[0]:
		return ys[0]
	case x >= xs[len(xs)-1]:
		return ys[len(ys)-1]
	}
	i, j := Bracket(xs, x)
	w := (x - xs[i]) / (xs[j] - xs[i])
	return ys[i] + w*(ys[j]-ys[i])
}

// IndexWithTolerance returns the index of t in times, or -1 when no entry is within TimeTolerance.
func IndexWithTolerance(times []float64, t float64) int {
	i := sort.SearchFloat64s(times, t-TimeTolerance)
	if i < len(times) && math.Abs(times[i]-t) < TimeTolerance {
		return i
	}
	return -1
}
