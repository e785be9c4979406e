package numerics

import (
	"fmt"
	"math"

	"github.com/meenmo/hwbermudan/utils"
)

// CubicSpline is a natural cubic spline. On segment k it evaluates
//
//	s(x) = c[0] + c[1] d + c[2] d^2 + c[3] d^3,  d = x - x[k].
type CubicSpline struct {
	x    []float64
	coef [][4]float64
}

// NewNaturalCubicSpline interpolates (x, y) with zero second derivatives at both ends.
// x must be strictly ascending with at least two points.
func NewNaturalCubicSpline(x, y []float64) (*CubicSpline, error) {
	n := len(x)
	if n != len(y) {
		return nil, fmt.Errorf("NewNaturalCubicSpline: %d knots, %d values: %w", n, len(y), ErrDimensionMismatch)
	}
	if n < 2 {
		return nil, fmt.Errorf("NewNaturalCubicSpline: need at least 2 knots, got %d: %w", n, ErrDimensionMismatch)
	}
	h := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		h[i] = x[i+1] - x[i]
		if !(h[i] > 0) {
			return nil, fmt.Errorf("NewNaturalCubicSpline: knots not ascending at %d: %w", i, ErrInvalidInput)
		}
	}

	// second derivatives, zero at both ends
	m := make([]float64, n)
	if n > 2 {
		sys := NewTridiagonal(n - 2)
		rhs := make([]float64, n-2)
		for i := 1; i < n-1; i++ {
			r := i - 1
			sys.Lower[r] = h[i-1]
			sys.Diag[r] = 2 * (h[i-1] + h[i])
			sys.Upper[r] = h[i]
			rhs[r] = 6 * ((y[i+1]-y[i])/h[i] - (y[i]-y[i-1])/h[i-1])
		}
		inner, err := sys.Solve(rhs)
		if err != nil {
			return nil, fmt.Errorf("NewNaturalCubicSpline: %w", err)
		}
		copy(m[1:n-1], inner)
	}

	coef := make([][4]float64, n-1)
	for k := 0; k < n-1; k++ {
		coef[k] = [4]float64{
			y[k],
			(y[k+1]-y[k])/h[k] - h[k]*(2*m[k]+m[k+1])/6,
			m[k] / 2,
			(m[k+1] - m[k]) / (6 * h[k]),
		}
	}
	xs := make([]float64, n)
	copy(xs, x)
	return &CubicSpline{x: xs, coef: coef}, nil
}

// Knots returns the interpolation nodes.
func (s *CubicSpline) Knots() []float64 { return s.x }

// Segments returns the number of polynomial pieces.
func (s *CubicSpline) Segments() int { return len(s.coef) }

// Coefficients returns the local polynomial coefficients of segment k.
func (s *CubicSpline) Coefficients(k int) [4]float64 { return s.coef[k] }

// Eval evaluates the spline; outside the knots the end polynomials are extrapolated.
func (s *CubicSpline) Eval(x float64) float64 {
	k, _ := utils.Bracket(s.x, x)
	return evalCubic(s.coef[k], x-s.x[k])
}

func evalCubic(c [4]float64, d float64) float64 {
	return c[0] + d*(c[1]+d*(c[2]+d*c[3]))
}

// Roots returns the points strictly inside the knot range where the spline changes sign,
// in ascending order. Touching zeros without a sign change are not reported.
func (s *CubicSpline) Roots() []float64 {
	type point struct {
		seg int
		d   float64
		f   float64
	}
	var pts []point
	for k, c := range s.coef {
		h := s.x[k+1] - s.x[k]
		ds := []float64{0}
		ds = append(ds, criticalPoints(c, h)...)
		if k == len(s.coef)-1 {
			ds = append(ds, h)
		}
		for _, d := range ds {
			pts = append(pts, point{seg: k, d: d, f: evalCubic(c, d)})
		}
	}

	var roots []float64
	lastSign := 0
	lastIdx := -1
	for i, p := range pts {
		sg := sign(p.f)
		if sg == 0 {
			continue
		}
		if lastSign != 0 && sg != lastSign {
			prev := pts[lastIdx]
			var r float64
			if lastIdx == i-1 {
				// strict crossing between two neighbouring breakpoints
				r = s.crossing(prev.seg, prev.d, p)
			} else {
				// a run of exact zeros; take its left end
				z := pts[lastIdx+1]
				r = s.x[z.seg] + z.d
			}
			if r > s.x[0] && r < s.x[len(s.x)-1] {
				roots = append(roots, r)
			}
		}
		lastSign = sg
		lastIdx = i
	}
	return roots
}

// crossing locates the sign change between breakpoint (seg, d0) and p.
func (s *CubicSpline) crossing(seg int, d0 float64, p struct {
	seg int
	d   float64
	f   float64
}) float64 {
	// the right breakpoint may sit on the next segment's left knot
	lo := s.x[seg] + d0
	hi := s.x[p.seg] + p.d
	f := func(x float64) float64 { return s.Eval(x) }
	if p.seg == seg {
		c := s.coef[seg]
		base := s.x[seg]
		f = func(x float64) float64 { return evalCubic(c, x-base) }
	}
	r, err := Brent(f, Bracket{Lower: lo, Upper: hi}, RootOptions{Tolerance: 1.0e-14 * math.Max(1.0, math.Abs(hi-lo)), MaxIterations: 200})
	if err != nil {
		return 0.5 * (lo + hi)
	}
	return r
}

// criticalPoints returns the stationary points of the cubic strictly inside (0, h), ascending.
func criticalPoints(c [4]float64, h float64) []float64 {
	a, b, q := 3*c[3], 2*c[2], c[1]
	var out []float64
	add := func(d float64) {
		if d > 0 && d < h {
			out = append(out, d)
		}
	}
	switch {
	case a == 0 && b == 0:
	case a == 0:
		add(-q / b)
	default:
		disc := b*b - 4*a*q
		if disc < 0 {
			break
		}
		sq := math.Sqrt(disc)
		d1 := (-b - sq) / (2 * a)
		d2 := (-b + sq) / (2 * a)
		if d1 > d2 {
			d1, d2 = d2, d1
		}
		add(d1)
		if d2 != d1 {
			add(d2)
		}
	}
	return out
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
