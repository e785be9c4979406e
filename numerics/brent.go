package numerics

import (
	"fmt"
	"math"
)

const machineEpsilon = 2.220446049250313e-16

// Bracket is a search interval for a scalar root.
type Bracket struct {
	Lower float64
	Upper float64
}

// RootOptions controls Brent's method.
type RootOptions struct {
	Tolerance     float64
	MaxIterations int
}

// DefaultRootOptions matches the tolerance used throughout the pricing code.
var DefaultRootOptions = RootOptions{
	Tolerance:     1.0e-8,
	MaxIterations: 200,
}

// Brent finds x in [b.Lower, b.Upper] with f(x) = 0.
//
// The function values at the bracket ends must differ in sign (or one of them
// must vanish). The interval is never widened; a failed bracket yields
// ErrRootNotFound.
func Brent(f func(float64) float64, b Bracket, opts RootOptions) (float64, error) {
	if opts.Tolerance <= 0 {
		opts.Tolerance = DefaultRootOptions.Tolerance
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultRootOptions.MaxIterations
	}
	a, c := b.Lower, b.Upper
	if !(a < c) {
		return 0, fmt.Errorf("Brent: empty bracket [%g, %g]: %w", a, c, ErrInvalidInput)
	}
	fa, fc := f(a), f(c)
	if math.IsNaN(fa) || math.IsNaN(fc) {
		return 0, fmt.Errorf("Brent: objective is NaN at bracket end: %w", ErrNumericalInstability)
	}
	if fa == 0 {
		return a, nil
	}
	if fc == 0 {
		return c, nil
	}
	if fa*fc > 0 {
		return 0, fmt.Errorf("Brent: no sign change on [%g, %g] (f=%g, %g): %w", a, c, fa, fc, ErrRootNotFound)
	}

	// b2 is the best estimate, a2 the previous one, c2 the contrapoint.
	b2, fb := c, fc
	a2, c2, fc2 := a, a, fa
	d := b2 - a2
	e := d
	for iter := 0; iter < opts.MaxIterations; iter++ {
		if fb*fc2 > 0 {
			c2, fc2 = a2, fa
			d = b2 - a2
			e = d
		}
		if math.Abs(fc2) < math.Abs(fb) {
			a2, b2, c2 = b2, c2, b2
			fa, fb, fc2 = fb, fc2, fb
		}
		tol := 2*machineEpsilon*math.Abs(b2) + 0.5*opts.Tolerance
		m := 0.5 * (c2 - b2)
		if math.Abs(m) <= tol || fb == 0 {
			return b2, nil
		}
		if math.Abs(e) >= tol && math.Abs(fa) > math.Abs(fb) {
			var p, q float64
			s := fb / fa
			if a2 == c2 {
				p = 2 * m * s
				q = 1 - s
			} else {
				q0 := fa / fc2
				r := fb / fc2
				p = s * (2*m*q0*(q0-r) - (b2-a2)*(r-1))
				q = (q0 - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			} else {
				p = -p
			}
			if 2*p < math.Min(3*m*q-math.Abs(tol*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = m
				e = m
			}
		} else {
			d = m
			e = m
		}
		a2, fa = b2, fb
		if math.Abs(d) > tol {
			b2 += d
		} else if m > 0 {
			b2 += tol
		} else {
			b2 -= tol
		}
		fb = f(b2)
		if math.IsNaN(fb) {
			return 0, fmt.Errorf("Brent: objective is NaN at %g: %w", b2, ErrNumericalInstability)
		}
	}
	return b2, fmt.Errorf("Brent: did not converge after %d iterations: %w", opts.MaxIterations, ErrRootNotFound)
}
