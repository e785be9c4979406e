// Package density rolls option values back by integrating them against the
// Gaussian transition density of the Hull-White state variable.
package density

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/utils"
)

// Model is the part of the short-rate model the integrators need.
type Model interface {
	ExpectationX(t, xt, T float64) float64
	VarianceX(t, T float64) float64
	ZeroBond(t, xt, T float64) float64
}

// Engine is the roll-back contract shared by all density integrators.
type Engine interface {
	Name() string
	XSet(t float64) []float64
	RollBack(T0, T1 float64, x1, U1, H1 []float64) ([]float64, []float64, error)
}

// Settings sizes the state grid and the worker pool.
type Settings struct {
	GridPoints int
	StdDevs    float64
	// Workers bounds the goroutines integrating grid points; <= 0 means one.
	Workers int
}

// DefaultSettings uses 101 points over +/- 5 standard deviations.
var DefaultSettings = Settings{
	GridPoints: 101,
	StdDevs:    5,
	Workers:    1,
}

func (s Settings) validate() error {
	if s.GridPoints < 1 {
		return fmt.Errorf("grid points %d: %w", s.GridPoints, numerics.ErrInvalidInput)
	}
	if !(s.StdDevs > 0) {
		return fmt.Errorf("stdDevs %g: %w", s.StdDevs, numerics.ErrInvalidInput)
	}
	return nil
}

// base holds what every integrator shares: the grid and the outer loop over x0.
type base struct {
	model Model
	s     Settings
}

// XSet spans +/- StdDevs standard deviations of x(t); a degenerate distribution gives the single point 0.
func (b base) XSet(t float64) []float64 {
	sigma := math.Sqrt(math.Max(b.model.VarianceX(0.0, t), 0.0))
	if sigma == 0 {
		return []float64{0.0}
	}
	return utils.Linspace(-b.s.StdDevs*sigma, b.s.StdDevs*sigma, b.s.GridPoints)
}

// expectation integrates the time-T1 value against N(mu, sigma^2).
type expectation func(mu, sigma float64) float64

func checkInputs(name string, x1, U1, H1 []float64) error {
	if len(x1) != len(U1) || len(x1) != len(H1) {
		return fmt.Errorf("%s: grid %d, U %d, H %d: %w", name, len(x1), len(U1), len(H1), numerics.ErrDimensionMismatch)
	}
	if len(x1) == 0 {
		return fmt.Errorf("%s: empty grid: %w", name, numerics.ErrInvalidInput)
	}
	for i := 1; i < len(x1); i++ {
		if !(x1[i] > x1[i-1]) {
			return fmt.Errorf("%s: grid not ascending at %d: %w", name, i, numerics.ErrInvalidInput)
		}
	}
	return nil
}

func maxValues(U1, H1 []float64) []float64 {
	V := make([]float64, len(U1))
	for i := range V {
		V[i] = math.Max(U1[i], H1[i])
	}
	return V
}

// rollBack evaluates P(T0, x0, T1) E[V(x(T1)) | x0] on the T0 grid.
//
// For a vanishing transition variance the expectation collapses to linear
// interpolation of V1 at the conditional mean.
func (b base) rollBack(T0, T1 float64, x1, V1 []float64, integrate expectation) ([]float64, []float64, error) {
	x0 := b.XSet(T0)
	V0 := make([]float64, len(x0))
	sigma := math.Sqrt(math.Max(b.model.VarianceX(T0, T1), 0.0))
	workers := b.s.Workers
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(workers)
	for i := range x0 {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mu := b.model.ExpectationX(T0, x0[i], T1)
			var I float64
			if sigma == 0 {
				I = utils.Interp(mu, x1, V1)
			} else {
				I = integrate(mu, sigma)
			}
			if math.IsNaN(I) || math.IsInf(I, 0) {
				return fmt.Errorf("non-finite expectation at x0=%g: %w", x0[i], numerics.ErrNumericalInstability)
			}
			V0[i] = b.model.ZeroBond(T0, x0[i], T1) * I
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return x0, V0, nil
}
