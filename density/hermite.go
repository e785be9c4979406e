package density

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/meenmo/hwbermudan/numerics"
)

// Hermite integrates a natural cubic spline through V with Gauss-Hermite quadrature.
// The spline is extrapolated beyond the grid unless the engine is restricted to it.
type Hermite struct {
	base
	nodes   []float64
	weights []float64
	// restricted drops nodes outside the x1 grid
	restricted bool
}

// NewHermite precomputes the Gauss-Hermite rule of the given degree.
func NewHermite(model Model, degree int, s Settings) (*Hermite, error) {
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("density.NewHermite: %w", err)
	}
	if degree < 1 {
		return nil, fmt.Errorf("density.NewHermite: degree %d: %w", degree, numerics.ErrInvalidInput)
	}
	x := make([]float64, degree)
	w := make([]float64, degree)
	quad.Hermite{}.FixedLocations(x, w, math.Inf(-1), math.Inf(1))
	return &Hermite{base: base{model: model, s: s}, nodes: x, weights: w}, nil
}

func (e *Hermite) Name() string { return "hermite" }

// restrictedToGrid returns a copy that integrates only over the x1 range.
func (e *Hermite) restrictedToGrid() Engine {
	c := *e
	c.restricted = true
	return &c
}

func (e *Hermite) RollBack(T0, T1 float64, x1, U1, H1 []float64) ([]float64, []float64, error) {
	if err := checkInputs("density.Hermite", x1, U1, H1); err != nil {
		return nil, nil, err
	}
	V := maxValues(U1, H1)
	if len(x1) < 2 {
		if e.restricted {
			return e.zero(T0)
		}
		// a constant extrapolates to itself
		x0, V0, err := e.rollBack(T0, T1, x1, V, func(float64, float64) float64 { return V[0] })
		if err != nil {
			return nil, nil, fmt.Errorf("density.Hermite.RollBack: %w", err)
		}
		return x0, V0, nil
	}
	spline, err := numerics.NewNaturalCubicSpline(x1, V)
	if err != nil {
		return nil, nil, fmt.Errorf("density.Hermite.RollBack: %w", err)
	}
	lo, hi := x1[0], x1[len(x1)-1]
	x0, V0, err := e.rollBack(T0, T1, x1, V, func(mu, sigma float64) float64 {
		I := 0.0
		for k, z := range e.nodes {
			x := math.Sqrt2*sigma*z + mu
			if e.restricted && (x < lo || x > hi) {
				continue
			}
			I += e.weights[k] * spline.Eval(x)
		}
		return I / math.SqrtPi
	})
	if err != nil {
		return nil, nil, fmt.Errorf("density.Hermite.RollBack: %w", err)
	}
	return x0, V0, nil
}

func (e *Hermite) zero(T0 float64) ([]float64, []float64, error) {
	x0 := e.XSet(T0)
	return x0, make([]float64, len(x0)), nil
}
