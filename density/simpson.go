package density

import (
	"fmt"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat/distuv"
)

// Simpson applies Simpson's rule to V(x) N(x; mu, sigma) on the nodes of x1.
// Mass outside the grid is dropped.
type Simpson struct {
	base
}

func NewSimpson(model Model, s Settings) (*Simpson, error) {
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("density.NewSimpson: %w", err)
	}
	return &Simpson{base{model: model, s: s}}, nil
}

func (e *Simpson) Name() string { return "simpson" }

func (e *Simpson) RollBack(T0, T1 float64, x1, U1, H1 []float64) ([]float64, []float64, error) {
	if err := checkInputs("density.Simpson", x1, U1, H1); err != nil {
		return nil, nil, err
	}
	V := maxValues(U1, H1)
	x0, V0, err := e.rollBack(T0, T1, x1, V, func(mu, sigma float64) float64 {
		if len(x1) < 2 {
			return 0.0
		}
		n := distuv.Normal{Mu: mu, Sigma: sigma}
		f := make([]float64, len(x1))
		for k, x := range x1 {
			f[k] = V[k] * n.Prob(x)
		}
		if len(x1) < 3 {
			return integrate.Trapezoidal(x1, f)
		}
		return integrate.Simpsons(x1, f)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("density.Simpson.RollBack: %w", err)
	}
	return x0, V0, nil
}
