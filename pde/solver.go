// Package pde rolls option values back in time by solving the Hull-White
// pricing PDE with the theta method on a fixed equidistant state grid.
package pde

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/utils"
)

// Model is the part of the short-rate model the solver needs.
type Model interface {
	MeanReversion() float64
	Sigma(t float64) float64
	Y(t float64) float64
	VarianceX(t, T float64) float64
	ForwardRate(t, xt, T float64) float64
}

// Settings configures the finite-difference scheme.
type Settings struct {
	GridPoints int
	StdDevs    float64
	Theta      float64
	TimeStep   float64
	// BoundaryCurvature replaces the estimated boundary log-curvature V''/V' when set.
	BoundaryCurvature *float64
	// CurvatureTolerance is the |V'| below which the estimated curvature is 0.
	CurvatureTolerance float64
}

// DefaultSettings is Crank-Nicolson with monthly steps on 101 points over +/- 5 standard deviations.
var DefaultSettings = Settings{
	GridPoints:         101,
	StdDevs:            5,
	Theta:              0.5,
	TimeStep:           1.0 / 12.0,
	CurvatureTolerance: 1.0e-8,
}

// Solver implements the roll-back engine contract.
type Solver struct {
	model Model
	s     Settings
}

func NewSolver(model Model, s Settings) (*Solver, error) {
	if s.GridPoints < 3 {
		return nil, fmt.Errorf("pde.NewSolver: need at least 3 grid points, got %d: %w", s.GridPoints, numerics.ErrInvalidInput)
	}
	if !(s.StdDevs > 0) || !(s.TimeStep > 0) {
		return nil, fmt.Errorf("pde.NewSolver: stdDevs %g and time step %g must be positive: %w", s.StdDevs, s.TimeStep, numerics.ErrInvalidInput)
	}
	if s.Theta < 0 || s.Theta > 1 {
		return nil, fmt.Errorf("pde.NewSolver: theta %g outside [0, 1]: %w", s.Theta, numerics.ErrInvalidInput)
	}
	if s.CurvatureTolerance <= 0 {
		s.CurvatureTolerance = DefaultSettings.CurvatureTolerance
	}
	return &Solver{model: model, s: s}, nil
}

func (p *Solver) Name() string { return "pde" }

// XSet spans +/- StdDevs standard deviations of x(t) seen from 0.
func (p *Solver) XSet(t float64) []float64 {
	sigma := math.Sqrt(math.Max(p.model.VarianceX(0.0, t), 0.0))
	return utils.Linspace(-p.s.StdDevs*sigma, p.s.StdDevs*sigma, p.s.GridPoints)
}

// RollBack propagates max(U1, H1) from T1 to T0 on the grid x1, which is kept.
func (p *Solver) RollBack(T0, T1 float64, x1, U1, H1 []float64) ([]float64, []float64, error) {
	if len(x1) != len(U1) || len(x1) != len(H1) {
		return nil, nil, fmt.Errorf("pde.RollBack: grid %d, U %d, H %d: %w", len(x1), len(U1), len(H1), numerics.ErrDimensionMismatch)
	}
	if len(x1) < 3 {
		return nil, nil, fmt.Errorf("pde.RollBack: grid of %d points: %w", len(x1), numerics.ErrInvalidInput)
	}
	if T0 > T1 {
		return nil, nil, fmt.Errorf("pde.RollBack: T0 %g after T1 %g: %w", T0, T1, numerics.ErrInvalidInput)
	}
	V := make([]float64, len(x1))
	for i := range V {
		V[i] = math.Max(U1[i], H1[i])
	}
	n := int(math.Ceil((T1-T0)/p.s.TimeStep - utils.TimeTolerance))
	if n < 1 {
		return x1, V, nil
	}
	h := (T1 - T0) / float64(n)
	for k := 0; k < n; k++ {
		t1 := T1 - float64(k)*h
		t0 := t1 - h
		if k == n-1 {
			t0 = T0
		}
		var err error
		V, err = p.step(t0, t1, x1, V)
		if err != nil {
			return nil, nil, fmt.Errorf("pde.RollBack: sub-step [%g, %g]: %w", t0, t1, err)
		}
		if floats.HasNaN(V) {
			return nil, nil, fmt.Errorf("pde.RollBack: sub-step [%g, %g]: %w", t0, t1, numerics.ErrNumericalInstability)
		}
	}
	return x1, V, nil
}

// step solves one theta step from T1 back to T0.
func (p *Solver) step(T0, T1 float64, x, V []float64) ([]float64, error) {
	N := len(x) - 1
	ht := T1 - T0
	hx := (x[N] - x[0]) / float64(N)
	t := p.s.Theta*T0 + (1-p.s.Theta)*T1
	f := p.model.ForwardRate(0.0, 0.0, t)
	sigma := p.model.Sigma(t)
	y := p.model.Y(t)
	a := p.model.MeanReversion()
	s2 := sigma * sigma

	M := numerics.NewTridiagonal(N + 1)
	for i, xi := range x {
		M.Diag[i] = s2/hx/hx + f + xi
		M.Lower[i] = -s2/2.0/hx/hx + (y-a*xi)/2.0/hx
		M.Upper[i] = -s2/2.0/hx/hx - (y-a*xi)/2.0/hx
	}

	lambda0, lambdaN := p.boundaryCurvature(V, hx)
	b0 := 2.0 * (y - a*x[0] + lambda0*s2/2.0) / (2.0 + lambda0*hx) / hx
	bN := 2.0 * (y - a*x[N] + lambdaN*s2/2.0) / (2.0 + lambdaN*hx) / hx
	M.Diag[0] = b0 + x[0] + f
	M.Upper[0] = -b0
	M.Diag[N] = -bN + x[N] + f
	M.Lower[N] = bN

	return numerics.ThetaStep(M, V, ht, p.s.Theta)
}

// boundaryCurvature estimates V''/V' at both ends from central differences.
func (p *Solver) boundaryCurvature(V []float64, hx float64) (float64, float64) {
	if p.s.BoundaryCurvature != nil {
		return *p.s.BoundaryCurvature, *p.s.BoundaryCurvature
	}
	N := len(V) - 1
	lambda := func(vx, vxx float64) float64 {
		if math.Abs(vx) > p.s.CurvatureTolerance {
			return vxx / vx
		}
		return 0.0
	}
	vx0 := (V[2] - V[0]) / 2.0 / hx
	vxx0 := (V[2] - 2*V[1] + V[0]) / hx / hx
	vxN := (V[N] - V[N-2]) / 2.0 / hx
	vxxN := (V[N] - 2*V[N-1] + V[N-2]) / hx / hx
	return lambda(vx0, vxx0), lambda(vxN, vxxN)
}
