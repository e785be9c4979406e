// Package amc implements regression-based (least-squares Monte-Carlo) roll-back
// on simulated paths. Regressions are fitted on an in-sample block of paths and
// only used to decide exercise; values are always the realised path values.
package amc

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/meenmo/hwbermudan/mcsim"
	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/utils"
)

// Strategy selects the regressed quantity.
type Strategy int

const (
	// ExerciseBoundary regresses U1 - H1 and exercises where the fit is positive.
	ExerciseBoundary Strategy = iota
	// ContinuationValue regresses H1 and exercises where U1 exceeds the fit.
	// The fit only decides; the rolled value is the realised path value.
	ContinuationValue
)

func (s Strategy) String() string {
	switch s {
	case ExerciseBoundary:
		return "exercise-boundary"
	case ContinuationValue:
		return "continuation-value"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy accepts the names returned by String.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "exercise-boundary":
		return ExerciseBoundary, nil
	case "continuation-value":
		return ContinuationValue, nil
	}
	return 0, fmt.Errorf("amc.ParseStrategy: unknown strategy %q: %w", name, numerics.ErrInvalidInput)
}

// Settings configures the regression.
type Settings struct {
	MaxPolynomialDegree int
	// SplitRatio is the share of paths reserved for fitting.
	SplitRatio float64
	Strategy   Strategy
	// Workers bounds the goroutines valuing paths; <= 0 means one.
	Workers int
}

// DefaultSettings fits quadratics on the first quarter of the paths.
var DefaultSettings = Settings{
	MaxPolynomialDegree: 2,
	SplitRatio:          0.25,
	Strategy:            ExerciseBoundary,
	Workers:             1,
}

// Solver implements the roll-back engine contract on a simulation.
type Solver struct {
	sim          *mcsim.Simulation
	s            Settings
	minSampleIdx int
}

func NewSolver(sim *mcsim.Simulation, s Settings) (*Solver, error) {
	if sim == nil {
		return nil, fmt.Errorf("amc.NewSolver: nil simulation: %w", numerics.ErrInvalidInput)
	}
	if s.SplitRatio < 0 || s.SplitRatio > 1 {
		return nil, fmt.Errorf("amc.NewSolver: split ratio %g outside [0, 1]: %w", s.SplitRatio, numerics.ErrInvalidInput)
	}
	if s.MaxPolynomialDegree < 0 {
		return nil, fmt.Errorf("amc.NewSolver: polynomial degree %d: %w", s.MaxPolynomialDegree, numerics.ErrInvalidInput)
	}
	return &Solver{
		sim:          sim,
		s:            s,
		minSampleIdx: int(s.SplitRatio * float64(sim.Paths())),
	}, nil
}

func (a *Solver) Name() string { return "amc/" + a.s.Strategy.String() }

// MinSampleIdx is the number of in-sample paths.
func (a *Solver) MinSampleIdx() int { return a.minSampleIdx }

// XSet returns x of every path at t, or nil when t was not simulated.
func (a *Solver) XSet(t float64) []float64 {
	idx, err := a.sim.Index(t)
	if err != nil {
		return nil
	}
	x := make([]float64, a.sim.Paths())
	for i := range x {
		x[i] = a.sim.State(i, idx)[0]
	}
	return x
}

func (a *Solver) RollBack(T0, T1 float64, x1, U1, H1 []float64) ([]float64, []float64, error) {
	n := a.sim.Paths()
	if len(x1) != n || len(U1) != n || len(H1) != n {
		return nil, nil, fmt.Errorf("amc.RollBack: %d paths, got x %d, U %d, H %d: %w", n, len(x1), len(U1), len(H1), numerics.ErrDimensionMismatch)
	}
	idx0, err := a.sim.Index(T0)
	if err != nil {
		return nil, nil, fmt.Errorf("amc.RollBack: %w", err)
	}
	idx1, err := a.sim.Index(T1)
	if err != nil {
		return nil, nil, fmt.Errorf("amc.RollBack: %w", err)
	}
	atZero := math.Abs(T0) < utils.TimeTolerance

	var reg *Regression
	if !atZero && a.minSampleIdx > 0 {
		reg, err = a.fit(x1, U1, H1)
		if err != nil {
			return nil, nil, fmt.Errorf("amc.RollBack: [%g, %g]: %w", T0, T1, err)
		}
	}

	V0 := make([]float64, n)
	workers := a.s.Workers
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			V0[i] = a.sim.Numeraire(i, idx0) * a.decide(reg, x1[i], U1[i], H1[i]) / a.sim.Numeraire(i, idx1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("amc.RollBack: %w", err)
	}

	if atZero {
		sampleIdx := a.minSampleIdx
		if sampleIdx >= n {
			sampleIdx = 0
		}
		return []float64{0.0}, []float64{stat.Mean(V0[sampleIdx:], nil)}, nil
	}
	return a.XSet(T0), V0, nil
}

func (a *Solver) fit(x1, U1, H1 []float64) (*Regression, error) {
	m := a.minSampleIdx
	controls := make([][]float64, m)
	obs := make([]float64, m)
	for i := 0; i < m; i++ {
		controls[i] = []float64{x1[i]}
		switch a.s.Strategy {
		case ContinuationValue:
			obs[i] = H1[i]
		default:
			obs[i] = U1[i] - H1[i]
		}
	}
	return NewRegression(controls, obs, a.s.MaxPolynomialDegree)
}

// decide returns the path value kept at T1: U if exercised, else H.
func (a *Solver) decide(reg *Regression, x, U, H float64) float64 {
	indicator := U - H
	if reg != nil {
		switch a.s.Strategy {
		case ContinuationValue:
			indicator = U - reg.Value([]float64{x})
		default:
			indicator = reg.Value([]float64{x})
		}
	}
	if indicator > 0 {
		return U
	}
	return H
}
