// Package mcsim simulates Monte-Carlo paths of a short-rate model state and
// values path-wise payoffs against the model numeraire.
package mcsim

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/utils"
)

// Process is the stochastic-process side of a model.
type Process interface {
	Size() int
	Factors() int
	InitialValues() []float64
	Evolve(t0 float64, X0 []float64, dt float64, dW []float64) []float64
	Numeraire(t float64, X []float64) float64
}

// Settings controls path generation.
type Settings struct {
	Paths int
	Seed  uint64
	// Workers bounds the goroutines evolving paths; <= 0 means one.
	Workers int
}

// Simulation holds immutable paths X[path][timeIndex][state].
type Simulation struct {
	model  Process
	times  []float64
	nPaths int
	dW     [][][]float64
	X      [][][]float64
}

// NewSimulation draws all increments from the seed in path, step, factor order
// and then evolves the paths. A time 0 is prepended when missing.
func NewSimulation(ctx context.Context, model Process, times []float64, s Settings) (*Simulation, error) {
	if s.Paths <= 0 {
		return nil, fmt.Errorf("NewSimulation: %d paths: %w", s.Paths, numerics.ErrInvalidInput)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("NewSimulation: empty time grid: %w", numerics.ErrInvalidInput)
	}
	grid := make([]float64, 0, len(times)+1)
	if math.Abs(times[0]) > utils.TimeTolerance {
		grid = append(grid, 0.0)
	}
	for i, t := range times {
		if t < -utils.TimeTolerance {
			return nil, fmt.Errorf("NewSimulation: negative time %g: %w", t, numerics.ErrInvalidInput)
		}
		if len(grid) > 0 && !(t > grid[len(grid)-1]) {
			return nil, fmt.Errorf("NewSimulation: times not ascending at %d: %w", i, numerics.ErrInvalidInput)
		}
		grid = append(grid, t)
	}

	sim := &Simulation{
		model:  model,
		times:  grid,
		nPaths: s.Paths,
	}
	sim.dW = drawIncrements(s.Seed, s.Paths, len(grid)-1, model.Factors())
	sim.X = make([][][]float64, s.Paths)

	workers := s.Workers
	if workers <= 0 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < s.Paths; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sim.X[i] = sim.evolvePath(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("NewSimulation: %w", err)
	}
	return sim, nil
}

func drawIncrements(seed uint64, nPaths, nSteps, nFactors int) [][][]float64 {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)}
	dW := make([][][]float64, nPaths)
	for i := range dW {
		dW[i] = make([][]float64, nSteps)
		for j := range dW[i] {
			dW[i][j] = make([]float64, nFactors)
			for k := range dW[i][j] {
				dW[i][j][k] = normal.Rand()
			}
		}
	}
	return dW
}

func (s *Simulation) evolvePath(i int) [][]float64 {
	path := make([][]float64, len(s.times))
	path[0] = s.model.InitialValues()
	for j := 0; j < len(s.times)-1; j++ {
		path[j+1] = s.model.Evolve(s.times[j], path[j], s.times[j+1]-s.times[j], s.dW[i][j])
	}
	return path
}

func (s *Simulation) Model() Process { return s.model }

func (s *Simulation) Times() []float64 { return s.times }

func (s *Simulation) Paths() int { return s.nPaths }

// State returns the state of path i at time index j. The slice must not be modified.
func (s *Simulation) State(i, j int) []float64 { return s.X[i][j] }

// Increments returns the normal draws of path i. The slice must not be modified.
func (s *Simulation) Increments(i int) [][]float64 { return s.dW[i] }

// Index returns the time index of t on the simulation grid.
func (s *Simulation) Index(t float64) (int, error) {
	idx := utils.IndexWithTolerance(s.times, t)
	if idx < 0 {
		return 0, fmt.Errorf("Simulation.Index: time %g not simulated: %w", t, numerics.ErrInvalidInput)
	}
	return idx, nil
}

// Numeraire returns the numeraire of path i at time index j.
func (s *Simulation) Numeraire(i, j int) float64 {
	return s.model.Numeraire(s.times[j], s.X[i][j])
}

// Cashflow is a payoff observed at one time and paid at another.
type Cashflow interface {
	ObservationTime() float64
	PayTime() float64
	At(X []float64) float64
}

// Estimate is a Monte-Carlo mean with its standard error.
type Estimate struct {
	Mean   float64
	StdErr float64
}

// Discounted returns N(0) V(T_obs) / N(T_pay) per path.
func (s *Simulation) Discounted(p Cashflow) ([]float64, error) {
	obsIdx, err := s.Index(p.ObservationTime())
	if err != nil {
		return nil, fmt.Errorf("Simulation.Discounted: observation: %w", err)
	}
	payIdx, err := s.Index(p.PayTime())
	if err != nil {
		return nil, fmt.Errorf("Simulation.Discounted: payment: %w", err)
	}
	v := make([]float64, s.nPaths)
	for i := range v {
		v[i] = s.Numeraire(i, 0) * p.At(s.X[i][obsIdx]) / s.Numeraire(i, payIdx)
	}
	return v, nil
}

// NPV averages the discounted payoff over all paths.
func (s *Simulation) NPV(p Cashflow) (Estimate, error) {
	v, err := s.Discounted(p)
	if err != nil {
		return Estimate{}, fmt.Errorf("Simulation.NPV: %w", err)
	}
	return Summarize(v), nil
}

// Summarize returns the sample mean and its standard error.
func Summarize(v []float64) Estimate {
	if len(v) == 0 {
		return Estimate{Mean: math.NaN(), StdErr: math.NaN()}
	}
	mean, std := stat.MeanStdDev(v, nil)
	if len(v) < 2 {
		std = 0
	}
	return Estimate{Mean: mean, StdErr: stat.StdErr(std, float64(len(v)))}
}
