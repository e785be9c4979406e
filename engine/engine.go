// Package engine builds roll-back methods from configuration.
package engine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/meenmo/hwbermudan/amc"
	"github.com/meenmo/hwbermudan/bermudan"
	"github.com/meenmo/hwbermudan/config"
	"github.com/meenmo/hwbermudan/density"
	"github.com/meenmo/hwbermudan/hullwhite"
	"github.com/meenmo/hwbermudan/internal/logger"
	"github.com/meenmo/hwbermudan/mcsim"
	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/pde"
	"github.com/meenmo/hwbermudan/utils"
)

// Kinds lists the engine names New accepts.
var Kinds = []string{"pde", "density", "amc"}

// New builds the named engine. expiryTimes fixes the simulation grid of the amc engine.
func New(ctx context.Context, kind string, m *hullwhite.Model, c config.Config, expiryTimes []float64) (bermudan.Method, error) {
	switch kind {
	case "pde":
		p, err := pde.NewSolver(m, c.PDESettings())
		if err != nil {
			return nil, err
		}
		return p, nil
	case "density":
		return newDensity(m, c)
	case "amc":
		return newAMC(ctx, m, c, expiryTimes)
	default:
		return nil, fmt.Errorf("engine.New: unknown engine %q: %w", kind, numerics.ErrInvalidInput)
	}
}

func newDensity(m *hullwhite.Model, c config.Config) (bermudan.Method, error) {
	s := c.DensitySettings()
	var (
		e   density.Engine
		err error
	)
	switch c.Density.Method {
	case "", "cubic-spline-exact":
		e, err = density.NewCubicSplineExact(m, s)
	case "simpson":
		e, err = density.NewSimpson(m, s)
	case "hermite":
		e, err = density.NewHermite(m, c.Density.HermiteDegree, s)
	default:
		return nil, fmt.Errorf("engine.New: unknown density method %q: %w", c.Density.Method, numerics.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	if c.Density.BreakEven {
		return density.NewBreakEven(e), nil
	}
	return e, nil
}

func newAMC(ctx context.Context, m *hullwhite.Model, c config.Config, expiryTimes []float64) (bermudan.Method, error) {
	if len(expiryTimes) == 0 {
		return nil, fmt.Errorf("engine.New: amc needs exercise times: %w", numerics.ErrInvalidInput)
	}
	times := SimulationTimes(expiryTimes, c.AMC.SimulationStep)
	defer logger.LogDuration(ctx, "paths simulated", "paths", c.AMC.Paths, "times", len(times))()
	sim, err := mcsim.NewSimulation(ctx, m, times, c.SimulationSettings())
	if err != nil {
		return nil, err
	}
	s, err := c.AMCSettings()
	if err != nil {
		return nil, err
	}
	solver, err := amc.NewSolver(sim, s)
	if err != nil {
		return nil, err
	}
	return solver, nil
}

// SimulationTimes merges a regular grid of the given step up to the last
// required time with the required times themselves.
func SimulationTimes(required []float64, step float64) []float64 {
	last := 0.0
	for _, t := range required {
		last = math.Max(last, t)
	}
	times := append([]float64{0.0}, required...)
	if step > 0 {
		for k := 1; float64(k)*step < last; k++ {
			times = append(times, float64(k)*step)
		}
	}
	sort.Float64s(times)
	out := times[:1]
	for _, t := range times[1:] {
		if t-out[len(out)-1] > utils.TimeTolerance {
			out = append(out, t)
		}
	}
	return out
}
