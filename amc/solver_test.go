package amc_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/hwbermudan/amc"
	"github.com/meenmo/hwbermudan/blackmodel"
	"github.com/meenmo/hwbermudan/curve"
	"github.com/meenmo/hwbermudan/hullwhite"
	"github.com/meenmo/hwbermudan/mcsim"
	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/payoff"
	"github.com/meenmo/hwbermudan/utils"
)

func newSimulation(t *testing.T, paths int) (*hullwhite.Model, *mcsim.Simulation) {
	t.Helper()
	m, err := hullwhite.NewModel(curve.Flat{Rate: 0.03}, 0.03,
		[]float64{1, 2, 5, 10}, []float64{0.006, 0.0065, 0.007, 0.0075})
	require.NoError(t, err)
	sim, err := mcsim.NewSimulation(context.Background(), m, utils.Linspace(0, 5, 11), mcsim.Settings{Paths: paths, Seed: 3, Workers: 4})
	require.NoError(t, err)
	return m, sim
}

func TestStrategy(t *testing.T) {
	t.Parallel()

	for _, s := range []amc.Strategy{amc.ExerciseBoundary, amc.ContinuationValue} {
		got, err := amc.ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	got, err := amc.ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, amc.ExerciseBoundary, got)
	_, err = amc.ParseStrategy("longstaff")
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
}

func TestNewSolver(t *testing.T) {
	t.Parallel()

	_, sim := newSimulation(t, 100)
	s, err := amc.NewSolver(sim, amc.DefaultSettings)
	require.NoError(t, err)
	assert.Equal(t, "amc/exercise-boundary", s.Name())
	assert.Equal(t, 25, s.MinSampleIdx())
	assert.Len(t, s.XSet(2.5), 100)
	assert.Nil(t, s.XSet(2.7))

	cv := amc.DefaultSettings
	cv.Strategy = amc.ContinuationValue
	s, err = amc.NewSolver(sim, cv)
	require.NoError(t, err)
	assert.Equal(t, "amc/continuation-value", s.Name())

	bad := amc.DefaultSettings
	bad.SplitRatio = 1.5
	_, err = amc.NewSolver(sim, bad)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
	_, err = amc.NewSolver(nil, amc.DefaultSettings)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
}

func TestRollBack_EuropeanMatchesSimulation(t *testing.T) {
	t.Parallel()

	m, sim := newSimulation(t, 4000)
	settings := amc.DefaultSettings
	settings.SplitRatio = 0
	solver, err := amc.NewSolver(sim, settings)
	require.NoError(t, err)

	k := m.Curve().Discount(10) / m.Curve().Discount(5)
	bond, err := payoff.NewCouponBond(m, 5, []float64{10}, []float64{1})
	require.NoError(t, err)
	exercise := payoff.VanillaOption{Underlying: bond, Strike: k, CallOrPut: blackmodel.Call}

	x1 := solver.XSet(5)
	U1 := make([]float64, len(x1))
	H1 := make([]float64, len(x1))
	for i := range x1 {
		U1[i] = exercise.At(sim.State(i, 10))
	}
	x0, V0, err := solver.RollBack(0, 5, x1, U1, H1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, x0)

	est, err := sim.NPV(payoff.Pay{Payoff: exercise, Time: 5})
	require.NoError(t, err)
	assert.InDelta(t, est.Mean, V0[0], 1e-12)
	assert.InDelta(t, m.ZeroBondOption(5, 10, k, blackmodel.Call), V0[0], 4*est.StdErr+1e-4)
}

func TestRollBack_RegressionDecidesExercise(t *testing.T) {
	t.Parallel()

	_, sim := newSimulation(t, 200)
	for _, strategy := range []amc.Strategy{amc.ExerciseBoundary, amc.ContinuationValue} {
		settings := amc.DefaultSettings
		settings.Strategy = strategy
		solver, err := amc.NewSolver(sim, settings)
		require.NoError(t, err)

		x1 := solver.XSet(5)
		U1 := make([]float64, len(x1))
		H1 := make([]float64, len(x1))
		for i, x := range x1 {
			H1[i] = 1 + x
			U1[i] = H1[i] + 0.5
		}
		x0, V0, err := solver.RollBack(2.5, 5, x1, U1, H1)
		require.NoError(t, err)
		assert.Equal(t, solver.XSet(2.5), x0)
		for i := range V0 {
			want := sim.Numeraire(i, 5) * U1[i] / sim.Numeraire(i, 10)
			assert.InDelta(t, want, V0[i], 1e-12, strategy.String())
		}
	}
}

func TestRollBack_Errors(t *testing.T) {
	t.Parallel()

	_, sim := newSimulation(t, 10)
	solver, err := amc.NewSolver(sim, amc.DefaultSettings)
	require.NoError(t, err)
	x := solver.XSet(5)
	zeros := make([]float64, len(x))

	_, _, err = solver.RollBack(0, 5, x[:5], zeros, zeros)
	require.ErrorIs(t, err, numerics.ErrDimensionMismatch)
	_, _, err = solver.RollBack(0.3, 5, x, zeros, zeros)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
	// 2 in-sample paths cannot fit a quadratic
	_, _, err = solver.RollBack(2.5, 5, x, zeros, zeros)
	require.ErrorIs(t, err, numerics.ErrDimensionMismatch)
}

func TestRollBack_ContinuationValueKeepsRealisedHold(t *testing.T) {
	t.Parallel()

	_, sim := newSimulation(t, 200)
	settings := amc.DefaultSettings
	settings.Strategy = amc.ContinuationValue
	solver, err := amc.NewSolver(sim, settings)
	require.NoError(t, err)

	x1 := solver.XSet(5)
	U1 := make([]float64, len(x1))
	H1 := make([]float64, len(x1))
	for i, x := range x1 {
		// not a polynomial in x, so the fit differs from H1 path by path
		H1[i] = 1 + x + 0.01*math.Sin(1000*x)
		U1[i] = 0.5
	}
	_, V0, err := solver.RollBack(2.5, 5, x1, U1, H1)
	require.NoError(t, err)
	for i := range V0 {
		want := sim.Numeraire(i, 5) * H1[i] / sim.Numeraire(i, 10)
		assert.InDelta(t, want, V0[i], 1e-12)
	}
}
