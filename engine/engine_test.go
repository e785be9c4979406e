package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/hwbermudan/config"
	"github.com/meenmo/hwbermudan/curve"
	"github.com/meenmo/hwbermudan/engine"
	"github.com/meenmo/hwbermudan/hullwhite"
	"github.com/meenmo/hwbermudan/numerics"
)

func newModel(t *testing.T) *hullwhite.Model {
	t.Helper()
	m, err := hullwhite.NewModel(curve.Flat{Rate: 0.03}, 0.03, []float64{1, 5}, []float64{0.006, 0.007})
	require.NoError(t, err)
	return m
}

func TestNew(t *testing.T) {
	t.Parallel()

	m := newModel(t)
	ctx := context.Background()
	c := config.DefaultConfig
	c.AMC.Paths = 200

	cases := []struct {
		kind   string
		mutate func(c *config.Config)
		name   string
	}{
		{"pde", nil, "pde"},
		{"density", nil, "cubic-spline-exact+break-even"},
		{"density", func(c *config.Config) { c.Density.Method = "simpson"; c.Density.BreakEven = false }, "simpson"},
		{"density", func(c *config.Config) { c.Density.Method = "hermite" }, "hermite+break-even"},
		{"amc", nil, "amc/exercise-boundary"},
		{"amc", func(c *config.Config) { c.AMC.Strategy = "continuation-value" }, "amc/continuation-value"},
	}
	for _, tc := range cases {
		cfg := c
		if tc.mutate != nil {
			tc.mutate(&cfg)
		}
		method, err := engine.New(ctx, tc.kind, m, cfg, []float64{1, 2, 3})
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.name, method.Name())
	}
}

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	m := newModel(t)
	ctx := context.Background()

	_, err := engine.New(ctx, "lattice", m, config.DefaultConfig, nil)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)

	c := config.DefaultConfig
	c.Density.Method = "trapezoid"
	_, err = engine.New(ctx, "density", m, c, nil)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)

	_, err = engine.New(ctx, "amc", m, config.DefaultConfig, nil)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)

	c = config.DefaultConfig
	c.PDE.GridPoints = 1
	_, err = engine.New(ctx, "pde", m, c, nil)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
}

func TestSimulationTimes(t *testing.T) {
	t.Parallel()

	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 1.5, 2, 2.5, 2.6}, engine.SimulationTimes([]float64{1, 2.6}, 0.5), 1e-15)
	assert.Equal(t, []float64{0, 1}, engine.SimulationTimes([]float64{1, 1 + 1e-10}, 0))
	assert.Equal(t, []float64{0, 3}, engine.SimulationTimes([]float64{3, 0}, 0))
}
