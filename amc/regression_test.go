package amc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/hwbermudan/amc"
	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/utils"
)

func TestMultiIndexSet(t *testing.T) {
	t.Parallel()

	assert.Equal(t, [][]int{{0}, {1}, {2}}, amc.MultiIndexSet(1, 3))
	assert.Equal(t, [][]int{{0, 0}, {0, 1}, {1, 0}}, amc.MultiIndexSet(2, 2))
	assert.Len(t, amc.MultiIndexSet(2, 3), 6)
	assert.Len(t, amc.MultiIndexSet(3, 3), 10)
	assert.Nil(t, amc.MultiIndexSet(0, 3))
	for _, idx := range amc.MultiIndexSet(3, 4) {
		assert.Less(t, idx[0]+idx[1]+idx[2], 4)
	}
}

func TestRegression_ReproducesPolynomial(t *testing.T) {
	t.Parallel()

	xs := utils.Linspace(-1, 2, 25)
	controls := make([][]float64, len(xs))
	obs := make([]float64, len(xs))
	for i, x := range xs {
		controls[i] = []float64{x}
		obs[i] = 1 + 2*x - 0.5*x*x
	}
	r, err := amc.NewRegression(controls, obs, 2)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 2, -0.5}, r.Coefficients(), 1e-10)
	assert.InDelta(t, 2.5, r.Value([]float64{3}), 1e-9)
}

func TestRegression_TwoControls(t *testing.T) {
	t.Parallel()

	var controls [][]float64
	var obs []float64
	for _, x := range utils.Linspace(-1, 1, 7) {
		for _, y := range utils.Linspace(0, 2, 5) {
			controls = append(controls, []float64{x, y})
			obs = append(obs, 0.5-x+3*x*y+y*y)
		}
	}
	r, err := amc.NewRegression(controls, obs, 2)
	require.NoError(t, err)
	assert.Len(t, r.Coefficients(), 6)
	assert.InDelta(t, 0.5-0.3+3*0.3*1.5+1.5*1.5, r.Value([]float64{0.3, 1.5}), 1e-10)
}

func TestRegression_Errors(t *testing.T) {
	t.Parallel()

	_, err := amc.NewRegression([][]float64{{1}, {2}}, []float64{1}, 1)
	require.ErrorIs(t, err, numerics.ErrDimensionMismatch)
	_, err = amc.NewRegression([][]float64{{1}, {2}}, []float64{1, 2}, 2)
	require.ErrorIs(t, err, numerics.ErrDimensionMismatch)
	_, err = amc.NewRegression(nil, nil, 2)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
	_, err = amc.NewRegression([][]float64{{1}, {2, 3}, {4}}, []float64{1, 2, 3}, 1)
	require.ErrorIs(t, err, numerics.ErrDimensionMismatch)
}
