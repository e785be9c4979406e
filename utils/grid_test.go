package utils_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/hwbermudan/utils"
)

func TestLinspace(t *testing.T) {
	t.Parallel()

	assert.Nil(t, utils.Linspace(0, 1, 0))
	assert.Equal(t, []float64{2}, utils.Linspace(2, 5, 1))
	xs := utils.Linspace(-1, 1, 5)
	assert.InDeltaSlice(t, []float64{-1, -0.5, 0, 0.5, 1}, xs, 1e-15)
}

func TestBracket(t *testing.T) {
	t.Parallel()

	xs := []float64{0, 1, 2, 3}
	cases := []struct {
		x    float64
		i, j int
	}{
		{-5, 0, 1},
		{0, 0, 1},
		{0.5, 0, 1},
		{1, 1, 2},
		{2.9, 2, 3},
		{3, 2, 3},
		{10, 2, 3},
	}
	for _, tc := range cases {
		i, j := utils.Bracket(xs, tc.x)
		assert.Equal(t, tc.i, i, "x=%g", tc.x)
		assert.Equal(t, tc.j, j, "x=%g", tc.x)
	}
}

func TestInterp(t *testing.T) {
	t.Parallel()

	xs := []float64{0, 1, 3}
	ys := []float64{1, 3, 7}
	assert.Equal(t, 1.0, utils.Interp(-1, xs, ys))
	assert.Equal(t, 7.0, utils.Interp(4, xs, ys))
	assert.InDelta(t, 2.0, utils.Interp(0.5, xs, ys), 1e-15)
	assert.InDelta(t, 5.0, utils.Interp(2, xs, ys), 1e-15)
	assert.Equal(t, 4.0, utils.Interp(9, []float64{1}, []float64{4}))
	assert.True(t, math.IsNaN(utils.Interp(0, nil, nil)))
}

func TestIndexWithTolerance(t *testing.T) {
	t.Parallel()

	times := []float64{0, 0.25, 0.5, 1}
	assert.Equal(t, 2, utils.IndexWithTolerance(times, 0.5+1e-10))
	assert.Equal(t, 2, utils.IndexWithTolerance(times, 0.5-1e-10))
	assert.Equal(t, 0, utils.IndexWithTolerance(times, 0))
	assert.Equal(t, -1, utils.IndexWithTolerance(times, 0.3))
	assert.Equal(t, -1, utils.IndexWithTolerance(times, 2))
}

func TestAddMonth(t *testing.T) {
	t.Parallel()

	d := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), utils.AddMonth(d, 1))
	assert.Equal(t, time.Date(2023, 11, 30, 0, 0, 0, 0, time.UTC), utils.AddMonth(d, -2))
	assert.Equal(t, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC), utils.AddMonth(d, 12))
}

func TestYearFraction(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 366.0/365.0, utils.YearFraction(start, end, utils.Act365F), 1e-15)
	assert.InDelta(t, 366.0/360.0, utils.YearFraction(start, end, utils.Act360), 1e-15)
	assert.InDelta(t, 1.0, utils.YearFraction(start, end, utils.Thirty), 1e-15)
	assert.InDelta(t, 366.0/365.0, utils.YearFraction(start, end, "BUS/252"), 1e-15)

	// both ends capped at 30
	jan31 := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	mar31 := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 60.0/360.0, utils.YearFraction(jan31, mar31, utils.Thirty360E), 1e-15)
	feb29 := time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 29.0/360.0, utils.YearFraction(jan31, feb29, utils.Thirty), 1e-15)
}

func TestParseDate(t *testing.T) {
	t.Parallel()

	d, err := utils.ParseDate("2024-03-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), d)

	_, err = utils.ParseDate("29/03/2024")
	require.Error(t, err)
}
