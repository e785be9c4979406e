package calibration_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/hwbermudan/bermudan"
	"github.com/meenmo/hwbermudan/blackmodel"
	"github.com/meenmo/hwbermudan/calibration"
	"github.com/meenmo/hwbermudan/curve"
	"github.com/meenmo/hwbermudan/hullwhite"
	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/pde"
)

var yc = curve.Flat{Rate: 0.03}

// swaption is a receiver swaption from expiry into an annual swap ending at end.
func swaption(expiry, end int) calibration.Helper {
	h := calibration.Helper{Expiry: float64(expiry), CallOrPut: blackmodel.Call}
	h.PayTimes = append(h.PayTimes, float64(expiry))
	h.CashFlows = append(h.CashFlows, -1)
	for T := expiry + 1; T <= end; T++ {
		h.PayTimes = append(h.PayTimes, float64(T))
		h.CashFlows = append(h.CashFlows, 0.03)
	}
	h.PayTimes = append(h.PayTimes, float64(end))
	h.CashFlows = append(h.CashFlows, 1)
	return h
}

// coterminal returns helpers expiring at 1..n into swaps ending at end, priced under m.
func coterminal(t *testing.T, m *hullwhite.Model, n, end int) []calibration.Helper {
	t.Helper()
	var hs []calibration.Helper
	for k := 1; k <= n; k++ {
		h := swaption(k, end)
		p, err := h.Price(m)
		require.NoError(t, err)
		h.Target = p
		hs = append(hs, h)
	}
	return hs
}

func trueModel(t *testing.T, a float64) *hullwhite.Model {
	t.Helper()
	m, err := hullwhite.NewModel(yc, a, []float64{1, 2, 3}, []float64{0.006, 0.007, 0.008})
	require.NoError(t, err)
	return m
}

func TestStripVolatilities_ReproducesTargets(t *testing.T) {
	t.Parallel()

	truth := trueModel(t, 0.03)
	helpers := coterminal(t, truth, 3, 6)
	// out of order on purpose
	helpers[0], helpers[2] = helpers[2], helpers[0]

	m, err := calibration.StripVolatilities(yc, 0.03, helpers, 0.005, calibration.DefaultSettings)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, m.VolatilityTimes())
	assert.InDeltaSlice(t, truth.VolatilityValues(), m.VolatilityValues(), 1e-6)
	for _, h := range helpers {
		p, err := h.Price(m)
		require.NoError(t, err)
		assert.InDelta(t, h.Target, p, 1e-9)
	}

	prices, err := calibration.EuropeanPricer(helpers)(m)
	require.NoError(t, err)
	require.Len(t, prices, 3)
	assert.InDelta(t, helpers[1].Target, prices[1], 1e-9)
}

func TestStripVolatilities_Errors(t *testing.T) {
	t.Parallel()

	truth := trueModel(t, 0.03)
	helpers := coterminal(t, truth, 2, 5)

	_, err := calibration.StripVolatilities(yc, 0.03, nil, 0.005, calibration.DefaultSettings)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
	_, err = calibration.StripVolatilities(yc, 0.03, helpers, 0, calibration.DefaultSettings)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)

	dup := []calibration.Helper{helpers[0], helpers[0]}
	_, err = calibration.StripVolatilities(yc, 0.03, dup, 0.005, calibration.DefaultSettings)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)

	short := helpers[0]
	short.CashFlows = short.CashFlows[:1]
	_, err = calibration.StripVolatilities(yc, 0.03, []calibration.Helper{short}, 0.005, calibration.DefaultSettings)
	require.ErrorIs(t, err, numerics.ErrDimensionMismatch)

	unreachable := helpers[0]
	unreachable.Target = 1.0
	_, err = calibration.StripVolatilities(yc, 0.03, []calibration.Helper{unreachable}, 0.005, calibration.DefaultSettings)
	require.ErrorIs(t, err, numerics.ErrRootNotFound)
}

func pdeFactory(m *hullwhite.Model) (bermudan.Method, error) {
	return pde.NewSolver(m, pde.DefaultSettings)
}

func TestBermudanPricer(t *testing.T) {
	t.Parallel()

	truth := trueModel(t, 0.03)
	helpers := coterminal(t, truth, 3, 6)

	times, under, err := calibration.BermudanUnderlyings(truth, []calibration.Helper{helpers[2], helpers[0], helpers[1]})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, times)
	assert.Equal(t, 2.0, under[1].ObservationTime())

	prices, err := calibration.BermudanPricer(context.Background(), helpers, pdeFactory)(truth)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	for _, h := range helpers {
		assert.Greater(t, prices[0], h.Target*(1-1e-3))
	}

	failing := func(*hullwhite.Model) (bermudan.Method, error) { return nil, errors.New("no engine") }
	_, err = calibration.BermudanPricer(context.Background(), helpers, failing)(truth)
	require.EqualError(t, err, "no engine")
}

func TestFitMeanReversion(t *testing.T) {
	t.Parallel()

	const a = 0.05
	truth := trueModel(t, a)
	helpers := coterminal(t, truth, 3, 6)

	// a second set of options pins the mean reversion once volatilities are stripped
	var others []calibration.Helper
	var targets []float64
	for _, h := range []calibration.Helper{swaption(1, 10), swaption(3, 4)} {
		p, err := h.Price(truth)
		require.NoError(t, err)
		others = append(others, h)
		targets = append(targets, p)
	}

	res, err := calibration.FitMeanReversion(yc, helpers, 0.005, 0.01, calibration.EuropeanPricer(others), targets, calibration.DefaultSettings)
	require.NoError(t, err)
	assert.InDelta(t, a, res.MeanReversion, 0.01)
	assert.Less(t, res.SquaredError, 1e-8)
	assert.Positive(t, res.Evaluations)
	require.NotNil(t, res.Model)
	assert.Equal(t, res.MeanReversion, res.Model.MeanReversion())

	_, err = calibration.FitMeanReversion(yc, helpers, 0.005, 0.01, calibration.EuropeanPricer(others), nil, calibration.DefaultSettings)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
}

func TestImpliedMeanReversion(t *testing.T) {
	t.Parallel()

	g := func(a, tau float64) float64 { return (1 - math.Exp(-a*tau)) / a }
	for _, a := range []float64{-0.02, 0.03, 0.1} {
		ratio := (g(a, 10) / 10) / (g(a, 2) / 2)
		got, err := calibration.ImpliedMeanReversion(2, 10, ratio, calibration.DefaultSettings)
		require.NoError(t, err)
		assert.InDelta(t, a, got, 1e-7)
		assert.InDelta(t, a, calibration.SimpleMeanReversion(2, 10, ratio), 0.2*math.Abs(a)+0.002)
	}

	_, err := calibration.ImpliedMeanReversion(0, 10, 0.9, calibration.DefaultSettings)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
	_, err = calibration.ImpliedMeanReversion(2, 10, 0.01, calibration.DefaultSettings)
	require.ErrorIs(t, err, numerics.ErrRootNotFound)
}

func TestSolveMeanReversion(t *testing.T) {
	t.Parallel()

	got, err := calibration.SolveMeanReversion(func(a float64) (float64, error) { return a - 0.07, nil },
		calibration.DefaultMeanReversionBrackets, numerics.DefaultRootOptions)
	require.NoError(t, err)
	assert.InDelta(t, 0.07, got, 1e-8)

	_, err = calibration.SolveMeanReversion(func(a float64) (float64, error) { return a - 1, nil },
		calibration.DefaultMeanReversionBrackets, numerics.DefaultRootOptions)
	require.ErrorIs(t, err, numerics.ErrRootNotFound)

	boom := errors.New("pricing failed")
	_, err = calibration.SolveMeanReversion(func(float64) (float64, error) { return 0, boom },
		calibration.DefaultMeanReversionBrackets, numerics.DefaultRootOptions)
	require.ErrorIs(t, err, boom)
}
