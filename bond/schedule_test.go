package bond_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/hwbermudan/bond"
	"github.com/meenmo/hwbermudan/calendar"
	"github.com/meenmo/hwbermudan/curve"
	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/utils"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFixedLeg(t *testing.T) {
	t.Parallel()

	cfs, err := bond.FixedLeg(date(2024, 1, 15), date(2026, 1, 15), 12, 0.03, calendar.WeekendsOnly, utils.Act365F)
	require.NoError(t, err)
	require.Len(t, cfs, 2)
	assert.Equal(t, date(2025, 1, 15), cfs[0].Date)
	assert.Equal(t, date(2026, 1, 15), cfs[1].Date)
	assert.InDelta(t, 0.03*366.0/365.0, cfs[0].Amount(), 1e-15)
	assert.InDelta(t, 0.03, cfs[1].Amount(), 1e-15)
}

func TestFixedLeg_ShortFrontStub(t *testing.T) {
	t.Parallel()

	cfs, err := bond.FixedLeg(date(2024, 3, 1), date(2025, 1, 15), 6, 0.04, calendar.WeekendsOnly, utils.Thirty)
	require.NoError(t, err)
	require.Len(t, cfs, 2)
	assert.Equal(t, date(2024, 7, 15), cfs[0].Date)
	assert.InDelta(t, 0.04*134.0/360.0, cfs[0].Coupon, 1e-15)
	assert.InDelta(t, 0.02, cfs[1].Coupon, 1e-15)
}

func TestFixedLeg_Validation(t *testing.T) {
	t.Parallel()

	_, err := bond.FixedLeg(date(2024, 1, 15), date(2026, 1, 15), 0, 0.03, calendar.WeekendsOnly, utils.Act365F)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
	_, err = bond.FixedLeg(date(2026, 1, 15), date(2024, 1, 15), 12, 0.03, calendar.WeekendsOnly, utils.Act365F)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
}

func TestSwapUnderlying(t *testing.T) {
	t.Parallel()

	ctx := curve.NewValuationContext(date(2024, 1, 10), curve.Flat{Rate: 0.03})
	payTimes, cashFlows, err := bond.SwapUnderlying(ctx, date(2024, 1, 15), date(2026, 1, 15), 12, 0.03)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{5.0 / 365.0, 371.0 / 365.0, 736.0 / 365.0}, payTimes, 1e-15)
	assert.InDeltaSlice(t, []float64{-1.0, 0.03 * 366.0 / 365.0, 1.03}, cashFlows, 1e-15)
}

func TestTimes_DropsPastFlows(t *testing.T) {
	t.Parallel()

	ctx := curve.NewValuationContext(date(2024, 1, 1), curve.Flat{Rate: 0.03})
	cfs := []bond.Cashflow{
		{Date: date(2024, 6, 1), Coupon: 0.01},
		{Date: date(2025, 1, 1), Coupon: 0.01, Principal: 1},
	}
	payTimes, amounts, err := bond.Times(ctx, date(2024, 6, 1), cfs)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{366.0 / 365.0}, payTimes, 1e-15)
	assert.InDeltaSlice(t, []float64{1.01}, amounts, 1e-15)

	_, _, err = bond.Times(ctx, date(2024, 1, 1), []bond.Cashflow{cfs[1], cfs[0]})
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
	_, _, err = bond.Times(ctx, date(2024, 1, 1), nil)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
}

func TestParRate(t *testing.T) {
	t.Parallel()

	yc, err := curve.NewForwardCurve([]float64{1, 5, 10}, []float64{0.02, 0.03, 0.035})
	require.NoError(t, err)
	ctx := curve.NewValuationContext(date(2024, 3, 27), yc)
	start, maturity := date(2026, 3, 27), date(2034, 3, 27)

	rate, err := bond.ParRate(ctx, start, maturity, 12)
	require.NoError(t, err)
	assert.Greater(t, rate, 0.02)
	assert.Less(t, rate, 0.04)

	payTimes, cashFlows, err := bond.SwapUnderlying(ctx, start, maturity, 12, rate)
	require.NoError(t, err)
	npv := 0.0
	for i, T := range payTimes {
		npv += cashFlows[i] * yc.Discount(T)
	}
	assert.InDelta(t, 0.0, npv, 1e-14)

	_, err = bond.ParRate(ctx, maturity, start, 12)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
}
