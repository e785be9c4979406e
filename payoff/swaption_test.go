package payoff_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/payoff"
)

func annualLegs(start float64, years int) payoff.SwapLegs {
	legs := payoff.SwapLegs{
		FloatTimes:   []float64{start, start + float64(years)},
		FloatWeights: []float64{1, -1},
	}
	for k := 1; k <= years; k++ {
		legs.FixedTimes = append(legs.FixedTimes, start+float64(k))
		legs.FixedAccruals = append(legs.FixedAccruals, 1)
	}
	return legs
}

func TestCashAnnuity(t *testing.T) {
	t.Parallel()

	legs := annualLegs(2, 3)
	s := 0.04
	want := 1/1.04 + 1/(1.04*1.04) + 1/(1.04*1.04*1.04)
	assert.InDelta(t, want, legs.CashAnnuity(s), 1e-15)
	assert.InDelta(t, 3.0, legs.CashAnnuity(0), 1e-15)
}

func TestCashSettledSwaption(t *testing.T) {
	t.Parallel()

	model := shifted{r: 0.03}
	legs := annualLegs(2, 5)
	atm, err := payoff.NewSwapRate(model, 2, 2, 7)
	require.NoError(t, err)
	k := atm.At([]float64{0, 0})

	payer, err := payoff.NewCashSettledSwaption(model, 2, legs, k, 2, 1)
	require.NoError(t, err)
	receiver, err := payoff.NewCashSettledSwaption(model, 2, legs, k, 2, -1)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, payer.At([]float64{0, 0}), 1e-14)
	assert.Greater(t, payer.At([]float64{0.01, 0}), 0.0)
	assert.Equal(t, 0.0, payer.At([]float64{-0.01, 0}))
	assert.Greater(t, receiver.At([]float64{-0.01, 0}), 0.0)
	assert.Equal(t, 2.0, payer.ObservationTime())

	_, err = payoff.NewCashSettledSwaption(model, 2, payoff.SwapLegs{}, k, 2, 1)
	require.ErrorIs(t, err, numerics.ErrInvalidInput)
	bad := legs
	bad.FloatWeights = []float64{1}
	_, err = payoff.NewCashSettledSwaption(model, 2, bad, k, 2, 1)
	require.ErrorIs(t, err, numerics.ErrDimensionMismatch)
}

func TestCashPhysicalSwitch(t *testing.T) {
	t.Parallel()

	model := shifted{r: 0.03}
	legs := annualLegs(2, 10)
	atm, err := payoff.NewSwapRate(model, 2, 2, 12)
	require.NoError(t, err)
	k := atm.At([]float64{0, 0})

	// on a flat curve the cash annuity at the par rate equals the physical annuity
	sw, err := payoff.NewCashPhysicalSwitch(model, 2, legs, k, 2)
	require.NoError(t, err)
	for _, x := range []float64{-0.02, 0, 0.02} {
		assert.InDelta(t, 0.0, sw.At([]float64{x, 0}), 1e-12)
	}

	late, err := payoff.NewCashPhysicalSwitch(model, 2, legs, k, 2.5)
	require.NoError(t, err)
	x := 0.02
	s := atm.At([]float64{x, 0})
	annuity := 0.0
	for j := 1; j <= 10; j++ {
		annuity += math.Exp(-0.05 * float64(j))
	}
	want := math.Abs(s-k) * annuity * (1 - math.Exp(-0.05*0.5))
	assert.InDelta(t, want, late.At([]float64{x, 0}), 1e-12)
	assert.Greater(t, want, 0.0)
}
