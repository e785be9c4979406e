package payoff

import (
	"fmt"
	"math"

	"github.com/meenmo/hwbermudan/numerics"
)

// SwapLegs is a precomputed swap schedule: float-leg weights on their pay times
// and fixed-leg accrual fractions on theirs.
type SwapLegs struct {
	FloatTimes    []float64
	FloatWeights  []float64
	FixedTimes    []float64
	FixedAccruals []float64
}

func (l SwapLegs) validate() error {
	if len(l.FloatTimes) != len(l.FloatWeights) {
		return fmt.Errorf("float leg has %d times, %d weights: %w", len(l.FloatTimes), len(l.FloatWeights), numerics.ErrDimensionMismatch)
	}
	if len(l.FixedTimes) != len(l.FixedAccruals) {
		return fmt.Errorf("fixed leg has %d times, %d accruals: %w", len(l.FixedTimes), len(l.FixedAccruals), numerics.ErrDimensionMismatch)
	}
	if len(l.FixedTimes) == 0 {
		return fmt.Errorf("empty fixed leg: %w", numerics.ErrInvalidInput)
	}
	return nil
}

// rateAndAnnuity returns the swap rate and the physical annuity at (t, x).
func (l SwapLegs) rateAndAnnuity(model BondModel, t, x float64) (float64, float64) {
	floatLeg := 0.0
	for i, T := range l.FloatTimes {
		floatLeg += l.FloatWeights[i] * model.ZeroBond(t, x, T)
	}
	annuity := 0.0
	for j, T := range l.FixedTimes {
		annuity += l.FixedAccruals[j] * model.ZeroBond(t, x, T)
	}
	return floatLeg / annuity, annuity
}

// CashAnnuity is sum_j tau_j prod_{l<=j} (1 + tau_l S)^-1.
func (l SwapLegs) CashAnnuity(swapRate float64) float64 {
	a, df := 0.0, 1.0
	for _, tau := range l.FixedAccruals {
		df /= 1.0 + tau*swapRate
		a += tau * df
	}
	return a
}

// CashSettledSwaption pays callOrPut (S - K) A_c(S) P(t, x, T_settle), floored at zero.
type CashSettledSwaption struct {
	model      BondModel
	obsTime    float64
	legs       SwapLegs
	strike     float64
	settleTime float64
	callOrPut  float64
}

func NewCashSettledSwaption(model BondModel, observationTime float64, legs SwapLegs, strike, settleTime, callOrPut float64) (*CashSettledSwaption, error) {
	if err := legs.validate(); err != nil {
		return nil, fmt.Errorf("NewCashSettledSwaption: %w", err)
	}
	return &CashSettledSwaption{
		model:      model,
		obsTime:    observationTime,
		legs:       legs,
		strike:     strike,
		settleTime: settleTime,
		callOrPut:  callOrPut,
	}, nil
}

func (p *CashSettledSwaption) ObservationTime() float64 { return p.obsTime }

func (p *CashSettledSwaption) At(X []float64) float64 {
	x := X[0]
	s, _ := p.legs.rateAndAnnuity(p.model, p.obsTime, x)
	v := p.callOrPut * (s - p.strike) * p.legs.CashAnnuity(s) * p.model.ZeroBond(p.obsTime, x, p.settleTime)
	return math.Max(v, 0.0)
}

// CashPhysicalSwitch is the value of switching a swaption from cash to physical settlement:
// |S - K| (A(x) - A_c(S) P(t, x, T_settle)).
type CashPhysicalSwitch struct {
	model      BondModel
	obsTime    float64
	legs       SwapLegs
	strike     float64
	settleTime float64
}

func NewCashPhysicalSwitch(model BondModel, observationTime float64, legs SwapLegs, strike, settleTime float64) (*CashPhysicalSwitch, error) {
	if err := legs.validate(); err != nil {
		return nil, fmt.Errorf("NewCashPhysicalSwitch: %w", err)
	}
	return &CashPhysicalSwitch{
		model:      model,
		obsTime:    observationTime,
		legs:       legs,
		strike:     strike,
		settleTime: settleTime,
	}, nil
}

func (p *CashPhysicalSwitch) ObservationTime() float64 { return p.obsTime }

func (p *CashPhysicalSwitch) At(X []float64) float64 {
	x := X[0]
	s, annuity := p.legs.rateAndAnnuity(p.model, p.obsTime, x)
	cash := p.legs.CashAnnuity(s) * p.model.ZeroBond(p.obsTime, x, p.settleTime)
	return math.Abs(s-p.strike) * (annuity - cash)
}
