// Package payoff defines the value objects the roll-back engines evaluate on
// their state sets. A state is the model vector [x, s]; grid engines pass [x, 0].
package payoff

import (
	"fmt"
	"math"

	"github.com/meenmo/hwbermudan/numerics"
)

// Payoff is a pure function of the model state at its observation time.
type Payoff interface {
	ObservationTime() float64
	At(X []float64) float64
}

// BondModel prices zero bonds in a given state.
type BondModel interface {
	ZeroBond(t, x, T float64) float64
}

// OnGrid evaluates p on the scalar states xs.
func OnGrid(p Payoff, xs []float64) []float64 {
	out := make([]float64, len(xs))
	state := []float64{0, 0}
	for i, x := range xs {
		state[0] = x
		out[i] = p.At(state)
	}
	return out
}

// Zero is the constant 0.
type Zero struct{ Time float64 }

func (p Zero) ObservationTime() float64 { return p.Time }
func (p Zero) At([]float64) float64     { return 0.0 }

// One is the constant 1.
type One struct{ Time float64 }

func (p One) ObservationTime() float64 { return p.Time }
func (p One) At([]float64) float64     { return 1.0 }

// Fixed is a constant amount.
type Fixed struct {
	Time   float64
	Amount float64
}

func (p Fixed) ObservationTime() float64 { return p.Time }
func (p Fixed) At([]float64) float64     { return p.Amount }

// Max is the larger of two payoffs observed at the first one's time.
type Max struct {
	First  Payoff
	Second Payoff
}

func (p Max) ObservationTime() float64 { return p.First.ObservationTime() }

func (p Max) At(X []float64) float64 {
	return math.Max(p.First.At(X), p.Second.At(X))
}

// CouponBond is sum cashFlows[i] P(t, x, payTimes[i]) at observation time t.
type CouponBond struct {
	model     BondModel
	obsTime   float64
	payTimes  []float64
	cashFlows []float64
}

// NewCouponBond copies the schedule; lengths must match.
func NewCouponBond(model BondModel, observationTime float64, payTimes, cashFlows []float64) (*CouponBond, error) {
	if len(payTimes) != len(cashFlows) {
		return nil, fmt.Errorf("NewCouponBond: %d pay times, %d cash flows: %w", len(payTimes), len(cashFlows), numerics.ErrDimensionMismatch)
	}
	return &CouponBond{
		model:     model,
		obsTime:   observationTime,
		payTimes:  append([]float64(nil), payTimes...),
		cashFlows: append([]float64(nil), cashFlows...),
	}, nil
}

func (p *CouponBond) ObservationTime() float64 { return p.obsTime }

func (p *CouponBond) PayTimes() []float64 { return p.payTimes }

func (p *CouponBond) CashFlows() []float64 { return p.cashFlows }

func (p *CouponBond) At(X []float64) float64 {
	v := 0.0
	for i, T := range p.payTimes {
		v += p.cashFlows[i] * p.model.ZeroBond(p.obsTime, X[0], T)
	}
	return v
}

// VanillaOption is max(callOrPut (underlying - strike), 0).
type VanillaOption struct {
	Underlying Payoff
	Strike     float64
	CallOrPut  float64
}

func (p VanillaOption) ObservationTime() float64 { return p.Underlying.ObservationTime() }

func (p VanillaOption) At(X []float64) float64 {
	return math.Max(p.CallOrPut*(p.Underlying.At(X)-p.Strike), 0.0)
}

// Pay attaches a payment time to a payoff for Monte-Carlo valuation.
type Pay struct {
	Payoff
	Time float64
}

func (p Pay) PayTime() float64 { return p.Time }

// SwapRate is the par rate of an annual-fixed swap from start to end seen at observation time.
type SwapRate struct {
	model        BondModel
	obsTime      float64
	startTime    float64
	endTime      float64
	annuityTimes []float64
}

// NewSwapRate builds the annual fixed schedule start, start+1, ..., end (a short last period is kept).
func NewSwapRate(model BondModel, observationTime, startTime, endTime float64) (*SwapRate, error) {
	if !(endTime > startTime) {
		return nil, fmt.Errorf("NewSwapRate: end %g not after start %g: %w", endTime, startTime, numerics.ErrInvalidInput)
	}
	times := []float64{}
	for k := 0; startTime+float64(k) <= endTime; k++ {
		times = append(times, startTime+float64(k))
	}
	if times[len(times)-1] < endTime {
		times = append(times, endTime)
	}
	return &SwapRate{
		model:        model,
		obsTime:      observationTime,
		startTime:    startTime,
		endTime:      endTime,
		annuityTimes: times,
	}, nil
}

func (p *SwapRate) ObservationTime() float64 { return p.obsTime }

func (p *SwapRate) At(X []float64) float64 {
	x := X[0]
	annuity := 0.0
	for i := 1; i < len(p.annuityTimes); i++ {
		annuity += (p.annuityTimes[i] - p.annuityTimes[i-1]) * p.model.ZeroBond(p.obsTime, x, p.annuityTimes[i])
	}
	floatLeg := p.model.ZeroBond(p.obsTime, x, p.startTime) - p.model.ZeroBond(p.obsTime, x, p.endTime)
	return floatLeg / annuity
}
