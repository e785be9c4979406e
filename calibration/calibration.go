// Package calibration fits Hull-White volatilities and mean reversion to
// option prices by repeated calls into the model's pricing functions.
package calibration

import (
	"context"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"

	"github.com/meenmo/hwbermudan/bermudan"
	"github.com/meenmo/hwbermudan/curve"
	"github.com/meenmo/hwbermudan/hullwhite"
	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/payoff"
)

// Helper is a coupon-bond option with a target price. Strike is usually 0 with the
// strike embedded as a negative cash flow at expiry.
type Helper struct {
	Expiry    float64
	PayTimes  []float64
	CashFlows []float64
	Strike    float64
	CallOrPut float64
	Target    float64
}

// Settings controls the root searches and the mean-reversion optimiser.
type Settings struct {
	// Volatility k is searched on [LowerFactor, UpperFactor] times its initial guess.
	LowerFactor float64
	UpperFactor float64
	Root        numerics.RootOptions
	// ImpliedBracket bounds ImpliedMeanReversion.
	ImpliedBracket numerics.Bracket
	// MaxEvaluations caps the objective evaluations of FitMeanReversion.
	MaxEvaluations int
}

// DefaultSettings follows the usual practice of [0.01, 10] times the guess.
var DefaultSettings = Settings{
	LowerFactor:    0.01,
	UpperFactor:    10.0,
	Root:           numerics.DefaultRootOptions,
	ImpliedBracket: numerics.Bracket{Lower: -0.05, Upper: 0.15},
	MaxEvaluations: 200,
}

// sortedHelpers checks the helpers and returns them by ascending expiry.
func sortedHelpers(helpers []Helper) ([]Helper, error) {
	if len(helpers) == 0 {
		return nil, fmt.Errorf("no helpers: %w", numerics.ErrInvalidInput)
	}
	out := append([]Helper(nil), helpers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Expiry < out[j].Expiry })
	for i, h := range out {
		if len(h.PayTimes) != len(h.CashFlows) {
			return nil, fmt.Errorf("helper %d: %d pay times, %d cash flows: %w", i, len(h.PayTimes), len(h.CashFlows), numerics.ErrDimensionMismatch)
		}
		if i > 0 && !(h.Expiry > out[i-1].Expiry) {
			return nil, fmt.Errorf("helper expiries must be distinct (%g): %w", h.Expiry, numerics.ErrInvalidInput)
		}
	}
	return out, nil
}

// Price is the analytic coupon-bond option price of h under m.
func (h Helper) Price(m *hullwhite.Model) (float64, error) {
	return m.CouponBondOption(h.Expiry, h.PayTimes, h.CashFlows, h.Strike, h.CallOrPut)
}

// StripVolatilities bootstraps one volatility per helper expiry, in order, so that each
// helper reprices to its target.
func StripVolatilities(yc curve.YieldCurve, meanReversion float64, helpers []Helper, initialVol float64, s Settings) (*hullwhite.Model, error) {
	hs, err := sortedHelpers(helpers)
	if err != nil {
		return nil, fmt.Errorf("StripVolatilities: %w", err)
	}
	if !(initialVol > 0) {
		return nil, fmt.Errorf("StripVolatilities: initial volatility %g: %w", initialVol, numerics.ErrInvalidInput)
	}
	times := make([]float64, len(hs))
	vols := make([]float64, len(hs))
	for i, h := range hs {
		times[i] = h.Expiry
		vols[i] = initialVol
	}
	m, err := hullwhite.NewModel(yc, meanReversion, times, vols)
	if err != nil {
		return nil, fmt.Errorf("StripVolatilities: %w", err)
	}
	for k, h := range hs {
		var inner error
		objective := func(sigma float64) float64 {
			vols[k] = sigma
			trial, err := m.WithVolatility(vols)
			if err != nil {
				inner = err
				return math.NaN()
			}
			p, err := h.Price(trial)
			if err != nil {
				inner = err
				return math.NaN()
			}
			return p - h.Target
		}
		b := numerics.Bracket{Lower: s.LowerFactor * initialVol, Upper: s.UpperFactor * initialVol}
		sigma, err := numerics.Brent(objective, b, s.Root)
		if err != nil {
			if inner != nil {
				err = inner
			}
			return nil, fmt.Errorf("StripVolatilities: helper %d (expiry %g) on [%g, %g]: %w", k, h.Expiry, b.Lower, b.Upper, err)
		}
		vols[k] = sigma
		if m, err = m.WithVolatility(vols); err != nil {
			return nil, fmt.Errorf("StripVolatilities: %w", err)
		}
	}
	return m, nil
}

// Pricer values instruments under a calibrated model.
type Pricer func(m *hullwhite.Model) ([]float64, error)

// EuropeanPricer returns the analytic helper prices.
func EuropeanPricer(helpers []Helper) Pricer {
	return func(m *hullwhite.Model) ([]float64, error) {
		out := make([]float64, len(helpers))
		for i, h := range helpers {
			p, err := h.Price(m)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	}
}

// MethodFactory builds a roll-back engine for a model.
type MethodFactory func(m *hullwhite.Model) (bermudan.Method, error)

// exerciseValue is callOrPut (bond - strike).
type exerciseValue struct {
	bond      *payoff.CouponBond
	strike    float64
	callOrPut float64
}

func (e exerciseValue) ObservationTime() float64 { return e.bond.ObservationTime() }

func (e exerciseValue) At(X []float64) float64 {
	return e.callOrPut * (e.bond.At(X) - e.strike)
}

// BermudanUnderlyings turns helpers into the exercise values of a Bermudan option.
func BermudanUnderlyings(m *hullwhite.Model, helpers []Helper) ([]float64, []payoff.Payoff, error) {
	hs, err := sortedHelpers(helpers)
	if err != nil {
		return nil, nil, err
	}
	times := make([]float64, len(hs))
	under := make([]payoff.Payoff, len(hs))
	for i, h := range hs {
		bond, err := payoff.NewCouponBond(m, h.Expiry, h.PayTimes, h.CashFlows)
		if err != nil {
			return nil, nil, err
		}
		times[i] = h.Expiry
		under[i] = exerciseValue{bond: bond, strike: h.Strike, callOrPut: h.CallOrPut}
	}
	return times, under, nil
}

// BermudanPricer prices the Bermudan option exercisable into every helper's underlying.
func BermudanPricer(ctx context.Context, helpers []Helper, newMethod MethodFactory) Pricer {
	return func(m *hullwhite.Model) ([]float64, error) {
		method, err := newMethod(m)
		if err != nil {
			return nil, err
		}
		times, under, err := BermudanUnderlyings(m, helpers)
		if err != nil {
			return nil, err
		}
		o, err := bermudan.NewOption(ctx, times, under, method)
		if err != nil {
			return nil, err
		}
		return []float64{o.NPV()}, nil
	}
}

// FitResult is the outcome of FitMeanReversion.
type FitResult struct {
	MeanReversion float64
	Model         *hullwhite.Model
	// SquaredError is the sum of squared pricing errors at the optimum.
	SquaredError float64
	Evaluations  int
}

// penalty replaces objective values where volatility stripping fails.
const penalty = 1.0e10

// FitMeanReversion minimises the squared error between pricer output and targets over the
// mean reversion with Nelder-Mead, stripping volatilities to the helpers at each trial.
func FitMeanReversion(yc curve.YieldCurve, helpers []Helper, initialVol, initialMeanReversion float64, pricer Pricer, targets []float64, s Settings) (FitResult, error) {
	if len(targets) == 0 {
		return FitResult{}, fmt.Errorf("FitMeanReversion: no targets: %w", numerics.ErrInvalidInput)
	}
	objective := func(x []float64) float64 {
		m, err := StripVolatilities(yc, x[0], helpers, initialVol, s)
		if err != nil {
			return penalty
		}
		prices, err := pricer(m)
		if err != nil || len(prices) != len(targets) {
			return penalty
		}
		sse := 0.0
		for i, p := range prices {
			d := p - targets[i]
			sse += d * d
		}
		return sse
	}
	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{FuncEvaluations: s.MaxEvaluations}
	res, err := optimize.Minimize(problem, []float64{initialMeanReversion}, settings, &optimize.NelderMead{})
	// an evaluation limit still reports the best point found
	if res == nil || len(res.X) == 0 {
		if err == nil {
			err = numerics.ErrNumericalInstability
		}
		return FitResult{}, fmt.Errorf("FitMeanReversion: %w", err)
	}
	a := res.X[0]
	m, err := StripVolatilities(yc, a, helpers, initialVol, s)
	if err != nil {
		return FitResult{}, fmt.Errorf("FitMeanReversion: at a=%g: %w", a, err)
	}
	return FitResult{MeanReversion: a, Model: m, SquaredError: res.F, Evaluations: res.Stats.FuncEvaluations}, nil
}

// SolveMeanReversion finds a root of objective trying each bracket in turn.
func SolveMeanReversion(objective func(a float64) (float64, error), brackets []numerics.Bracket, opts numerics.RootOptions) (float64, error) {
	var inner error
	f := func(a float64) float64 {
		if math.Abs(a) < hullwhite.MeanReversionFloor {
			a = hullwhite.MeanReversionFloor
		}
		v, err := objective(a)
		if err != nil {
			inner = err
			return math.NaN()
		}
		return v
	}
	for _, b := range brackets {
		inner = nil
		a, err := numerics.Brent(f, b, opts)
		if err == nil {
			return a, nil
		}
		if inner != nil {
			return 0, fmt.Errorf("SolveMeanReversion: on [%g, %g]: %w", b.Lower, b.Upper, inner)
		}
	}
	return 0, fmt.Errorf("SolveMeanReversion: no root in %d brackets: %w", len(brackets), numerics.ErrRootNotFound)
}

// DefaultMeanReversionBrackets are the intervals SolveMeanReversion tries by default.
var DefaultMeanReversionBrackets = []numerics.Bracket{
	{Lower: -0.15, Upper: -0.10},
	{Lower: -0.10, Upper: -0.05},
	{Lower: -0.05, Upper: -0.01},
	{Lower: -0.01, Upper: 0.01},
	{Lower: 0.01, Upper: 0.05},
	{Lower: 0.05, Upper: 0.10},
	{Lower: 0.10, Upper: 0.15},
}

// ImpliedMeanReversion solves [G(0,tau2)/tau2] / [G(0,tau1)/tau1] = ratio for the mean
// reversion, where ratio is the normal volatility of the tau2 swap over that of the tau1 swap.
func ImpliedMeanReversion(tau1, tau2, ratio float64, s Settings) (float64, error) {
	if !(tau1 > 0) || !(tau2 > 0) {
		return 0, fmt.Errorf("ImpliedMeanReversion: swap terms %g, %g: %w", tau1, tau2, numerics.ErrInvalidInput)
	}
	g := func(a, tau float64) float64 {
		if math.Abs(a) < hullwhite.MeanReversionFloor {
			return tau
		}
		return -math.Expm1(-a*tau) / a
	}
	obj := func(a float64) float64 {
		return (g(a, tau2)/tau2)/(g(a, tau1)/tau1) - ratio
	}
	a, err := numerics.Brent(obj, s.ImpliedBracket, s.Root)
	if err != nil {
		return 0, fmt.Errorf("ImpliedMeanReversion: ratio %g on [%g, %g]: %w", ratio, s.ImpliedBracket.Lower, s.ImpliedBracket.Upper, err)
	}
	return a, nil
}

// SimpleMeanReversion is the first-order approximation -2 log(ratio) / (tau2 - tau1).
func SimpleMeanReversion(tau1, tau2, ratio float64) float64 {
	return -2.0 * math.Log(ratio) / (tau2 - tau1)
}
