package hullwhite

import (
	"fmt"
	"math"

	"github.com/meenmo/hwbermudan/blackmodel"
	"github.com/meenmo/hwbermudan/numerics"
)

// ExpectationX is E[x(T) | x(t) = xt] under the T-forward measure.
func (m *Model) ExpectationX(t, xt, T float64) float64 {
	return m.GPrime(t, T) * (xt + m.G(t, T)*m.Y(t))
}

// VarianceX is Var[x(T) | x(t)].
func (m *Model) VarianceX(t, T float64) float64 {
	gp := m.GPrime(t, T)
	return m.Y(T) - gp*gp*m.Y(t)
}

// RiskNeutralExpectationX is E[x(T) | x(t) = xt] under the risk-neutral measure.
// The drift integral of G'(u,T) y(u) over [t, T] is taken with one Simpson panel.
func (m *Model) RiskNeutralExpectationX(t, xt, T float64) float64 {
	f := func(u float64) float64 { return m.GPrime(u, T) * m.Y(u) }
	integral := (T - t) / 6.0 * (f(t) + 4.0*f(0.5*(t+T)) + f(T))
	return m.GPrime(t, T)*xt + integral
}

// ZeroBond is the model price at t, state xt, of a zero bond maturing at T.
func (m *Model) ZeroBond(t, xt, T float64) float64 {
	g := m.G(t, T)
	return m.yc.Discount(T) / m.yc.Discount(t) * math.Exp(-g*xt-0.5*g*g*m.Y(t))
}

// ForwardRate is the instantaneous forward rate for T seen at t in state xt.
func (m *Model) ForwardRate(t, xt, T float64) float64 {
	return m.yc.ForwardRate(T) + m.GPrime(t, T)*(xt+m.G(t, T)*m.Y(t))
}

// ZeroBondOption prices at time zero an option expiring at expiry on a zero bond maturing at maturity.
func (m *Model) ZeroBondOption(expiry, maturity, strike, callOrPut float64) float64 {
	p0 := m.yc.Discount(expiry)
	p1 := m.yc.Discount(maturity)
	stdDev := m.G(expiry, maturity) * math.Sqrt(m.Y(expiry))
	return blackmodel.Black(strike, p1/p0, stdDev, p0, callOrPut)
}

// CouponBondOption prices an option on the coupon bond sum cashFlows[i] P(expiry, payTimes[i])
// by Jamshidian decomposition into zero-bond options.
func (m *Model) CouponBondOption(expiry float64, payTimes, cashFlows []float64, strike, callOrPut float64) (float64, error) {
	if len(payTimes) != len(cashFlows) {
		return 0, fmt.Errorf("CouponBondOption: %d pay times, %d cash flows: %w", len(payTimes), len(cashFlows), numerics.ErrDimensionMismatch)
	}
	bond := func(x float64) float64 {
		v := 0.0
		for i, T := range payTimes {
			v += cashFlows[i] * m.ZeroBond(expiry, x, T)
		}
		return v - strike
	}
	xStar, err := numerics.Brent(bond, m.opts.ExerciseBracket, m.opts.Root)
	if err != nil {
		return 0, fmt.Errorf("CouponBondOption: exercise boundary at expiry %g in [%g, %g]: %w",
			expiry, m.opts.ExerciseBracket.Lower, m.opts.ExerciseBracket.Upper, err)
	}
	v := 0.0
	for i, T := range payTimes {
		k := m.ZeroBond(expiry, xStar, T)
		v += cashFlows[i] * m.ZeroBondOption(expiry, T, k, callOrPut)
	}
	return v, nil
}
