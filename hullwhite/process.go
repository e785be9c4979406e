package hullwhite

import "math"

// The model state for simulation is X = [x, s] where s integrates the short rate.

// Size is the state dimension.
func (m *Model) Size() int { return 2 }

// Factors is the number of Brownian drivers.
func (m *Model) Factors() int { return 1 }

// InitialValues returns X(0).
func (m *Model) InitialValues() []float64 { return []float64{0.0, 0.0} }

// Evolve advances X0 from t0 to t0+dt with standard normal increment dW[0].
//
// x is drawn from its exact conditional distribution; s accumulates r = f(0,t) + x
// with the trapezoidal rule.
func (m *Model) Evolve(t0 float64, X0 []float64, dt float64, dW []float64) []float64 {
	t1 := t0 + dt
	x1 := m.RiskNeutralExpectationX(t0, X0[0], t1) + math.Sqrt(math.Max(m.VarianceX(t0, t1), 0.0))*dW[0]
	r0 := m.yc.ForwardRate(t0) + X0[0]
	r1 := m.yc.ForwardRate(t1) + x1
	return []float64{x1, X0[1] + 0.5*(r0+r1)*dt}
}

// Numeraire is the bank account exp(s).
func (m *Model) Numeraire(_ float64, X []float64) float64 {
	return math.Exp(X[1])
}

// ZeroBondPayoff is the zero bond maturing at T evaluated on a simulated state.
func (m *Model) ZeroBondPayoff(X []float64, t, T float64) float64 {
	return m.ZeroBond(t, X[0], T)
}
