package density

import (
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/meenmo/hwbermudan/numerics"
)

// CubicSplineExact integrates a natural cubic spline through V against the
// Gaussian density in closed form, segment by segment, over the grid range.
type CubicSplineExact struct {
	base
}

func NewCubicSplineExact(model Model, s Settings) (*CubicSplineExact, error) {
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("density.NewCubicSplineExact: %w", err)
	}
	return &CubicSplineExact{base{model: model, s: s}}, nil
}

func (e *CubicSplineExact) Name() string { return "cubic-spline-exact" }

func (e *CubicSplineExact) RollBack(T0, T1 float64, x1, U1, H1 []float64) ([]float64, []float64, error) {
	if err := checkInputs("density.CubicSplineExact", x1, U1, H1); err != nil {
		return nil, nil, err
	}
	V := maxValues(U1, H1)
	if len(x1) < 2 {
		x0, V0, err := e.rollBack(T0, T1, x1, V, func(float64, float64) float64 { return 0.0 })
		if err != nil {
			return nil, nil, fmt.Errorf("density.CubicSplineExact.RollBack: %w", err)
		}
		return x0, V0, nil
	}
	spline, err := numerics.NewNaturalCubicSpline(x1, V)
	if err != nil {
		return nil, nil, fmt.Errorf("density.CubicSplineExact.RollBack: %w", err)
	}
	x0, V0, err := e.rollBack(T0, T1, x1, V, func(mu, sigma float64) float64 {
		return GaussianSplineIntegral(spline, mu, sigma)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("density.CubicSplineExact.RollBack: %w", err)
	}
	return x0, V0, nil
}

// GaussianSplineIntegral returns the integral of s(x) N(x; mu, sigma^2) over the knot range of s.
//
// With z = (x - mu)/sigma the antiderivatives of z^k phi(z) are
// F0 = Phi, F1 = -phi, F2 = Phi - z phi, F3 = -(z^2 + 2) phi, and the
// moments in the local variable x - x_k follow by binomial expansion.
func GaussianSplineIntegral(s *numerics.CubicSpline, mu, sigma float64) float64 {
	n := distuv.UnitNormal
	knots := s.Knots()
	type antiderivatives struct{ f0, f1, f2, f3 float64 }
	F := make([]antiderivatives, len(knots))
	zs := make([]float64, len(knots))
	for k, x := range knots {
		z := (x - mu) / sigma
		phi, cdf := n.Prob(z), n.CDF(z)
		zs[k] = z
		F[k] = antiderivatives{cdf, -phi, cdf - z*phi, -(z*z + 2) * phi}
	}
	s2, s3 := sigma*sigma, sigma*sigma*sigma
	I := 0.0
	for k := 0; k < s.Segments(); k++ {
		z := zs[k]
		I0 := F[k+1].f0 - F[k].f0
		I1 := sigma*(F[k+1].f1-F[k].f1) - sigma*z*I0
		I2 := s2*(F[k+1].f2-F[k].f2) - 2*sigma*z*I1 - s2*z*z*I0
		I3 := s3*(F[k+1].f3-F[k].f3) - 3*sigma*z*I2 - 3*s2*z*z*I1 - s3*z*z*z*I0
		c := s.Coefficients(k)
		I += c[0]*I0 + c[1]*I1 + c[2]*I2 + c[3]*I3
	}
	return I
}
