package density

import (
	"fmt"

	"github.com/meenmo/hwbermudan/numerics"
)

// BreakEven splits the integration domain at the first state where the
// exercise and hold values cross, so neither sub-integrand carries the kink.
type BreakEven struct {
	inner Engine
}

// restrictable engines integrate beyond their grid unless told otherwise.
type restrictable interface {
	restrictedToGrid() Engine
}

// NewBreakEven decorates an integrator.
func NewBreakEven(inner Engine) *BreakEven {
	if r, ok := inner.(restrictable); ok {
		inner = r.restrictedToGrid()
	}
	return &BreakEven{inner: inner}
}

func (e *BreakEven) Name() string { return e.inner.Name() + "+break-even" }

func (e *BreakEven) XSet(t float64) []float64 { return e.inner.XSet(t) }

func (e *BreakEven) RollBack(T0, T1 float64, x1, U1, H1 []float64) ([]float64, []float64, error) {
	if err := checkInputs("density.BreakEven", x1, U1, H1); err != nil {
		return nil, nil, err
	}
	if len(x1) < 3 {
		return e.inner.RollBack(T0, T1, x1, U1, H1)
	}
	diff := make([]float64, len(x1))
	for i := range diff {
		diff[i] = U1[i] - H1[i]
	}
	ds, err := numerics.NewNaturalCubicSpline(x1, diff)
	if err != nil {
		return nil, nil, fmt.Errorf("density.BreakEven.RollBack: %w", err)
	}
	roots := ds.Roots()
	if len(roots) == 0 {
		return e.inner.RollBack(T0, T1, x1, U1, H1)
	}
	xStar := roots[0]
	us, err := numerics.NewNaturalCubicSpline(x1, U1)
	if err != nil {
		return nil, nil, fmt.Errorf("density.BreakEven.RollBack: %w", err)
	}
	vStar := us.Eval(xStar)

	var lx, lU, lH, ux, uU, uH []float64
	for i, x := range x1 {
		if x < xStar {
			lx, lU, lH = append(lx, x), append(lU, U1[i]), append(lH, H1[i])
		}
	}
	lx, lU, lH = append(lx, xStar), append(lU, vStar), append(lH, vStar)
	ux, uU, uH = []float64{xStar}, []float64{vStar}, []float64{vStar}
	for i, x := range x1 {
		if x > xStar {
			ux, uU, uH = append(ux, x), append(uU, U1[i]), append(uH, H1[i])
		}
	}

	var x0, V0 []float64
	for _, side := range [][3][]float64{{lx, lU, lH}, {ux, uU, uH}} {
		if len(side[0]) < 2 {
			continue
		}
		xs, vs, err := e.inner.RollBack(T0, T1, side[0], side[1], side[2])
		if err != nil {
			return nil, nil, fmt.Errorf("density.BreakEven.RollBack: split at %g: %w", xStar, err)
		}
		if V0 == nil {
			x0, V0 = xs, vs
			continue
		}
		for i := range V0 {
			V0[i] += vs[i]
		}
	}
	if V0 == nil {
		return e.inner.RollBack(T0, T1, x1, U1, H1)
	}
	return x0, V0, nil
}
