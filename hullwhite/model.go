// Package hullwhite implements the one-factor Hull-White short-rate model in
// its x-state formulation r(t) = f(0,t) + x(t), with piecewise-constant
// short-rate volatility and a deterministic reference curve.
package hullwhite

import (
	"fmt"
	"math"
	"sort"

	"github.com/meenmo/hwbermudan/curve"
	"github.com/meenmo/hwbermudan/numerics"
)

// MeanReversionFloor is the magnitude below which mean reversion is treated as zero.
const MeanReversionFloor = 1.0e-12

// Options configures the root search used by the coupon-bond option.
type Options struct {
	// ExerciseBracket bounds the exercise-boundary state in the Jamshidian decomposition.
	ExerciseBracket numerics.Bracket
	Root            numerics.RootOptions
}

// DefaultOptions searches the exercise boundary on [-0.3, 0.3].
var DefaultOptions = Options{
	ExerciseBracket: numerics.Bracket{Lower: -0.3, Upper: 0.3},
	Root:            numerics.DefaultRootOptions,
}

// Model is immutable after construction and safe for concurrent use.
type Model struct {
	yc            curve.YieldCurve
	meanReversion float64
	volTimes      []float64
	volValues     []float64
	opts          Options

	// y[i] = y(volTimes[i])
	y []float64
}

// NewModel builds a model with DefaultOptions.
func NewModel(yc curve.YieldCurve, meanReversion float64, volTimes, volValues []float64) (*Model, error) {
	return NewModelWithOptions(yc, meanReversion, volTimes, volValues, DefaultOptions)
}

// NewModelWithOptions validates the volatility grid and precomputes the variance accumulator.
func NewModelWithOptions(yc curve.YieldCurve, meanReversion float64, volTimes, volValues []float64, opts Options) (*Model, error) {
	if yc == nil {
		return nil, fmt.Errorf("NewModel: nil curve: %w", numerics.ErrInvalidInput)
	}
	if len(volTimes) != len(volValues) {
		return nil, fmt.Errorf("NewModel: %d volatility times, %d values: %w", len(volTimes), len(volValues), numerics.ErrDimensionMismatch)
	}
	if len(volTimes) == 0 {
		return nil, fmt.Errorf("NewModel: empty volatility grid: %w", numerics.ErrInvalidInput)
	}
	if math.IsNaN(meanReversion) || math.IsInf(meanReversion, 0) {
		return nil, fmt.Errorf("NewModel: mean reversion %g: %w", meanReversion, numerics.ErrInvalidInput)
	}
	prev := 0.0
	for i, t := range volTimes {
		if !(t > prev) {
			return nil, fmt.Errorf("NewModel: volatility times must be positive and ascending (index %d, t=%g): %w", i, t, numerics.ErrInvalidInput)
		}
		if volValues[i] < 0 {
			return nil, fmt.Errorf("NewModel: negative volatility %g at index %d: %w", volValues[i], i, numerics.ErrInvalidInput)
		}
		prev = t
	}
	if opts.ExerciseBracket == (numerics.Bracket{}) {
		opts.ExerciseBracket = DefaultOptions.ExerciseBracket
	}
	m := &Model{
		yc:            yc,
		meanReversion: meanReversion,
		volTimes:      append([]float64(nil), volTimes...),
		volValues:     append([]float64(nil), volValues...),
		opts:          opts,
	}
	m.y = m.accumulateVariance()
	return m, nil
}

func (m *Model) accumulateVariance() []float64 {
	y := make([]float64, len(m.volTimes))
	t0, y0 := 0.0, 0.0
	for i, t1 := range m.volTimes {
		gp := m.GPrime(t0, t1)
		s := m.volValues[i]
		y[i] = gp*gp*y0 + s*s*decay(2*m.meanReversion, t1-t0)
		t0, y0 = t1, y[i]
	}
	return y
}

// WithVolatility returns a copy of the model with new volatility values on the same grid.
func (m *Model) WithVolatility(volValues []float64) (*Model, error) {
	return NewModelWithOptions(m.yc, m.meanReversion, m.volTimes, volValues, m.opts)
}

// WithMeanReversion returns a copy of the model with a different mean reversion.
func (m *Model) WithMeanReversion(a float64) (*Model, error) {
	return NewModelWithOptions(m.yc, a, m.volTimes, m.volValues, m.opts)
}

func (m *Model) Curve() curve.YieldCurve { return m.yc }

func (m *Model) MeanReversion() float64 { return m.meanReversion }

func (m *Model) VolatilityTimes() []float64 { return append([]float64(nil), m.volTimes...) }

func (m *Model) VolatilityValues() []float64 { return append([]float64(nil), m.volValues...) }

// decay returns (1 - exp(-a d)) / a, with limit d as a -> 0.
func decay(a, d float64) float64 {
	if math.Abs(a) < MeanReversionFloor {
		return d
	}
	return -math.Expm1(-a*d) / a
}

// G returns (1 - exp(-a (T-t))) / a.
func (m *Model) G(t, T float64) float64 {
	return decay(m.meanReversion, T-t)
}

// GPrime returns exp(-a (T-t)).
func (m *Model) GPrime(t, T float64) float64 {
	if math.Abs(m.meanReversion) < MeanReversionFloor {
		return 1.0
	}
	return math.Exp(-m.meanReversion * (T - t))
}

// lookup returns the last grid index with volTimes[idx] <= t (or -1) and the volatility applying after it.
func (m *Model) lookup(t float64) (int, float64) {
	n := len(m.volTimes)
	idx := sort.Search(n, func(i int) bool { return t < m.volTimes[i] }) - 1
	k := idx + 1
	if k > n-1 {
		k = n - 1
	}
	return idx, m.volValues[k]
}

// Sigma returns the short-rate volatility applying at t; the last value is extrapolated.
func (m *Model) Sigma(t float64) float64 {
	_, s := m.lookup(t)
	return s
}

// Y returns the variance accumulator y(t).
func (m *Model) Y(t float64) float64 {
	idx, s := m.lookup(t)
	t0, y0 := 0.0, 0.0
	if idx >= 0 {
		t0, y0 = m.volTimes[idx], m.y[idx]
	}
	gp := m.GPrime(t0, t)
	return gp*gp*y0 + s*s*decay(2*m.meanReversion, t-t0)
}
