package curve

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/utils"
)

// YieldCurve is the term structure consumed by the short-rate model.
// Times are year fractions from the valuation date.
type YieldCurve interface {
	Discount(t float64) float64
	ForwardRate(t float64) float64
}

// Flat is a flat continuously-compounded curve.
type Flat struct {
	Rate float64
}

func (c Flat) Discount(t float64) float64 { return math.Exp(-c.Rate * t) }

func (c Flat) ForwardRate(float64) float64 { return c.Rate }

// ForwardCurve holds backward-flat instantaneous forward rates.
//
// Rates[i] applies on (Terms[i-1], Terms[i]]; the last rate is extrapolated flat.
type ForwardCurve struct {
	terms []float64
	rates []float64
	// integral of the forward rate from 0 to terms[i]
	cum []float64
}

// NewForwardCurve builds a forward curve from strictly ascending positive terms.
func NewForwardCurve(terms, rates []float64) (*ForwardCurve, error) {
	if len(terms) != len(rates) {
		return nil, fmt.Errorf("NewForwardCurve: %d terms, %d rates: %w", len(terms), len(rates), numerics.ErrDimensionMismatch)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("NewForwardCurve: no pillars: %w", numerics.ErrInvalidInput)
	}
	c := &ForwardCurve{
		terms: append([]float64(nil), terms...),
		rates: append([]float64(nil), rates...),
		cum:   make([]float64, len(terms)),
	}
	prev := 0.0
	acc := 0.0
	for i, t := range terms {
		if !(t > prev) {
			return nil, fmt.Errorf("NewForwardCurve: terms not ascending at %d: %w", i, numerics.ErrInvalidInput)
		}
		acc += rates[i] * (t - prev)
		c.cum[i] = acc
		prev = t
	}
	return c, nil
}

// NewForwardCurveFromTenors accepts pillars such as {"1Y": 0.03, "10Y": 0.035}.
func NewForwardCurveFromTenors(quotes map[string]float64) (*ForwardCurve, error) {
	terms := make([]float64, 0, len(quotes))
	byTerm := make(map[float64]float64, len(quotes))
	for k, v := range quotes {
		t, err := TenorToYears(k)
		if err != nil {
			return nil, fmt.Errorf("NewForwardCurveFromTenors: %w", err)
		}
		terms = append(terms, t)
		byTerm[t] = v
	}
	sort.Float64s(terms)
	rates := make([]float64, len(terms))
	for i, t := range terms {
		rates[i] = byTerm[t]
	}
	return NewForwardCurve(terms, rates)
}

func (c *ForwardCurve) index(t float64) int {
	i := sort.Search(len(c.terms), func(i int) bool { return t <= c.terms[i] })
	if i >= len(c.terms) {
		return len(c.terms) - 1
	}
	return i
}

func (c *ForwardCurve) ForwardRate(t float64) float64 {
	return c.rates[c.index(t)]
}

func (c *ForwardCurve) Discount(t float64) float64 {
	if t <= 0 {
		return 1.0
	}
	i := c.index(t)
	start, acc := 0.0, 0.0
	if i > 0 {
		start, acc = c.terms[i-1], c.cum[i-1]
	}
	return math.Exp(-(acc + c.rates[i]*(t-start)))
}

// DiscountCurve interpolates discount factors log-linearly between pillars,
// which keeps forwards piecewise flat. Beyond the last pillar the last
// forward is extrapolated.
type DiscountCurve struct {
	times []float64
	dfs   []float64
}

// NewDiscountCurve builds a curve from pillar times and discount factors.
// A pillar (0, 1) is prepended when the first time is positive.
func NewDiscountCurve(times, dfs []float64) (*DiscountCurve, error) {
	if len(times) != len(dfs) {
		return nil, fmt.Errorf("NewDiscountCurve: %d times, %d discount factors: %w", len(times), len(dfs), numerics.ErrDimensionMismatch)
	}
	c := &DiscountCurve{}
	if len(times) == 0 || times[0] > 0 {
		c.times = append(c.times, 0)
		c.dfs = append(c.dfs, 1)
	}
	for i := range times {
		if dfs[i] <= 0 {
			return nil, fmt.Errorf("NewDiscountCurve: non-positive discount factor %g at %g: %w", dfs[i], times[i], numerics.ErrInvalidInput)
		}
		if n := len(c.times); n > 0 && !(times[i] > c.times[n-1]) {
			return nil, fmt.Errorf("NewDiscountCurve: times not ascending at %d: %w", i, numerics.ErrInvalidInput)
		}
		c.times = append(c.times, times[i])
		c.dfs = append(c.dfs, dfs[i])
	}
	if len(c.times) < 2 {
		return nil, fmt.Errorf("NewDiscountCurve: need a pillar beyond t=0: %w", numerics.ErrInvalidInput)
	}
	return c, nil
}

// NewDiscountCurveFromDates converts dated discount factors to times with the given day count.
func NewDiscountCurveFromDates(asOf time.Time, dfs map[time.Time]float64, dayCount string) (*DiscountCurve, error) {
	dates := make([]time.Time, 0, len(dfs))
	for d := range dfs {
		dates = append(dates, d)
	}
	utils.SortDates(dates)
	times := make([]float64, 0, len(dates))
	values := make([]float64, 0, len(dates))
	for _, d := range dates {
		if !d.After(asOf) {
			continue
		}
		times = append(times, utils.YearFraction(asOf, d, dayCount))
		values = append(values, dfs[d])
	}
	return NewDiscountCurve(times, values)
}

func (c *DiscountCurve) forward(i, j int) float64 {
	return math.Log(c.dfs[i]/c.dfs[j]) / (c.times[j] - c.times[i])
}

func (c *DiscountCurve) Discount(t float64) float64 {
	i, j := utils.Bracket(c.times, t)
	return c.dfs[i] * math.Exp(-c.forward(i, j)*(t-c.times[i]))
}

func (c *DiscountCurve) ForwardRate(t float64) float64 {
	i, j := utils.Bracket(c.times, t)
	return c.forward(i, j)
}
