package main

import (
	"fmt"
	"time"

	"github.com/meenmo/hwbermudan/bond"
	"github.com/meenmo/hwbermudan/calendar"
	"github.com/meenmo/hwbermudan/calibration"
	"github.com/meenmo/hwbermudan/curve"
	"github.com/meenmo/hwbermudan/hullwhite"
	"github.com/meenmo/hwbermudan/utils"
)

type valuationRequest struct {
	TaskID    string         `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	AsOf      string         `json:"as_of,omitempty" yaml:"as_of,omitempty"`
	Calendar  string         `json:"calendar,omitempty" yaml:"calendar,omitempty"`
	Curve     curveJSON      `json:"curve" yaml:"curve"`
	Model     modelJSON      `json:"model" yaml:"model"`
	Engine    string         `json:"engine" yaml:"engine"`
	CallOrPut float64        `json:"call_or_put" yaml:"call_or_put"`
	Exercises []exerciseJSON `json:"exercises,omitempty" yaml:"exercises,omitempty"`
	Swaption  *swaptionJSON  `json:"swaption,omitempty" yaml:"swaption,omitempty"`
}

type curveJSON struct {
	FlatRate        *float64           `json:"flat_rate,omitempty" yaml:"flat_rate,omitempty"`
	Forwards        map[string]float64 `json:"forwards,omitempty" yaml:"forwards,omitempty"`
	DiscountFactors []dfJSON           `json:"discount_factors,omitempty" yaml:"discount_factors,omitempty"`
	ParSwaps        *parSwapsJSON      `json:"par_swaps,omitempty" yaml:"par_swaps,omitempty"`
}

// parSwapsJSON is a par swap strip bootstrapped into discount factors.
type parSwapsJSON struct {
	Quotes     map[string]float64 `json:"quotes" yaml:"quotes"`
	FreqMonths int                `json:"freq_months" yaml:"freq_months"`
	DayCount   string             `json:"day_count,omitempty" yaml:"day_count,omitempty"`
}

type dfJSON struct {
	Date string  `json:"date" yaml:"date"`
	DF   float64 `json:"df" yaml:"df"`
}

type modelJSON struct {
	MeanReversion    float64   `json:"mean_reversion" yaml:"mean_reversion"`
	VolatilityTimes  []float64 `json:"volatility_times" yaml:"volatility_times"`
	VolatilityValues []float64 `json:"volatility_values" yaml:"volatility_values"`
}

// exerciseJSON is one exercise into a coupon bond given in model times.
type exerciseJSON struct {
	Expiry    float64   `json:"expiry" yaml:"expiry"`
	PayTimes  []float64 `json:"pay_times" yaml:"pay_times"`
	CashFlows []float64 `json:"cash_flows" yaml:"cash_flows"`
	Strike    float64   `json:"strike" yaml:"strike"`
}

// swaptionJSON describes a Bermudan swaption by tenors from as_of.
type swaptionJSON struct {
	Expiries   []string `json:"expiries" yaml:"expiries"`
	Maturity   string   `json:"maturity" yaml:"maturity"`
	FixedRate  float64  `json:"fixed_rate" yaml:"fixed_rate"`
	FreqMonths int      `json:"freq_months" yaml:"freq_months"`
	// ATM replaces fixed_rate with the par rate of the swap from the first expiry.
	ATM bool `json:"atm,omitempty" yaml:"atm,omitempty"`
}

func (r valuationRequest) valuationContext() (curve.ValuationContext, error) {
	asOf := time.Now().UTC().Truncate(24 * time.Hour)
	if r.AsOf != "" {
		d, err := utils.ParseDate(r.AsOf)
		if err != nil {
			return curve.ValuationContext{}, fmt.Errorf("invalid as_of: %w", err)
		}
		asOf = d
	}
	cal := calendar.WeekendsOnly
	if r.Calendar != "" {
		cal = calendar.CalendarID(r.Calendar)
	}
	yc, err := r.Curve.build(asOf, cal)
	if err != nil {
		return curve.ValuationContext{}, err
	}
	ctx := curve.NewValuationContext(asOf, yc)
	ctx.Calendar = cal
	return ctx, nil
}

func (c curveJSON) build(asOf time.Time, cal calendar.CalendarID) (curve.YieldCurve, error) {
	switch {
	case c.FlatRate != nil:
		return curve.Flat{Rate: *c.FlatRate}, nil
	case len(c.Forwards) > 0:
		return curve.NewForwardCurveFromTenors(c.Forwards)
	case len(c.DiscountFactors) > 0:
		dfs := make(map[time.Time]float64, len(c.DiscountFactors))
		for _, p := range c.DiscountFactors {
			d, err := utils.ParseDate(p.Date)
			if err != nil {
				return nil, fmt.Errorf("invalid discount factor date %s: %w", p.Date, err)
			}
			dfs[d] = p.DF
		}
		return curve.NewDiscountCurveFromDates(asOf, dfs, utils.Act365F)
	case c.ParSwaps != nil:
		freq, dc := c.ParSwaps.FreqMonths, c.ParSwaps.DayCount
		if freq == 0 {
			freq = 12
		}
		if dc == "" {
			dc = utils.Thirty
		}
		return curve.BootstrapParCurve(asOf, c.ParSwaps.Quotes, cal, freq, dc)
	default:
		return nil, fmt.Errorf("curve needs flat_rate, forwards, discount_factors or par_swaps")
	}
}

func (r valuationRequest) model(yc curve.YieldCurve, opts hullwhite.Options) (*hullwhite.Model, error) {
	return hullwhite.NewModelWithOptions(yc, r.Model.MeanReversion, r.Model.VolatilityTimes, r.Model.VolatilityValues, opts)
}

// helpers returns one coupon-bond option per exercise date.
func (r valuationRequest) helpers(ctx curve.ValuationContext) ([]calibration.Helper, error) {
	cp := r.CallOrPut
	if cp == 0 {
		cp = 1
	}
	var out []calibration.Helper
	for _, e := range r.Exercises {
		out = append(out, calibration.Helper{
			Expiry:    e.Expiry,
			PayTimes:  e.PayTimes,
			CashFlows: e.CashFlows,
			Strike:    e.Strike,
			CallOrPut: cp,
		})
	}
	if r.Swaption != nil {
		s := r.Swaption
		maturity, err := calendar.Advance(ctx.Calendar, ctx.AsOf, s.Maturity)
		if err != nil {
			return nil, err
		}
		freq := s.FreqMonths
		if freq == 0 {
			freq = 12
		}
		rate := s.FixedRate
		if s.ATM && len(s.Expiries) > 0 {
			first, err := calendar.Advance(ctx.Calendar, ctx.AsOf, s.Expiries[0])
			if err != nil {
				return nil, err
			}
			if rate, err = bond.ParRate(ctx, first, maturity, freq); err != nil {
				return nil, fmt.Errorf("swaption par rate: %w", err)
			}
		}
		for _, tenor := range s.Expiries {
			start, err := calendar.Advance(ctx.Calendar, ctx.AsOf, tenor)
			if err != nil {
				return nil, err
			}
			payTimes, cashFlows, err := bond.SwapUnderlying(ctx, start, maturity, freq, rate)
			if err != nil {
				return nil, fmt.Errorf("swaption expiry %s: %w", tenor, err)
			}
			out = append(out, calibration.Helper{
				Expiry:    ctx.Time(start),
				PayTimes:  payTimes,
				CashFlows: cashFlows,
				CallOrPut: cp,
			})
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("request has neither exercises nor swaption")
	}
	return out, nil
}
