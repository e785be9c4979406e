package curve

import (
	"time"

	"github.com/meenmo/hwbermudan/calendar"
	"github.com/meenmo/hwbermudan/utils"
)

// ValuationContext carries the valuation date and the market a pricing call runs against.
// Nothing in the module keeps a process-wide evaluation date.
type ValuationContext struct {
	AsOf     time.Time
	Curve    YieldCurve
	Calendar calendar.CalendarID
	DayCount string
}

// NewValuationContext uses ACT/365F and the weekend-only calendar unless overridden.
func NewValuationContext(asOf time.Time, yc YieldCurve) ValuationContext {
	return ValuationContext{
		AsOf:     asOf,
		Curve:    yc,
		Calendar: calendar.WeekendsOnly,
		DayCount: utils.Act365F,
	}
}

// Time returns the model time of a date.
func (v ValuationContext) Time(d time.Time) float64 {
	return utils.YearFraction(v.AsOf, d, v.DayCount)
}

// Times maps dates to model times.
func (v ValuationContext) Times(dates []time.Time) []float64 {
	out := make([]float64, len(dates))
	for i, d := range dates {
		out[i] = v.Time(d)
	}
	return out
}

// TimeOfTenor advances AsOf by a tenor on the context calendar and returns the model time.
func (v ValuationContext) TimeOfTenor(tenor string) (float64, error) {
	d, err := calendar.Advance(v.Calendar, v.AsOf, tenor)
	if err != nil {
		return 0, err
	}
	return v.Time(d), nil
}

// Discount returns the curve discount factor for a date.
func (v ValuationContext) Discount(d time.Time) float64 {
	return v.Curve.Discount(v.Time(d))
}
