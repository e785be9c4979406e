package bond

import (
	"fmt"
	"time"

	"github.com/meenmo/hwbermudan/calendar"
	"github.com/meenmo/hwbermudan/curve"
	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/utils"
)

// FixedLeg generates coupons of rate * accrual from start to maturity.
//
// Dates roll backward from maturity in steps of freqMonths and are adjusted
// Modified Following, so a short stub falls at the front.
func FixedLeg(start, maturity time.Time, freqMonths int, rate float64, cal calendar.CalendarID, dayCount string) ([]Cashflow, error) {
	if freqMonths <= 0 {
		return nil, fmt.Errorf("bond.FixedLeg: frequency %d months: %w", freqMonths, numerics.ErrInvalidInput)
	}
	if !maturity.After(start) {
		return nil, fmt.Errorf("bond.FixedLeg: maturity %s not after start %s: %w",
			maturity.Format(utils.DateLayout), start.Format(utils.DateLayout), numerics.ErrInvalidInput)
	}
	unadjusted := []time.Time{}
	for n, current := 0, maturity; current.After(start); {
		unadjusted = append([]time.Time{current}, unadjusted...)
		n++
		current = utils.AddMonth(maturity, -freqMonths*n)
	}
	unadjusted = append([]time.Time{start}, unadjusted...)

	cfs := make([]Cashflow, 0, len(unadjusted)-1)
	for i := 0; i < len(unadjusted)-1; i++ {
		accStart := calendar.Adjust(cal, unadjusted[i])
		accEnd := calendar.Adjust(cal, unadjusted[i+1])
		cfs = append(cfs, Cashflow{
			Date:   accEnd,
			Coupon: rate * utils.YearFraction(accStart, accEnd, dayCount),
		})
	}
	return cfs, nil
}

// SwapUnderlying is the bond representation of a receiver swap starting at start:
// -1 at start, fixed coupons, and +1 with the last coupon.
// Options on it are receiver (call) and payer (put) swaptions.
func SwapUnderlying(ctx curve.ValuationContext, start, maturity time.Time, freqMonths int, rate float64) ([]float64, []float64, error) {
	leg, err := FixedLeg(start, maturity, freqMonths, rate, ctx.Calendar, ctx.DayCount)
	if err != nil {
		return nil, nil, err
	}
	leg[len(leg)-1].Principal = 1.0
	cfs := append([]Cashflow{{Date: calendar.Adjust(ctx.Calendar, start), Principal: -1.0}}, leg...)
	// keep the start flow, which falls on the observation date
	return Times(ctx, ctx.AsOf, cfs)
}

// ParRate is the fixed rate that prices the swap from start to maturity at par on the
// context's curve: (P(start) - P(end)) / sum accrual_j P(T_j).
func ParRate(ctx curve.ValuationContext, start, maturity time.Time, freqMonths int) (float64, error) {
	leg, err := FixedLeg(start, maturity, freqMonths, 1.0, ctx.Calendar, ctx.DayCount)
	if err != nil {
		return 0, err
	}
	annuity := 0.0
	for _, cf := range leg {
		annuity += cf.Coupon * ctx.Curve.Discount(ctx.Time(cf.Date))
	}
	if !(annuity > 0) {
		return 0, fmt.Errorf("bond.ParRate: annuity %g: %w", annuity, numerics.ErrNumericalInstability)
	}
	p0 := ctx.Curve.Discount(ctx.Time(calendar.Adjust(ctx.Calendar, start)))
	p1 := ctx.Curve.Discount(ctx.Time(leg[len(leg)-1].Date))
	return (p0 - p1) / annuity, nil
}
