// Package bond turns dated cash flows into the (payTimes, cashFlows) arrays
// that coupon-bond payoffs and options consume.
package bond

import (
	"fmt"
	"time"

	"github.com/meenmo/hwbermudan/curve"
	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/utils"
)

// Cashflow is a single dated cash payment.
//
// Amounts are per unit notional unless the caller scales them.
type Cashflow struct {
	Date      time.Time
	Coupon    float64
	Principal float64
}

func (c Cashflow) Amount() float64 {
	return c.Coupon + c.Principal
}

// Times returns model pay times and amounts of the cash flows strictly after the
// observation date, in schedule order.
func Times(ctx curve.ValuationContext, observation time.Time, cfs []Cashflow) ([]float64, []float64, error) {
	if len(cfs) == 0 {
		return nil, nil, fmt.Errorf("bond.Times: no cash flows: %w", numerics.ErrInvalidInput)
	}
	payTimes := make([]float64, 0, len(cfs))
	amounts := make([]float64, 0, len(cfs))
	for i, cf := range cfs {
		if i > 0 && cf.Date.Before(cfs[i-1].Date) {
			return nil, nil, fmt.Errorf("bond.Times: cash flow %d (%s) out of order: %w", i, cf.Date.Format(utils.DateLayout), numerics.ErrInvalidInput)
		}
		if !cf.Date.After(observation) {
			continue
		}
		payTimes = append(payTimes, ctx.Time(cf.Date))
		amounts = append(amounts, cf.Amount())
	}
	return payTimes, amounts, nil
}
