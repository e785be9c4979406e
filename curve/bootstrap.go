package curve

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/meenmo/hwbermudan/calendar"
	"github.com/meenmo/hwbermudan/numerics"
	"github.com/meenmo/hwbermudan/utils"
)

// BootstrapParCurve builds discount factors from par swap rates such as
// {"1Y": 0.031, "5Y": 0.034} (decimals). Payment dates run every freqMonths from
// asOf, adjusted Modified Following; unquoted dates take par rates interpolated
// linearly in days, flat before the first quote. Fixed coupons accrue with
// dayCount while the curve's time axis is ACT/365F.
func BootstrapParCurve(asOf time.Time, quotes map[string]float64, cal calendar.CalendarID, freqMonths int, dayCount string) (*DiscountCurve, error) {
	if freqMonths <= 0 {
		return nil, fmt.Errorf("BootstrapParCurve: frequency %d months: %w", freqMonths, numerics.ErrInvalidInput)
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("BootstrapParCurve: no quotes: %w", numerics.ErrInvalidInput)
	}
	// payment index -> par rate
	quoted := make(map[int]float64, len(quotes))
	for k, v := range quotes {
		years, err := TenorToYears(k)
		if err != nil {
			return nil, fmt.Errorf("BootstrapParCurve: %w", err)
		}
		months := int(math.Round(years * 12))
		if months <= 0 || months%freqMonths != 0 {
			return nil, fmt.Errorf("BootstrapParCurve: tenor %s is not a multiple of %d months: %w", k, freqMonths, numerics.ErrInvalidInput)
		}
		quoted[months/freqMonths] = v
	}
	idx := make([]int, 0, len(quoted))
	for i := range quoted {
		idx = append(idx, i)
	}
	sort.Ints(idx)

	n := idx[len(idx)-1]
	dates := make([]time.Time, n+1)
	for i := range dates {
		dates[i] = calendar.Adjust(cal, utils.AddMonth(asOf, i*freqMonths))
	}
	par := parRates(dates, quoted, idx)

	times := make([]float64, n)
	dfs := make([]float64, n)
	annuity := 0.0
	for i := 1; i <= n; i++ {
		tau := utils.YearFraction(dates[i-1], dates[i], dayCount)
		df := (1.0 - par[i]*annuity) / (1.0 + par[i]*tau)
		if !(df > 0) {
			return nil, fmt.Errorf("BootstrapParCurve: discount factor %g at %s: %w", df, dates[i].Format(utils.DateLayout), numerics.ErrNumericalInstability)
		}
		annuity += tau * df
		times[i-1] = utils.YearFraction(asOf, dates[i], utils.Act365F)
		dfs[i-1] = df
	}
	return NewDiscountCurve(times, dfs)
}

// parRates fills every payment index from the quoted ones.
func parRates(dates []time.Time, quoted map[int]float64, idx []int) []float64 {
	par := make([]float64, len(dates))
	k := 0
	for i := 1; i < len(dates); i++ {
		if r, ok := quoted[i]; ok {
			par[i] = r
			continue
		}
		for idx[k] < i {
			k++
		}
		if k == 0 {
			par[i] = quoted[idx[0]]
			continue
		}
		d1, d2 := dates[idx[k-1]], dates[idx[k]]
		r1, r2 := quoted[idx[k-1]], quoted[idx[k]]
		par[i] = r1 + (r2-r1)*utils.Days(d1, dates[i])/utils.Days(d1, d2)
	}
	return par
}
