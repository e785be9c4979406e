package utils

import "time"

// Day count conventions accepted by YearFraction.
const (
	Act360     = "ACT/360"
	Act365F    = "ACT/365F"
	Thirty     = "30/360"
	Thirty360E = "30E/360"
)

// YearFraction is the accrual from start to end under dayCount. Unknown
// conventions are read as ACT/365F, which is also the model time axis.
func YearFraction(start, end time.Time, dayCount string) float64 {
	switch dayCount {
	case Act360:
		return Days(start, end) / 360.0
	case Thirty, Thirty360E:
		return thirtyE(start, end)
	default:
		return Days(start, end) / 365.0
	}
}

// thirtyE is the Eurobond basis: both day-of-month values capped at 30.
func thirtyE(start, end time.Time) float64 {
	d1, d2 := min(start.Day(), 30), min(end.Day(), 30)
	months := 12*(end.Year()-start.Year()) + int(end.Month()) - int(start.Month())
	return float64(30*months+d2-d1) / 360.0
}
