package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meenmo/hwbermudan/utils"
)

// CalendarID identifies a holiday calendar.
type CalendarID string

const (
	// WeekendsOnly treats every weekday as a business day.
	WeekendsOnly CalendarID = "WEEKENDS"
	// TARGET is the euro settlement calendar.
	TARGET CalendarID = "TARGET"
)

// easterMonday returns Easter Monday of the given year (Gregorian computus).
func easterMonday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	easter := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return easter.AddDate(0, 0, 1)
}

func isTargetHoliday(t time.Time) bool {
	d, m := t.Day(), t.Month()
	switch {
	case d == 1 && m == time.January:
		return true
	case d == 1 && m == time.May:
		return true
	case (d == 25 || d == 26) && m == time.December:
		return true
	}
	em := easterMonday(t.Year())
	goodFriday := em.AddDate(0, 0, -3)
	y, mm, dd := t.Date()
	day := time.Date(y, mm, dd, 0, 0, 0, 0, time.UTC)
	return day.Equal(em) || day.Equal(goodFriday)
}

func isHoliday(cal CalendarID, t time.Time) bool {
	switch cal {
	case TARGET:
		return isTargetHoliday(t)
	default:
		return false
	}
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(cal CalendarID, t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !isHoliday(cal, t)
}

// Adjust applies Modified Following.
func Adjust(cal CalendarID, t time.Time) time.Time {
	origMonth := t.Month()
	for !IsBusinessDay(cal, t) {
		t = t.AddDate(0, 0, 1)
	}
	if t.Month() != origMonth {
		t = t.AddDate(0, 0, -1)
		for !IsBusinessDay(cal, t) {
			t = t.AddDate(0, 0, -1)
		}
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(cal CalendarID, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(cal, t) {
			n -= step
		}
	}
	return t
}

// Advance moves t by a term such as "2d", "6m", "10y" or "1w" and applies
// Modified Following. Day terms count business days.
func Advance(cal CalendarID, t time.Time, term string) (time.Time, error) {
	term = strings.TrimSpace(strings.ToUpper(term))
	if len(term) < 2 {
		return time.Time{}, fmt.Errorf("Advance: invalid term %q", term)
	}
	n, err := strconv.Atoi(term[:len(term)-1])
	if err != nil {
		return time.Time{}, fmt.Errorf("Advance: invalid term %q: %w", term, err)
	}
	switch term[len(term)-1] {
	case 'D':
		return AddBusinessDays(cal, t, n), nil
	case 'W':
		return Adjust(cal, t.AddDate(0, 0, 7*n)), nil
	case 'M':
		return Adjust(cal, utils.AddMonth(t, n)), nil
	case 'Y':
		return Adjust(cal, utils.AddMonth(t, 12*n)), nil
	default:
		return time.Time{}, fmt.Errorf("Advance: invalid term unit in %q", term)
	}
}
