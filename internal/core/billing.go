// Package core implements the recurring-billing computation engine:
// next-charge dates, currency and cycle normalization, spend aggregation
// and historical trend reconstruction. Everything in this package is a
// pure function of its inputs; "now" is always an explicit parameter.
package core

import (
	"fmt"
	"time"
)

// Spanish short month names, as rendered by the dashboard.
var shortMonths = [12]string{
	"ene", "feb", "mar", "abr", "may", "jun",
	"jul", "ago", "sep", "oct", "nov", "dic",
}

// Midnight truncates t to the start of its day in UTC.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// daysInMonth returns the number of days in the given month.
// Day 0 of the next month is the last day of this one.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// clampedDate builds a date clamping day to the last valid day of the
// month. Constructing day 31 in February must yield Feb 28/29, never
// roll over into March the way bare time.Date arithmetic would.
func clampedDate(year int, month time.Month, day int) time.Time {
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// NextBillingDate computes the next charge date for the subscription,
// relative to the supplied now.
//
// Monthly: billing day of this month if it has not passed yet, otherwise
// of the next month. Yearly: the anchor month (BillingMonth, or the
// CreatedAt month when unset) and billing day of the current year,
// advanced one year when that candidate already passed.
func (s Subscription) NextBillingDate(now time.Time) time.Time {
	today := Midnight(now)

	switch s.Cycle {
	case Yearly:
		anchor := s.BillingMonth
		if anchor == 0 {
			anchor = s.CreatedAt.Month()
		}
		candidate := clampedDate(today.Year(), anchor, s.BillingDay)
		if candidate.Before(today) {
			candidate = clampedDate(today.Year()+1, anchor, s.BillingDay)
		}
		return candidate
	default:
		year, month, day := today.Date()
		if day >= s.BillingDay {
			month++
			if month > time.December {
				month = time.January
				year++
			}
		}
		return clampedDate(year, month, s.BillingDay)
	}
}

// DaysUntilBilling returns the whole days between now (truncated to
// midnight) and the next charge.
func (s Subscription) DaysUntilBilling(now time.Time) int {
	next := s.NextBillingDate(now)
	return int(next.Sub(Midnight(now)).Hours() / 24)
}

// NextBillingLabel renders a human countdown for the next charge:
// "Hoy", "Mañana", "En N días" up to a week, then a short date. The
// year is appended only when the charge falls in a different year.
func (s Subscription) NextBillingLabel(now time.Time) string {
	next := s.NextBillingDate(now)
	days := s.DaysUntilBilling(now)

	switch {
	case days == 0:
		return "Hoy"
	case days == 1:
		return "Mañana"
	case days <= 7:
		return fmt.Sprintf("En %d días", days)
	}

	label := fmt.Sprintf("%d %s", next.Day(), shortMonths[next.Month()-1])
	if next.Year() != now.Year() {
		label = fmt.Sprintf("%s %d", label, next.Year())
	}
	return label
}
