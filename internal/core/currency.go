package core

import "math"

// Convert translates amount from one currency to another using a rate
// table whose rates are expressed with the target currency as base (the
// shape the rate provider returns for a base-currency lookup): a rate of
// 17.5 for MXN against a USD base means 17.5 MXN per USD, so a MXN price
// divides by it.
//
// A missing rate degrades to 1:1 rather than failing: a stale dashboard
// number beats no dashboard at all.
func Convert(amount float64, from, to Currency, rates RateTable) float64 {
	if from == to {
		return amount
	}
	rate, ok := rates[from]
	if !ok || rate == 0 {
		return amount
	}
	return amount / rate
}

// MonthlyEquivalent normalizes a cycle-scoped amount to its monthly
// figure. Yearly prices spread over twelve months; monthly pass through.
// The result is intentionally unrounded so that callers can accumulate
// without compounding rounding error.
func MonthlyEquivalent(amount float64, cycle BillingCycle) float64 {
	if cycle == Yearly {
		return amount / 12
	}
	return amount
}

// YearlyProjection is the twelve-month projection of a cycle-scoped amount.
func YearlyProjection(amount float64, cycle BillingCycle) float64 {
	if cycle == Yearly {
		return amount
	}
	return amount * 12
}

// Round2 rounds to 2 decimal places. Applied only at presentation
// boundaries, never inside accumulation.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Round1 rounds to 1 decimal place (change percentages).
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
