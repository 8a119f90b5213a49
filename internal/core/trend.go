package core

import (
	"math"
	"time"
)

// Trend window bounds: fewer than 2 points is not a trend, more than a
// year is not supported.
const (
	MinTrendMonths = 2
	MaxTrendMonths = 12
)

var trendMonths = [12]string{
	"Ene", "Feb", "Mar", "Abr", "May", "Jun",
	"Jul", "Ago", "Sep", "Oct", "Nov", "Dic",
}

// MonthlyTrendPoint is the reconstructed spend for one month of the
// window. MonthIndex is zero-based to match the JSON contract.
type MonthlyTrendPoint struct {
	Month      string  `json:"month"`
	MonthIndex int     `json:"monthIndex"`
	Year       int     `json:"year"`
	Amount     float64 `json:"amount"`
	Count      int     `json:"subscriptionCount"`
	IsCurrent  bool    `json:"isCurrent"`
}

// MonthlyTrend is the full reconstructed window plus derived statistics.
type MonthlyTrend struct {
	Points        []MonthlyTrendPoint `json:"trend"`
	Average       float64             `json:"average"`
	Max           float64             `json:"max"`
	Min           float64             `json:"min"`
	ChangePercent float64             `json:"changePercent"`
	Currency      Currency            `json:"currency"`
}

// ClampTrendMonths forces a requested window length into [2, 12].
func ClampTrendMonths(n int) int {
	if n < MinTrendMonths {
		return MinTrendMonths
	}
	if n > MaxTrendMonths {
		return MaxTrendMonths
	}
	return n
}

// ReconstructTrend rebuilds the monthly spend for the monthsCount months
// ending at now's month, oldest first. A subscription counts toward a
// month when its CreatedAt is not after the last instant of that month;
// creation is the sole activation signal, so a subscription deactivated
// and reactivated in between is treated as active throughout. Amounts
// are converted and monthly-normalized like Aggregate, rounded to 2
// decimals per point independently.
func ReconstructTrend(now time.Time, subs []Subscription, monthsCount int, target Currency, rates RateTable) MonthlyTrend {
	monthsCount = ClampTrendMonths(monthsCount)
	trend := MonthlyTrend{
		Points:   make([]MonthlyTrendPoint, 0, monthsCount),
		Currency: target,
	}

	for i := 0; i < monthsCount; i++ {
		offset := monthsCount - 1 - i
		month := time.Date(now.Year(), now.Month()-time.Month(offset), 1, 0, 0, 0, 0, time.UTC)
		endOfMonth := time.Date(month.Year(), month.Month()+1, 0, 23, 59, 59, 0, time.UTC)

		point := MonthlyTrendPoint{
			Month:      trendMonths[month.Month()-1],
			MonthIndex: int(month.Month()) - 1,
			Year:       month.Year(),
			IsCurrent:  offset == 0,
		}

		var amount float64
		for _, sub := range subs {
			if sub.CreatedAt.After(endOfMonth) {
				continue
			}
			converted := Convert(sub.Price, sub.Currency, target, rates)
			amount += MonthlyEquivalent(converted, sub.Cycle)
			point.Count++
		}
		point.Amount = Round2(amount)
		trend.Points = append(trend.Points, point)
	}

	var sum float64
	trend.Max = trend.Points[0].Amount
	trend.Min = trend.Points[0].Amount
	for _, p := range trend.Points {
		sum += p.Amount
		if p.Amount > trend.Max {
			trend.Max = p.Amount
		}
		if p.Amount < trend.Min {
			trend.Min = p.Amount
		}
	}
	trend.Average = math.Round(sum / float64(len(trend.Points)))
	trend.Max = math.Round(trend.Max)
	trend.Min = math.Round(trend.Min)

	first := trend.Points[0].Amount
	last := trend.Points[len(trend.Points)-1].Amount
	if first > 0 {
		trend.ChangePercent = Round1((last - first) / first * 100)
	}
	return trend
}
