package core

import "sort"

// maxItemizedPlatforms caps the itemized breakdown; totals always cover
// every subscription.
const maxItemizedPlatforms = 6

// PlatformSpend is one row of the per-platform breakdown.
type PlatformSpend struct {
	Platform string  `json:"platform"`
	Total    float64 `json:"total"`          // raw sum in original currencies
	Monthly  float64 `json:"convertedTotal"` // converted, monthly-normalized
	Count    int     `json:"count"`
}

// AggregateSummary is the converted spend overview for a subscription set.
type AggregateSummary struct {
	TotalMonthly     float64         `json:"totalMonthly"`
	YearlyProjection float64         `json:"totalYearlyProjection"`
	Count            int             `json:"subscriptionCount"`
	Currency         Currency        `json:"currency"`
	Platforms        []PlatformSpend `json:"perPlatform"`
}

// Aggregate folds a subscription collection into summary statistics in
// target currency: monthly total, yearly projection and a per-platform
// distribution sorted by converted monthly spend (itemized view capped
// at six platforms). An empty collection yields a zero summary.
func Aggregate(subs []Subscription, target Currency, rates RateTable) AggregateSummary {
	summary := AggregateSummary{Currency: target}

	byPlatform := make(map[string]*PlatformSpend)
	for _, sub := range subs {
		converted := Convert(sub.Price, sub.Currency, target, rates)
		summary.TotalMonthly += MonthlyEquivalent(converted, sub.Cycle)
		summary.YearlyProjection += YearlyProjection(converted, sub.Cycle)
		summary.Count++

		p, ok := byPlatform[sub.Platform]
		if !ok {
			p = &PlatformSpend{Platform: sub.Platform}
			byPlatform[sub.Platform] = p
		}
		p.Total += sub.Price
		p.Monthly += MonthlyEquivalent(converted, sub.Cycle)
		p.Count++
	}

	platforms := make([]PlatformSpend, 0, len(byPlatform))
	for _, p := range byPlatform {
		p.Total = Round2(p.Total)
		p.Monthly = Round2(p.Monthly)
		platforms = append(platforms, *p)
	}
	sort.Slice(platforms, func(i, j int) bool {
		if platforms[i].Monthly != platforms[j].Monthly {
			return platforms[i].Monthly > platforms[j].Monthly
		}
		return platforms[i].Platform < platforms[j].Platform
	})
	if len(platforms) > maxItemizedPlatforms {
		platforms = platforms[:maxItemizedPlatforms]
	}
	summary.Platforms = platforms

	summary.TotalMonthly = Round2(summary.TotalMonthly)
	summary.YearlyProjection = Round2(summary.YearlyProjection)
	return summary
}
