package core

import (
	"math"
	"testing"
	"time"
)

func TestAggregate(t *testing.T) {
	rates := RateTable{MXN: 20, EUR: 0.8} // base USD
	subs := []Subscription{
		{Platform: "netflix", Price: 200, Currency: MXN, Cycle: Monthly},
		{Platform: "spotify", Price: 120, Currency: USD, Cycle: Yearly},
		{Platform: "netflix", Price: 100, Currency: MXN, Cycle: Monthly},
	}

	got := Aggregate(subs, USD, rates)

	// 200/20 + 120/12 + 100/20 = 10 + 10 + 5
	if got.TotalMonthly != 25 {
		t.Errorf("TotalMonthly = %v, want 25", got.TotalMonthly)
	}
	// (10+5)*12 + 120
	if got.YearlyProjection != 300 {
		t.Errorf("YearlyProjection = %v, want 300", got.YearlyProjection)
	}
	if got.Count != 3 {
		t.Errorf("Count = %d, want 3", got.Count)
	}
	if len(got.Platforms) != 2 {
		t.Fatalf("Platforms = %d entries, want 2", len(got.Platforms))
	}
	// netflix (15/month converted) sorts above spotify (10/month)
	if got.Platforms[0].Platform != "netflix" {
		t.Errorf("top platform = %q, want netflix", got.Platforms[0].Platform)
	}
	if got.Platforms[0].Monthly != 15 || got.Platforms[0].Count != 2 {
		t.Errorf("netflix = %+v, want Monthly=15 Count=2", got.Platforms[0])
	}
	if got.Platforms[0].Total != 300 {
		t.Errorf("netflix raw Total = %v, want 300", got.Platforms[0].Total)
	}
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(nil, USD, RateTable{})

	if got.TotalMonthly != 0 || got.YearlyProjection != 0 || got.Count != 0 {
		t.Errorf("empty set produced non-zero totals: %+v", got)
	}
	if len(got.Platforms) != 0 {
		t.Errorf("empty set produced platform rows: %+v", got.Platforms)
	}
}

func TestAggregate_ItemizedBreakdownCappedAtSix(t *testing.T) {
	subs := make([]Subscription, 0, 8)
	platforms := []string{"netflix", "spotify", "hbo", "disney", "prime", "youtube", "icloud", "crunchyroll"}
	for i, p := range platforms {
		subs = append(subs, Subscription{
			Platform: p,
			Price:    float64(100 - i*10),
			Currency: USD,
			Cycle:    Monthly,
		})
	}

	got := Aggregate(subs, USD, RateTable{})

	if len(got.Platforms) != 6 {
		t.Fatalf("itemized breakdown has %d entries, want 6", len(got.Platforms))
	}
	// Totals still cover all eight subscriptions.
	want := 100.0 + 90 + 80 + 70 + 60 + 50 + 40 + 30
	if got.TotalMonthly != want {
		t.Errorf("TotalMonthly = %v, want %v (remainder must not be dropped)", got.TotalMonthly, want)
	}
	if got.Count != 8 {
		t.Errorf("Count = %d, want 8", got.Count)
	}
	for i := 1; i < len(got.Platforms); i++ {
		if got.Platforms[i].Monthly > got.Platforms[i-1].Monthly {
			t.Errorf("breakdown not sorted descending at index %d", i)
		}
	}
}

// The itemized converted totals must add up to the monthly total when no
// platform is cut off by the cap.
func TestAggregate_PlatformTotalsConsistent(t *testing.T) {
	rates := RateTable{MXN: 17.3, EUR: 0.93}
	subs := []Subscription{
		{Platform: "netflix", Price: 299, Currency: MXN, Cycle: Monthly},
		{Platform: "spotify", Price: 99.99, Currency: USD, Cycle: Yearly},
		{Platform: "hbo", Price: 9.99, Currency: EUR, Cycle: Monthly},
		{Platform: "prime", Price: 899, Currency: MXN, Cycle: Yearly},
	}

	got := Aggregate(subs, USD, rates)

	var sum float64
	for _, p := range got.Platforms {
		sum += p.Monthly
	}
	if math.Abs(sum-got.TotalMonthly) > 0.05 {
		t.Errorf("sum(platform monthly) = %v, TotalMonthly = %v", sum, got.TotalMonthly)
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	rates := RateTable{MXN: 18}
	subs := []Subscription{
		{Platform: "netflix", Price: 199, Currency: MXN, Cycle: Monthly, CreatedAt: date(2024, time.January, 1)},
	}

	first := Aggregate(subs, USD, rates)
	second := Aggregate(subs, USD, rates)
	if first.TotalMonthly != second.TotalMonthly || first.YearlyProjection != second.YearlyProjection {
		t.Errorf("repeated aggregation differed: %+v vs %+v", first, second)
	}
}
