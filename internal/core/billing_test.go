package core

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextBillingDate_Monthly(t *testing.T) {
	tests := []struct {
		name       string
		billingDay int
		now        time.Time
		want       time.Time
	}{
		{
			name:       "before billing day - this month",
			billingDay: 20,
			now:        date(2024, time.April, 15),
			want:       date(2024, time.April, 20),
		},
		{
			name:       "on billing day - next month",
			billingDay: 15,
			now:        date(2024, time.April, 15),
			want:       date(2024, time.May, 15),
		},
		{
			name:       "after billing day - next month",
			billingDay: 5,
			now:        date(2024, time.April, 20),
			want:       date(2024, time.May, 5),
		},
		{
			name:       "december rollover into next year",
			billingDay: 10,
			now:        date(2024, time.December, 28),
			want:       date(2025, time.January, 10),
		},
		{
			name:       "day 31 clamped to February 29 in leap year",
			billingDay: 31,
			now:        date(2024, time.February, 1),
			want:       date(2024, time.February, 29),
		},
		{
			name:       "day 31 clamped to February 28 in common year",
			billingDay: 31,
			now:        date(2023, time.February, 1),
			want:       date(2023, time.February, 28),
		},
		{
			name:       "day 31 clamped to April 30",
			billingDay: 31,
			now:        date(2024, time.March, 31),
			want:       date(2024, time.April, 30),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Subscription{Cycle: Monthly, BillingDay: tt.billingDay}
			got := sub.NextBillingDate(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("NextBillingDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNextBillingDate_Yearly(t *testing.T) {
	tests := []struct {
		name         string
		billingDay   int
		billingMonth time.Month
		createdAt    time.Time
		now          time.Time
		want         time.Time
	}{
		{
			name:         "anchor month ahead - this year",
			billingDay:   10,
			billingMonth: time.September,
			createdAt:    date(2023, time.January, 5),
			now:          date(2024, time.March, 1),
			want:         date(2024, time.September, 10),
		},
		{
			name:         "anchor month passed - next year",
			billingDay:   10,
			billingMonth: time.February,
			createdAt:    date(2023, time.January, 5),
			now:          date(2024, time.March, 1),
			want:         date(2025, time.February, 10),
		},
		{
			name:       "no anchor month falls back to creation month",
			billingDay: 15,
			createdAt:  date(2023, time.June, 15),
			now:        date(2024, time.March, 1),
			want:       date(2024, time.June, 15),
		},
		{
			name:         "candidate today is not advanced",
			billingDay:   1,
			billingMonth: time.March,
			createdAt:    date(2023, time.January, 5),
			now:          date(2024, time.March, 1),
			want:         date(2024, time.March, 1),
		},
		{
			name:         "day 31 in February clamps after advancing",
			billingDay:   31,
			billingMonth: time.February,
			createdAt:    date(2023, time.January, 10),
			now:          date(2024, time.March, 1),
			want:         date(2025, time.February, 28),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := Subscription{
				Cycle:        Yearly,
				BillingDay:   tt.billingDay,
				BillingMonth: tt.billingMonth,
				CreatedAt:    tt.createdAt,
			}
			got := sub.NextBillingDate(tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("NextBillingDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Charges with billing days 29-31 must stay inside short months instead
// of overflowing into the next one.
func TestNextBillingDate_NeverOverflowsMonth(t *testing.T) {
	for day := 29; day <= 31; day++ {
		for m := time.January; m <= time.December; m++ {
			sub := Subscription{Cycle: Monthly, BillingDay: day}
			now := date(2023, m, 1)
			got := sub.NextBillingDate(now)
			if got.Month() != m {
				t.Errorf("billingDay=%d now=%v: got %v, expected a date in %v", day, now, got, m)
			}
			if got.Day() > day {
				t.Errorf("billingDay=%d now=%v: day %d exceeds billing day", day, now, got.Day())
			}
		}
	}
}

func TestNextBillingLabel(t *testing.T) {
	now := date(2024, time.April, 15) // 30-day month

	tests := []struct {
		name string
		sub  Subscription
		want string
	}{
		{
			name: "charge today",
			sub:  Subscription{Cycle: Yearly, BillingDay: 15, BillingMonth: time.April, CreatedAt: date(2023, time.January, 1)},
			want: "Hoy",
		},
		{
			name: "charge tomorrow",
			sub:  Subscription{Cycle: Monthly, BillingDay: 16},
			want: "Mañana",
		},
		{
			name: "charge within a week",
			sub:  Subscription{Cycle: Monthly, BillingDay: 20},
			want: "En 5 días",
		},
		{
			name: "charge beyond a week - short date",
			sub:  Subscription{Cycle: Monthly, BillingDay: 28},
			want: "28 abr",
		},
		{
			name: "charge next year includes year",
			sub:  Subscription{Cycle: Yearly, BillingDay: 10, BillingMonth: time.February, CreatedAt: date(2023, time.January, 1)},
			want: "10 feb 2025",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sub.NextBillingLabel(now); got != tt.want {
				t.Errorf("NextBillingLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Scenario from the product: a 199 MXN monthly subscription billed on
// the 20th, viewed on the 15th, charges on the 20th of the same month.
func TestNextBillingDate_MidMonthScenario(t *testing.T) {
	sub := Subscription{Price: 199, Currency: MXN, Cycle: Monthly, BillingDay: 20}
	now := date(2024, time.April, 15)

	if got, want := sub.NextBillingDate(now), date(2024, time.April, 20); !got.Equal(want) {
		t.Errorf("NextBillingDate() = %v, want %v", got, want)
	}
	if got, want := sub.NextBillingLabel(now), "En 5 días"; got != want {
		t.Errorf("NextBillingLabel() = %q, want %q", got, want)
	}
}

func TestNextBillingDate_Deterministic(t *testing.T) {
	sub := Subscription{Cycle: Monthly, BillingDay: 31}
	now := date(2024, time.February, 10)

	first := sub.NextBillingDate(now)
	second := sub.NextBillingDate(now)
	if !first.Equal(second) {
		t.Errorf("same inputs produced %v and %v", first, second)
	}
}
