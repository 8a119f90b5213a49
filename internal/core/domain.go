package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Monthly BillingCycle = "monthly"
	Yearly  BillingCycle = "yearly"
)

const (
	MXN Currency = "MXN"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

type (
	// BillingCycle is the recurrence of a subscription charge.
	BillingCycle string

	// Currency is one of the closed set of supported currency codes.
	Currency string

	// RateTable maps a currency code to its exchange rate, expressed
	// relative to a single base currency fixed per lookup.
	RateTable map[Currency]float64

	// Subscription is a recurring payment as supplied by the store.
	// Price is a decimal amount in Currency units, scoped to Cycle.
	Subscription struct {
		ID           string
		Name         string
		Platform     string
		Price        float64
		Currency     Currency
		Cycle        BillingCycle
		BillingDay   int        // 1-31, day of month the charge occurs
		BillingMonth time.Month // anchor month for yearly cycles; 0 = use CreatedAt month
		Active       bool
		CreatedAt    time.Time
	}
)

var (
	ErrInvalidPrice      = errors.New("invalid price")
	ErrInvalidCurrency   = errors.New("invalid currency")
	ErrInvalidCycle      = errors.New("invalid billing cycle")
	ErrInvalidBillingDay = errors.New("billing day must be between 1 and 31")
	ErrInvalidMonth      = errors.New("billing month must be between 1 and 12")
	ErrEmptyName         = errors.New("empty name")
	ErrNameTooLong       = errors.New("name too long (max 200 characters)")
	ErrEmptyPlatform     = errors.New("empty platform")
)

// Currencies lists the supported codes in display order.
func Currencies() []Currency {
	return []Currency{MXN, USD, EUR}
}

// ParseCurrency validates a raw code against the closed set.
func ParseCurrency(s string) (Currency, error) {
	switch Currency(strings.ToUpper(strings.TrimSpace(s))) {
	case MXN:
		return MXN, nil
	case USD:
		return USD, nil
	case EUR:
		return EUR, nil
	default:
		return "", ErrInvalidCurrency
	}
}

// ParseBillingCycle validates a raw cycle value.
func ParseBillingCycle(s string) (BillingCycle, error) {
	switch BillingCycle(strings.ToLower(strings.TrimSpace(s))) {
	case Monthly:
		return Monthly, nil
	case Yearly:
		return Yearly, nil
	default:
		return "", ErrInvalidCycle
	}
}

// Normalize canonicalizes the case-insensitive enum fields so that
// "USD" and "usd" compare equal downstream. Values outside the
// supported sets pass through unchanged for Validate to reject.
func (s Subscription) Normalize() Subscription {
	if c, err := ParseCurrency(string(s.Currency)); err == nil {
		s.Currency = c
	}
	if b, err := ParseBillingCycle(string(s.Cycle)); err == nil {
		s.Cycle = b
	}
	return s
}

func (c Currency) Symbol() string {
	switch c {
	case EUR:
		return "€"
	default:
		return "$"
	}
}

func (s Subscription) Validate() error {
	if len(strings.TrimSpace(s.Name)) == 0 {
		return ErrEmptyName
	}
	if len(s.Name) > 200 {
		return ErrNameTooLong
	}
	if strings.TrimSpace(s.Platform) == "" {
		return ErrEmptyPlatform
	}
	if s.Price < 0 {
		return ErrInvalidPrice
	}
	if _, err := ParseCurrency(string(s.Currency)); err != nil {
		return err
	}
	if _, err := ParseBillingCycle(string(s.Cycle)); err != nil {
		return err
	}
	if s.BillingDay < 1 || s.BillingDay > 31 {
		return ErrInvalidBillingDay
	}
	if s.BillingMonth != 0 && (s.BillingMonth < time.January || s.BillingMonth > time.December) {
		return ErrInvalidMonth
	}
	return nil
}
