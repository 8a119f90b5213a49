// Package rates fetches exchange rates from the Frankfurter API and
// caches them per base currency. Failures degrade to an empty table so
// the billing engine falls back to identity rates instead of blocking
// the dashboard on a flaky upstream.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"subtrack/internal/cache"
	"subtrack/internal/core"
)

// Table is a rate lookup result: rates relative to Base, plus the
// upstream quote date (empty when the lookup degraded).
type Table struct {
	Base  core.Currency
	Rates core.RateTable
	Date  string
}

// latestResponse matches the Frankfurter /latest body:
// {"amount":1,"base":"USD","date":"2024-03-01","rates":{"MXN":17.01,...}}
type latestResponse struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Rates  map[string]float64 `json:"rates"`
}

type Client struct {
	baseURL string
	client  *http.Client
	cache   *cache.LRUCache[Table]
}

// NewClient builds a rates client against baseURL (e.g.
// "https://api.frankfurter.dev/v1") caching one table per base currency
// for ttl.
func NewClient(baseURL string, timeout, ttl time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		cache:   cache.NewLRUCache[Table](len(core.Currencies()), ttl),
	}
}

// Latest returns the current rates for all supported currencies against
// base. The error is informational: the returned table is always usable,
// degrading to empty rates (identity conversion downstream) on failure.
func (c *Client) Latest(ctx context.Context, base core.Currency) (Table, error) {
	if cached, ok := c.cache.Get(string(base)); ok {
		return cached, nil
	}

	table, err := c.fetch(ctx, base)
	if err != nil {
		slog.WarnContext(ctx, "Exchange rate lookup failed, using identity rates",
			"base", base, "error", err)
		return Table{Base: base, Rates: core.RateTable{}}, err
	}

	c.cache.Set(string(base), table)
	return table, nil
}

func (c *Client) fetch(ctx context.Context, base core.Currency) (Table, error) {
	symbols := make([]string, 0, len(core.Currencies()))
	for _, cur := range core.Currencies() {
		if cur != base {
			symbols = append(symbols, string(cur))
		}
	}

	q := url.Values{}
	q.Set("base", string(base))
	q.Set("symbols", strings.Join(symbols, ","))
	endpoint := fmt.Sprintf("%s/latest?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Table{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Table{}, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Table{}, fmt.Errorf("unexpected status %d from rates API", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Table{}, fmt.Errorf("decode rates response: %w", err)
	}

	table := Table{
		Base:  base,
		Rates: make(core.RateTable, len(body.Rates)),
		Date:  body.Date,
	}
	for code, rate := range body.Rates {
		cur, err := core.ParseCurrency(code)
		if err != nil {
			continue // ignore codes outside the supported set
		}
		table.Rates[cur] = rate
	}

	slog.DebugContext(ctx, "Exchange rates fetched",
		"base", base, "date", table.Date, "rates", len(table.Rates))
	return table, nil
}
