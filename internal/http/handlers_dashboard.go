package http

import (
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"subtrack/internal/core"
	applog "subtrack/internal/log"
)

// summaryResponse is the resume-total body: the spend summary plus the
// quote date of the rates used. RateDate is empty when conversion ran on
// identity rates.
type summaryResponse struct {
	core.AggregateSummary
	RateDate string `json:"rateDate,omitempty"`
}

type upcomingItem struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Platform        string  `json:"platform"`
	Price           float64 `json:"price"`
	Currency        string  `json:"currency"`
	NextBillingDate string  `json:"nextBillingDate"`
	DaysUntil       int     `json:"daysUntil"`
	Label           string  `json:"label"`
}

func (s *Server) handleResumeTotal(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userid")

	currency, err := core.ParseCurrency(r.PathValue("currency"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported currency")
		return
	}

	key := s.summaryCacheKey(userID, currency)
	if cached, ok := s.summaryCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Summary cache hit",
			"user_id", userID, "currency", currency)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	subs, err := s.reader.ActiveSubscriptions(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List active subscriptions failed",
			applog.FieldOperation, applog.OpList, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load subscriptions")
		return
	}

	table, rateDate := s.lookupRates(r, currency)
	resp := summaryResponse{
		AggregateSummary: core.Aggregate(subs, currency, table),
		RateDate:         rateDate,
	}

	s.summaryCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userid")

	currency, err := core.ParseCurrency(r.PathValue("currency"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported currency")
		return
	}

	months := 6
	if v := r.URL.Query().Get("months"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			months = n
		}
	}
	months = core.ClampTrendMonths(months)

	subs, err := s.reader.ActiveSubscriptions(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List active subscriptions failed",
			applog.FieldOperation, applog.OpList, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load subscriptions")
		return
	}

	// Without subscriptions there is nothing to reconstruct, so the
	// chart gets an empty window rather than a run of zero points.
	if len(subs) == 0 {
		writeJSON(w, http.StatusOK, core.MonthlyTrend{
			Points:   []core.MonthlyTrendPoint{},
			Currency: currency,
		})
		return
	}

	table, _ := s.lookupRates(r, currency)
	writeJSON(w, http.StatusOK, core.ReconstructTrend(s.now(), subs, months, currency, table))
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userid")

	subs, err := s.reader.ActiveSubscriptions(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List active subscriptions failed",
			applog.FieldOperation, applog.OpList, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load subscriptions")
		return
	}

	now := s.now()
	items := make([]upcomingItem, 0, len(subs))
	for _, sub := range subs {
		items = append(items, upcomingItem{
			ID:              sub.ID,
			Name:            sub.Name,
			Platform:        sub.Platform,
			Price:           sub.Price,
			Currency:        string(sub.Currency),
			NextBillingDate: sub.NextBillingDate(now).Format("2006-01-02"),
			DaysUntil:       sub.DaysUntilBilling(now),
			Label:           sub.NextBillingLabel(now),
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].DaysUntil != items[j].DaysUntil {
			return items[i].DaysUntil < items[j].DaysUntil
		}
		return items[i].Name < items[j].Name
	})

	writeJSON(w, http.StatusOK, map[string]any{"upcoming": items})
}

// lookupRates fetches rates against target, degrading to an empty table
// (identity conversion) when the provider is unavailable. The rates
// client's own HTTP timeout bounds the fetch.
func (s *Server) lookupRates(r *http.Request, target core.Currency) (core.RateTable, string) {
	if s.rates == nil {
		return core.RateTable{}, ""
	}

	table, err := s.rates.Latest(r.Context(), target)
	if err != nil {
		// Already logged by the rates client; the empty table converts
		// 1:1 downstream.
		return core.RateTable{}, ""
	}
	return table.Rates, table.Date
}
