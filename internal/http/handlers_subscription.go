package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"subtrack/internal/core"
	applog "subtrack/internal/log"
	"subtrack/internal/storage"
)

// SubscriptionGetter loads one subscription for update flows.
type SubscriptionGetter interface {
	GetSubscription(ctx context.Context, userID, id string) (core.Subscription, error)
}

type subscriptionJSON struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Platform     string    `json:"platform"`
	Price        float64   `json:"price"`
	Currency     string    `json:"currency"`
	BillingCycle string    `json:"billingCycle"`
	BillingDay   int       `json:"billingDay"`
	BillingMonth int       `json:"billingMonth,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toSubscriptionJSON(s core.Subscription) subscriptionJSON {
	return subscriptionJSON{
		ID:           s.ID,
		Name:         s.Name,
		Platform:     s.Platform,
		Price:        s.Price,
		Currency:     string(s.Currency),
		BillingCycle: string(s.Cycle),
		BillingDay:   s.BillingDay,
		BillingMonth: int(s.BillingMonth),
		Active:       s.Active,
		CreatedAt:    s.CreatedAt,
	}
}

type createSubscriptionRequest struct {
	Name         string  `json:"name"`
	Platform     string  `json:"platform"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	BillingCycle string  `json:"billingCycle"`
	BillingDay   int     `json:"billingDay"`
	BillingMonth int     `json:"billingMonth"`
}

// updateSubscriptionRequest uses pointers so absent fields keep their
// stored values.
type updateSubscriptionRequest struct {
	Name         *string  `json:"name"`
	Platform     *string  `json:"platform"`
	Price        *float64 `json:"price"`
	Currency     *string  `json:"currency"`
	BillingCycle *string  `json:"billingCycle"`
	BillingDay   *int     `json:"billingDay"`
	BillingMonth *int     `json:"billingMonth"`
	Active       *bool    `json:"active"`
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userid")

	subs, err := s.reader.ListSubscriptions(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "List subscriptions failed",
			applog.FieldOperation, applog.OpList, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}

	out := make([]subscriptionJSON, 0, len(subs))
	for _, sub := range subs {
		out = append(out, toSubscriptionJSON(sub))
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": out})
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userid")

	var req createSubscriptionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub := core.Subscription{
		Name:         sanitizeInput(req.Name),
		Platform:     sanitizeInput(req.Platform),
		Price:        req.Price,
		Currency:     core.Currency(req.Currency),
		Cycle:        core.BillingCycle(req.BillingCycle),
		BillingDay:   req.BillingDay,
		BillingMonth: time.Month(req.BillingMonth),
		Active:       true,
	}
	if sub.Currency == "" {
		sub.Currency = s.defaultCurrency
	}
	if sub.Cycle == "" {
		sub.Cycle = core.Monthly
	}
	sub = sub.Normalize()

	created, err := s.writer.Create(r.Context(), userID, sub, s.now())
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Create subscription failed",
			applog.FieldOperation, applog.OpCreate, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create subscription")
		return
	}

	s.invalidateSummaries(userID)
	writeJSON(w, http.StatusCreated, toSubscriptionJSON(created))
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userid")
	id := r.PathValue("id")

	getter, ok := s.reader.(SubscriptionGetter)
	if !ok {
		writeError(w, http.StatusInternalServerError, "store does not support lookups")
		return
	}

	existing, err := getter.GetSubscription(r.Context(), userID, id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Get subscription failed",
			applog.FieldOperation, applog.OpRead, "user_id", userID, "subscription_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load subscription")
		return
	}

	var req updateSubscriptionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Active-only patches go through the pause/resume flow so they get
	// the right audit event type.
	if req.Active != nil && isActiveOnlyPatch(req) {
		updated, err := s.writer.SetActive(r.Context(), userID, id, *req.Active, s.now())
		if err != nil {
			s.writeUpdateError(w, r, userID, id, err)
			return
		}
		s.invalidateSummaries(userID)
		writeJSON(w, http.StatusOK, toSubscriptionJSON(updated))
		return
	}

	applyPatch(&existing, req)
	existing = existing.Normalize()

	updated, err := s.writer.Update(r.Context(), userID, existing, s.now())
	if err != nil {
		s.writeUpdateError(w, r, userID, id, err)
		return
	}

	s.invalidateSummaries(userID)
	writeJSON(w, http.StatusOK, toSubscriptionJSON(updated))
}

func (s *Server) writeUpdateError(w http.ResponseWriter, r *http.Request, userID, id string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "subscription not found")
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Update subscription failed",
			applog.FieldOperation, applog.OpUpdate, "user_id", userID, "subscription_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update subscription")
	}
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userid")
	id := r.PathValue("id")

	err := s.writer.Delete(r.Context(), userID, id, s.now())
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "Delete subscription failed",
			applog.FieldOperation, applog.OpDelete, "user_id", userID, "subscription_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}

	s.invalidateSummaries(userID)
	w.WriteHeader(http.StatusNoContent)
}

func isActiveOnlyPatch(req updateSubscriptionRequest) bool {
	return req.Name == nil && req.Platform == nil && req.Price == nil &&
		req.Currency == nil && req.BillingCycle == nil &&
		req.BillingDay == nil && req.BillingMonth == nil
}

func applyPatch(sub *core.Subscription, req updateSubscriptionRequest) {
	if req.Name != nil {
		sub.Name = sanitizeInput(*req.Name)
	}
	if req.Platform != nil {
		sub.Platform = sanitizeInput(*req.Platform)
	}
	if req.Price != nil {
		sub.Price = *req.Price
	}
	if req.Currency != nil {
		sub.Currency = core.Currency(*req.Currency)
	}
	if req.BillingCycle != nil {
		sub.Cycle = core.BillingCycle(*req.BillingCycle)
	}
	if req.BillingDay != nil {
		sub.BillingDay = *req.BillingDay
	}
	if req.BillingMonth != nil {
		sub.BillingMonth = time.Month(*req.BillingMonth)
	}
	if req.Active != nil {
		sub.Active = *req.Active
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidPrice,
		core.ErrInvalidCurrency,
		core.ErrInvalidCycle,
		core.ErrInvalidBillingDay,
		core.ErrInvalidMonth,
		core.ErrEmptyName,
		core.ErrNameTooLong,
		core.ErrEmptyPlatform,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
