package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"subtrack/internal/amqp"
	"subtrack/internal/core"
	"subtrack/internal/storage"
)

// Audit event types, from most specific to least. A single update maps
// to exactly one type: price and cycle changes outrank a generic update.
const (
	EventCreated      = "created"
	EventUpdated      = "updated"
	EventDeleted      = "deleted"
	EventPriceChanged = "price_changed"
	EventCycleChanged = "cycle_changed"
	EventReactivated  = "reactivated"
	EventDeactivated  = "deactivated"
)

// SubscriptionService orchestrates subscription writes across SQLite,
// the audit log, and AMQP.
type SubscriptionService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewSubscriptionService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *SubscriptionService {
	return &SubscriptionService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// Create persists a new subscription, records a created event, and
// notifies the export worker.
func (s *SubscriptionService) Create(ctx context.Context, userID string, sub core.Subscription, now time.Time) (core.Subscription, error) {
	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, err
	}

	created, err := s.storage.CreateSubscription(ctx, userID, sub, now)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}

	s.recordEvent(ctx, userID, created, EventCreated, nil, now)
	return created, nil
}

// Update overwrites an existing subscription and records an audit event
// whose type reflects what actually changed.
func (s *SubscriptionService) Update(ctx context.Context, userID string, sub core.Subscription, now time.Time) (core.Subscription, error) {
	sub = sub.Normalize()
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, err
	}

	previous, err := s.storage.GetSubscription(ctx, userID, sub.ID)
	if err != nil {
		return core.Subscription{}, err
	}

	if err := s.storage.UpdateSubscription(ctx, userID, sub, now); err != nil {
		return core.Subscription{}, fmt.Errorf("update subscription: %w", err)
	}

	changes := diffSubscriptions(previous, sub)
	if len(changes) == 0 {
		// No-op update: nothing changed, nothing to audit.
		return sub, nil
	}

	s.recordEvent(ctx, userID, sub, resolveEventType(previous, sub), changes, now)
	return sub, nil
}

// SetActive pauses or resumes a subscription.
func (s *SubscriptionService) SetActive(ctx context.Context, userID, id string, active bool, now time.Time) (core.Subscription, error) {
	previous, err := s.storage.GetSubscription(ctx, userID, id)
	if err != nil {
		return core.Subscription{}, err
	}
	if previous.Active == active {
		return previous, nil
	}

	if err := s.storage.SetActive(ctx, userID, id, active, now); err != nil {
		return core.Subscription{}, fmt.Errorf("set active: %w", err)
	}

	updated := previous
	updated.Active = active

	eventType := EventDeactivated
	if active {
		eventType = EventReactivated
	}
	s.recordEvent(ctx, userID, updated, eventType, diffSubscriptions(previous, updated), now)
	return updated, nil
}

// Delete removes a subscription permanently, keeping its audit trail.
func (s *SubscriptionService) Delete(ctx context.Context, userID, id string, now time.Time) error {
	previous, err := s.storage.GetSubscription(ctx, userID, id)
	if err != nil {
		return err
	}

	if err := s.storage.DeleteSubscription(ctx, userID, id); err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}

	s.recordEvent(ctx, userID, previous, EventDeleted, nil, now)
	return nil
}

// recordEvent appends to the audit log and publishes the notification.
// Neither failure aborts the caller's write: the subscription row is the
// source of truth, the event trail is best effort.
func (s *SubscriptionService) recordEvent(ctx context.Context, userID string, sub core.Subscription, eventType string, changes map[string]fieldChange, now time.Time) {
	snapshot, err := json.Marshal(sub)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to marshal subscription snapshot",
			"subscription_id", sub.ID, "error", err)
		return
	}

	var changesJSON json.RawMessage
	if len(changes) > 0 {
		changesJSON, err = json.Marshal(changes)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to marshal change set",
				"subscription_id", sub.ID, "error", err)
			return
		}
	}

	eventID, err := s.storage.AppendEvent(ctx, storage.SubscriptionEvent{
		SubscriptionID: sub.ID,
		UserID:         userID,
		EventType:      eventType,
		Snapshot:       snapshot,
		Changes:        changesJSON,
		CreatedAt:      now,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to append audit event",
			"subscription_id", sub.ID, "event_type", eventType, "error", err)
		return
	}

	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping event message",
			"event_id", eventID)
		return
	}
	if err := s.amqpClient.PublishSubscriptionEvent(ctx, eventID, eventType); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event message",
			"event_id", eventID, "event_type", eventType, "error", err)
	}
}

type fieldChange struct {
	From any `json:"from"`
	To   any `json:"to"`
}

func diffSubscriptions(before, after core.Subscription) map[string]fieldChange {
	changes := make(map[string]fieldChange)
	if before.Name != after.Name {
		changes["name"] = fieldChange{before.Name, after.Name}
	}
	if before.Platform != after.Platform {
		changes["platform"] = fieldChange{before.Platform, after.Platform}
	}
	if before.Price != after.Price {
		changes["price"] = fieldChange{before.Price, after.Price}
	}
	if before.Currency != after.Currency {
		changes["currency"] = fieldChange{before.Currency, after.Currency}
	}
	if before.Cycle != after.Cycle {
		changes["billingCycle"] = fieldChange{before.Cycle, after.Cycle}
	}
	if before.BillingDay != after.BillingDay {
		changes["billingDay"] = fieldChange{before.BillingDay, after.BillingDay}
	}
	if before.BillingMonth != after.BillingMonth {
		changes["billingMonth"] = fieldChange{int(before.BillingMonth), int(after.BillingMonth)}
	}
	if before.Active != after.Active {
		changes["active"] = fieldChange{before.Active, after.Active}
	}
	return changes
}

func resolveEventType(before, after core.Subscription) string {
	switch {
	case before.Price != after.Price:
		return EventPriceChanged
	case before.Cycle != after.Cycle:
		return EventCycleChanged
	case !before.Active && after.Active:
		return EventReactivated
	case before.Active && !after.Active:
		return EventDeactivated
	default:
		return EventUpdated
	}
}

// Close closes both storage and AMQP connections.
func (s *SubscriptionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close subscription service: %v", errs)
	}

	return nil
}
