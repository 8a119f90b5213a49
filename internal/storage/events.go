package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrEventNotFound is returned when an audit event ID has no row.
var ErrEventNotFound = errors.New("subscription event not found")

// SubscriptionEvent is one entry in the append-only audit log. Snapshot
// holds the full subscription as JSON at the time of the event; Changes
// holds the field diff for updates, nil otherwise.
type SubscriptionEvent struct {
	ID             string
	SubscriptionID string
	UserID         string
	EventType      string
	Snapshot       json.RawMessage
	Changes        json.RawMessage
	CreatedAt      time.Time
}

// AppendEvent inserts an audit event and returns its assigned ID.
// Events are never updated or deleted.
func (r *SQLiteRepository) AppendEvent(ctx context.Context, ev SubscriptionEvent) (string, error) {
	var changes any
	if len(ev.Changes) > 0 {
		changes = string(ev.Changes)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO subscription_events (subscription_id, user_id, event_type, snapshot, changes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.SubscriptionID, ev.UserID, ev.EventType, string(ev.Snapshot),
		changes, ev.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("insert subscription event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}

	return strconv.FormatInt(id, 10), nil
}

// GetEvent loads one audit event by ID.
func (r *SQLiteRepository) GetEvent(ctx context.Context, id string) (SubscriptionEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, subscription_id, user_id, event_type, snapshot, changes, created_at
		FROM subscription_events
		WHERE id = ?`, id)

	var (
		ev        SubscriptionEvent
		evID      int64
		subID     int64
		snapshot  string
		changes   sql.NullString
		createdAt string
	)
	err := row.Scan(&evID, &subID, &ev.UserID, &ev.EventType, &snapshot, &changes, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SubscriptionEvent{}, ErrEventNotFound
	}
	if err != nil {
		return SubscriptionEvent{}, fmt.Errorf("scan subscription event: %w", err)
	}

	ev.ID = strconv.FormatInt(evID, 10)
	ev.SubscriptionID = strconv.FormatInt(subID, 10)
	ev.Snapshot = json.RawMessage(snapshot)
	if changes.Valid {
		ev.Changes = json.RawMessage(changes.String)
	}

	ev.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return SubscriptionEvent{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}

	return ev, nil
}

// ListEvents returns the audit trail for one subscription, oldest first.
func (r *SQLiteRepository) ListEvents(ctx context.Context, userID, subscriptionID string) ([]SubscriptionEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, subscription_id, user_id, event_type, snapshot, changes, created_at
		FROM subscription_events
		WHERE user_id = ? AND subscription_id = ?
		ORDER BY id`, userID, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("query subscription events: %w", err)
	}
	defer rows.Close()

	var events []SubscriptionEvent
	for rows.Next() {
		var (
			ev        SubscriptionEvent
			evID      int64
			subID     int64
			snapshot  string
			changes   sql.NullString
			createdAt string
		)
		if err := rows.Scan(&evID, &subID, &ev.UserID, &ev.EventType, &snapshot, &changes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan subscription event: %w", err)
		}
		ev.ID = strconv.FormatInt(evID, 10)
		ev.SubscriptionID = strconv.FormatInt(subID, 10)
		ev.Snapshot = json.RawMessage(snapshot)
		if changes.Valid {
			ev.Changes = json.RawMessage(changes.String)
		}
		ev.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscription events: %w", err)
	}

	return events, nil
}
