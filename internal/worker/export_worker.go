// Package worker consumes subscription event notifications and exports
// the underlying audit events to Google Sheets.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"subtrack/internal/amqp"
	"subtrack/internal/core"
	"subtrack/internal/storage"
)

// EventExporter appends one audit event to the export target.
type EventExporter interface {
	AppendEvent(ctx context.Context, ev storage.SubscriptionEvent, sub core.Subscription) error
}

// ExportWorker resolves event notifications against the database and
// hands the full events to the exporter. The message carries only the
// event ID, so the database stays the source of truth.
type ExportWorker struct {
	storage  *storage.SQLiteRepository
	exporter EventExporter
}

func NewExportWorker(storage *storage.SQLiteRepository, exporter EventExporter) *ExportWorker {
	return &ExportWorker{
		storage:  storage,
		exporter: exporter,
	}
}

// HandleEventMessage processes one notification from the queue. A
// missing event is final (no requeue value); an export failure is
// returned so the delivery gets requeued.
func (w *ExportWorker) HandleEventMessage(ctx context.Context, msg *amqp.SubscriptionEventMessage) error {
	slog.InfoContext(ctx, "Processing event message",
		"event_id", msg.EventID,
		"event_type", msg.EventType)

	ev, err := w.storage.GetEvent(ctx, msg.EventID)
	if errors.Is(err, storage.ErrEventNotFound) {
		slog.WarnContext(ctx, "Event no longer exists, dropping message",
			"event_id", msg.EventID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get event from storage: %w", err)
	}

	sub, err := decodeSnapshot(ev)
	if err != nil {
		slog.ErrorContext(ctx, "Event snapshot is unreadable, dropping message",
			"event_id", msg.EventID, "error", err)
		return nil
	}

	if err := w.exporter.AppendEvent(ctx, ev, sub); err != nil {
		return fmt.Errorf("export event %s: %w", ev.ID, err)
	}

	return nil
}

func decodeSnapshot(ev storage.SubscriptionEvent) (core.Subscription, error) {
	var sub core.Subscription
	if err := json.Unmarshal(ev.Snapshot, &sub); err != nil {
		return core.Subscription{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return sub, nil
}
