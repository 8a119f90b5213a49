package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"subtrack/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a subscription does not exist or belongs
// to a different user.
var ErrNotFound = errors.New("subscription not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const subscriptionColumns = `id, name, platform, price, currency, billing_cycle, billing_day, billing_month, active, created_at`

// CreateSubscription inserts a subscription for userID and returns it
// with the assigned ID.
func (r *SQLiteRepository) CreateSubscription(ctx context.Context, userID string, s core.Subscription, now time.Time) (core.Subscription, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (user_id, name, platform, price, currency, billing_cycle, billing_day, billing_month, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, s.Name, s.Platform, s.Price, string(s.Currency), string(s.Cycle),
		s.BillingDay, int(s.BillingMonth), boolToInt(s.Active),
		now.UTC().Format(time.RFC3339), now.UTC().Format(time.RFC3339))
	if err != nil {
		return core.Subscription{}, fmt.Errorf("insert subscription: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Subscription{}, fmt.Errorf("last insert id: %w", err)
	}

	s.ID = strconv.FormatInt(id, 10)
	s.CreatedAt = now.UTC()

	slog.InfoContext(ctx, "Subscription created",
		"id", s.ID,
		"user_id", userID,
		"name", s.Name,
		"platform", s.Platform,
		"price", s.Price,
		"currency", s.Currency)

	return s, nil
}

// ListSubscriptions returns every subscription for userID ordered by
// billing day, then name.
func (r *SQLiteRepository) ListSubscriptions(ctx context.Context, userID string) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = ?
		ORDER BY billing_day, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []core.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return subs, nil
}

// ActiveSubscriptions returns only the active subscriptions for userID.
func (r *SQLiteRepository) ActiveSubscriptions(ctx context.Context, userID string) ([]core.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = ? AND active = 1
		ORDER BY billing_day, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("query active subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []core.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	return subs, nil
}

// GetSubscription looks up one subscription scoped to userID.
func (r *SQLiteRepository) GetSubscription(ctx context.Context, userID, id string) (core.Subscription, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = ? AND id = ?`, userID, id)

	s, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Subscription{}, ErrNotFound
	}
	if err != nil {
		return core.Subscription{}, err
	}
	return s, nil
}

// UpdateSubscription overwrites the mutable fields of s, matched by
// s.ID and userID.
func (r *SQLiteRepository) UpdateSubscription(ctx context.Context, userID string, s core.Subscription, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET name = ?, platform = ?, price = ?, currency = ?, billing_cycle = ?, billing_day = ?, billing_month = ?, active = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		s.Name, s.Platform, s.Price, string(s.Currency), string(s.Cycle),
		s.BillingDay, int(s.BillingMonth), boolToInt(s.Active),
		now.UTC().Format(time.RFC3339), userID, s.ID)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return requireRow(res)
}

// SetActive toggles the active flag without touching the rest of the row.
func (r *SQLiteRepository) SetActive(ctx context.Context, userID, id string, active bool, now time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET active = ?, updated_at = ?
		WHERE user_id = ? AND id = ?`,
		boolToInt(active), now.UTC().Format(time.RFC3339), userID, id)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}
	return requireRow(res)
}

// DeleteSubscription removes the row permanently. Audit events for the
// subscription are kept.
func (r *SQLiteRepository) DeleteSubscription(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM subscriptions
		WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscription(row rowScanner) (core.Subscription, error) {
	var (
		s            core.Subscription
		id           int64
		currency     string
		cycle        string
		billingMonth int
		active       int
		createdAt    string
	)
	err := row.Scan(&id, &s.Name, &s.Platform, &s.Price, &currency, &cycle,
		&s.BillingDay, &billingMonth, &active, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Subscription{}, err
		}
		return core.Subscription{}, fmt.Errorf("scan subscription: %w", err)
	}

	s.ID = strconv.FormatInt(id, 10)
	s.Currency = core.Currency(currency)
	s.Cycle = core.BillingCycle(cycle)
	s.BillingMonth = time.Month(billingMonth)
	s.Active = active != 0

	s.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}

	return s, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
