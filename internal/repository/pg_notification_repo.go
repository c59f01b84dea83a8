package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ricirt/meeting-notifier/internal/domain"
)

const selectColumns = `
	SELECT id, user_id, type, channel, data, priority, status, attempts,
	       created_at, delivered_at, read_at, last_error
	FROM notifications`

const insertNotification = `
	INSERT INTO notifications
		(id, user_id, type, channel, data, priority, status, attempts, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

// DB is the part of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type pgNotificationRepository struct {
	pool DB
}

// NewPgNotificationRepository returns a NotificationRepository backed by PostgreSQL.
func NewPgNotificationRepository(pool DB) NotificationRepository {
	return &pgNotificationRepository{pool: pool}
}

func insertArgs(n *domain.Notification) []any {
	data := n.Data
	if data == nil {
		data = domain.Payload{}
	}
	return []any{n.ID, n.UserID, n.Type, n.Channel, data, n.Priority, n.Status, n.Attempts, n.CreatedAt}
}

func (r *pgNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if _, err := r.pool.Exec(ctx, insertNotification, insertArgs(n)...); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// CreateMany inserts every record or none.
func (r *pgNotificationRepository) CreateMany(ctx context.Context, notifications []*domain.Notification) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, n := range notifications {
		batch.Queue(insertNotification, insertArgs(n)...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert notifications: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit notifications: %w", err)
	}
	return nil
}

func (r *pgNotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	row := r.pool.QueryRow(ctx, selectColumns+` WHERE id = $1`, id)

	n, err := scanNotification(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return n, err
}

func (r *pgNotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if limit <= 0 || limit > InboxLimit {
		limit = InboxLimit
	}
	query := selectColumns + ` WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	// id breaks created_at ties so repeated reads return the same order.
	query += ` ORDER BY created_at DESC, id DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

func (r *pgNotificationRepository) MarkDelivered(ctx context.Context, id string, deliveredAt time.Time, attempts int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'delivered', delivered_at = $1, attempts = $2, last_error = NULL
		WHERE id = $3 AND status = 'pending'`, deliveredAt, attempts, id)
	if err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.settleMiss(ctx, id)
	}
	return nil
}

func (r *pgNotificationRepository) MarkFailed(ctx context.Context, id, reason string, attempts int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'failed', last_error = $1, attempts = $2
		WHERE id = $3 AND status = 'pending'`, reason, attempts, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.settleMiss(ctx, id)
	}
	return nil
}

// settleMiss explains why a settling UPDATE touched no row.
func (r *pgNotificationRepository) settleMiss(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check notification: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrAlreadySettled
}

// MarkRead keeps the first read timestamp if the record was already read.
func (r *pgNotificationRepository) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, $1) WHERE id = $2`, readAt, id)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgNotificationRepository) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Notification, error) {
	rows, err := r.pool.Query(ctx, selectColumns+`
		WHERE status = 'pending' AND created_at <= $1
		ORDER BY created_at ASC
		LIMIT $2`, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("find stale pending: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// ---- helpers ----

// scanNotification reads a single notification row from any pgx row type.
func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID, &n.UserID, &n.Type, &n.Channel, &n.Data,
		&n.Priority, &n.Status, &n.Attempts,
		&n.CreatedAt, &n.DeliveredAt, &n.ReadAt, &n.LastError,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func scanNotifications(rows pgx.Rows) ([]*domain.Notification, error) {
	result := []*domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
