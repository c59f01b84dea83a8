package repository

import (
	"context"
	"time"

	"github.com/ricirt/meeting-notifier/internal/domain"
)

// InboxLimit caps how many records a user listing returns.
const InboxLimit = 50

// NotificationRepository defines all persistence operations for notifications.
// The pgx implementation is in pg_notification_repo.go.
// Tests use a hand-written mock (mock_notification_repo.go).
//
// MarkDelivered and MarkFailed only move a record out of pending. When the
// record exists but has already settled they return domain.ErrAlreadySettled.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	CreateMany(ctx context.Context, notifications []*domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Notification, error)
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time, attempts int) error
	MarkFailed(ctx context.Context, id string, reason string, attempts int) error
	MarkRead(ctx context.Context, id string, readAt time.Time) error
	FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*domain.Notification, error)
}
