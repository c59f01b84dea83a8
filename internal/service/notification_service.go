package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/queue"
	"github.com/ricirt/meeting-notifier/internal/repository"
)

// PayloadValidator checks a payload against the fields its type requires.
type PayloadValidator interface {
	ValidatePayload(t domain.Type, data domain.Payload) error
}

type Options struct {
	// MaxAttempts is stamped on every job; zero leaves the queue policy in charge.
	MaxAttempts int
	// OnAccepted is called once per persisted record.
	OnAccepted func(domain.Channel, domain.Priority)
}

// NotificationService is the intake side of the pipeline. It coordinates the
// repository and queue: every accepted request is persisted as pending before
// a job referencing it is enqueued. HTTP handlers depend on this service,
// never on the queue or repository directly.
type NotificationService struct {
	repo      repository.NotificationRepository
	q         queue.Queue
	validator PayloadValidator
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

func NewNotificationService(
	repo repository.NotificationRepository,
	q queue.Queue,
	validator PayloadValidator,
	opts Options,
	logger *zap.Logger,
) *NotificationService {
	if opts.OnAccepted == nil {
		opts.OnAccepted = func(domain.Channel, domain.Priority) {}
	}
	return &NotificationService{
		repo: repo, q: q, validator: validator, opts: opts, logger: logger,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Send validates, persists and enqueues a single notification. The returned
// record is pending; delivery happens asynchronously.
func (s *NotificationService) Send(ctx context.Context, req domain.SendRequest) (*domain.Notification, error) {
	if err := s.validate(&req); err != nil {
		return nil, err
	}

	n := s.buildNotification(req, s.now())
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("persist notification: %w", err)
	}
	s.opts.OnAccepted(n.Channel, n.Priority)

	s.enqueue(ctx, n)
	return n, nil
}

// SendBulk fans one message out to every recipient. All records are created
// in a single transaction before any job is enqueued, so either every
// recipient is accepted or none is. It returns the number accepted.
func (s *NotificationService) SendBulk(ctx context.Context, req domain.BulkRequest) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	if err := s.validator.ValidatePayload(req.Type, req.Data); err != nil {
		return 0, err
	}

	now := s.now()
	notifications := make([]*domain.Notification, len(req.UserIDs))
	for i, userID := range req.UserIDs {
		notifications[i] = s.buildNotification(req.Request(userID), now)
	}

	if err := s.repo.CreateMany(ctx, notifications); err != nil {
		return 0, fmt.Errorf("persist bulk notifications: %w", err)
	}

	for _, n := range notifications {
		s.opts.OnAccepted(n.Channel, n.Priority)
		s.enqueue(ctx, n)
	}
	return len(notifications), nil
}

// ListForUser returns the user's newest notifications first, capped at
// repository.InboxLimit.
func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error) {
	if userID == "" {
		return nil, domain.ErrMissingUserID
	}
	return s.repo.ListByUser(ctx, userID, unreadOnly, repository.InboxLimit)
}

// MarkRead stamps the read time. Marking an already-read record is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, id string) error {
	return s.repo.MarkRead(ctx, id, s.now())
}

// ---- private helpers ----

func (s *NotificationService) validate(req *domain.SendRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.validator.ValidatePayload(req.Type, req.Data)
}

func (s *NotificationService) buildNotification(req domain.SendRequest, now time.Time) *domain.Notification {
	data := req.Data
	if data == nil {
		data = domain.Payload{}
	}
	return &domain.Notification{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Type:      req.Type,
		Channel:   req.Channel,
		Data:      data,
		Priority:  req.Priority,
		Status:    domain.StatusPending,
		CreatedAt: now,
	}
}

// enqueue hands the record to the delivery queue. If that fails the record is
// already durable and stays pending; the recovery worker enqueues it later,
// so the caller still sees success.
func (s *NotificationService) enqueue(ctx context.Context, n *domain.Notification) {
	if err := s.q.Enqueue(ctx, domain.NewJob(n, s.opts.MaxAttempts)); err != nil {
		s.logger.Warn("enqueue failed: notification will remain pending until recovery",
			zap.String("id", n.ID), zap.Error(err))
	}
}
