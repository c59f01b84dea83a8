package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ricirt/meeting-notifier/internal/domain"
)

// MockNotificationRepository is a hand-written, in-memory implementation of
// NotificationRepository used in unit tests. No mock-generation library needed.
type MockNotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*domain.Notification

	// Optional error overrides, set in tests to simulate failure paths.
	CreateErr        error
	CreateManyErr    error
	GetByIDErr       error
	ListErr          error
	MarkDeliveredErr error
	MarkFailedErr    error
}

func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{
		notifications: make(map[string]*domain.Notification),
	}
}

func (m *MockNotificationRepository) Create(_ context.Context, n *domain.Notification) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *n
	m.notifications[n.ID] = &clone
	return nil
}

func (m *MockNotificationRepository) CreateMany(_ context.Context, notifications []*domain.Notification) error {
	if m.CreateManyErr != nil {
		return m.CreateManyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range notifications {
		clone := *n
		m.notifications[n.ID] = &clone
	}
	return nil
}

func (m *MockNotificationRepository) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *n
	return &clone, nil
}

func (m *MockNotificationRepository) ListByUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	if limit <= 0 || limit > InboxLimit {
		limit = InboxLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := []*domain.Notification{}
	for _, n := range m.notifications {
		if n.UserID != userID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		clone := *n
		result = append(result, &clone)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockNotificationRepository) MarkDelivered(_ context.Context, id string, deliveredAt time.Time, attempts int) error {
	if m.MarkDeliveredErr != nil {
		return m.MarkDeliveredErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.pendingLocked(id)
	if err != nil {
		return err
	}
	n.Status = domain.StatusDelivered
	n.DeliveredAt = &deliveredAt
	n.Attempts = attempts
	n.LastError = nil
	return nil
}

func (m *MockNotificationRepository) MarkFailed(_ context.Context, id, reason string, attempts int) error {
	if m.MarkFailedErr != nil {
		return m.MarkFailedErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.pendingLocked(id)
	if err != nil {
		return err
	}
	n.Status = domain.StatusFailed
	n.LastError = &reason
	n.Attempts = attempts
	return nil
}

func (m *MockNotificationRepository) pendingLocked(id string) (*domain.Notification, error) {
	n, ok := m.notifications[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if n.Status != domain.StatusPending {
		return nil, domain.ErrAlreadySettled
	}
	return n, nil
}

func (m *MockNotificationRepository) MarkRead(_ context.Context, id string, readAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return domain.ErrNotFound
	}
	if n.ReadAt == nil {
		n.ReadAt = &readAt
	}
	return nil
}

func (m *MockNotificationRepository) FindStalePending(_ context.Context, createdBefore time.Time, limit int) ([]*domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Notification
	for _, n := range m.notifications {
		if n.Status == domain.StatusPending && !n.CreatedAt.After(createdBefore) {
			clone := *n
			result = append(result, &clone)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Len returns how many records are stored.
func (m *MockNotificationRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notifications)
}

var _ NotificationRepository = (*MockNotificationRepository)(nil)
