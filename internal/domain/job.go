package domain

import "time"

// Job is the unit of work held by the delivery queue. It carries everything
// a worker needs to deliver, so the record store is only touched to settle.
type Job struct {
	// ID is the queue identity. It equals NotificationID when a record exists,
	// which makes re-enqueueing the same record a no-op.
	ID             string    `json:"id"`
	NotificationID string    `json:"notificationId,omitempty"`
	UserID         string    `json:"userId"`
	Type           Type      `json:"type"`
	Channel        Channel   `json:"channel"`
	Data           Payload   `json:"data,omitempty"`
	Priority       Priority  `json:"priority"`
	Attempt        int       `json:"attempt"`
	MaxAttempts    int       `json:"maxAttempts"`
	LastError      string    `json:"lastError,omitempty"`
	EnqueuedAt     time.Time `json:"enqueuedAt"`
}

// NewJob builds the first-attempt job for a persisted notification.
func NewJob(n *Notification, maxAttempts int) *Job {
	return &Job{
		ID:             n.ID,
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           n.Type,
		Channel:        n.Channel,
		Data:           n.Data,
		Priority:       n.Priority,
		Attempt:        1,
		MaxAttempts:    maxAttempts,
		EnqueuedAt:     time.Now().UTC(),
	}
}
