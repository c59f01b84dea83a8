package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ricirt/meeting-notifier/internal/domain"
)

const DefaultInAppTopic = "notifications"

// Publisher is satisfied by *redis.Client.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// InAppMessage is what subscribers of the in-app topic receive.
type InAppMessage struct {
	NotificationID string         `json:"notificationId"`
	UserID         string         `json:"userId"`
	Type           domain.Type    `json:"type"`
	Data           domain.Payload `json:"data"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// InAppSender publishes to a pub/sub topic. Delivery counts as done once
// the broker accepts the message, whether or not anyone is subscribed.
type InAppSender struct {
	pub   Publisher
	topic string
}

func NewInAppSender(pub Publisher, topic string) *InAppSender {
	if topic == "" {
		topic = DefaultInAppTopic
	}
	return &InAppSender{pub: pub, topic: topic}
}

func (s *InAppSender) Channel() domain.Channel { return domain.ChannelInApp }

func (s *InAppSender) Send(ctx context.Context, _ domain.Contact, job *domain.Job) error {
	body, err := json.Marshal(InAppMessage{
		NotificationID: job.NotificationID,
		UserID:         job.UserID,
		Type:           job.Type,
		Data:           job.Data,
		CreatedAt:      job.EnqueuedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal in-app message: %w", err)
	}
	if err := s.pub.Publish(ctx, s.topic, body).Err(); err != nil {
		return transportErr("redis publish", err)
	}
	return nil
}

var _ Sender = (*InAppSender)(nil)
