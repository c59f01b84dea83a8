package sender

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/ricirt/meeting-notifier/internal/domain"
	"github.com/ricirt/meeting-notifier/internal/templates"
)

// PushMessage is the device-facing content of a push notification.
type PushMessage struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// PushTransport delivers a message to one device token.
type PushTransport interface {
	Push(ctx context.Context, token string, msg PushMessage) error
}

type PushSender struct {
	transport PushTransport
	templates *templates.Registry
}

func NewPushSender(t PushTransport, reg *templates.Registry) *PushSender {
	return &PushSender{transport: t, templates: reg}
}

func (s *PushSender) Channel() domain.Channel { return domain.ChannelPush }

func (s *PushSender) Send(ctx context.Context, c domain.Contact, job *domain.Job) error {
	data := map[string]string{
		"notificationId": job.NotificationID,
		"type":           string(job.Type),
	}
	for k := range job.Data {
		data[k] = job.Data.String(k)
	}
	return s.transport.Push(ctx, c.PushToken, PushMessage{
		Title: s.templates.Subject(job.Type),
		Body:  s.templates.SMS(job.Type, job.Data),
		Data:  data,
	})
}

// SNSPushTransport publishes to an SNS platform endpoint. The device token
// stored for a user is the endpoint ARN.
type SNSPushTransport struct {
	client SNSService
}

func NewSNSPushTransport(client SNSService) *SNSPushTransport {
	return &SNSPushTransport{client: client}
}

func (t *SNSPushTransport) Push(ctx context.Context, token string, msg PushMessage) error {
	body, err := snsPushBody(msg)
	if err != nil {
		return err
	}
	_, err = t.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        aws.String(token),
		Message:          aws.String(body),
		MessageStructure: aws.String("json"),
	})
	if err != nil {
		return transportErr("sns publish push", err)
	}
	return nil
}

// snsPushBody builds the per-platform JSON envelope SNS expects when
// MessageStructure is "json".
func snsPushBody(msg PushMessage) (string, error) {
	gcm, err := json.Marshal(map[string]any{
		"notification": map[string]string{"title": msg.Title, "body": msg.Body},
		"data":         msg.Data,
	})
	if err != nil {
		return "", fmt.Errorf("marshal gcm payload: %w", err)
	}
	apnsPayload := map[string]any{
		"aps": map[string]any{"alert": map[string]string{"title": msg.Title, "body": msg.Body}},
	}
	for k, v := range msg.Data {
		apnsPayload[k] = v
	}
	apns, err := json.Marshal(apnsPayload)
	if err != nil {
		return "", fmt.Errorf("marshal apns payload: %w", err)
	}

	out, err := json.Marshal(map[string]string{
		"default":      msg.Body,
		"GCM":          string(gcm),
		"APNS":         string(apns),
		"APNS_SANDBOX": string(apns),
	})
	if err != nil {
		return "", fmt.Errorf("marshal push envelope: %w", err)
	}
	return string(out), nil
}

var (
	_ Sender        = (*PushSender)(nil)
	_ PushTransport = (*SNSPushTransport)(nil)
)
