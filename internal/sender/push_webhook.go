package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// webhookPushRequest is the JSON body posted to the push gateway.
type webhookPushRequest struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// WebhookPushTransport delivers push messages by POSTing to an HTTP push
// gateway. The base URL is injected from config so tests can point to a
// local server.
type WebhookPushTransport struct {
	baseURL    string
	httpClient *http.Client
}

func NewWebhookPushTransport(baseURL string, timeout time.Duration) *WebhookPushTransport {
	return &WebhookPushTransport{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Push expects any 2xx response from the gateway.
func (t *WebhookPushTransport) Push(ctx context.Context, token string, msg PushMessage) error {
	body, err := json.Marshal(webhookPushRequest{
		To:    token,
		Title: msg.Title,
		Body:  msg.Body,
		Data:  msg.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return transportErr("push gateway", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return transportErr("push gateway", fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}
	return nil
}

// compile-time check that WebhookPushTransport implements PushTransport
var _ PushTransport = (*WebhookPushTransport)(nil)
