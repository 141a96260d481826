// Package notify posts run outcomes to a chat webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const contentType = "application/json"

// Notifier delivers a plain-text message. Delivery is best effort: callers
// may log the returned error but must not change their behaviour because of it.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// payload is the body understood by Slack-style incoming webhooks
type payload struct {
	Text string `json:"text"`
}

// WebhookNotifier posts {"text": message} to a fixed URL, once, without retry
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier for url. A zero timeout means none.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient replaces the HTTP client
func (n *WebhookNotifier) SetHTTPClient(client *http.Client) {
	n.client = client
}

// Notify posts message to the webhook
func (n *WebhookNotifier) Notify(ctx context.Context, message string) error {
	body, err := json.Marshal(payload{Text: message})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification rejected: %s", resp.Status)
	}
	return nil
}

// NullNotifier discards all messages.
// Used when no webhook is configured.
type NullNotifier struct{}

// NewNullNotifier creates a new null notifier
func NewNullNotifier() *NullNotifier {
	return &NullNotifier{}
}

// Notify does nothing
func (n *NullNotifier) Notify(ctx context.Context, message string) error {
	return nil
}

// New returns a webhook notifier, or a null notifier when url is empty
func New(url string, timeout time.Duration) Notifier {
	if url == "" {
		return NewNullNotifier()
	}
	return NewWebhookNotifier(url, timeout)
}
