package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// defaultWebhookTimeout bounds one delivery attempt when the caller's
// context has no earlier deadline.
const defaultWebhookTimeout = 10 * time.Second

// WebhookDispatcher POSTs notifications as JSON to a configured endpoint,
// typically a push-notification relay.
type WebhookDispatcher struct {
	// url is the webhook endpoint.
	url string
	// client is the HTTP client used for deliveries.
	client *http.Client
}

// NewWebhookDispatcher creates a dispatcher delivering to the given URL.
func NewWebhookDispatcher(url string) *WebhookDispatcher {
	return &WebhookDispatcher{
		url: url,
		client: &http.Client{
			Timeout: defaultWebhookTimeout,
		},
	}
}

// Send implements Dispatcher by POSTing the notification as a JSON body.
func (d *WebhookDispatcher) Send(ctx context.Context, notification Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("deliver notification: unexpected status %d", resp.StatusCode)
	}

	return nil
}
