// Package notify provides transports that carry rendered notifications to
// subscriber destinations.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// WriterTransport writes notifications to an io.Writer, one block per
// message. It is the default transport when no webhook is configured and
// doubles as the test transport.
type WriterTransport struct {
	mu sync.Mutex
	W  io.Writer
}

// Deliver writes the message prefixed with its destination id.
func (t *WriterTransport) Deliver(_ context.Context, dest int64, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.W, "--> %d\n%s\n\n", dest, text)
	return err
}

// WebhookTransport posts each notification as JSON to a fixed endpoint,
// which is expected to relay the text to the destination. Delivery is
// fire-and-forget from the core's point of view; a non-2xx response is
// reported as an error for logging only.
type WebhookTransport struct {
	Endpoint string
	Client   *http.Client
}

// NewWebhookTransport constructs a WebhookTransport for endpoint.
func NewWebhookTransport(endpoint string) *WebhookTransport {
	return &WebhookTransport{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Destination int64  `json:"destination"`
	Text        string `json:"text"`
}

// Deliver posts one message for one destination.
func (t *WebhookTransport) Deliver(ctx context.Context, dest int64, text string) error {
	body, err := json.Marshal(webhookPayload{Destination: dest, Text: text})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
