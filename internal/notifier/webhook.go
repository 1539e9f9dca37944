package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSink POSTs every event as JSON to a configured URL.
type WebhookSink struct {
	url        string
	httpClient *http.Client
}

// NewWebhookSink constructs a sink that posts to url.
func NewWebhookSink(url string) *WebhookSink {
	return &WebhookSink{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type webhookPayload struct {
	Kind   string `json:"kind"`
	Commit string `json:"commit,omitempty"`
	Name   string `json:"name,omitempty"`
	State  string `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// Notify posts event to the configured webhook URL.
func (s *WebhookSink) Notify(ctx context.Context, event Event) error {
	payload := webhookPayload{
		Kind:   string(event.Kind),
		Commit: event.Commit,
		Name:   event.Name,
		State:  string(event.State.Kind),
		Reason: event.State.Reason,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook sink: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("webhook sink: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook sink: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook sink: unexpected status %d", resp.StatusCode)
	}
	return nil
}
