package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ipwatch/internal/config"
	"ipwatch/internal/version"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WebhookNotifier posts mismatch events to an operator-supplied endpoint.
type WebhookNotifier struct {
	config *config.WebhookConfig
	client *http.Client
	logger *zap.Logger
}

// webhookPayload represents the webhook payload structure
type webhookPayload struct {
	EventType string         `json:"event_type"`
	EventID   string         `json:"event_id"`
	Timestamp time.Time      `json:"timestamp"`
	Hostname  string         `json:"hostname,omitempty"`
	Data      map[string]any `json:"data"`
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(cfg *config.WebhookConfig, client *http.Client, logger *zap.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// Name returns the channel name
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// Notify posts the event as JSON
func (n *WebhookNotifier) Notify(ctx context.Context, event *Event) error {
	eventType := "ip.change"
	data := map[string]any{
		"mode":       event.Mode,
		"current_ip": event.CurrentIP,
	}

	if event.Mode == config.ModeDNS {
		eventType = "ip.mismatch"
		data["domain"] = event.Domain
		data["records"] = event.Records
	} else {
		data["previous_ip"] = event.PreviousIP
	}

	payload := webhookPayload{
		EventType: eventType,
		EventID:   uuid.NewString(),
		Timestamp: event.Timestamp,
		Hostname:  event.Hostname,
		Data:      data,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.URL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", config.AppName+"-webhook/"+version.GetInfo().Version)
	req.Header.Set("X-Ipwatch-Event", payload.EventType)
	req.Header.Set("X-Ipwatch-Delivery", payload.EventID)

	if n.config.Secret != "" {
		req.Header.Set("X-Ipwatch-Signature", calculateSignature(body, []byte(n.config.Secret)))
	}

	for k, v := range n.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			n.logger.Error("Failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook request failed with status %d", resp.StatusCode)
	}

	return nil
}

// calculateSignature calculates the HMAC-SHA256 payload signature
func calculateSignature(payload []byte, secret []byte) string {
	h := hmac.New(sha256.New, secret)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
