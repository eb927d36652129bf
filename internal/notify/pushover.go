package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"ipwatch/internal/config"

	"go.uber.org/zap"
)

// PushoverNotifier sends push notifications via the Pushover API.
type PushoverNotifier struct {
	config *config.PushoverConfig
	client *http.Client
	logger *zap.Logger
}

// pushoverResponse represents a Pushover API response
type pushoverResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors,omitempty"`
}

// NewPushoverNotifier creates a new Pushover notifier
func NewPushoverNotifier(cfg *config.PushoverConfig, client *http.Client, logger *zap.Logger) *PushoverNotifier {
	return &PushoverNotifier{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// Name returns the channel name
func (n *PushoverNotifier) Name() string {
	return "pushover"
}

// Notify sends the event as a Pushover message
func (n *PushoverNotifier) Notify(ctx context.Context, event *Event) error {
	form := url.Values{}
	form.Set("token", n.config.Token)
	form.Set("user", n.config.UserKey)
	form.Set("title", event.Title())
	form.Set("message", event.Message())
	if n.config.Sound != "" {
		form.Set("sound", n.config.Sound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.APIURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			n.logger.Error("Failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	var result pushoverResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || result.Status != 1 {
		if len(result.Errors) > 0 {
			return fmt.Errorf("pushover API error (status %d): %s",
				resp.StatusCode, strings.Join(result.Errors, "; "))
		}
		return fmt.Errorf("pushover API returned status %d", resp.StatusCode)
	}

	return nil
}
