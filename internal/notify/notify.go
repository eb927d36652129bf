// Package notify delivers mismatch alerts to the configured channels.
// Delivery is best-effort: the comparison outcome is already decided when a
// notification goes out, so send failures never abort the run.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"ipwatch/internal/config"

	"go.uber.org/zap"
)

// Event carries the outcome of a check that requires a notification.
type Event struct {
	Mode       string    // "dns" or "change"
	Hostname   string    // host running the check
	Domain     string    // dns mode: the reference domain
	Records    []string  // dns mode: the expected A-record set
	PreviousIP string    // change mode: the saved value
	CurrentIP  string    // the fetched external IP
	Timestamp  time.Time
}

// Title returns a short subject line for the event
func (e *Event) Title() string {
	if e.Mode == config.ModeDNS {
		return "External IP mismatch"
	}
	return "External IP has changed"
}

// Message returns the notification body
func (e *Event) Message() string {
	if e.Mode == config.ModeDNS {
		return fmt.Sprintf("URL = %s\nExternal IP = %s\nA-records = %s",
			e.Domain, e.CurrentIP, strings.Join(e.Records, ", "))
	}
	return fmt.Sprintf("External IP has changed!\nPrevious IP = %s\nCurrent IP = %s",
		e.PreviousIP, e.CurrentIP)
}

// Notifier represents a notification channel
type Notifier interface {
	// Name returns the channel name
	Name() string

	// Notify sends the event to the channel
	Notify(ctx context.Context, event *Event) error
}

// Manager fans an event out to all enabled channels.
type Manager struct {
	notifiers []Notifier
	logger    *zap.Logger
}

// NewManager creates a new notification manager
func NewManager(cfg *config.NotifyConfig, logger *zap.Logger) *Manager {
	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:    10,
			IdleConnTimeout: 90 * time.Second,
		},
	}

	m := &Manager{
		logger: logger,
	}

	if cfg.Pushover.Enabled {
		m.notifiers = append(m.notifiers, NewPushoverNotifier(&cfg.Pushover, client, logger))
	}
	if cfg.Telegram.Enabled {
		m.notifiers = append(m.notifiers, NewTelegramNotifier(&cfg.Telegram, client, logger))
	}
	if cfg.Webhook.Enabled {
		m.notifiers = append(m.notifiers, NewWebhookNotifier(&cfg.Webhook, client, logger))
	}

	return m
}

// Enabled reports whether any channel is configured
func (m *Manager) Enabled() bool {
	return len(m.notifiers) > 0
}

// Notify sends the event to every channel, joining per-channel failures
func (m *Manager) Notify(ctx context.Context, event *Event) error {
	if event.Hostname == "" {
		if hostname, err := os.Hostname(); err == nil {
			event.Hostname = hostname
		} else {
			event.Hostname = "unknown"
		}
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, event); err != nil {
			m.logger.Warn("Failed to send notification",
				zap.String("channel", n.Name()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s notification failed: %w", n.Name(), err))
			continue
		}

		m.logger.Info("Notification sent",
			zap.String("channel", n.Name()),
			zap.String("title", event.Title()))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}
