// Package checker runs the one-shot check-and-notify pass: fetch the external
// IP, compare it against the reference (DNS A-records or the saved value),
// and alert on mismatch.
package checker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ipwatch/internal/config"
	"ipwatch/internal/fetcher"
	"ipwatch/internal/notify"
	"ipwatch/internal/resolver"
	"ipwatch/internal/state"

	"go.uber.org/zap"
)

// IPFetcher fetches the caller's external IP.
type IPFetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// RecordResolver resolves the reference domain's A-records.
type RecordResolver interface {
	Resolve(ctx context.Context, host string) ([]string, error)
}

// Sender delivers mismatch notifications.
type Sender interface {
	Notify(ctx context.Context, event *notify.Event) error
	Enabled() bool
}

// Result reports the outcome of a single run.
type Result struct {
	Mode      string   `json:"mode"`
	CurrentIP string   `json:"current_ip"`
	Reference []string `json:"reference,omitempty"` // A-record set or the single saved IP
	InSync    bool     `json:"in_sync"`
	FirstRun  bool     `json:"first_run,omitempty"`
}

// Checker orchestrates one check pass.
type Checker struct {
	cfg      *config.Config
	logger   *zap.Logger
	fetcher  IPFetcher
	resolver RecordResolver
	store    state.Store
	notifier Sender
}

// New creates a Checker from explicit collaborators
func New(cfg *config.Config, logger *zap.Logger, f IPFetcher, r RecordResolver, s state.Store, n Sender) *Checker {
	return &Checker{
		cfg:      cfg,
		logger:   logger,
		fetcher:  f,
		resolver: r,
		store:    s,
		notifier: n,
	}
}

// Build wires a Checker with the real fetcher, resolver, store and notifiers
func Build(cfg *config.Config, logger *zap.Logger) (*Checker, error) {
	var store state.Store
	if cfg.Mode == config.ModeChange {
		var err error
		store, err = state.New(&cfg.State, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize state store: %w", err)
		}
	}

	return New(cfg, logger,
		fetcher.New(&cfg.Fetcher, logger),
		resolver.New(&cfg.DNS, logger),
		store,
		notify.NewManager(&cfg.Notify, logger),
	), nil
}

// Close releases the state store
func (c *Checker) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

// Run performs a single check pass
func (c *Checker) Run(ctx context.Context) (*Result, error) {
	currentIP, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	c.logger.Debug("Fetched external IP", zap.String("ip", currentIP))

	switch c.cfg.Mode {
	case config.ModeDNS:
		return c.runDNS(ctx, currentIP)
	case config.ModeChange:
		return c.runChange(ctx, currentIP)
	default:
		return nil, fmt.Errorf("unknown mode: %s", c.cfg.Mode)
	}
}

// runDNS compares the current IP against the domain's A-record set
func (c *Checker) runDNS(ctx context.Context, currentIP string) (*Result, error) {
	domain := c.cfg.DNS.Domain

	records, err := c.resolver.Resolve(ctx, domain)
	if err != nil {
		return nil, &ResolutionError{Domain: domain, Err: err}
	}

	result := &Result{
		Mode:      config.ModeDNS,
		CurrentIP: currentIP,
		Reference: records,
	}

	// In sync if the current IP appears anywhere in the record set
	for _, record := range records {
		if record == currentIP {
			result.InSync = true
			c.logger.Info(fmt.Sprintf("Match! - URL=%s - External IP=%s - A-record=%s",
				domain, currentIP, record))
			return result, nil
		}
	}

	c.logger.Error(fmt.Sprintf("Mismatch! - URL=%s - External IP=%s - A-records=%v",
		domain, currentIP, records))

	c.sendNotification(ctx, &notify.Event{
		Mode:      config.ModeDNS,
		Domain:    domain,
		Records:   records,
		CurrentIP: currentIP,
		Timestamp: time.Now(),
	})

	return result, nil
}

// runChange compares the current IP against the previously saved value
func (c *Checker) runChange(ctx context.Context, currentIP string) (*Result, error) {
	result := &Result{
		Mode:      config.ModeChange,
		CurrentIP: currentIP,
	}

	savedIP, err := c.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, state.ErrNoSavedIP) {
			return nil, &StorageError{Op: "load", Err: err}
		}

		// First run: persist and exit without notifying
		if err := c.store.Save(ctx, currentIP); err != nil {
			return nil, &StorageError{Op: "save", Err: err}
		}

		c.logger.Info("No previous value, external IP saved",
			zap.String("ip", currentIP))

		result.InSync = true
		result.FirstRun = true
		return result, nil
	}

	result.Reference = []string{savedIP}

	if savedIP == currentIP {
		result.InSync = true
		c.logger.Info(fmt.Sprintf("Match! - Previous IP=%s - Current IP=%s",
			savedIP, currentIP))
		return result, nil
	}

	c.logger.Error(fmt.Sprintf("Mismatch! - Previous IP=%s - Current IP=%s",
		savedIP, currentIP))

	c.sendNotification(ctx, &notify.Event{
		Mode:       config.ModeChange,
		PreviousIP: savedIP,
		CurrentIP:  currentIP,
		Timestamp:  time.Now(),
	})

	// Persist the new IP regardless of notifier outcome
	if err := c.store.Save(ctx, currentIP); err != nil {
		return nil, &StorageError{Op: "save", Err: err}
	}

	return result, nil
}

// sendNotification delivers the event best-effort
func (c *Checker) sendNotification(ctx context.Context, event *notify.Event) {
	if !c.notifier.Enabled() {
		c.logger.Warn("No notification channels configured")
		return
	}

	if err := c.notifier.Notify(ctx, event); err != nil {
		nerr := &NotificationError{Err: err}
		c.logger.Warn("Notification delivery incomplete", zap.Error(nerr))
	}
}
