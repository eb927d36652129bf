// Package fetcher retrieves the caller's external IP address from public
// IP-echo services.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"ipwatch/internal/config"
	"ipwatch/internal/version"

	"go.uber.org/zap"
)

// maxBodySize bounds the response read; an IP address never needs more.
const maxBodySize = 64

// Fetcher queries external IP providers in configured order.
type Fetcher struct {
	providers []string
	client    *http.Client
	logger    *zap.Logger
}

// New creates a new Fetcher instance
func New(cfg *config.FetcherConfig, logger *zap.Logger) *Fetcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &Fetcher{
		providers: cfg.Providers,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		logger: logger,
	}
}

// Fetch returns the external IP address reported by the first provider that
// answers with a valid IP. Providers are tried strictly in order.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	if len(f.providers) == 0 {
		return "", fmt.Errorf("no providers configured")
	}

	var lastErr error
	for _, provider := range f.providers {
		ip, err := f.fetchFrom(ctx, provider)
		if err != nil {
			lastErr = err
			f.logger.Debug("Provider request failed",
				zap.String("provider", provider),
				zap.Error(err))
			continue
		}

		f.logger.Debug("Got external IP",
			zap.String("provider", provider),
			zap.String("ip", ip))
		return ip, nil
	}

	return "", fmt.Errorf("all providers failed, last error: %w", lastErr)
}

// fetchFrom fetches the external IP from a single provider
func (f *Fetcher) fetchFrom(ctx context.Context, provider string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, provider, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", config.AppName+"/"+version.GetInfo().Version)
	req.Header.Set("Accept", "text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			f.logger.Error("Failed to close response body", zap.Error(err))
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	ip := strings.TrimSpace(string(body))
	if net.ParseIP(ip) == nil {
		return "", fmt.Errorf("provider did not respond with a valid IP address: %q", ip)
	}

	return ip, nil
}
