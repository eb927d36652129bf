// Package resolver looks up DNS A-records for the reference domain.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"ipwatch/internal/config"

	"go.uber.org/zap"
)

// Resolver performs bounded A-record lookups.
type Resolver struct {
	resolver *net.Resolver
	timeout  time.Duration
	logger   *zap.Logger
}

// New creates a new Resolver instance. When cfg.Nameserver is set, queries go
// to that server instead of the system resolver.
func New(cfg *config.DNSConfig, logger *zap.Logger) *Resolver {
	r := net.DefaultResolver

	if cfg.Nameserver != "" {
		nameserver := cfg.Nameserver
		if _, _, err := net.SplitHostPort(nameserver); err != nil {
			nameserver = net.JoinHostPort(nameserver, "53")
		}

		r = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				d := net.Dialer{Timeout: cfg.Timeout}
				return d.DialContext(ctx, network, nameserver)
			},
		}
	}

	return &Resolver{
		resolver: r,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// Resolve returns the IPv4 addresses of the host's A-records.
func (r *Resolver) Resolve(ctx context.Context, host string) ([]string, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ips, err := r.resolver.LookupIP(lookupCtx, "ip4", host)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, fmt.Errorf("domain %s does not exist: %w", host, err)
		}
		return nil, fmt.Errorf("DNS resolution failed for %s: %w", host, err)
	}

	if len(ips) == 0 {
		return nil, fmt.Errorf("no A records found for %s", host)
	}

	records := make([]string, 0, len(ips))
	for _, ip := range ips {
		records = append(records, ip.String())
	}

	r.logger.Debug("Resolved A-records",
		zap.String("domain", host),
		zap.Strings("records", records))

	return records, nil
}
