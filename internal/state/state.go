// Package state persists the last observed external IP between runs.
package state

import (
	"context"
	"errors"
	"fmt"

	"ipwatch/internal/config"

	"go.uber.org/zap"
)

// ErrNoSavedIP is returned by Load when no previous value exists. This is the
// normal first-run condition, not a failure.
var ErrNoSavedIP = errors.New("no saved IP")

// Store reads and writes the saved-IP reference value.
type Store interface {
	// Load returns the previously saved IP, or ErrNoSavedIP on first run.
	Load(ctx context.Context) (string, error)

	// Save overwrites the saved IP with the given value.
	Save(ctx context.Context, ip string) error

	// Close releases any resources held by the store.
	Close() error
}

// New creates the store selected by the configuration
func New(cfg *config.StateConfig, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.Path, logger)
	case "file", "":
		return NewFileStore(cfg.Path, logger), nil
	default:
		return nil, fmt.Errorf("unknown state backend: %s", cfg.Backend)
	}
}
