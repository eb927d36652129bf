package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore keeps the saved IP in an embedded database and records a
// history row for every observed change.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// Change represents a recorded IP change
type Change struct {
	OldIP     string    `json:"old_ip"`
	NewIP     string    `json:"new_ip"`
	ChangedAt time.Time `json:"changed_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS current_ip (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    ip         TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS ip_changes (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    old_ip     TEXT NOT NULL,
    new_ip     TEXT NOT NULL,
    changed_at TIMESTAMP NOT NULL
);`

// NewSQLiteStore opens or creates the database at path
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize state database: %w", err)
	}

	return s, nil
}

// init applies pragmas and creates the schema
func (s *SQLiteStore) init() error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"busy_timeout", "5000"},
	}

	for _, pragma := range pragmas {
		query := fmt.Sprintf("PRAGMA %s = %s", pragma.name, pragma.value)
		if _, err := s.db.ExecContext(context.Background(), query); err != nil {
			return fmt.Errorf("failed to set %s: %w", pragma.name, err)
		}
	}

	if _, err := s.db.ExecContext(context.Background(), schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Load returns the saved IP, or ErrNoSavedIP when no row exists
func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	var ip string
	err := s.db.QueryRowContext(ctx, `SELECT ip FROM current_ip WHERE id = 1`).Scan(&ip)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNoSavedIP
		}
		return "", fmt.Errorf("failed to load saved IP: %w", err)
	}
	return ip, nil
}

// Save upserts the current IP and appends a history row when the value changed
func (s *SQLiteStore) Save(ctx context.Context, ip string) error {
	prev, err := s.Load(ctx)
	if err != nil && !errors.Is(err, ErrNoSavedIP) {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
        INSERT INTO current_ip (id, ip, updated_at) VALUES (1, ?, ?)
        ON CONFLICT(id) DO UPDATE SET ip = excluded.ip, updated_at = excluded.updated_at`,
		ip, now)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to save IP: %w", err)
	}

	if prev != "" && prev != ip {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ip_changes (old_ip, new_ip, changed_at) VALUES (?, ?, ?)`,
			prev, ip, now)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record IP change: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("Saved external IP",
		zap.String("ip", ip),
		zap.String("previous", prev))

	return nil
}

// RecentChanges returns up to limit recorded changes, newest first
func (s *SQLiteStore) RecentChanges(ctx context.Context, limit int) ([]*Change, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT old_ip, new_ip, changed_at
        FROM ip_changes
        ORDER BY changed_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query IP changes: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("Failed to close rows", zap.Error(err))
		}
	}()

	var changes []*Change
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.OldIP, &c.NewIP, &c.ChangedAt); err != nil {
			return nil, fmt.Errorf("failed to scan IP change: %w", err)
		}
		changes = append(changes, &c)
	}

	return changes, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
