package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FileStore keeps the saved IP in a single-line text file.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a new FileStore instance
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
	}
}

// Load returns the saved IP, or ErrNoSavedIP when the file is absent
func (s *FileStore) Load(_ context.Context) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoSavedIP
		}
		return "", fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	// The file holds at most one IP on its first line
	ip, _, _ := strings.Cut(string(data), "\n")
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return "", ErrNoSavedIP
	}

	return ip, nil
}

// Save writes the IP via a temporary file and rename
func (s *FileStore) Save(_ context.Context, ip string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmpFile := s.path + ".tmp"
	if err := os.WriteFile(tmpFile, []byte(ip+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}

	if err := os.Rename(tmpFile, s.path); err != nil {
		return fmt.Errorf("failed to save state file: %w", err)
	}

	s.logger.Debug("Saved external IP",
		zap.String("ip", ip),
		zap.String("path", s.path))

	return nil
}

// Close implements Store
func (s *FileStore) Close() error {
	return nil
}
