package storage

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/yndnr/tunnelmgr/internal/core/domain"
	"github.com/yndnr/tunnelmgr/internal/storage/snapshot"
)

// FileStore keeps the registry in a single JSON file.
type FileStore struct {
	mu      sync.Mutex
	path    string
	backups *snapshot.Manager
	logger  *slog.Logger
}

// NewFileStore returns a store backed by path. The file is not touched
// until the first Load or Save.
func NewFileStore(path string, backups *snapshot.Manager, logger *slog.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: file path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		path:    path,
		backups: backups,
		logger:  logger.With("component", "file-store"),
	}, nil
}

// Path returns the registry file path.
func (s *FileStore) Path() string { return s.path }

// Load implements Store.
func (s *FileStore) Load(ctx context.Context) (map[uint64]*domain.TunnelDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug("registry file absent, starting empty", "path", s.path)
			return make(map[uint64]*domain.TunnelDefinition), nil
		}
		return nil, domain.ErrCorruptStore.WithDetails(s.path).WithCause(err)
	}

	defs, err := Decode(data, s.logger)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.path, err)
	}
	s.logger.Debug("registry loaded", "path", s.path, "tunnels", len(defs))
	return defs, nil
}

// Save implements Store. The new content is written to a temporary file in
// the same directory, synced, and renamed over the old file.
func (s *FileStore) Save(ctx context.Context, defs map[uint64]*domain.TunnelDefinition) error {
	data, err := Encode(defs, false)
	if err != nil {
		return domain.ErrWriteError.WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, err := os.ReadFile(s.path); err == nil && !bytes.Equal(prev, data) {
		backupPrevious(s.backups, prev, s.logger)
	}

	if err := WriteFileAtomic(s.path, data); err != nil {
		return domain.ErrWriteError.WithDetails(s.path).WithCause(err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

// WriteFileAtomic replaces path with data via a synced temporary file and a
// rename. Missing parent directories are created with mode 0700 and the file
// ends up with mode 0600.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
