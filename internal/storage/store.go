package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yndnr/tunnelmgr/internal/core/domain"
	"github.com/yndnr/tunnelmgr/internal/storage/snapshot"
)

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
)

// Store is durable storage for the whole registry.
type Store interface {
	// Load returns every stored definition. A store that was never written
	// yields an empty map and no error.
	Load(ctx context.Context) (map[uint64]*domain.TunnelDefinition, error)

	// Save replaces the stored registry with defs.
	Save(ctx context.Context, defs map[uint64]*domain.TunnelDefinition) error

	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Path is the JSON file for the file backend and the database
	// directory for the badger backend.
	Path string
	// Backups, when set, receives the previous content before each save.
	Backups *snapshot.Manager
	Logger  *slog.Logger
}

// Open opens the configured backend.
func Open(opts Options) (Store, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(opts.Path, opts.Backups, opts.Logger)
	case BackendBadger:
		return NewBadgerStore(opts.Path, opts.Backups, opts.Logger)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", opts.Backend)
	}
}

// backupPrevious hands prev to the backup manager and applies retention.
// Failures are logged; they never block the save that triggered them.
func backupPrevious(backups *snapshot.Manager, prev []byte, logger *slog.Logger) {
	if backups == nil || len(prev) == 0 {
		return
	}
	n := countRecords(prev)
	reason := "pre-save"
	if n < 0 {
		reason = "pre-save-unparseable"
		n = 0
	}
	info, err := backups.Create(prev, n, reason)
	if err != nil {
		logger.Warn("registry backup failed", "error", err)
		return
	}
	logger.Debug("registry backup written", "backup_id", info.ID, "tunnels", n)
	if err := backups.Prune(); err != nil {
		logger.Warn("registry backup prune failed", "error", err)
	}
}
