// Package audit writes the tunnelmgr audit trail.
//
// Each state-changing registry operation and each terminal connection
// attempt produces exactly one JSON line. The file is append-only and
// rotated by size; rotation renames the active file and never truncates it.
package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/juju/lumberjack/v2"

	"github.com/yndnr/tunnelmgr/internal/core/domain"
	"github.com/yndnr/tunnelmgr/internal/telemetry/logger"
)

// Operation names written to the "op" field.
const (
	OpAdd     = "add"
	OpRemove  = "remove"
	OpImport  = "import"
	OpExport  = "export"
	OpRestore = "restore"
	OpLoad    = "load"
	OpConnect = "connect"
)

// Outcomes written to the "outcome" field.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Event is one audit record.
type Event struct {
	Op        string
	TunnelID  uint64
	Hostname  string
	Outcome   string
	Err       error
	AttemptID string
	// Count is set for bulk operations (import, restore, load).
	Count int
}

// Trail records audit events.
type Trail interface {
	Record(ctx context.Context, ev Event)
	Close() error
}

// Config configures the file-backed trail.
type Config struct {
	// File is the audit log path. Empty means the trail is discarded.
	File       string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// Logger is a Trail writing JSON lines through a structured logger.
type Logger struct {
	mu     sync.Mutex
	log    logger.Logger
	closer io.Closer
}

// Open opens the audit file. Failing to open it is the one error tunnelmgr
// treats as fatal at startup, so Open probes the file before returning.
func Open(cfg Config) (*Logger, error) {
	if cfg.File == "" {
		return New(io.Discard, nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return nil, fmt.Errorf("audit: create dir: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", cfg.File, err)
	}
	f.Close()

	lj := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
	return New(lj, lj), nil
}

// New returns a trail writing to w. closer, if not nil, is closed by Close.
func New(w io.Writer, closer io.Closer) *Logger {
	// The trail keeps its own level so runtime log level changes never
	// silence it.
	lv := new(slog.LevelVar)
	l, _ := logger.New(logger.Config{
		Level:    "info",
		Format:   "json",
		Output:   w,
		LevelVar: lv,
	})
	return &Logger{log: l, closer: closer}
}

// Record writes ev as one line.
func (a *Logger) Record(ctx context.Context, ev Event) {
	outcome := ev.Outcome
	if outcome == "" {
		outcome = OutcomeOK
		if ev.Err != nil {
			outcome = OutcomeFailed
		}
	}

	args := []any{
		"op", ev.Op,
		"tunnel_id", ev.TunnelID,
		"hostname", ev.Hostname,
		"outcome", outcome,
	}
	if ev.Err != nil {
		args = append(args, "error", ev.Err.Error())
		if code := domain.GetErrorCode(ev.Err); code != "" {
			args = append(args, "code", code)
		}
	}
	if ev.AttemptID != "" {
		args = append(args, "attempt_id", ev.AttemptID)
	}
	if ev.Count > 0 {
		args = append(args, "count", ev.Count)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.log.WithContext(ctx).Info("audit", args...)
}

// Close closes the underlying file.
func (a *Logger) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// Nop is a Trail that drops everything.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}
func (Nop) Close() error                  { return nil }
