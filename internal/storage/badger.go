package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v3"

	"github.com/yndnr/tunnelmgr/internal/core/domain"
	"github.com/yndnr/tunnelmgr/internal/storage/snapshot"
)

// registryKey holds the whole registry blob.
var registryKey = []byte("tunnelmgr/registry")

// BadgerStore keeps the registry as one value in a Badger database.
type BadgerStore struct {
	db      *badger.DB
	backups *snapshot.Manager
	logger  *slog.Logger
}

// NewBadgerStore opens (or creates) the database in dir.
func NewBadgerStore(dir string, backups *snapshot.Manager, logger *slog.Logger) (*BadgerStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "badger-store")

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("badger: create dir: %w", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = &badgerLogger{logger: logger}
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	logger.Debug("badger store opened", "dir", dir)
	return &BadgerStore{db: db, backups: backups, logger: logger}, nil
}

// Load implements Store.
func (s *BadgerStore) Load(ctx context.Context) (map[uint64]*domain.TunnelDefinition, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(registryKey)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return make(map[uint64]*domain.TunnelDefinition), nil
	}
	if err != nil {
		return nil, domain.ErrCorruptStore.WithCause(err)
	}
	return Decode(data, s.logger)
}

// Save implements Store. The read of the previous value and the write of
// the new one share a single transaction.
func (s *BadgerStore) Save(ctx context.Context, defs map[uint64]*domain.TunnelDefinition) error {
	data, err := Encode(defs, false)
	if err != nil {
		return domain.ErrWriteError.WithCause(err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(registryKey)
		switch {
		case err == nil:
			prev, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !bytes.Equal(prev, data) {
				backupPrevious(s.backups, prev, s.logger)
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(registryKey, data)
	})
	if err != nil {
		return domain.ErrWriteError.WithCause(err)
	}
	return nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return nil
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
// Badger's info chatter is demoted to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
