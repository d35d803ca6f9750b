package service

import (
	"context"
	"errors"
	"sync"

	"github.com/yndnr/tunnelmgr/internal/audit"
	"github.com/yndnr/tunnelmgr/internal/core/domain"
	"github.com/yndnr/tunnelmgr/internal/storage"
)

// mockStore is an in-memory TunnelStore that round-trips through the
// storage codec, like the real backends.
type mockStore struct {
	data    []byte
	saves   int
	saveErr error
	loadErr error
}

func (m *mockStore) Load(ctx context.Context) (map[uint64]*domain.TunnelDefinition, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return storage.Decode(m.data, nil)
}

func (m *mockStore) Save(ctx context.Context, defs map[uint64]*domain.TunnelDefinition) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := storage.Encode(defs, false)
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

func (m *mockStore) stored() map[uint64]*domain.TunnelDefinition {
	defs, _ := storage.Decode(m.data, nil)
	return defs
}

// mockTrail records audit events.
type mockTrail struct {
	mu     sync.Mutex
	events []audit.Event
}

func (m *mockTrail) Record(ctx context.Context, ev audit.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

func (m *mockTrail) Close() error { return nil }

func (m *mockTrail) last() audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.events) == 0 {
		return audit.Event{}
	}
	return m.events[len(m.events)-1]
}

var errDisk = errors.New("disk full")
