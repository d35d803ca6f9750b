package service

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"math"
	"os"
	"slices"

	"github.com/yndnr/tunnelmgr/internal/audit"
	"github.com/yndnr/tunnelmgr/internal/core/domain"
	"github.com/yndnr/tunnelmgr/internal/storage"
	"github.com/yndnr/tunnelmgr/internal/telemetry/logger"
	"github.com/yndnr/tunnelmgr/internal/telemetry/metric"
)

// TunnelStore is the durable storage the registry persists to.
// storage.FileStore and storage.BadgerStore implement it.
type TunnelStore interface {
	Load(ctx context.Context) (map[uint64]*domain.TunnelDefinition, error)
	Save(ctx context.Context, defs map[uint64]*domain.TunnelDefinition) error
}

// Registry is the set of tunnel definitions, keyed by id.
//
// Every mutation is persisted before it returns. When persisting fails
// the in-memory state is rolled back, so memory and storage never
// diverge.
type Registry struct {
	store   TunnelStore
	trail   audit.Trail
	metrics *metric.Registry
	log     logger.Logger

	tunnels map[uint64]*domain.TunnelDefinition
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithAuditTrail sets the audit trail. Defaults to discarding events.
func WithAuditTrail(t audit.Trail) RegistryOption {
	return func(r *Registry) { r.trail = t }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logger.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

// NewRegistry returns an empty registry backed by store. Call Load to
// populate it.
func NewRegistry(store TunnelStore, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:   store,
		trail:   audit.Nop{},
		log:     logger.Default(),
		tunnels: make(map[uint64]*domain.TunnelDefinition),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With("component", "registry")
	return r
}

// ============================================================================
// Persistence
// ============================================================================

// Load replaces the in-memory registry with the stored one.
//
// A store that was never written loads as empty. A store that cannot be
// parsed returns ErrCorruptStore and leaves the registry unchanged; the
// file itself is never reset.
func (r *Registry) Load(ctx context.Context) error {
	defs, err := r.store.Load(ctx)
	if err != nil {
		r.trail.Record(ctx, audit.Event{Op: audit.OpLoad, Err: err})
		return err
	}
	r.tunnels = defs
	r.metrics.SetTunnels(len(r.tunnels))
	r.log.Debug("registry loaded", "tunnels", len(r.tunnels))
	return nil
}

// Save persists the whole registry.
func (r *Registry) Save(ctx context.Context) error {
	err := r.store.Save(ctx, r.tunnels)
	r.metrics.ObserveSave(err)
	if err != nil {
		if !domain.IsDomainError(err, domain.ErrWriteError.Code) {
			err = domain.ErrWriteError.WithCause(err)
		}
		return err
	}
	r.metrics.SetTunnels(len(r.tunnels))
	return nil
}

// ============================================================================
// Mutations
// ============================================================================

// Add registers def and persists the registry.
func (r *Registry) Add(ctx context.Context, def *domain.TunnelDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if _, exists := r.tunnels[def.ID]; exists {
		err := domain.ErrDuplicateID.WithDetailsf("id %d", def.ID)
		r.trail.Record(ctx, audit.Event{Op: audit.OpAdd, TunnelID: def.ID, Hostname: def.Hostname, Err: err})
		return err
	}

	r.tunnels[def.ID] = def.Clone()
	if err := r.Save(ctx); err != nil {
		delete(r.tunnels, def.ID)
		r.trail.Record(ctx, audit.Event{Op: audit.OpAdd, TunnelID: def.ID, Hostname: def.Hostname, Err: err})
		return err
	}

	r.trail.Record(ctx, audit.Event{Op: audit.OpAdd, TunnelID: def.ID, Hostname: def.Hostname})
	r.log.Info("tunnel added", "tunnel_id", def.ID, "name", def.Name)
	return nil
}

// Remove deletes the tunnel with the given id, persists the registry and
// returns the removed definition.
func (r *Registry) Remove(ctx context.Context, id uint64) (*domain.TunnelDefinition, error) {
	def, ok := r.tunnels[id]
	if !ok {
		err := domain.ErrNotFound.WithDetailsf("id %d", id)
		r.trail.Record(ctx, audit.Event{Op: audit.OpRemove, TunnelID: id, Err: err})
		return nil, err
	}

	delete(r.tunnels, id)
	if err := r.Save(ctx); err != nil {
		r.tunnels[id] = def
		r.trail.Record(ctx, audit.Event{Op: audit.OpRemove, TunnelID: id, Hostname: def.Hostname, Err: err})
		return nil, err
	}

	r.trail.Record(ctx, audit.Event{Op: audit.OpRemove, TunnelID: id, Hostname: def.Hostname})
	r.log.Info("tunnel removed", "tunnel_id", id)
	return def.Clone(), nil
}

// Replace swaps the whole registry for defs and persists it. Used to
// restore a backup.
func (r *Registry) Replace(ctx context.Context, defs map[uint64]*domain.TunnelDefinition) error {
	prev := r.tunnels
	r.tunnels = cloneAll(defs)
	if err := r.Save(ctx); err != nil {
		r.tunnels = prev
		r.trail.Record(ctx, audit.Event{Op: audit.OpRestore, Err: err})
		return err
	}
	r.trail.Record(ctx, audit.Event{Op: audit.OpRestore, Count: len(defs)})
	return nil
}

// ============================================================================
// Queries
// ============================================================================

// Get returns a copy of the tunnel with the given id.
func (r *Registry) Get(id uint64) (*domain.TunnelDefinition, error) {
	def, ok := r.tunnels[id]
	if !ok {
		return nil, domain.ErrNotFound.WithDetailsf("id %d", id)
	}
	return def.Clone(), nil
}

// List yields every tunnel in no particular order. Yielded definitions
// are copies.
func (r *Registry) List() iter.Seq2[uint64, *domain.TunnelDefinition] {
	return func(yield func(uint64, *domain.TunnelDefinition) bool) {
		for id, def := range r.tunnels {
			if !yield(id, def.Clone()) {
				return
			}
		}
	}
}

// Len returns the number of registered tunnels.
func (r *Registry) Len() int {
	return len(r.tunnels)
}

// Sorted returns copies of every tunnel ordered by id.
func (r *Registry) Sorted() []*domain.TunnelDefinition {
	out := make([]*domain.TunnelDefinition, 0, len(r.tunnels))
	for _, id := range slices.Sorted(maps.Keys(r.tunnels)) {
		out = append(out, r.tunnels[id].Clone())
	}
	return out
}

// Search returns the tunnels whose name or hostname contains query,
// ordered by id. The match is case-sensitive. An empty result is not an
// error; the returned error is always nil.
func (r *Registry) Search(query string) ([]*domain.TunnelDefinition, error) {
	out := []*domain.TunnelDefinition{}
	for _, def := range r.Sorted() {
		if def.Matches(query) {
			out = append(out, def)
		}
	}
	return out, nil
}

// NextID returns one past the largest registered id. It fails with
// ErrInvalidArgument once the largest id is math.MaxUint64.
func (r *Registry) NextID() (uint64, error) {
	var max uint64
	for id := range r.tunnels {
		if id > max {
			max = id
		}
	}
	if max == math.MaxUint64 {
		return 0, domain.ErrInvalidArgument.WithDetails("no id left after the largest registered id; pass one explicitly")
	}
	return max + 1, nil
}

// ============================================================================
// Import / Export
// ============================================================================

// ImportFrom merges the definitions stored in path into the registry.
// Entries overwrite existing ones with the same id. Every entry must pass
// Validate, and the merged registry is persisted once; if either fails
// nothing is merged.
func (r *Registry) ImportFrom(ctx context.Context, path string) ([]*domain.TunnelDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = domain.ErrSourceNotFound.WithDetails(path).WithCause(err)
		r.trail.Record(ctx, audit.Event{Op: audit.OpImport, Err: err})
		return nil, err
	}

	imported, err := storage.Decode(data, logger.Slog(r.log))
	if err != nil {
		err = fmt.Errorf("import %s: %w", path, err)
		r.trail.Record(ctx, audit.Event{Op: audit.OpImport, Err: err})
		return nil, err
	}
	for _, id := range slices.Sorted(maps.Keys(imported)) {
		if err := imported[id].Validate(); err != nil {
			err = fmt.Errorf("import %s: tunnel %d: %w", path, id, err)
			r.trail.Record(ctx, audit.Event{Op: audit.OpImport, TunnelID: id, Err: err})
			return nil, err
		}
	}

	prev := cloneAll(r.tunnels)
	for id, def := range imported {
		r.tunnels[id] = def
	}
	if err := r.Save(ctx); err != nil {
		r.tunnels = prev
		r.trail.Record(ctx, audit.Event{Op: audit.OpImport, Err: err})
		return nil, err
	}

	out := make([]*domain.TunnelDefinition, 0, len(imported))
	for _, id := range slices.Sorted(maps.Keys(imported)) {
		def := imported[id]
		r.trail.Record(ctx, audit.Event{Op: audit.OpImport, TunnelID: id, Hostname: def.Hostname})
		out = append(out, def.Clone())
	}
	r.log.Info("tunnels imported", "path", path, "count", len(out))
	return out, nil
}

// ExportTo writes the registry to path in indented form.
func (r *Registry) ExportTo(ctx context.Context, path string) error {
	data, err := storage.Encode(r.tunnels, true)
	if err == nil {
		err = storage.WriteFileAtomic(path, data)
	}
	if err != nil {
		err = domain.ErrWriteError.WithDetails(path).WithCause(err)
		r.trail.Record(ctx, audit.Event{Op: audit.OpExport, Err: err})
		return err
	}
	r.trail.Record(ctx, audit.Event{Op: audit.OpExport, Count: len(r.tunnels)})
	return nil
}

func cloneAll(defs map[uint64]*domain.TunnelDefinition) map[uint64]*domain.TunnelDefinition {
	out := make(map[uint64]*domain.TunnelDefinition, len(defs))
	for id, def := range defs {
		out[id] = def.Clone()
	}
	return out
}
