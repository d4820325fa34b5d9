// Package memory provides an in-process store.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/golang/glog"

	"github.com/dshills/rxdata/internal/model"
	"github.com/dshills/rxdata/internal/store"
)

var _ store.Backend = (*Store)(nil)
var _ model.Syncer = (*Store)(nil)

// Store keeps records in memory.
type Store struct {
	mu   sync.RWMutex
	data store.Snapshot
}

// New creates an empty store.
func New() *Store {
	return &Store{data: store.Snapshot{}}
}

// Sync implements model.Syncer.
func (s *Store) Sync(ctx context.Context, op model.Operation, target model.Target, _ *model.Options) (any, error) {
	return store.Dispatch(ctx, "memory", s, op, target)
}

// List returns the records of resource ordered by id.
func (s *Store) List(ctx context.Context, resource string) ([]model.Attributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.data[resource]
	out := make([]model.Attributes, 0, len(items))
	for _, id := range slices.Sorted(maps.Keys(items)) {
		out = append(out, items[id].Clone())
	}
	return out, nil
}

// Get returns one record.
func (s *Store) Get(ctx context.Context, resource, id string) (model.Attributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	attrs, ok := s.data[resource][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return attrs.Clone(), nil
}

// Put creates or replaces a record.
func (s *Store) Put(ctx context.Context, resource, id string, attrs model.Attributes) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.data[resource]
	if !ok {
		items = make(map[string]model.Attributes)
		s.data[resource] = items
	}
	items[id] = attrs.Clone()
	glog.V(3).Infof("[memory]put %s/%s (%d keys)", resource, id, len(attrs))
	return nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, resource, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.data[resource]
	if _, ok := items[id]; !ok {
		return store.ErrNotFound
	}
	delete(items, id)
	if len(items) == 0 {
		delete(s.data, resource)
	}
	return nil
}

// Resources returns the names of the non-empty resources in sorted order.
func (s *Store) Resources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data))
}

// Export returns a copy of the whole store.
func (s *Store) Export() store.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// ExportResource returns a copy of the records of one resource keyed by id.
func (s *Store) ExportResource(resource string) map[string]model.Attributes {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.data[resource]
	out := make(map[string]model.Attributes, len(items))
	for id, attrs := range items {
		out[id] = attrs.Clone()
	}
	return out
}

// Import replaces the whole store with a copy of snap.
func (s *Store) Import(snap store.Snapshot) {
	cp := snap.Clone()
	s.mu.Lock()
	s.data = cp
	s.mu.Unlock()
}
