// Package registry records which remote node versions have been fully
// handled, so they are never transferred or deleted twice.
package registry

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// Store is the durable backing of a Registry.
type Store interface {
	// Load returns every persisted key. A store with no state yet returns
	// an empty slice and no error.
	Load() ([]Key, error)
	// Save durably records key alongside the full current set. Backends may
	// append or rewrite; the call must not return before the key is durable.
	Save(key Key, all []Key) error
	Close() error
}

type Registry struct {
	store Store
	keys  mapset.Set[Key]
	mu    sync.Mutex // serializes persist
}

// New loads all state from store.
func New(store Store) (*Registry, error) {
	keys, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("registry: load: %w", err)
	}

	slog.Debug("registry loaded", "entries", len(keys))
	return &Registry{
		store: store,
		keys:  mapset.NewSet(keys...),
	}, nil
}

// IsProcessed reports whether this exact version was marked.
func (r *Registry) IsProcessed(id, lastModified string) bool {
	return r.keys.Contains(NewKey(id, lastModified))
}

// MarkProcessed records the version and persists it before returning.
// Marking an already present key is a no-op.
func (r *Registry) MarkProcessed(id, lastModified string) error {
	key := NewKey(id, lastModified)

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.keys.Add(key) {
		return nil
	}

	if err := r.store.Save(key, r.sortedKeys()); err != nil {
		r.keys.Remove(key)
		return &PersistError{Key: key, Err: err}
	}

	slog.Debug("registry mark", "id", id, "lastModified", lastModified)
	return nil
}

// Keys returns a sorted snapshot of every processed key.
func (r *Registry) Keys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedKeys()
}

func (r *Registry) Len() int {
	return r.keys.Cardinality()
}

func (r *Registry) Close() error {
	return r.store.Close()
}

func (r *Registry) sortedKeys() []Key {
	keys := r.keys.ToSlice()
	slices.SortFunc(keys, func(a, b Key) int {
		return cmp.Or(cmp.Compare(a.ID, b.ID), cmp.Compare(a.LastModified, b.LastModified))
	})
	return keys
}
