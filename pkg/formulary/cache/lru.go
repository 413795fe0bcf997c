package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"meridianrx/galen/pkg/formulary"
)

// DefaultSize is the cache capacity used when none is configured.
const DefaultSize = 1024

// Store wraps an underlying formulary.Store with an LRU read cache.
// Misses are not cached, so a medication added out of band becomes
// visible on its next read.
type Store struct {
	inner formulary.Store
	cache *lru.Cache[string, *formulary.Medication]

	hits   atomic.Int64
	misses atomic.Int64
}

// New wraps a store with an LRU cache of the given capacity. A
// non-positive size uses DefaultSize.
func New(inner formulary.Store, size int) (*Store, error) {
	if inner == nil {
		return nil, fmt.Errorf("inner store cannot be nil")
	}
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[string, *formulary.Medication](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &Store{inner: inner, cache: c}, nil
}

// Get retrieves a medication, serving repeated reads from the cache.
func (s *Store) Get(ctx context.Context, id string) (*formulary.Medication, error) {
	if med, ok := s.cache.Get(id); ok {
		s.hits.Add(1)
		copied := *med
		return &copied, nil
	}
	s.misses.Add(1)

	med, err := s.inner.Get(ctx, id)
	if err != nil || med == nil {
		return med, err
	}
	s.cache.Add(id, med)
	copied := *med
	return &copied, nil
}

// Put writes through to the underlying store and refreshes the cached
// entry.
func (s *Store) Put(ctx context.Context, med *formulary.Medication) error {
	if err := s.inner.Put(ctx, med); err != nil {
		return err
	}
	stored := *med
	s.cache.Add(stored.ID, &stored)
	return nil
}

// Delete writes through to the underlying store and drops the cached
// entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.inner.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(id)
	return nil
}

// List delegates to the underlying store. Listings bypass the cache;
// they are rare compared to Gets and not worth keeping coherent.
func (s *Store) List(ctx context.Context) ([]*formulary.Medication, error) {
	return s.inner.List(ctx)
}

// Close purges the cache and closes the underlying store.
func (s *Store) Close() error {
	s.cache.Purge()
	return s.inner.Close()
}

// Stats reports cache effectiveness counters.
func (s *Store) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	return s.cache.Len()
}
