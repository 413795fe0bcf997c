package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"meridianrx/galen/pkg/formulary"
)

// MemoryStore implements formulary.Store using in-memory storage.
// This is the default store and provides fast access with no
// persistence; all data is lost when the process exits.
//
// MemoryStore is safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	meds map[string]*formulary.Medication
}

// NewMemoryStore creates an empty in-memory formulary store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		meds: make(map[string]*formulary.Medication),
	}
}

// Put persists a medication, replacing any entry with the same ID.
func (m *MemoryStore) Put(ctx context.Context, med *formulary.Medication) error {
	if err := med.Validate(); err != nil {
		return err
	}

	stored := *med
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.meds[stored.ID] = &stored
	return nil
}

// Get retrieves a medication by ID. Returns nil if no entry exists.
func (m *MemoryStore) Get(ctx context.Context, id string) (*formulary.Medication, error) {
	if id == "" {
		return nil, fmt.Errorf("medication id cannot be empty")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	med, ok := m.meds[id]
	if !ok {
		return nil, nil
	}
	copied := *med
	return &copied, nil
}

// Delete removes a medication by ID. No-op if the entry doesn't exist.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("medication id cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.meds, id)
	return nil
}

// List returns every medication, sorted by ID.
func (m *MemoryStore) List(ctx context.Context) ([]*formulary.Medication, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*formulary.Medication, 0, len(m.meds))
	for _, med := range m.meds {
		copied := *med
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close releases resources. For the memory store it is a no-op kept
// for interface symmetry.
func (m *MemoryStore) Close() error {
	return nil
}
