package storage

import (
	"context"
	"sort"
	"sync"

	"meridianrx/galen/pkg/audit"
)

// MemoryStorage implements the Storage interface using an in-memory map.
// It is intended for tests and ephemeral deployments; records do not
// survive a restart.
type MemoryStorage struct {
	records map[string]*audit.ConversionRecord
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*audit.ConversionRecord),
	}
}

// Store persists a conversion record to memory.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.ConversionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Create a copy to avoid mutation
	recordCopy := *record
	s.records[record.ID] = &recordCopy

	return nil
}

// Query retrieves conversion records matching the query filters.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.ConversionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*audit.ConversionRecord

	for _, record := range s.records {
		if s.matchesQuery(record, query) {
			// Create a copy to avoid mutation
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}

	sortRecords(results, query.SortBy, query.SortOrder)

	// Apply pagination
	start := query.Offset
	if start > len(results) {
		return []*audit.ConversionRecord{}, nil
	}

	end := start + query.Limit
	if end > len(results) {
		end = len(results)
	}

	if query.Limit > 0 {
		results = results[start:end]
	}

	return results, nil
}

// QueryStream returns a channel of conversion records for
// memory-efficient streaming. The channels are closed when the query
// completes or errors.
func (s *MemoryStorage) QueryStream(ctx context.Context, query *audit.Query) (<-chan *audit.ConversionRecord, <-chan error, error) {
	recordsCh := make(chan *audit.ConversionRecord, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		// Snapshot the matching records under the lock, then stream
		// without holding it.
		s.mu.RLock()
		var matched []*audit.ConversionRecord
		for _, record := range s.records {
			if s.matchesQuery(record, query) {
				recordCopy := *record
				matched = append(matched, &recordCopy)
			}
		}
		s.mu.RUnlock()

		sortRecords(matched, query.SortBy, query.SortOrder)

		count := 0
		for _, record := range matched {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			default:
			}

			if count < query.Offset {
				count++
				continue
			}
			if query.Limit > 0 && count >= query.Offset+query.Limit {
				break
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
				count++
			}
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of conversion records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64

	for _, record := range s.records {
		if s.matchesQuery(record, query) {
			count++
		}
	}

	return count, nil
}

// Delete removes conversion records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64

	toDelete := []string{}
	for id, record := range s.records {
		if s.matchesQuery(record, query) {
			toDelete = append(toDelete, id)
		}
	}

	for _, id := range toDelete {
		delete(s.records, id)
		deleted++
	}

	return deleted, nil
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*audit.ConversionRecord)
	return nil
}

// matchesQuery checks if a record matches the query filters.
func (s *MemoryStorage) matchesQuery(record *audit.ConversionRecord, query *audit.Query) bool {
	if query.StartTime != nil && record.RequestTime.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.RequestTime.After(*query.EndTime) {
		return false
	}

	if query.RequestID != "" && record.RequestID != query.RequestID {
		return false
	}

	if query.FromUnit != "" && record.FromUnit != query.FromUnit {
		return false
	}
	if query.ToUnit != "" && record.ToUnit != query.ToUnit {
		return false
	}
	if query.Medication != "" && record.Medication != query.Medication {
		return false
	}
	if query.Path != "" && record.Path != query.Path {
		return false
	}

	if query.Outcome != "" && record.Outcome != query.Outcome {
		return false
	}
	if query.ErrorKind != "" && record.ErrorKind != query.ErrorKind {
		return false
	}

	if query.GuardrailDecision != "" && record.GuardrailDecision != query.GuardrailDecision {
		return false
	}
	if query.Rule != "" && !findingsMatch(record.Findings, query.Rule) {
		return false
	}

	if query.MinConfidence != nil && record.Confidence < *query.MinConfidence {
		return false
	}
	if query.MaxConfidence != nil && record.Confidence > *query.MaxConfidence {
		return false
	}

	return true
}

// findingsMatch reports whether any recorded finding names the rule.
func findingsMatch(findings []audit.RuleFinding, rule string) bool {
	for _, f := range findings {
		if f.Rule == rule {
			return true
		}
	}
	return false
}

// sortRecords orders records by the requested sort field. The default
// matches the SQLite backend: request_time descending.
func sortRecords(records []*audit.ConversionRecord, sortBy, sortOrder string) {
	asc := sortOrder == "asc"

	less := func(i, j int) bool {
		switch sortBy {
		case "recorded_time":
			return records[i].RecordedTime.Before(records[j].RecordedTime)
		case "confidence":
			return records[i].Confidence < records[j].Confidence
		case "duration":
			return records[i].Duration < records[j].Duration
		default:
			return records[i].RequestTime.Before(records[j].RequestTime)
		}
	}

	if asc {
		sort.SliceStable(records, less)
	} else {
		sort.SliceStable(records, func(i, j int) bool { return less(j, i) })
	}
}

// Clear removes all records from storage (for testing).
func (s *MemoryStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*audit.ConversionRecord)
}

// GetByID retrieves a single conversion record by ID (for testing).
func (s *MemoryStorage) GetByID(id string) *audit.ConversionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil
	}

	recordCopy := *record
	return &recordCopy
}

// Size returns the number of records in storage (for testing).
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
