package source

import (
	"context"
	"sync"

	"meridianrx/galen/pkg/guardrails"
)

// MemorySource serves rule sets from memory. It is used in tests and
// by callers that construct rule sets programmatically.
type MemorySource struct {
	mu   sync.RWMutex
	sets []*guardrails.RuleSet
}

// NewMemorySource creates a source holding the given rule sets.
func NewMemorySource(sets ...*guardrails.RuleSet) *MemorySource {
	return &MemorySource{sets: append([]*guardrails.RuleSet(nil), sets...)}
}

// Load implements Source.
func (s *MemorySource) Load(ctx context.Context) ([]*guardrails.RuleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*guardrails.RuleSet(nil), s.sets...), nil
}

// SetRuleSets replaces the stored rule sets.
func (s *MemorySource) SetRuleSets(sets ...*guardrails.RuleSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets = append([]*guardrails.RuleSet(nil), sets...)
}
