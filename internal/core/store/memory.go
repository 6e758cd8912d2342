package store

import (
	"context"
	"sync"

	"github.com/planora/automations/internal/types"
)

// Memory is an in-memory rule provider for tests and embedded use.
// Thread-safe; ListRules returns copies so callers cannot mutate the
// stored rules.
type Memory struct {
	mu    sync.RWMutex
	rules map[string][]types.Rule
}

// NewMemory creates an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{rules: make(map[string][]types.Rule)}
}

// Add appends a rule to its tenant's list, preserving insertion order.
func (m *Memory) Add(rule types.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.TenantID] = append(m.rules[rule.TenantID], rule)
}

// ListRules returns the tenant's rules in insertion order.
func (m *Memory) ListRules(_ context.Context, tenantID string) ([]types.Rule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rules := m.rules[tenantID]
	out := make([]types.Rule, len(rules))
	copy(out, rules)
	return out, nil
}
