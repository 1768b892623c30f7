package source

import (
	"context"

	"github.com/servicedesk-hq/warden/pkg/policy"
)

// MemorySource is an in-memory rule source for testing.
type MemorySource struct {
	rules []policy.Rule
}

// NewMemorySource creates an in-memory rule source.
func NewMemorySource(rules ...policy.Rule) *MemorySource {
	return &MemorySource{rules: rules}
}

// LoadRules returns a copy of the rules stored in memory.
func (s *MemorySource) LoadRules(ctx context.Context) (*policy.RuleSet, error) {
	rules := make([]policy.Rule, len(s.rules))
	copy(rules, s.rules)
	return &policy.RuleSet{Rules: rules}, nil
}

// Path identifies the source in logs and errors.
func (s *MemorySource) Path() string {
	return "memory"
}

// SetRules replaces the rules in memory (for reload tests).
func (s *MemorySource) SetRules(rules []policy.Rule) {
	s.rules = rules
}
