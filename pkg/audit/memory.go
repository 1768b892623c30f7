package audit

import (
	"context"
	"sync"
)

// MemorySink stores records in memory. Testing only.
type MemorySink struct {
	mu      sync.Mutex
	records []*Record
}

// NewMemorySink creates an in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores a copy of the record.
func (s *MemorySink) Append(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.records = append(s.records, &recordCopy)
	return nil
}

// Replay returns the last limit records in append order.
func (s *MemorySink) Replay(ctx context.Context, limit int) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.records
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}

	out := make([]*Record, len(records))
	for i, r := range records {
		recordCopy := *r
		out[i] = &recordCopy
	}
	return out, nil
}

// Close is a no-op.
func (s *MemorySink) Close() error {
	return nil
}
