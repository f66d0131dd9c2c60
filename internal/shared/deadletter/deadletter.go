package deadletter

import (
	"context"
	"sync"
	"time"
)

// Record is the auditable trail left behind when a completion path cannot
// finish its own bookkeeping. Rows are written outside the failing
// transaction so they survive the failure they describe.
type Record struct {
	RecordID   string
	Source     string // e.g. "fulfillment-saga/completion"
	Subject    string // business key, e.g. sagaId
	Reason     string
	Payload    []byte
	OccurredAt time.Time
}

// Store persists dead-letter records for operator review.
type Store interface {
	Append(ctx context.Context, record Record) error
}

// MemoryStore keeps records in memory for tests and local runtime.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements Store.
func (s *MemoryStore) Append(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

// Records returns a copy of everything appended so far.
func (s *MemoryStore) Records() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record(nil), s.records...)
}
