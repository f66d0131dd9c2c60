package checkpoint

import (
	"context"
	"sync"
)

// MemoryStore keeps checkpoints in a map. Advance emulates the transactional
// store: the cursor moves only if process succeeds.
type MemoryStore struct {
	mu     sync.Mutex
	cursor map[string]Checkpoint
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cursor: make(map[string]Checkpoint)}
}

func key(projectionName, partitionKey string) string {
	return projectionName + "|" + partitionKey
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, projectionName, partitionKey string) (Checkpoint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.cursor[key(projectionName, partitionKey)]
	return cp, ok, nil
}

// Advance implements Store. The lock spans process so partition application
// stays serialized the way the transactional store serializes it.
func (s *MemoryStore) Advance(ctx context.Context, next Checkpoint, process func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := process(ctx); err != nil {
		return err
	}
	s.cursor[key(next.ProjectionName, next.PartitionKey)] = next
	return nil
}
