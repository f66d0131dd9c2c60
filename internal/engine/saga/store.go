package saga

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists saga instances and their step history.
type Store interface {
	// Begin inserts the saga if no instance exists for (SagaType, SagaID).
	// It returns false, without error, when the key is already taken; the
	// caller treats that as an idempotent no-op.
	Begin(ctx context.Context, instance Saga) (bool, error)
	Get(ctx context.Context, sagaType, sagaID string) (Saga, bool, error)
	Update(ctx context.Context, instance Saga) error
	AppendSteps(ctx context.Context, steps []Step) error
	Steps(ctx context.Context, sagaID string) ([]Step, error)
	// Delete removes one saga and its steps. Returns false when the saga
	// does not exist.
	Delete(ctx context.Context, sagaType, sagaID string) (bool, error)
	// DeleteTerminalBefore removes terminal sagas (and their steps) whose
	// CompletedAt is before cutoff. Returns the number of sagas removed.
	DeleteTerminalBefore(ctx context.Context, sagaType string, cutoff time.Time) (int64, error)
}

// MemoryStore is the in-memory Store used by local runtime and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	sagas map[string]Saga
	steps map[string][]Step
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sagas: make(map[string]Saga),
		steps: make(map[string][]Step),
	}
}

func sagaKey(sagaType, sagaID string) string {
	return sagaType + "|" + sagaID
}

// Begin implements Store.
func (s *MemoryStore) Begin(_ context.Context, instance Saga) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sagaKey(instance.SagaType, instance.SagaID)
	if _, exists := s.sagas[key]; exists {
		return false, nil
	}
	s.sagas[key] = instance
	return true, nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, sagaType, sagaID string) (Saga, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instance, ok := s.sagas[sagaKey(sagaType, sagaID)]
	return instance, ok, nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, instance Saga) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sagas[sagaKey(instance.SagaType, instance.SagaID)] = instance
	return nil
}

// AppendSteps implements Store.
func (s *MemoryStore) AppendSteps(_ context.Context, steps []Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, step := range steps {
		s.steps[step.SagaID] = append(s.steps[step.SagaID], step)
	}
	return nil
}

// Steps implements Store.
func (s *MemoryStore) Steps(_ context.Context, sagaID string) ([]Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	steps := append([]Step(nil), s.steps[sagaID]...)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].StartedAt.Before(steps[j].StartedAt)
	})
	return steps, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, sagaType, sagaID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sagaKey(sagaType, sagaID)
	if _, exists := s.sagas[key]; !exists {
		return false, nil
	}
	delete(s.sagas, key)
	delete(s.steps, sagaID)
	return true, nil
}

// DeleteTerminalBefore implements Store.
func (s *MemoryStore) DeleteTerminalBefore(_ context.Context, sagaType string, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, instance := range s.sagas {
		if instance.SagaType != sagaType || !instance.IsTerminal() {
			continue
		}
		if instance.CompletedAt == nil || !instance.CompletedAt.Before(cutoff) {
			continue
		}
		delete(s.sagas, key)
		delete(s.steps, instance.SagaID)
		removed++
	}
	return removed, nil
}
