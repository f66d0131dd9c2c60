package orchestrator

import (
	"context"
	"sync"

	"meridian/internal/engine/decider"
	"meridian/internal/engine/eventlog"
	"meridian/internal/shared/events"
)

// Applier folds a committed event into the aggregate's materialized state.
// It receives the prior state (nil for new streams) and returns the next.
type Applier func(state any, event events.Event) (any, error)

// MemoryStore is an in-memory StateRepository, Committer and CommandLog for
// one stream type, used by local runtime and tests. The dual write holds one
// lock across log append, state update and command record so the three land
// together or not at all, matching the transactional store contract.
type MemoryStore struct {
	mu       sync.RWMutex
	log      *eventlog.MemoryLog
	apply    Applier
	states   map[string]any
	commands map[string]decider.Result
}

// NewMemoryStore wires a store over a shared in-memory log.
func NewMemoryStore(log *eventlog.MemoryLog, apply Applier) *MemoryStore {
	return &MemoryStore{
		log:      log,
		apply:    apply,
		states:   make(map[string]any),
		commands: make(map[string]decider.Result),
	}
}

// Load implements StateRepository.
func (s *MemoryStore) Load(ctx context.Context, streamID string) (any, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, err := s.log.CurrentVersion(ctx, streamID)
	if err != nil {
		return nil, 0, err
	}
	return s.states[streamID], version, nil
}

// Commit implements Committer.
func (s *MemoryStore) Commit(ctx context.Context, req CommitRequest) (events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.log.Append(ctx, req.StreamID, req.ExpectedVersion, req.Event)
	if err != nil {
		return events.Event{}, err
	}

	next, err := s.apply(s.states[req.StreamID], stored)
	if err != nil {
		return events.Event{}, err
	}
	s.states[req.StreamID] = next

	record := req.Result
	record.Event = &stored
	record.Version = stored.StreamVersion
	s.commands[commandKey(req.StreamType, req.StreamID, req.CommandType, req.CommandID)] = record
	return stored, nil
}

// Get implements CommandLog.
func (s *MemoryStore) Get(_ context.Context, streamType, streamID, commandType, commandID string) (decider.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.commands[commandKey(streamType, streamID, commandType, commandID)]
	return result, ok, nil
}

// State returns the materialized state for inspection in tests.
func (s *MemoryStore) State(streamID string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[streamID]
}

func commandKey(streamType, streamID, commandType, commandID string) string {
	return streamType + "|" + streamID + "|" + commandType + "|" + commandID
}
