package eventlog

import (
	"context"
	"sort"
	"sync"

	"meridian/internal/shared/events"
)

// MemoryLog is the in-memory log used by local runtime and tests. Appends
// across all streams share one global position sequence.
type MemoryLog struct {
	mu       sync.RWMutex
	streams  map[string][]events.Event
	position int64
}

// NewMemoryLog returns an empty log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{streams: make(map[string][]events.Event)}
}

// Append implements Log.
func (l *MemoryLog) Append(_ context.Context, streamID string, expectedVersion int64, event events.Event) (events.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := int64(len(l.streams[streamID]))
	if current != expectedVersion {
		return events.Event{}, &ConflictError{
			StreamID:        streamID,
			ExpectedVersion: expectedVersion,
			ActualVersion:   current,
		}
	}

	l.position++
	event.StreamID = streamID
	event.GlobalPosition = l.position
	event.StreamVersion = expectedVersion + 1
	l.streams[streamID] = append(l.streams[streamID], event)
	return event, nil
}

// ReadStream implements Log.
func (l *MemoryLog) ReadStream(_ context.Context, streamID string) (Stream, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stored, ok := l.streams[streamID]
	if !ok {
		return Stream{}, ErrStreamNotFound
	}
	copied := append([]events.Event(nil), stored...)
	return Stream{StreamID: streamID, Version: int64(len(copied)), Events: copied}, nil
}

// CurrentVersion implements Log.
func (l *MemoryLog) CurrentVersion(_ context.Context, streamID string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(len(l.streams[streamID])), nil
}

// All returns every event in global-position order. Used by replay tooling
// and tests.
func (l *MemoryLog) All() []events.Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var all []events.Event
	for _, stream := range l.streams {
		all = append(all, stream...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].GlobalPosition < all[j].GlobalPosition
	})
	return all
}
