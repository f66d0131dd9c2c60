// Package eventlog defines the append-only log contract the engine writes
// through. The log is the sole source of truth; projections, checkpoints and
// saga records are derived and rebuildable from it.
package eventlog

import (
	"context"
	"errors"

	"meridian/internal/shared/events"
)

// ErrStreamNotFound is returned by ReadStream for a stream with no events.
var ErrStreamNotFound = errors.New("stream not found")

// ConflictError reports that the stream version advanced past the expected
// version between read and append. It is the only condition that enters the
// retry path; every other append failure is fatal to the command.
type ConflictError struct {
	StreamID        string
	ExpectedVersion int64
	ActualVersion   int64
}

func (e *ConflictError) Error() string {
	return "version conflict on stream " + e.StreamID
}

// IsConflict reports whether err is an optimistic-concurrency conflict and
// returns the version observed at conflict time.
func IsConflict(err error) (*ConflictError, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}

// Stream is a per-aggregate read: current version plus ordered events.
type Stream struct {
	StreamID string
	Version  int64
	Events   []events.Event
}

// Log is the append-only event store collaborator contract.
type Log interface {
	// Append writes the event at expectedVersion+1, assigning GlobalPosition
	// and StreamVersion, and returns the stored event. A stale
	// expectedVersion yields a *ConflictError carrying the actual version.
	Append(ctx context.Context, streamID string, expectedVersion int64, event events.Event) (events.Event, error)
	// ReadStream returns the stream's version and events in order.
	ReadStream(ctx context.Context, streamID string) (Stream, error)
	// CurrentVersion returns the stream version, 0 for absent streams.
	CurrentVersion(ctx context.Context, streamID string) (int64, error)
}
