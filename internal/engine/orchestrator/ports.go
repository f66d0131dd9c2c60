package orchestrator

import (
	"context"
	"time"

	"meridian/internal/engine/decider"
	"meridian/internal/shared/events"
)

// StateRepository loads an aggregate's materialized state and the stream
// version it corresponds to. State is nil for streams that do not exist yet.
type StateRepository interface {
	Load(ctx context.Context, streamID string) (state any, version int64, err error)
}

// CommitRequest is the orchestrator's dual write: event append, state
// update and commandId->result record must land atomically.
type CommitRequest struct {
	StreamID        string
	StreamType      string
	ExpectedVersion int64
	Event           events.Event
	CommandID       string
	CommandType     string
	Result          decider.Result
}

// Committer performs the single transactional boundary of command handling.
// A stale ExpectedVersion must surface as *eventlog.ConflictError; any other
// error is fatal to the command.
type Committer interface {
	Commit(ctx context.Context, req CommitRequest) (events.Event, error)
}

// CommandLog answers the idempotency check, keyed per stream and command
// type so one commandID cannot replay a different command's result. Records
// are written by the Committer inside the dual-write transaction.
type CommandLog interface {
	Get(ctx context.Context, streamType, streamID, commandType, commandID string) (decider.Result, bool, error)
}

// EventPublisher pushes committed events to projection and saga consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// ConflictHandler schedules a serialized retry for a conflicted command.
type ConflictHandler interface {
	HandleConflict(ctx context.Context, command decider.Command, observedVersion int64, attempt int) (decider.Result, error)
}

// Clock allows deterministic testing of event timestamps.
type Clock interface {
	Now() time.Time
}

// IDGenerator mints event identifiers for deciders that leave them blank.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// Metrics counts orchestration outcomes. Implementations must be safe for
// concurrent use; a nil Metrics disables recording.
type Metrics interface {
	CommandProcessed(streamType string, status decider.Status)
	ConflictDetected(streamType string)
}
