// Package orchestrator applies commands to versioned aggregates with
// exactly-once effect: idempotency check, pure decision, atomic dual write,
// publish, and hand-off to the conflict retry path on a lost write race.
package orchestrator

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"meridian/internal/engine/decider"
	"meridian/internal/engine/eventlog"
)

// Orchestrator drives commands for one stream type.
type Orchestrator struct {
	StreamType string
	Decider    decider.Decider
	States     StateRepository
	Committer  Committer
	Commands   CommandLog
	Publisher  EventPublisher
	Conflicts  ConflictHandler
	Clock      Clock
	IDs        IDGenerator
	Metrics    Metrics
	Logger     *slog.Logger
}

// Execute runs one command end to end. The returned result follows the
// success/rejected/failed/duplicate/conflict_scheduled taxonomy; an error
// return means infrastructure failure, never a business outcome.
func (o *Orchestrator) Execute(ctx context.Context, command decider.Command) (decider.Result, error) {
	return o.execute(ctx, command, -1, 0)
}

// ExecuteRetry re-runs a conflicted command from the serialized retry lane.
// observedVersion is the version seen at conflict time and rides along for
// diagnostics; the decision itself runs against a fresh load, which is at
// least as new. attempt feeds the backoff ceiling on a further conflict.
func (o *Orchestrator) ExecuteRetry(ctx context.Context, command decider.Command, observedVersion int64, attempt int) (decider.Result, error) {
	result, err := o.execute(ctx, command, observedVersion, attempt)
	if err != nil {
		return result, err
	}
	// Retried results read exactly like fresh ones; attempt metadata is
	// preserved for observability only.
	if result.Attempt == 0 {
		result.Attempt = attempt
	}
	return result, nil
}

func (o *Orchestrator) execute(ctx context.Context, command decider.Command, retryVersion int64, attempt int) (decider.Result, error) {
	logger := o.logger()

	if strings.TrimSpace(command.CommandID) == "" || strings.TrimSpace(command.StreamID) == "" {
		return decider.Rejected(decider.CodeInvalidCommand, "command_id and stream_id are required", nil), nil
	}

	prior, found, err := o.Commands.Get(ctx, o.StreamType, command.StreamID, command.CommandType, command.CommandID)
	if err != nil {
		return decider.Result{}, err
	}
	if found {
		logger.Info("command replayed from idempotency record",
			"event", "command_duplicate",
			"module", "engine/orchestrator",
			"layer", "application",
			"stream_type", o.StreamType,
			"stream_id", command.StreamID,
			"command_id", command.CommandID,
		)
		duplicate := prior
		duplicate.Status = decider.StatusDuplicate
		o.count(decider.StatusDuplicate)
		return duplicate, nil
	}

	state, version, err := o.States.Load(ctx, command.StreamID)
	if err != nil {
		return decider.Result{}, err
	}
	if retryVersion >= 0 && version < retryVersion {
		logger.Warn("retry observed version ahead of loaded state",
			"event", "command_retry_state_lag",
			"module", "engine/orchestrator",
			"layer", "application",
			"stream_id", command.StreamID,
			"loaded_version", version,
			"observed_version", retryVersion,
		)
	}

	result := o.Decider.Decide(state, command)
	switch result.Status {
	case decider.StatusRejected:
		logger.Info("command rejected",
			"event", "command_rejected",
			"module", "engine/orchestrator",
			"layer", "application",
			"stream_type", o.StreamType,
			"stream_id", command.StreamID,
			"command_id", command.CommandID,
			"code", result.Code,
		)
		o.count(decider.StatusRejected)
		return result, nil
	case decider.StatusSuccess, decider.StatusFailed:
		// fallthrough to the dual write below
	default:
		return decider.Rejected(decider.CodeInvalidCommand, "decider returned unsupported status", map[string]any{
			"status": string(result.Status),
		}), nil
	}

	if !result.HasEvent() {
		return decider.Result{}, errMissingEvent(o.StreamType, command.CommandID)
	}

	event := *result.Event
	if event.EventID == "" {
		id, err := o.IDs.NewID(ctx)
		if err != nil {
			return decider.Result{}, err
		}
		event.EventID = id
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = o.now()
	}
	if event.CorrelationID == "" {
		event.CorrelationID = command.CorrelationID
	}
	if event.CausationID == "" {
		event.CausationID = command.CommandID
	}
	if event.StreamType == "" {
		event.StreamType = o.StreamType
	}
	result.Event = &event

	stored, err := o.Committer.Commit(ctx, CommitRequest{
		StreamID:        command.StreamID,
		StreamType:      o.StreamType,
		ExpectedVersion: version,
		Event:           event,
		CommandID:       command.CommandID,
		CommandType:     command.CommandType,
		Result:          result,
	})
	if err != nil {
		if conflict, ok := eventlog.IsConflict(err); ok {
			logger.Warn("optimistic concurrency conflict",
				"event", "command_version_conflict",
				"module", "engine/orchestrator",
				"layer", "application",
				"stream_type", o.StreamType,
				"stream_id", command.StreamID,
				"command_id", command.CommandID,
				"expected_version", conflict.ExpectedVersion,
				"actual_version", conflict.ActualVersion,
				"attempt", attempt,
			)
			if o.Metrics != nil {
				o.Metrics.ConflictDetected(o.StreamType)
			}
			// Hand off; never re-invoke the decider synchronously.
			return o.Conflicts.HandleConflict(ctx, command, conflict.ActualVersion, attempt)
		}
		// Storage failures are fatal to the command; retrying I/O is the
		// collaborator's job.
		return decider.Result{}, err
	}

	result.Event = &stored
	result.Version = stored.StreamVersion
	if result.Status == decider.StatusFailed && result.ExpectedVersion == 0 {
		result.ExpectedVersion = stored.StreamVersion
	}

	if err := o.Publisher.Publish(ctx, stored); err != nil {
		// The event is durable; projections converge through replay even if
		// the live push fails.
		logger.Error("event publish failed after commit",
			"event", "command_publish_failed",
			"module", "engine/orchestrator",
			"layer", "application",
			"stream_type", o.StreamType,
			"stream_id", command.StreamID,
			"event_id", stored.EventID,
			"error", err.Error(),
		)
	}

	logger.Info("command committed",
		"event", "command_committed",
		"module", "engine/orchestrator",
		"layer", "application",
		"stream_type", o.StreamType,
		"stream_id", command.StreamID,
		"command_id", command.CommandID,
		"event_id", stored.EventID,
		"event_type", stored.EventType,
		"global_position", stored.GlobalPosition,
		"version", stored.StreamVersion,
		"status", string(result.Status),
	)
	o.count(result.Status)
	return result, nil
}

func (o *Orchestrator) count(status decider.Status) {
	if o.Metrics != nil {
		o.Metrics.CommandProcessed(o.StreamType, status)
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Clock != nil {
		return o.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

type missingEventError struct {
	streamType string
	commandID  string
}

func (e missingEventError) Error() string {
	return "decider produced no event for committed status (" + e.streamType + "/" + e.commandID + ")"
}

func errMissingEvent(streamType, commandID string) error {
	return missingEventError{streamType: streamType, commandID: commandID}
}
