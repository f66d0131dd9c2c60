// Package dcb serializes optimistic-concurrency conflict retries per
// consistency scope. Conflicted commands are re-scheduled with exponential
// backoff and executed one at a time per partition key.
package dcb

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"meridian/internal/engine/decider"
)

// Retry statuses recorded on scheduled retries.
const (
	RetryStatusPending   = "pending"
	RetryStatusScheduled = "scheduled"
)

// RetryJob is the payload scheduled for a serialized retry. ExpectedVersion
// is the version observed at conflict time, not the stale one the losing
// writer carried.
type RetryJob struct {
	Command         decider.Command `json:"command"`
	ExpectedVersion int64           `json:"expected_version"`
	Attempt         int             `json:"attempt"`
	PartitionKey    string          `json:"partition_key"`
	DelayMs         int64           `json:"delay_ms"`
}

// Scheduler is the queue collaborator: delayed delivery with FIFO ordering
// per partition key.
type Scheduler interface {
	Schedule(ctx context.Context, partitionKey string, runAfter time.Duration, payload []byte) error
}

// Metrics observes scheduled retries. A nil Metrics disables recording.
type Metrics interface {
	RetryScheduled(scopeType string)
}

// Handler schedules conflict retries. It never re-invokes the decider
// synchronously; the caller receives a conflict_scheduled result immediately.
type Handler struct {
	Scheduler Scheduler
	Policy    BackoffPolicy
	ScopeType string
	Metrics   Metrics
	Logger    *slog.Logger
}

// HandleConflict schedules the next attempt or terminates with
// MAX_RETRIES_EXCEEDED once the ceiling is reached.
func (h Handler) HandleConflict(
	ctx context.Context,
	command decider.Command,
	observedVersion int64,
	attempt int,
) (decider.Result, error) {
	logger := h.logger()
	policy := h.policy()

	if attempt >= policy.MaxAttempts {
		logger.Warn("conflict retry ceiling reached",
			"event", "dcb_max_retries_exceeded",
			"module", "engine/dcb",
			"layer", "application",
			"command_id", command.CommandID,
			"stream_id", command.StreamID,
			"attempt", attempt,
		)
		return decider.Rejected(
			decider.CodeMaxRetriesExceeded,
			"conflict retry limit reached",
			map[string]any{"attempts": attempt, "stream_id": command.StreamID},
		), nil
	}

	partitionKey := PartitionKey(command.TenantID, h.scopeType(), command.StreamID)
	delay := policy.Delay(attempt)
	job := RetryJob{
		Command:         command,
		ExpectedVersion: observedVersion,
		Attempt:         attempt + 1,
		PartitionKey:    partitionKey,
		DelayMs:         delay.Milliseconds(),
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return decider.Result{}, err
	}

	if err := h.Scheduler.Schedule(ctx, partitionKey, delay, payload); err != nil {
		logger.Error("conflict retry scheduling failed",
			"event", "dcb_schedule_failed",
			"module", "engine/dcb",
			"layer", "application",
			"command_id", command.CommandID,
			"partition_key", partitionKey,
			"error", err.Error(),
		)
		return decider.Result{}, err
	}

	if h.Metrics != nil {
		h.Metrics.RetryScheduled(h.scopeType())
	}

	logger.Info("conflict retry scheduled",
		"event", "dcb_retry_scheduled",
		"module", "engine/dcb",
		"layer", "application",
		"command_id", command.CommandID,
		"stream_id", command.StreamID,
		"partition_key", partitionKey,
		"attempt", job.Attempt,
		"delay_ms", job.DelayMs,
		"observed_version", observedVersion,
	)

	return decider.Result{
		Status:          decider.StatusConflictScheduled,
		ExpectedVersion: observedVersion,
		Attempt:         job.Attempt,
		ScheduledMs:     job.DelayMs,
	}, nil
}

func (h Handler) policy() BackoffPolicy {
	if h.Policy.InitialMs <= 0 || h.Policy.Base <= 0 || h.Policy.MaxMs <= 0 || h.Policy.MaxAttempts <= 0 {
		return DefaultBackoff
	}
	return h.Policy
}

func (h Handler) scopeType() string {
	if h.ScopeType == "" {
		return "stream"
	}
	return h.ScopeType
}

func (h Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
