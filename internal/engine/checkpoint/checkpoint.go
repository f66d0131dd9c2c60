// Package checkpoint makes projection application idempotent under
// at-least-once event delivery. Each (projection, partition) pair keeps a
// cursor over the log; events at or below the cursor are skipped, events
// above it are processed and the cursor advanced atomically with the
// projection write.
package checkpoint

import (
	"context"
	"log/slog"
	"time"
)

// NeverProcessed is the position reported for a partition with no checkpoint.
const NeverProcessed int64 = -1

// Checkpoint is the per-partition cursor row.
type Checkpoint struct {
	ProjectionName     string
	PartitionKey       string
	LastGlobalPosition int64
	LastEventID        string
	UpdatedAt          time.Time
}

// Store persists checkpoints. Advance must commit the projection write and
// the cursor update in one transaction; if process returns an error the
// cursor must stay where it was.
type Store interface {
	Get(ctx context.Context, projectionName, partitionKey string) (Checkpoint, bool, error)
	Advance(ctx context.Context, next Checkpoint, process func(ctx context.Context) error) error
}

// Outcome reports what Apply did with an event.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
)

// Helper wraps projection-update logic with the checkpoint protocol.
type Helper struct {
	Store  Store
	Clock  func() time.Time
	Logger *slog.Logger
}

// Apply runs process exactly once per (projection, partition, position).
// Redelivered or out-of-order catch-up events return OutcomeSkipped without
// invoking process.
func (h Helper) Apply(
	ctx context.Context,
	projectionName string,
	partitionKey string,
	globalPosition int64,
	eventID string,
	process func(ctx context.Context) error,
) (Outcome, error) {
	logger := h.logger()

	current, found, err := h.Store.Get(ctx, projectionName, partitionKey)
	if err != nil {
		return "", err
	}
	last := NeverProcessed
	if found {
		last = current.LastGlobalPosition
	}

	if globalPosition <= last {
		logger.Debug("projection event skipped",
			"event", "checkpoint_skipped",
			"module", "engine/checkpoint",
			"layer", "application",
			"projection", projectionName,
			"partition_key", partitionKey,
			"global_position", globalPosition,
			"checkpoint_position", last,
		)
		return OutcomeSkipped, nil
	}

	next := Checkpoint{
		ProjectionName:     projectionName,
		PartitionKey:       partitionKey,
		LastGlobalPosition: globalPosition,
		LastEventID:        eventID,
		UpdatedAt:          h.now(),
	}
	if err := h.Store.Advance(ctx, next, process); err != nil {
		logger.Error("projection apply failed",
			"event", "checkpoint_apply_failed",
			"module", "engine/checkpoint",
			"layer", "application",
			"projection", projectionName,
			"partition_key", partitionKey,
			"global_position", globalPosition,
			"error", err.Error(),
		)
		return "", err
	}
	return OutcomeProcessed, nil
}

func (h Helper) now() time.Time {
	if h.Clock != nil {
		return h.Clock().UTC()
	}
	return time.Now().UTC()
}

func (h Helper) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
