package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"meridian/internal/shared/deadletter"
)

// CompletionOutcome is what a completion path must always produce, even when
// its own bookkeeping fails.
type CompletionOutcome struct {
	SagaID     string
	Completed  bool
	DeadLetter bool
	Err        error
}

// Completer wraps saga completion bookkeeping in a no-throw zone. The real
// completion logic runs first; if it fails, an auditable dead-letter record
// is written instead of the failure escaping into the workflow's completion
// hook. If even the dead-letter write fails, the failure is logged and a
// terminal outcome is still returned.
type Completer struct {
	DeadLetters deadletter.Store
	IDs         func(ctx context.Context) (string, error)
	Clock       func() time.Time
	Logger      *slog.Logger
}

// Complete executes fn and guarantees a terminal outcome.
func (c Completer) Complete(ctx context.Context, sagaID string, fn func(ctx context.Context) error) CompletionOutcome {
	logger := c.logger()

	err := func() (capturedErr error) {
		defer func() {
			if r := recover(); r != nil {
				capturedErr = fmt.Errorf("completion panic: %v", r)
			}
		}()
		return fn(ctx)
	}()
	if err == nil {
		return CompletionOutcome{SagaID: sagaID, Completed: true}
	}

	logger.Error("saga completion bookkeeping failed",
		"event", "saga_completion_failed",
		"module", "engine/saga",
		"layer", "application",
		"saga_id", sagaID,
		"error", err.Error(),
	)

	record := deadletter.Record{
		Source:     "saga/completion",
		Subject:    sagaID,
		Reason:     err.Error(),
		OccurredAt: c.now(),
	}
	if c.IDs != nil {
		if id, idErr := c.IDs(ctx); idErr == nil {
			record.RecordID = id
		}
	}
	if payload, marshalErr := json.Marshal(map[string]string{
		"saga_id": sagaID,
		"error":   err.Error(),
	}); marshalErr == nil {
		record.Payload = payload
	}

	if c.DeadLetters == nil {
		return CompletionOutcome{SagaID: sagaID, Err: err}
	}
	if dlqErr := c.DeadLetters.Append(ctx, record); dlqErr != nil {
		// The guaranteed fallback failed too; the log line is the last
		// resort and the outcome stays terminal.
		logger.Error("saga dead-letter write failed",
			"event", "saga_deadletter_failed",
			"module", "engine/saga",
			"layer", "application",
			"saga_id", sagaID,
			"error", dlqErr.Error(),
		)
		return CompletionOutcome{SagaID: sagaID, Err: err}
	}

	return CompletionOutcome{SagaID: sagaID, DeadLetter: true, Err: err}
}

func (c Completer) now() time.Time {
	if c.Clock != nil {
		return c.Clock().UTC()
	}
	return time.Now().UTC()
}

func (c Completer) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
