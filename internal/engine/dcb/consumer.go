package dcb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"meridian/internal/engine/decider"
)

// Executor re-runs a conflicted command at the version observed when the
// conflict was detected. The command orchestrator implements this.
type Executor interface {
	ExecuteRetry(ctx context.Context, command decider.Command, expectedVersion int64, attempt int) (decider.Result, error)
}

// Consumer drains scheduled retry jobs. The scheduler delivers jobs for one
// partition key strictly in order, so retries never overtake each other.
type Consumer struct {
	Executor Executor
	Logger   *slog.Logger
}

// Handle decodes and executes one retry job. A further conflict inside the
// executor re-enters the scheduling path transparently.
func (c Consumer) Handle(ctx context.Context, payload []byte) error {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var job RetryJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("decode retry job: %w", err)
	}

	result, err := c.Executor.ExecuteRetry(ctx, job.Command, job.ExpectedVersion, job.Attempt)
	if err != nil {
		logger.Error("conflict retry execution failed",
			"event", "dcb_retry_execute_failed",
			"module", "engine/dcb",
			"layer", "worker",
			"command_id", job.Command.CommandID,
			"attempt", job.Attempt,
			"error", err.Error(),
		)
		return err
	}

	logger.Info("conflict retry executed",
		"event", "dcb_retry_executed",
		"module", "engine/dcb",
		"layer", "worker",
		"command_id", job.Command.CommandID,
		"stream_id", job.Command.StreamID,
		"attempt", job.Attempt,
		"status", string(result.Status),
	)
	return nil
}
