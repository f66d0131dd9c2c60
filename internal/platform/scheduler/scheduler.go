// Package scheduler is the in-process queue collaborator: delayed delivery
// with strict FIFO execution per partition key. Unrelated partitions run in
// parallel; within one partition jobs never overtake each other.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Handler consumes a due job payload.
type Handler func(ctx context.Context, payload []byte) error

// Scheduler dispatches delayed jobs to one handler. Current implementation
// is in-process while runtime wiring is finalized for external queues; the
// partition contract matches what a partitioned broker would provide.
type Scheduler struct {
	mu      sync.Mutex
	handler Handler
	lanes   map[string]chan []byte
	ctx     context.Context
	cancel  context.CancelFunc
	laneCap int
	logger  *slog.Logger
}

// New builds a scheduler delivering to handler.
func New(handler Handler, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		handler: handler,
		lanes:   make(map[string]chan []byte),
		ctx:     ctx,
		cancel:  cancel,
		laneCap: 256,
		logger:  logger,
	}
}

// Schedule queues payload for execution after runAfter, in FIFO order with
// every other job sharing partitionKey.
func (s *Scheduler) Schedule(ctx context.Context, partitionKey string, runAfter time.Duration, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lane := s.lane(partitionKey)

	deliver := func() {
		select {
		case lane <- payload:
		case <-s.ctx.Done():
		}
	}
	if runAfter <= 0 {
		// Enqueue on the caller's goroutine so back-to-back immediate jobs
		// on one partition keep their submission order.
		deliver()
		return nil
	}
	time.AfterFunc(runAfter, deliver)

	s.logger.Debug("job scheduled",
		"event", "scheduler_job_scheduled",
		"module", "internal/platform/scheduler",
		"layer", "platform",
		"partition_key", partitionKey,
		"run_after_ms", runAfter.Milliseconds(),
	)
	return nil
}

// Close stops all partition workers.
func (s *Scheduler) Close() {
	s.cancel()
}

func (s *Scheduler) lane(partitionKey string) chan []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	lane, ok := s.lanes[partitionKey]
	if ok {
		return lane
	}
	lane = make(chan []byte, s.laneCap)
	s.lanes[partitionKey] = lane

	go func() {
		for {
			select {
			case <-s.ctx.Done():
				return
			case payload := <-lane:
				if err := s.handler(s.ctx, payload); err != nil {
					s.logger.Error("scheduled job failed",
						"event", "scheduler_job_failed",
						"module", "internal/platform/scheduler",
						"layer", "platform",
						"partition_key", partitionKey,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return lane
}
