package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"meridian/internal/engine/dcb"
	"meridian/internal/engine/decider"
	"meridian/internal/engine/eventlog"
	"meridian/internal/shared/events"
)

type counterState struct {
	Total int `json:"total"`
}

type addPayload struct {
	Amount int `json:"amount"`
}

// counterDecider accepts "add" commands with a positive amount, fails on
// amount == 13 and rejects non-positive amounts.
func counterDecider() decider.Decider {
	return decider.Func(func(state any, command decider.Command) decider.Result {
		var payload addPayload
		if err := command.DecodePayload(&payload); err != nil {
			return decider.Rejected(decider.CodeInvalidCommand, "bad payload", nil)
		}
		if payload.Amount <= 0 {
			return decider.Rejected(decider.CodeInvalidCommand, "amount must be positive", nil)
		}
		if payload.Amount == 13 {
			raw, _ := events.MarshalPayload(map[string]any{"amount": payload.Amount})
			return decider.Failed("unlucky amount", &events.Event{
				EventType: "counter.add_failed",
				Payload:   raw,
			}, 0, nil)
		}
		raw, _ := events.MarshalPayload(payload)
		return decider.Success(raw, 0, &events.Event{
			EventType: "counter.added",
			Payload:   raw,
		})
	})
}

func applyCounter(state any, event events.Event) (any, error) {
	current := counterState{}
	if state != nil {
		current = state.(counterState)
	}
	if event.EventType == "counter.added" {
		var payload addPayload
		if err := event.DecodePayload(&payload); err != nil {
			return nil, err
		}
		current.Total += payload.Amount
	}
	return current, nil
}

type capturedPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *capturedPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

type capturedScheduler struct {
	mu   sync.Mutex
	jobs []scheduledJob
}

type scheduledJob struct {
	partitionKey string
	runAfter     time.Duration
	payload      []byte
}

func (s *capturedScheduler) Schedule(_ context.Context, partitionKey string, runAfter time.Duration, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, scheduledJob{partitionKey: partitionKey, runAfter: runAfter, payload: payload})
	return nil
}

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID(context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("evt-%d", g.n), nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *MemoryStore, *capturedPublisher, *capturedScheduler) {
	t.Helper()
	log := eventlog.NewMemoryLog()
	store := NewMemoryStore(log, applyCounter)
	publisher := &capturedPublisher{}
	scheduler := &capturedScheduler{}

	orch := &Orchestrator{
		StreamType: "counter",
		Decider:    counterDecider(),
		States:     store,
		Committer:  store,
		Commands:   store,
		Publisher:  publisher,
		Conflicts: dcb.Handler{
			Scheduler: scheduler,
			Policy:    dcb.BackoffPolicy{InitialMs: 100, Base: 2, MaxMs: 30_000, MaxAttempts: 3},
			ScopeType: "counter",
		},
		Clock: fixedClock{at: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		IDs:   &seqIDs{},
	}
	return orch, store, publisher, scheduler
}

func addCommand(commandID, streamID string, amount int) decider.Command {
	payload, _ := json.Marshal(addPayload{Amount: amount})
	return decider.Command{
		CommandID:   commandID,
		CommandType: "add",
		StreamID:    streamID,
		StreamType:  "counter",
		Payload:     payload,
	}
}

func TestExecuteCommitsAndPublishes(t *testing.T) {
	orch, store, publisher, _ := newTestOrchestrator(t)
	ctx := context.Background()

	result, err := orch.Execute(ctx, addCommand("cmd-1", "ctr-1", 5))
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Status != decider.StatusSuccess {
		t.Fatalf("status = %s", result.Status)
	}
	if result.Version != 1 {
		t.Fatalf("version = %d, want 1", result.Version)
	}
	if result.Event == nil || result.Event.GlobalPosition != 1 {
		t.Fatalf("event = %+v", result.Event)
	}
	if got := store.State("ctr-1").(counterState).Total; got != 5 {
		t.Fatalf("state total = %d, want 5", got)
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != "counter.added" {
		t.Fatalf("published = %+v", publisher.events)
	}
	if publisher.events[0].CausationID != "cmd-1" {
		t.Fatalf("causation = %q, want cmd-1", publisher.events[0].CausationID)
	}
}

func TestExecuteDuplicateCommandReplaysStoredResult(t *testing.T) {
	orch, store, publisher, _ := newTestOrchestrator(t)
	ctx := context.Background()

	first, err := orch.Execute(ctx, addCommand("cmd-dup", "ctr-2", 5))
	if err != nil {
		t.Fatalf("first execute failed: %v", err)
	}
	second, err := orch.Execute(ctx, addCommand("cmd-dup", "ctr-2", 5))
	if err != nil {
		t.Fatalf("second execute failed: %v", err)
	}

	if second.Status != decider.StatusDuplicate {
		t.Fatalf("second status = %s, want duplicate", second.Status)
	}
	if second.Version != first.Version {
		t.Fatalf("duplicate version = %d, want %d", second.Version, first.Version)
	}
	// State changed exactly once.
	if got := store.State("ctr-2").(counterState).Total; got != 5 {
		t.Fatalf("state total = %d, want 5", got)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.events))
	}
}

func TestIdempotencyKeyScopedPerCommandType(t *testing.T) {
	orch, store, _, _ := newTestOrchestrator(t)
	ctx := context.Background()

	first := addCommand("cmd-shared", "ctr-7", 5)
	if _, err := orch.Execute(ctx, first); err != nil {
		t.Fatalf("first execute failed: %v", err)
	}

	// Same commandId under a different command type must not replay the
	// stored result.
	other := addCommand("cmd-shared", "ctr-7", 7)
	other.CommandType = "grant"
	result, err := orch.Execute(ctx, other)
	if err != nil {
		t.Fatalf("second execute failed: %v", err)
	}
	if result.Status != decider.StatusSuccess {
		t.Fatalf("status = %s, want success", result.Status)
	}
	if got := store.State("ctr-7").(counterState).Total; got != 12 {
		t.Fatalf("state total = %d, want 12", got)
	}

	replay, err := orch.Execute(ctx, first)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if replay.Status != decider.StatusDuplicate {
		t.Fatalf("replay status = %s, want duplicate", replay.Status)
	}
}

func TestExecuteRejectionProducesNoEvent(t *testing.T) {
	orch, store, publisher, _ := newTestOrchestrator(t)
	ctx := context.Background()

	result, err := orch.Execute(ctx, addCommand("cmd-neg", "ctr-3", -1))
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Status != decider.StatusRejected {
		t.Fatalf("status = %s, want rejected", result.Status)
	}
	if store.State("ctr-3") != nil {
		t.Fatal("rejected command must not touch state")
	}
	if len(publisher.events) != 0 {
		t.Fatal("rejected command must not publish")
	}
	// Rejections are not recorded: the same commandId decided afresh.
	again, _ := orch.Execute(ctx, addCommand("cmd-neg", "ctr-3", -1))
	if again.Status != decider.StatusRejected {
		t.Fatalf("second status = %s, want rejected", again.Status)
	}
}

func TestExecuteBusinessFailureStillRecordsEvent(t *testing.T) {
	orch, _, publisher, _ := newTestOrchestrator(t)
	ctx := context.Background()

	result, err := orch.Execute(ctx, addCommand("cmd-13", "ctr-4", 13))
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Status != decider.StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if result.Event == nil || result.Event.EventType != "counter.add_failed" {
		t.Fatalf("event = %+v", result.Event)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.events))
	}
}

// conflictingCommitter fails the first commit with a version conflict, as if
// another writer won the race, then delegates.
type conflictingCommitter struct {
	inner     Committer
	conflicts int
	fired     int
}

func (c *conflictingCommitter) Commit(ctx context.Context, req CommitRequest) (events.Event, error) {
	if c.fired < c.conflicts {
		c.fired++
		return events.Event{}, &eventlog.ConflictError{
			StreamID:        req.StreamID,
			ExpectedVersion: req.ExpectedVersion,
			ActualVersion:   req.ExpectedVersion + 1,
		}
	}
	return c.inner.Commit(ctx, req)
}

func TestExecuteConflictSchedulesSerializedRetry(t *testing.T) {
	orch, store, _, scheduler := newTestOrchestrator(t)
	orch.Committer = &conflictingCommitter{inner: store, conflicts: 1}
	ctx := context.Background()

	result, err := orch.Execute(ctx, addCommand("cmd-race", "ctr-5", 5))
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if result.Status != decider.StatusConflictScheduled {
		t.Fatalf("status = %s, want conflict_scheduled", result.Status)
	}
	if result.Attempt != 1 {
		t.Fatalf("attempt = %d, want 1", result.Attempt)
	}
	if result.ScheduledMs != 100 {
		t.Fatalf("scheduled delay = %d, want 100", result.ScheduledMs)
	}

	if len(scheduler.jobs) != 1 {
		t.Fatalf("scheduled %d jobs, want 1", len(scheduler.jobs))
	}
	job := scheduler.jobs[0]
	if job.partitionKey != "dcb:default:counter:ctr-5" {
		t.Fatalf("partition key = %q", job.partitionKey)
	}

	// Draining the scheduled job through the retry consumer completes the
	// command with the updated expected version.
	consumer := dcb.Consumer{Executor: orch}
	if err := consumer.Handle(ctx, job.payload); err != nil {
		t.Fatalf("retry handle failed: %v", err)
	}
	if got := store.State("ctr-5").(counterState).Total; got != 5 {
		t.Fatalf("state total after retry = %d, want 5", got)
	}
}

func TestConflictRetriesExhaustToRejection(t *testing.T) {
	orch, store, _, scheduler := newTestOrchestrator(t)
	orch.Committer = &conflictingCommitter{inner: store, conflicts: 100}
	ctx := context.Background()

	result, err := orch.Execute(ctx, addCommand("cmd-hot", "ctr-6", 5))
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	// Drain scheduled retries until the ceiling terminates the loop.
	for i := 0; i < 10 && result.Status == decider.StatusConflictScheduled; i++ {
		if len(scheduler.jobs) == 0 {
			t.Fatal("expected a scheduled retry job")
		}
		job := scheduler.jobs[len(scheduler.jobs)-1]
		var decoded dcb.RetryJob
		if err := json.Unmarshal(job.payload, &decoded); err != nil {
			t.Fatalf("decode job: %v", err)
		}
		result, err = orch.ExecuteRetry(ctx, decoded.Command, decoded.ExpectedVersion, decoded.Attempt)
		if err != nil {
			t.Fatalf("retry failed: %v", err)
		}
	}

	if result.Status != decider.StatusRejected {
		t.Fatalf("final status = %s, want rejected", result.Status)
	}
	if result.Code != decider.CodeMaxRetriesExceeded {
		t.Fatalf("final code = %s, want %s", result.Code, decider.CodeMaxRetriesExceeded)
	}
	// Three attempts allowed: attempts 1..3 scheduled, the 4th hits the ceiling.
	if len(scheduler.jobs) != 3 {
		t.Fatalf("scheduled %d retries, want 3", len(scheduler.jobs))
	}
}
