package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"meridian/contexts/commerce/fulfillment-saga/ports"
	contractsv1 "meridian/contracts/gen/events/v1"
	"meridian/internal/engine/decider"
	"meridian/internal/engine/lifecycle"
	"meridian/internal/engine/saga"
	"meridian/internal/shared/events"
)

// Metrics is the runner's observability hook.
type Metrics interface {
	SagaCompleted(sagaType, outcome string)
}

// Runner consumes commerce events and drives fulfillment sagas through their
// reactions. It owns all I/O around the pure reaction functions: loading and
// persisting saga records, recording steps, and dispatching the produced
// commands to the owning services.
type Runner struct {
	Registry *saga.Registry
	Sagas    saga.Store
	// Buses routes commands by stream type to the service that owns it.
	Buses     map[string]ports.CommandBus
	Completer saga.Completer
	Clock     ports.Clock
	Metrics   Metrics
	// ReservationTTL fills the expiry on reserve-stock commands, since
	// reactions are pure and cannot read the clock.
	ReservationTTL time.Duration
	Logger         *slog.Logger
}

// HandleEnvelope adapts the runner to the message bus.
func (r *Runner) HandleEnvelope(ctx context.Context, envelope contractsv1.Envelope) error {
	return r.Handle(ctx, events.FromEnvelope(envelope))
}

// Handle processes one event. Redelivery is safe: reactions are pure,
// commands carry deterministic ids, and terminal sagas absorb late events.
func (r *Runner) Handle(ctx context.Context, event events.Event) error {
	matched := r.Registry.Match(event)
	if len(matched) == 0 {
		return nil
	}

	sagaID, err := resolveSagaID(event)
	if err != nil {
		r.logger().Warn("saga event missing workflow id",
			"event", "saga_event_skipped",
			"module", "fulfillment-saga",
			"layer", "application",
			"event_type", event.EventType,
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return nil
	}

	current, found, err := r.Sagas.Get(ctx, ports.SagaType, sagaID)
	if err != nil {
		return fmt.Errorf("load saga %s: %w", sagaID, err)
	}
	if !found {
		current = saga.Saga{}
	}

	for _, registration := range matched {
		transition, err := registration.Handler(current, event)
		if err != nil {
			return fmt.Errorf("reaction %s: %w", registration.Name, err)
		}
		next, err := r.applyTransition(ctx, current, transition, event)
		if err != nil {
			return err
		}
		current = next
	}
	return nil
}

// applyTransition dispatches commands first, then persists the saga record.
// That order makes a crash between the two recoverable: redelivery regenerates
// the same deterministic commands and the orchestrators deduplicate them,
// whereas persisting first would let a terminal record swallow the redelivery.
func (r *Runner) applyTransition(ctx context.Context, current saga.Saga, transition saga.Transition, event events.Event) (saga.Saga, error) {
	next := transition.Saga
	if next.SagaID == "" {
		return current, nil
	}

	for _, command := range transition.Commands {
		if err := r.dispatch(ctx, command, event); err != nil {
			return r.failSaga(ctx, next, transition.Steps, command, err)
		}
	}

	if current.SagaID == "" {
		inserted, err := r.Sagas.Begin(ctx, next)
		if err != nil {
			return current, fmt.Errorf("begin saga %s: %w", next.SagaID, err)
		}
		if !inserted {
			// Lost a concurrent race for the same trigger; the winner owns
			// the record and the dispatched commands deduplicate.
			return next, nil
		}
		if err := r.Sagas.AppendSteps(ctx, transition.Steps); err != nil {
			return next, fmt.Errorf("record saga steps %s: %w", next.SagaID, err)
		}
		return next, nil
	}

	if next.IsTerminal() && !current.IsTerminal() {
		return r.completeSaga(ctx, next, transition.Steps)
	}

	if err := r.Sagas.Update(ctx, next); err != nil {
		return current, fmt.Errorf("update saga %s: %w", next.SagaID, err)
	}
	if len(transition.Steps) > 0 {
		if err := r.Sagas.AppendSteps(ctx, transition.Steps); err != nil {
			return next, fmt.Errorf("record saga steps %s: %w", next.SagaID, err)
		}
	}
	return next, nil
}

// completeSaga runs terminal bookkeeping inside the no-throw completion zone:
// the saga always ends up terminal, with a dead letter when persistence fails.
func (r *Runner) completeSaga(ctx context.Context, next saga.Saga, steps []saga.Step) (saga.Saga, error) {
	outcome := r.Completer.Complete(ctx, next.SagaID, func(ctx context.Context) error {
		if err := r.Sagas.Update(ctx, next); err != nil {
			return err
		}
		return r.Sagas.AppendSteps(ctx, steps)
	})
	if outcome.Completed && r.Metrics != nil {
		r.Metrics.SagaCompleted(ports.SagaType, string(next.BusinessOutcome))
	}
	r.logger().Info("saga reached terminal status",
		"event", "saga_completed",
		"module", "fulfillment-saga",
		"layer", "application",
		"saga_id", next.SagaID,
		"execution_status", string(next.ExecutionStatus),
		"business_outcome", string(next.BusinessOutcome),
		"dead_letter", outcome.DeadLetter,
	)
	return next, nil
}

// failSaga marks the saga failed after an infrastructure error from a command
// dispatch. Business rejections never reach here; they come back as events.
func (r *Runner) failSaga(ctx context.Context, next saga.Saga, steps []saga.Step, command decider.Command, dispatchErr error) (saga.Saga, error) {
	r.logger().Error("saga command dispatch failed",
		"event", "saga_dispatch_failed",
		"module", "fulfillment-saga",
		"layer", "application",
		"saga_id", next.SagaID,
		"command_type", command.CommandType,
		"command_id", command.CommandID,
		"error", dispatchErr.Error(),
	)

	now := r.now()
	failed := next
	if state, err := saga.StatusMachine.Transition(
		lifecycle.State(failed.ExecutionStatus), lifecycle.State(saga.ExecutionFailed),
	); err == nil {
		failed.ExecutionStatus = saga.ExecutionStatus(state)
	}
	if failed.CompletedAt == nil {
		failed.CompletedAt = &now
	}
	failed.UpdatedAt = now

	failedSteps := append([]saga.Step(nil), steps...)
	for i := range failedSteps {
		if failedSteps[i].CommandID == command.CommandID {
			failedSteps[i].Status = saga.StepFailed
			failedSteps[i].Detail = dispatchErr.Error()
			completedAt := now
			failedSteps[i].CompletedAt = &completedAt
		}
	}

	if next.SubmittedAt.IsZero() {
		// The saga was never begun; there is no record to fail.
		return next, dispatchErr
	}
	return r.completeSaga(ctx, failed, failedSteps)
}

func (r *Runner) dispatch(ctx context.Context, command decider.Command, event events.Event) error {
	bus, ok := r.Buses[command.StreamType]
	if !ok {
		return fmt.Errorf("no command bus for stream type %q", command.StreamType)
	}
	command, err := r.fillExpiry(command)
	if err != nil {
		return err
	}

	result, err := bus.Execute(ctx, command)
	if err != nil {
		return err
	}
	r.logger().Info("saga command dispatched",
		"event", "saga_command_dispatched",
		"module", "fulfillment-saga",
		"layer", "application",
		"command_type", command.CommandType,
		"command_id", command.CommandID,
		"status", string(result.Status),
		"code", result.Code,
	)
	return nil
}

// fillExpiry stamps the reservation deadline on reserve-stock commands.
func (r *Runner) fillExpiry(command decider.Command) (decider.Command, error) {
	if command.CommandType != ports.CommandReserveStock || r.ReservationTTL <= 0 {
		return command, nil
	}
	var payload ports.ReserveStockPayload
	if err := json.Unmarshal(command.Payload, &payload); err != nil {
		return command, fmt.Errorf("decode reserve payload: %w", err)
	}
	if !payload.ExpiresAt.IsZero() {
		return command, nil
	}
	payload.ExpiresAt = r.now().Add(r.ReservationTTL)
	raw, err := json.Marshal(payload)
	if err != nil {
		return command, err
	}
	command.Payload = raw
	return command, nil
}

// resolveSagaID maps an event to its workflow: order streams carry the order
// id as the stream id, inventory events carry it in the payload.
func resolveSagaID(event events.Event) (string, error) {
	if event.StreamType == ports.OrderStreamType {
		if event.StreamID == "" {
			return "", fmt.Errorf("order event %s has no stream id", event.EventType)
		}
		return event.StreamID, nil
	}
	var ref struct {
		OrderID string `json:"order_id"`
	}
	if err := event.DecodePayload(&ref); err != nil {
		return "", err
	}
	if ref.OrderID == "" {
		return "", fmt.Errorf("event %s carries no order id", event.EventType)
	}
	return ref.OrderID, nil
}

func (r *Runner) now() time.Time {
	if r.Clock != nil {
		return r.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
