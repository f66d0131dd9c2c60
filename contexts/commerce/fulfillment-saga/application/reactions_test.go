package application

import (
	"testing"
	"time"

	"meridian/contexts/commerce/fulfillment-saga/ports"
	contractsv1 "meridian/contracts/gen/events/v1"
	"meridian/internal/engine/saga"
	"meridian/internal/shared/events"
)

func submittedEvent(t *testing.T, orderID string, at time.Time) events.Event {
	t.Helper()
	payload, err := events.MarshalPayload(contractsv1.OrderSubmittedData{
		OrderID: orderID,
		Items:   []contractsv1.OrderItem{{ProductID: "p1", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return events.Event{
		EventID:    "evt-1",
		StreamID:   orderID,
		StreamType: ports.OrderStreamType,
		EventType:  contractsv1.EventTypeOrderSubmitted,
		Payload:    payload,
		OccurredAt: at,
	}
}

func TestOrderSubmittedBeginsSagaAndReservesStock(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	transition, err := onOrderSubmitted(saga.Saga{}, submittedEvent(t, "ord-1", at))
	if err != nil {
		t.Fatalf("reaction: %v", err)
	}

	if transition.Saga.SagaID != "ord-1" {
		t.Fatalf("saga id = %q, want ord-1", transition.Saga.SagaID)
	}
	if transition.Saga.ExecutionStatus != saga.ExecutionRunning {
		t.Fatalf("execution status = %q", transition.Saga.ExecutionStatus)
	}
	if transition.Saga.BusinessOutcome != saga.OutcomeNone {
		t.Fatalf("business outcome = %q", transition.Saga.BusinessOutcome)
	}
	if len(transition.Commands) != 1 {
		t.Fatalf("commands = %d, want 1", len(transition.Commands))
	}
	command := transition.Commands[0]
	if command.CommandType != ports.CommandReserveStock {
		t.Fatalf("command type = %q", command.CommandType)
	}
	if command.StreamType != ports.InventoryStreamType || command.StreamID != ports.DefaultWarehouse {
		t.Fatalf("command routed to %s/%s", command.StreamType, command.StreamID)
	}

	var payload ports.ReserveStockPayload
	if err := command.DecodePayload(&payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.ReservationID != ReservationIDFor("ord-1") {
		t.Fatalf("reservation id = %q", payload.ReservationID)
	}
	if len(transition.Steps) != 1 || transition.Steps[0].StepName != ports.StepReserveStock {
		t.Fatalf("steps = %+v", transition.Steps)
	}
}

func TestOrderSubmittedTwiceIsNoOp(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	event := submittedEvent(t, "ord-1", at)

	first, err := onOrderSubmitted(saga.Saga{}, event)
	if err != nil {
		t.Fatalf("first reaction: %v", err)
	}
	second, err := onOrderSubmitted(first.Saga, event)
	if err != nil {
		t.Fatalf("second reaction: %v", err)
	}
	if len(second.Commands) != 0 || len(second.Steps) != 0 {
		t.Fatalf("duplicate trigger produced work: %+v", second)
	}
}

func TestReactionsIgnoreTerminalSagas(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	completedAt := at.Add(time.Minute)
	terminal := saga.Saga{
		SagaID:          "ord-9",
		SagaType:        ports.SagaType,
		ExecutionStatus: saga.ExecutionCompleted,
		BusinessOutcome: saga.OutcomeFulfilled,
		WorkflowID:      "ord-9",
		SubmittedAt:     at,
		CompletedAt:     &completedAt,
		UpdatedAt:       completedAt,
	}

	payload, err := events.MarshalPayload(contractsv1.ReservationExpiredData{
		ReservationID: ReservationIDFor("ord-9"),
		OrderID:       "ord-9",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	late := events.Event{
		EventID:    "evt-late",
		StreamID:   ports.DefaultWarehouse,
		StreamType: ports.InventoryStreamType,
		EventType:  contractsv1.EventTypeReservationExpired,
		Payload:    payload,
		OccurredAt: completedAt.Add(time.Hour),
	}

	transition, err := onReservationExpired(terminal, late)
	if err != nil {
		t.Fatalf("reaction: %v", err)
	}
	if len(transition.Commands) != 0 {
		t.Fatalf("late event produced commands: %+v", transition.Commands)
	}
	if transition.Saga.ExecutionStatus != saga.ExecutionCompleted || transition.Saga.BusinessOutcome != saga.OutcomeFulfilled {
		t.Fatalf("terminal saga changed: %+v", transition.Saga)
	}
}

func TestReservationConfirmedSetsCompletedAtOnce(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	running := saga.Saga{
		SagaID:          "ord-2",
		SagaType:        ports.SagaType,
		ExecutionStatus: saga.ExecutionRunning,
		BusinessOutcome: saga.OutcomeNone,
		WorkflowID:      "ord-2",
		SubmittedAt:     at,
		UpdatedAt:       at,
	}
	payload, err := events.MarshalPayload(contractsv1.ReservationConfirmedData{
		ReservationID: ReservationIDFor("ord-2"),
		OrderID:       "ord-2",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	event := events.Event{
		EventID:    "evt-2",
		StreamID:   ports.DefaultWarehouse,
		StreamType: ports.InventoryStreamType,
		EventType:  contractsv1.EventTypeReservationConfirmed,
		Payload:    payload,
		OccurredAt: at.Add(2 * time.Minute),
	}

	transition, err := onReservationConfirmed(running, event)
	if err != nil {
		t.Fatalf("reaction: %v", err)
	}
	next := transition.Saga
	if next.ExecutionStatus != saga.ExecutionCompleted || next.BusinessOutcome != saga.OutcomeFulfilled {
		t.Fatalf("saga = %+v", next)
	}
	if next.CompletedAt == nil || !next.CompletedAt.Equal(event.OccurredAt) {
		t.Fatalf("completedAt = %v", next.CompletedAt)
	}
	if next.CompletedAt.Before(next.SubmittedAt) {
		t.Fatalf("completedAt %v before submittedAt %v", next.CompletedAt, next.SubmittedAt)
	}
}
