package application

import (
	"context"
	"testing"
	"time"

	"meridian/contexts/commerce/fulfillment-saga/ports"
	"meridian/internal/engine/decider"
	"meridian/internal/engine/saga"
)

// scriptedBus replies with a fixed result and records every command.
type scriptedBus struct {
	result   decider.Result
	commands []decider.Command
}

func (b *scriptedBus) Execute(_ context.Context, command decider.Command) (decider.Result, error) {
	b.commands = append(b.commands, command)
	return b.result, nil
}

func runningSagaAdmin(t *testing.T, release decider.Result) (*Admin, *scriptedBus, *scriptedBus) {
	t.Helper()

	sagas := saga.NewMemoryStore()
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	begun, err := sagas.Begin(context.Background(), saga.Saga{
		SagaID:          "ord-5",
		SagaType:        ports.SagaType,
		ExecutionStatus: saga.ExecutionRunning,
		BusinessOutcome: saga.OutcomeNone,
		WorkflowID:      "ord-5",
		SubmittedAt:     at,
		UpdatedAt:       at,
	})
	if err != nil || !begun {
		t.Fatalf("begin saga: begun=%v err=%v", begun, err)
	}

	inventory := &scriptedBus{result: release}
	orders := &scriptedBus{result: decider.Result{Status: decider.StatusSuccess}}
	admin := &Admin{
		Sagas: sagas,
		Buses: map[string]ports.CommandBus{
			ports.InventoryStreamType: inventory,
			ports.OrderStreamType:     orders,
		},
	}
	return admin, inventory, orders
}

func TestCancelSagaFallsBackWhenReservationAlreadySettled(t *testing.T) {
	admin, inventory, orders := runningSagaAdmin(t, decider.Rejected(
		decider.CodeInvalidLifecycleTransition, "reservation already released", nil,
	))

	if err := admin.CancelSaga(context.Background(), "ord-5", "operator request"); err != nil {
		t.Fatalf("cancel saga: %v", err)
	}

	if len(inventory.commands) != 1 || inventory.commands[0].CommandType != ports.CommandReleaseReservation {
		t.Fatalf("inventory commands = %+v", inventory.commands)
	}
	if len(orders.commands) != 1 {
		t.Fatalf("order commands = %d, want 1", len(orders.commands))
	}
	cancel := orders.commands[0]
	if cancel.CommandType != ports.CommandCancelOrder || cancel.StreamID != "ord-5" {
		t.Fatalf("cancel command = %+v", cancel)
	}
	if cancel.CommandID != stepCommandID("ord-5", ports.StepCancelOrder) {
		t.Fatalf("cancel command id = %q", cancel.CommandID)
	}
}

func TestCancelSagaSurfacesUnexpectedRejection(t *testing.T) {
	admin, _, orders := runningSagaAdmin(t, decider.Rejected(
		decider.CodeInvalidCommand, "malformed release", nil,
	))

	err := admin.CancelSaga(context.Background(), "ord-5", "operator request")
	if err == nil {
		t.Fatal("expected an error for an unexpected rejection")
	}
	if len(orders.commands) != 0 {
		t.Fatalf("order commands = %+v, want none", orders.commands)
	}
}
