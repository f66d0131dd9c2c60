package commands

import (
	"encoding/json"
	"testing"
	"time"

	"meridian/contexts/commerce/order-service/domain/entities"
	"meridian/contexts/commerce/order-service/ports"
	contractsv1 "meridian/contracts/gen/events/v1"
	"meridian/internal/engine/decider"
)

func command(t *testing.T, commandType string, payload any) decider.Command {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return decider.Command{
		CommandID:   "cmd-1",
		CommandType: commandType,
		StreamID:    "ord-1",
		StreamType:  ports.StreamType,
		Payload:     raw,
	}
}

func submittedOrder(t *testing.T) *entities.Order {
	t.Helper()
	result := decide(nil, command(t, ports.CommandSubmitOrder, ports.SubmitOrderPayload{
		OrderID:     "ord-1",
		CustomerID:  "cust-1",
		Items:       []contractsv1.OrderItem{{ProductID: "p1", Quantity: 2}},
		SubmittedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}))
	if result.Status != decider.StatusSuccess {
		t.Fatalf("submit = %+v", result)
	}
	event := *result.Event
	event.OccurredAt = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	state, err := Apply(nil, event)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	return state.(*entities.Order)
}

func TestSubmitRejectsEmptyItems(t *testing.T) {
	result := decide(nil, command(t, ports.CommandSubmitOrder, ports.SubmitOrderPayload{
		OrderID: "ord-1",
	}))
	if result.Status != decider.StatusRejected || result.Code != decider.CodeInvalidCommand {
		t.Fatalf("result = %+v", result)
	}
}

func TestSubmitRejectsExistingOrder(t *testing.T) {
	order := submittedOrder(t)
	result := decide(order, command(t, ports.CommandSubmitOrder, ports.SubmitOrderPayload{
		OrderID:    "ord-1",
		CustomerID: "cust-1",
		Items:      []contractsv1.OrderItem{{ProductID: "p1", Quantity: 2}},
	}))
	if result.Status != decider.StatusRejected || result.Code != decider.CodeInvalidState {
		t.Fatalf("result = %+v", result)
	}
}

func TestConfirmThenCancelFollowsLifecycle(t *testing.T) {
	order := submittedOrder(t)

	confirm := decide(order, command(t, ports.CommandConfirmOrder, ports.ConfirmOrderPayload{
		OrderID:       "ord-1",
		ReservationID: "res-1",
	}))
	if confirm.Status != decider.StatusSuccess {
		t.Fatalf("confirm = %+v", confirm)
	}
	event := *confirm.Event
	event.OccurredAt = time.Date(2026, 2, 1, 12, 1, 0, 0, time.UTC)
	state, err := Apply(order, event)
	if err != nil {
		t.Fatalf("apply confirm: %v", err)
	}
	order = state.(*entities.Order)
	if order.Status != entities.OrderConfirmed || order.ReservationID != "res-1" {
		t.Fatalf("order = %+v", order)
	}

	// Compensation can still cancel a confirmed order.
	cancel := decide(order, command(t, ports.CommandCancelOrder, ports.CancelOrderPayload{
		OrderID: "ord-1",
		Reason:  "reservation released",
	}))
	if cancel.Status != decider.StatusSuccess {
		t.Fatalf("cancel = %+v", cancel)
	}
}

func TestCancelledOrderIsTerminal(t *testing.T) {
	order := submittedOrder(t)
	cancel := decide(order, command(t, ports.CommandCancelOrder, ports.CancelOrderPayload{
		OrderID: "ord-1",
		Reason:  "insufficient stock",
	}))
	event := *cancel.Event
	event.OccurredAt = time.Date(2026, 2, 1, 12, 1, 0, 0, time.UTC)
	state, err := Apply(order, event)
	if err != nil {
		t.Fatalf("apply cancel: %v", err)
	}
	order = state.(*entities.Order)

	confirm := decide(order, command(t, ports.CommandConfirmOrder, ports.ConfirmOrderPayload{
		OrderID:       "ord-1",
		ReservationID: "res-1",
	}))
	if confirm.Status != decider.StatusRejected || confirm.Code != decider.CodeInvalidLifecycleTransition {
		t.Fatalf("confirm after cancel = %+v", confirm)
	}

	cancelAgain := decide(order, command(t, ports.CommandCancelOrder, ports.CancelOrderPayload{
		OrderID: "ord-1",
	}))
	if cancelAgain.Status != decider.StatusRejected || cancelAgain.Code != decider.CodeInvalidLifecycleTransition {
		t.Fatalf("second cancel = %+v", cancelAgain)
	}
}

func TestConfirmMissingOrderIsNotFound(t *testing.T) {
	result := decide(nil, command(t, ports.CommandConfirmOrder, ports.ConfirmOrderPayload{
		OrderID:       "ord-404",
		ReservationID: "res-1",
	}))
	if result.Status != decider.StatusRejected || result.Code != decider.CodeNotFound {
		t.Fatalf("result = %+v", result)
	}
}
