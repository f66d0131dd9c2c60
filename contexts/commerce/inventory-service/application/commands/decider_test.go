package commands

import (
	"encoding/json"
	"testing"
	"time"

	"meridian/contexts/commerce/inventory-service/domain/entities"
	"meridian/contexts/commerce/inventory-service/ports"
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
		StreamID:    ports.DefaultWarehouse,
		StreamType:  ports.StreamType,
		Payload:     raw,
	}
}

func applyResult(t *testing.T, state *entities.Inventory, result decider.Result) *entities.Inventory {
	t.Helper()
	if !result.HasEvent() {
		t.Fatalf("result carries no event: %+v", result)
	}
	event := *result.Event
	event.OccurredAt = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	next, err := Apply(state, event)
	if err != nil {
		t.Fatalf("apply %s: %v", event.EventType, err)
	}
	return next.(*entities.Inventory)
}

func seedInventory(t *testing.T, stock map[string]int64) *entities.Inventory {
	t.Helper()
	var inv *entities.Inventory
	for productID, quantity := range stock {
		result := decide(inv, command(t, ports.CommandCreateProduct, ports.CreateProductPayload{
			ProductID:       productID,
			SKU:             "sku-" + productID,
			Name:            productID,
			InitialQuantity: quantity,
		}))
		if result.Status != decider.StatusSuccess {
			t.Fatalf("seed product %s: %+v", productID, result)
		}
		inv = applyResult(t, inv, result)
	}
	return inv
}

func TestCreateProductRejectsDuplicateSKU(t *testing.T) {
	inv := seedInventory(t, map[string]int64{"p1": 5})

	result := decide(inv, command(t, ports.CommandCreateProduct, ports.CreateProductPayload{
		ProductID: "p2",
		SKU:       "sku-p1",
		Name:      "clone",
	}))
	if result.Status != decider.StatusRejected || result.Code != decider.CodeDuplicateSKU {
		t.Fatalf("result = %+v", result)
	}
	if result.Event != nil {
		t.Fatal("rejection must not carry an event")
	}
}

func TestReserveStockAllOrNothing(t *testing.T) {
	inv := seedInventory(t, map[string]int64{"p1": 10, "p2": 1})

	result := decide(inv, command(t, ports.CommandReserveStock, ports.ReserveStockPayload{
		ReservationID: "res-1",
		OrderID:       "ord-1",
		Items: []contractsv1.OrderItem{
			{ProductID: "p1", Quantity: 5},
			{ProductID: "p2", Quantity: 3},
		},
		ExpiresAt: time.Date(2026, 2, 1, 13, 0, 0, 0, time.UTC),
	}))
	if result.Status != decider.StatusFailed {
		t.Fatalf("status = %s, want failed", result.Status)
	}
	if result.Event == nil || result.Event.EventType != contractsv1.EventTypeReservationFailed {
		t.Fatalf("event = %+v", result.Event)
	}

	// The failure event is recorded but moves zero stock, even for the item
	// that could have been covered.
	inv = applyResult(t, inv, result)
	if got := inv.Products["p1"].AvailableQuantity; got != 10 {
		t.Fatalf("p1 available = %d, want 10", got)
	}
	if got := inv.Products["p1"].ReservedQuantity; got != 0 {
		t.Fatalf("p1 reserved = %d, want 0", got)
	}
	if _, exists := inv.Reservations["res-1"]; exists {
		t.Fatal("failed reservation must not be materialized")
	}

	var failed contractsv1.ReservationFailedData
	if err := json.Unmarshal(result.Event.Payload, &failed); err != nil {
		t.Fatalf("decode failure payload: %v", err)
	}
	if len(failed.Shortages) != 1 || failed.Shortages[0].ProductID != "p2" {
		t.Fatalf("shortages = %+v", failed.Shortages)
	}
	if failed.Shortages[0].Requested != 3 || failed.Shortages[0].Available != 1 {
		t.Fatalf("shortage detail = %+v", failed.Shortages[0])
	}
}

func TestReserveStockMovesEveryLineItem(t *testing.T) {
	inv := seedInventory(t, map[string]int64{"p1": 10, "p2": 4})

	result := decide(inv, command(t, ports.CommandReserveStock, ports.ReserveStockPayload{
		ReservationID: "res-1",
		OrderID:       "ord-1",
		Items: []contractsv1.OrderItem{
			{ProductID: "p1", Quantity: 5},
			{ProductID: "p2", Quantity: 3},
		},
		ExpiresAt: time.Date(2026, 2, 1, 13, 0, 0, 0, time.UTC),
	}))
	if result.Status != decider.StatusSuccess {
		t.Fatalf("result = %+v", result)
	}
	inv = applyResult(t, inv, result)

	if inv.Products["p1"].AvailableQuantity != 5 || inv.Products["p1"].ReservedQuantity != 5 {
		t.Fatalf("p1 = %+v", inv.Products["p1"])
	}
	if inv.Products["p2"].AvailableQuantity != 1 || inv.Products["p2"].ReservedQuantity != 3 {
		t.Fatalf("p2 = %+v", inv.Products["p2"])
	}
	reservation := inv.Reservations["res-1"]
	if reservation.Status != entities.ReservationPending {
		t.Fatalf("reservation status = %s", reservation.Status)
	}
}

func TestConfirmConsumesReservedStock(t *testing.T) {
	inv := seedInventory(t, map[string]int64{"p1": 10})
	inv = applyResult(t, inv, decide(inv, command(t, ports.CommandReserveStock, ports.ReserveStockPayload{
		ReservationID: "res-1",
		OrderID:       "ord-1",
		Items:         []contractsv1.OrderItem{{ProductID: "p1", Quantity: 4}},
		ExpiresAt:     time.Date(2026, 2, 1, 13, 0, 0, 0, time.UTC),
	})))

	result := decide(inv, command(t, ports.CommandConfirmReservation, ports.ConfirmReservationPayload{
		ReservationID: "res-1",
	}))
	if result.Status != decider.StatusSuccess {
		t.Fatalf("result = %+v", result)
	}
	inv = applyResult(t, inv, result)

	if inv.Products["p1"].AvailableQuantity != 6 || inv.Products["p1"].ReservedQuantity != 0 {
		t.Fatalf("p1 = %+v", inv.Products["p1"])
	}
	if inv.Reservations["res-1"].Status != entities.ReservationConfirmed {
		t.Fatalf("reservation = %+v", inv.Reservations["res-1"])
	}
}

func TestReleaseConfirmedReservationRestocks(t *testing.T) {
	inv := seedInventory(t, map[string]int64{"p1": 10})
	inv = applyResult(t, inv, decide(inv, command(t, ports.CommandReserveStock, ports.ReserveStockPayload{
		ReservationID: "res-1",
		OrderID:       "ord-1",
		Items:         []contractsv1.OrderItem{{ProductID: "p1", Quantity: 4}},
		ExpiresAt:     time.Date(2026, 2, 1, 13, 0, 0, 0, time.UTC),
	})))
	inv = applyResult(t, inv, decide(inv, command(t, ports.CommandConfirmReservation, ports.ConfirmReservationPayload{
		ReservationID: "res-1",
	})))

	result := decide(inv, command(t, ports.CommandReleaseReservation, ports.ReleaseReservationPayload{
		ReservationID: "res-1",
		Reason:        "order cancelled downstream",
	}))
	if result.Status != decider.StatusSuccess {
		t.Fatalf("result = %+v", result)
	}
	inv = applyResult(t, inv, result)

	if inv.Products["p1"].AvailableQuantity != 10 || inv.Products["p1"].ReservedQuantity != 0 {
		t.Fatalf("p1 = %+v", inv.Products["p1"])
	}
	if inv.Reservations["res-1"].Status != entities.ReservationReleased {
		t.Fatalf("reservation = %+v", inv.Reservations["res-1"])
	}
}

func TestExpireRejectsConfirmedReservation(t *testing.T) {
	inv := seedInventory(t, map[string]int64{"p1": 10})
	inv = applyResult(t, inv, decide(inv, command(t, ports.CommandReserveStock, ports.ReserveStockPayload{
		ReservationID: "res-1",
		OrderID:       "ord-1",
		Items:         []contractsv1.OrderItem{{ProductID: "p1", Quantity: 4}},
		ExpiresAt:     time.Date(2026, 2, 1, 13, 0, 0, 0, time.UTC),
	})))
	inv = applyResult(t, inv, decide(inv, command(t, ports.CommandConfirmReservation, ports.ConfirmReservationPayload{
		ReservationID: "res-1",
	})))

	result := decide(inv, command(t, ports.CommandExpireReservation, ports.ExpireReservationPayload{
		ReservationID: "res-1",
		Now:           time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC),
	}))
	if result.Status != decider.StatusRejected || result.Code != decider.CodeInvalidLifecycleTransition {
		t.Fatalf("result = %+v", result)
	}
}

func TestExpireRejectsReservationStillWithinTTL(t *testing.T) {
	inv := seedInventory(t, map[string]int64{"p1": 10})
	inv = applyResult(t, inv, decide(inv, command(t, ports.CommandReserveStock, ports.ReserveStockPayload{
		ReservationID: "res-1",
		OrderID:       "ord-1",
		Items:         []contractsv1.OrderItem{{ProductID: "p1", Quantity: 4}},
		ExpiresAt:     time.Date(2026, 2, 1, 13, 0, 0, 0, time.UTC),
	})))

	result := decide(inv, command(t, ports.CommandExpireReservation, ports.ExpireReservationPayload{
		ReservationID: "res-1",
		Now:           time.Date(2026, 2, 1, 12, 30, 0, 0, time.UTC),
	}))
	if result.Status != decider.StatusRejected || result.Code != decider.CodeInvalidState {
		t.Fatalf("result = %+v", result)
	}
}

func TestExpireReturnsPendingStock(t *testing.T) {
	inv := seedInventory(t, map[string]int64{"p1": 10})
	inv = applyResult(t, inv, decide(inv, command(t, ports.CommandReserveStock, ports.ReserveStockPayload{
		ReservationID: "res-1",
		OrderID:       "ord-1",
		Items:         []contractsv1.OrderItem{{ProductID: "p1", Quantity: 4}},
		ExpiresAt:     time.Date(2026, 2, 1, 13, 0, 0, 0, time.UTC),
	})))

	result := decide(inv, command(t, ports.CommandExpireReservation, ports.ExpireReservationPayload{
		ReservationID: "res-1",
		Now:           time.Date(2026, 2, 1, 14, 0, 0, 0, time.UTC),
	}))
	if result.Status != decider.StatusSuccess {
		t.Fatalf("result = %+v", result)
	}
	inv = applyResult(t, inv, result)

	if inv.Products["p1"].AvailableQuantity != 10 || inv.Products["p1"].ReservedQuantity != 0 {
		t.Fatalf("p1 = %+v", inv.Products["p1"])
	}
	if inv.Reservations["res-1"].Status != entities.ReservationExpired {
		t.Fatalf("reservation = %+v", inv.Reservations["res-1"])
	}
}
