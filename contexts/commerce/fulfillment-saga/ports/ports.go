package ports

import (
	"context"
	"time"

	contractsv1 "meridian/contracts/gen/events/v1"
	"meridian/internal/engine/decider"
)

// SagaType identifies the order fulfillment workflow.
const SagaType = "order-fulfillment"

// Step names recorded in the step history.
const (
	StepReserveStock       = "reserve-stock"
	StepConfirmOrder       = "confirm-order"
	StepConfirmReservation = "confirm-reservation"
	StepCancelOrder        = "cancel-order"
	StepReleaseReservation = "release-reservation"
)

// Command type and payload shapes this saga issues to the other commerce
// services. They are coupled through the wire format only; the constants
// mirror the command types those services register.
const (
	CommandReserveStock       = "inventory.reserve_stock"
	CommandConfirmReservation = "inventory.confirm_reservation"
	CommandReleaseReservation = "inventory.release_reservation"
	CommandConfirmOrder       = "order.confirm"
	CommandCancelOrder        = "order.cancel"

	InventoryStreamType = "inventory"
	OrderStreamType     = "order"
	DefaultWarehouse    = "main"
)

type ReserveStockPayload struct {
	ReservationID string                  `json:"reservation_id"`
	OrderID       string                  `json:"order_id"`
	Items         []contractsv1.OrderItem `json:"items"`
	ExpiresAt     time.Time               `json:"expires_at"`
}

type ConfirmReservationPayload struct {
	ReservationID string `json:"reservation_id"`
}

type ReleaseReservationPayload struct {
	ReservationID string `json:"reservation_id"`
	Reason        string `json:"reason"`
}

type ConfirmOrderPayload struct {
	OrderID       string `json:"order_id"`
	ReservationID string `json:"reservation_id"`
}

type CancelOrderPayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// CommandBus executes a command against one service's orchestrator. The
// runner routes by the command's stream type.
type CommandBus interface {
	Execute(ctx context.Context, command decider.Command) (decider.Result, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
