// Package entities holds the order aggregate. One stream per order.
package entities

import (
	"time"

	"meridian/internal/engine/lifecycle"
)

const (
	OrderSubmitted = "submitted"
	OrderConfirmed = "confirmed"
	OrderCancelled = "cancelled"
)

// OrderMachine validates order status transitions. Confirmed orders stay
// cancellable so saga compensation can unwind a fulfillment that failed after
// confirmation.
var OrderMachine = lifecycle.New("order", map[lifecycle.State][]lifecycle.State{
	OrderSubmitted: {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderCancelled},
})

type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type Order struct {
	OrderID       string      `json:"order_id"`
	CustomerID    string      `json:"customer_id"`
	Items         []OrderItem `json:"items"`
	Status        string      `json:"status"`
	ReservationID string      `json:"reservation_id,omitempty"`
	CancelReason  string      `json:"cancel_reason,omitempty"`
	SubmittedAt   time.Time   `json:"submitted_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}
