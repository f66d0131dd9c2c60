package ports

import (
	"context"
	"time"

	contractsv1 "meridian/contracts/gen/events/v1"
)

const (
	CommandSubmitOrder  = "order.submit"
	CommandConfirmOrder = "order.confirm"
	CommandCancelOrder  = "order.cancel"
)

// StreamType is the aggregate stream type; the stream id is the order id.
const StreamType = "order"

type SubmitOrderPayload struct {
	OrderID     string                  `json:"order_id"`
	CustomerID  string                  `json:"customer_id"`
	Items       []contractsv1.OrderItem `json:"items"`
	SubmittedAt time.Time               `json:"submitted_at"`
}

type ConfirmOrderPayload struct {
	OrderID       string `json:"order_id"`
	ReservationID string `json:"reservation_id"`
}

type CancelOrderPayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

// SummaryView is the order summary read model row, maintained by the summary
// projection partitioned per order.
type SummaryView struct {
	OrderID       string                  `json:"order_id"`
	CustomerID    string                  `json:"customer_id"`
	Items         []contractsv1.OrderItem `json:"items"`
	Status        string                  `json:"status"`
	ReservationID string                  `json:"reservation_id,omitempty"`
	CancelReason  string                  `json:"cancel_reason,omitempty"`
	ItemCount     int64                   `json:"item_count"`
	SubmittedAt   time.Time               `json:"submitted_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

type ReadModel interface {
	UpsertSummary(ctx context.Context, view SummaryView) error
	GetSummary(ctx context.Context, orderID string) (SummaryView, bool, error)
	ListSummaries(ctx context.Context, status string, limit int) ([]SummaryView, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
