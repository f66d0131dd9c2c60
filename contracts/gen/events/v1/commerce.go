package v1

// Commerce event type identifiers and payload contracts shared across
// bounded contexts. This package is generated-contract-only and must stay
// backward compatible.

const (
	EventTypeProductCreated       = "inventory.product_created"
	EventTypeStockAdded           = "inventory.stock_added"
	EventTypeStockReserved        = "inventory.stock_reserved"
	EventTypeReservationFailed    = "inventory.reservation_failed"
	EventTypeReservationConfirmed = "inventory.reservation_confirmed"
	EventTypeReservationReleased  = "inventory.reservation_released"
	EventTypeReservationExpired   = "inventory.reservation_expired"

	EventTypeOrderSubmitted = "order.submitted"
	EventTypeOrderConfirmed = "order.confirmed"
	EventTypeOrderCancelled = "order.cancelled"
)

type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type OrderSubmittedData struct {
	OrderID     string      `json:"order_id"`
	CustomerID  string      `json:"customer_id"`
	Items       []OrderItem `json:"items"`
	SubmittedAt string      `json:"submitted_at"`
}

type OrderConfirmedData struct {
	OrderID       string `json:"order_id"`
	ReservationID string `json:"reservation_id"`
}

type OrderCancelledData struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type StockReservedData struct {
	ReservationID string      `json:"reservation_id"`
	OrderID       string      `json:"order_id"`
	Items         []OrderItem `json:"items"`
	ExpiresAt     string      `json:"expires_at"`
}

type ReservationFailedData struct {
	ReservationID string      `json:"reservation_id"`
	OrderID       string      `json:"order_id"`
	Items         []OrderItem `json:"items"`
	Shortages     []Shortage  `json:"shortages"`
}

type Shortage struct {
	ProductID string `json:"product_id"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

type ReservationConfirmedData struct {
	ReservationID string `json:"reservation_id"`
	OrderID       string `json:"order_id"`
}

type ReservationReleasedData struct {
	ReservationID string `json:"reservation_id"`
	OrderID       string `json:"order_id"`
	Reason        string `json:"reason"`
}

type ReservationExpiredData struct {
	ReservationID string `json:"reservation_id"`
	OrderID       string `json:"order_id"`
}
