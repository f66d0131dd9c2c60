package http

import "encoding/json"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ItemDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type SubmitOrderRequest struct {
	CommandID  string    `json:"command_id,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	CustomerID string    `json:"customer_id"`
	Items      []ItemDTO `json:"items"`
}

type ConfirmOrderRequest struct {
	CommandID     string `json:"command_id,omitempty"`
	OrderID       string `json:"order_id"`
	ReservationID string `json:"reservation_id"`
}

type CancelOrderRequest struct {
	CommandID string `json:"command_id,omitempty"`
	OrderID   string `json:"order_id"`
	Reason    string `json:"reason,omitempty"`
}

type CommandResponse struct {
	Status      string          `json:"status"`
	Code        string          `json:"code,omitempty"`
	Reason      string          `json:"reason,omitempty"`
	Version     int64           `json:"version,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Context     map[string]any  `json:"context,omitempty"`
	Attempt     int             `json:"attempt,omitempty"`
	ScheduledMs int64           `json:"scheduled_ms,omitempty"`
}

type OrderDTO struct {
	OrderID       string    `json:"order_id"`
	CustomerID    string    `json:"customer_id"`
	Items         []ItemDTO `json:"items"`
	Status        string    `json:"status"`
	ReservationID string    `json:"reservation_id,omitempty"`
	CancelReason  string    `json:"cancel_reason,omitempty"`
	ItemCount     int64     `json:"item_count"`
	SubmittedAt   string    `json:"submitted_at"`
	UpdatedAt     string    `json:"updated_at"`
}

type OrderResponse struct {
	Status string   `json:"status"`
	Data   OrderDTO `json:"data"`
}

type OrderListResponse struct {
	Status string     `json:"status"`
	Data   []OrderDTO `json:"data"`
}
