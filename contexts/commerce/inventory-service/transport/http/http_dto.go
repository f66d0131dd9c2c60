package http

import (
	"encoding/json"
	"time"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ItemDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type CreateProductRequest struct {
	CommandID       string `json:"command_id,omitempty"`
	WarehouseID     string `json:"warehouse_id,omitempty"`
	ProductID       string `json:"product_id,omitempty"`
	SKU             string `json:"sku"`
	Name            string `json:"name"`
	InitialQuantity int64  `json:"initial_quantity"`
}

type AddStockRequest struct {
	CommandID   string `json:"command_id,omitempty"`
	WarehouseID string `json:"warehouse_id,omitempty"`
	ProductID   string `json:"product_id"`
	Quantity    int64  `json:"quantity"`
}

type ReserveStockRequest struct {
	CommandID     string    `json:"command_id,omitempty"`
	WarehouseID   string    `json:"warehouse_id,omitempty"`
	ReservationID string    `json:"reservation_id,omitempty"`
	OrderID       string    `json:"order_id"`
	Items         []ItemDTO `json:"items"`
}

type ReservationActionRequest struct {
	CommandID     string `json:"command_id,omitempty"`
	WarehouseID   string `json:"warehouse_id,omitempty"`
	ReservationID string `json:"reservation_id"`
	Reason        string `json:"reason,omitempty"`
}

// CommandResponse is the uniform command outcome envelope. Status follows the
// engine taxonomy: success, rejected, failed, duplicate, conflict_scheduled.
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

type ProductDTO struct {
	WarehouseID       string `json:"warehouse_id"`
	ProductID         string `json:"product_id"`
	SKU               string `json:"sku"`
	Name              string `json:"name"`
	AvailableQuantity int64  `json:"available_quantity"`
	ReservedQuantity  int64  `json:"reserved_quantity"`
	UpdatedAt         string `json:"updated_at"`
}

type ProductResponse struct {
	Status string     `json:"status"`
	Data   ProductDTO `json:"data"`
}

type ProductListResponse struct {
	Status string       `json:"status"`
	Data   []ProductDTO `json:"data"`
}

type ReservationDTO struct {
	WarehouseID   string    `json:"warehouse_id"`
	ReservationID string    `json:"reservation_id"`
	OrderID       string    `json:"order_id"`
	Items         []ItemDTO `json:"items"`
	Status        string    `json:"status"`
	ExpiresAt     string    `json:"expires_at"`
	UpdatedAt     string    `json:"updated_at"`
}

type ReservationResponse struct {
	Status string         `json:"status"`
	Data   ReservationDTO `json:"data"`
}

type AppliedEventDTO struct {
	EventID  string `json:"event_id"`
	Position int64  `json:"position"`
}

// ReconcileRequest carries a client's optimistic view of the catalog
// projection. CreatedAt marks when the oldest pending event was applied.
type ReconcileRequest struct {
	Position      int64             `json:"position"`
	AppliedEvents []AppliedEventDTO `json:"applied_events,omitempty"`
	CreatedAt     time.Time         `json:"created_at,omitempty"`
}

type VerdictDTO struct {
	HasConflict bool   `json:"has_conflict"`
	Type        string `json:"type,omitempty"`
	Resolution  string `json:"resolution"`
}

type ReconcileResponse struct {
	Status string     `json:"status"`
	Data   VerdictDTO `json:"data"`
}
