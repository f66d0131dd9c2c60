package ports

import (
	"context"
	"time"

	"meridian/contexts/commerce/inventory-service/domain/entities"
	contractsv1 "meridian/contracts/gen/events/v1"
)

// Command types handled by the inventory decider.
const (
	CommandCreateProduct      = "inventory.create_product"
	CommandAddStock           = "inventory.add_stock"
	CommandReserveStock       = "inventory.reserve_stock"
	CommandConfirmReservation = "inventory.confirm_reservation"
	CommandReleaseReservation = "inventory.release_reservation"
	CommandExpireReservation  = "inventory.expire_reservation"
)

// StreamType is the aggregate stream type for warehouse inventory.
const StreamType = "inventory"

// DefaultWarehouse is the stream id used when a request names no warehouse.
const DefaultWarehouse = "main"

// Command payloads. Timestamps are resolved by the application service before
// the decider runs so decisions stay pure.

type CreateProductPayload struct {
	ProductID       string `json:"product_id"`
	SKU             string `json:"sku"`
	Name            string `json:"name"`
	InitialQuantity int64  `json:"initial_quantity"`
}

type AddStockPayload struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

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

type ExpireReservationPayload struct {
	ReservationID string    `json:"reservation_id"`
	Now           time.Time `json:"now"`
}

// Read model views maintained by the catalog projection.

type ProductView struct {
	WarehouseID       string    `json:"warehouse_id"`
	ProductID         string    `json:"product_id"`
	SKU               string    `json:"sku"`
	Name              string    `json:"name"`
	AvailableQuantity int64     `json:"available_quantity"`
	ReservedQuantity  int64     `json:"reserved_quantity"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type ReservationView struct {
	WarehouseID   string                     `json:"warehouse_id"`
	ReservationID string                     `json:"reservation_id"`
	OrderID       string                     `json:"order_id"`
	Items         []entities.ReservationItem `json:"items"`
	Status        string                     `json:"status"`
	ExpiresAt     time.Time                  `json:"expires_at"`
	UpdatedAt     time.Time                  `json:"updated_at"`
}

// ReadModel is the query-side store fed by the catalog projection.
type ReadModel interface {
	UpsertProduct(ctx context.Context, view ProductView) error
	GetProduct(ctx context.Context, productID string) (ProductView, bool, error)
	ListProducts(ctx context.Context, warehouseID string) ([]ProductView, error)
	UpsertReservation(ctx context.Context, view ReservationView) error
	GetReservation(ctx context.Context, reservationID string) (ReservationView, bool, error)
	// ListExpiredPending returns pending reservations whose ExpiresAt is
	// before now. The sweep turns each into an expire command.
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]ReservationView, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
