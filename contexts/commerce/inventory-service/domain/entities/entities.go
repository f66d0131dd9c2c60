// Package entities holds the inventory aggregate. One Inventory stream per
// warehouse carries every product and reservation in that warehouse, which is
// what makes multi-item reservations all-or-nothing: a single decision over a
// single version covers every line item.
package entities

import (
	"time"

	"meridian/internal/engine/lifecycle"
)

// Reservation lifecycle states.
const (
	ReservationPending   = "pending"
	ReservationConfirmed = "confirmed"
	ReservationReleased  = "released"
	ReservationExpired   = "expired"
)

// ReservationMachine validates reservation status transitions. Expired is
// reachable only from pending; the sweep never touches confirmed holds.
// Confirmed reservations keep released as a compensation escape hatch.
var ReservationMachine = lifecycle.New("reservation", map[lifecycle.State][]lifecycle.State{
	ReservationPending:   {ReservationConfirmed, ReservationReleased, ReservationExpired},
	ReservationConfirmed: {ReservationReleased},
})

type Product struct {
	ProductID         string    `json:"product_id"`
	SKU               string    `json:"sku"`
	Name              string    `json:"name"`
	AvailableQuantity int64     `json:"available_quantity"`
	ReservedQuantity  int64     `json:"reserved_quantity"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type ReservationItem struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

type Reservation struct {
	ReservationID string            `json:"reservation_id"`
	OrderID       string            `json:"order_id"`
	Items         []ReservationItem `json:"items"`
	Status        string            `json:"status"`
	ExpiresAt     time.Time         `json:"expires_at"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Inventory is the aggregate state materialized from the event stream.
type Inventory struct {
	Products     map[string]Product     `json:"products"`
	SKUIndex     map[string]string      `json:"sku_index"`
	Reservations map[string]Reservation `json:"reservations"`
}

func NewInventory() *Inventory {
	return &Inventory{
		Products:     make(map[string]Product),
		SKUIndex:     make(map[string]string),
		Reservations: make(map[string]Reservation),
	}
}

// Shortage reports one line item that could not be covered.
type Shortage struct {
	ProductID string
	Requested int64
	Available int64
}

// CheckAvailability returns the shortages that would prevent reserving items.
// An empty slice means the reservation can be taken in full.
func (inv *Inventory) CheckAvailability(items []ReservationItem) []Shortage {
	var shortages []Shortage
	for _, item := range items {
		product, ok := inv.Products[item.ProductID]
		available := int64(0)
		if ok {
			available = product.AvailableQuantity
		}
		if available < item.Quantity {
			shortages = append(shortages, Shortage{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: available,
			})
		}
	}
	return shortages
}

// HasProduct reports whether every referenced product exists.
func (inv *Inventory) HasProduct(items []ReservationItem) (string, bool) {
	for _, item := range items {
		if _, ok := inv.Products[item.ProductID]; !ok {
			return item.ProductID, false
		}
	}
	return "", true
}
