package commands

import (
	"fmt"
	"time"

	"meridian/contexts/commerce/inventory-service/domain/entities"
	"meridian/contexts/commerce/inventory-service/ports"
	contractsv1 "meridian/contracts/gen/events/v1"
	"meridian/internal/shared/events"
)

// Apply folds a committed inventory event into the aggregate state. It is the
// orchestrator's Applier for the inventory stream type and the replay
// function for rebuilding state from the log.
func Apply(state any, event events.Event) (any, error) {
	inv := inventoryState(state)

	switch event.EventType {
	case contractsv1.EventTypeProductCreated:
		var payload ports.CreateProductPayload
		if err := event.DecodePayload(&payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		inv.Products[payload.ProductID] = entities.Product{
			ProductID:         payload.ProductID,
			SKU:               payload.SKU,
			Name:              payload.Name,
			AvailableQuantity: payload.InitialQuantity,
			CreatedAt:         event.OccurredAt,
			UpdatedAt:         event.OccurredAt,
		}
		inv.SKUIndex[payload.SKU] = payload.ProductID

	case contractsv1.EventTypeStockAdded:
		var payload ports.AddStockPayload
		if err := event.DecodePayload(&payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		product := inv.Products[payload.ProductID]
		product.AvailableQuantity += payload.Quantity
		product.UpdatedAt = event.OccurredAt
		inv.Products[payload.ProductID] = product

	case contractsv1.EventTypeStockReserved:
		var payload contractsv1.StockReservedData
		if err := event.DecodePayload(&payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		for _, item := range payload.Items {
			product := inv.Products[item.ProductID]
			product.AvailableQuantity -= item.Quantity
			product.ReservedQuantity += item.Quantity
			product.UpdatedAt = event.OccurredAt
			inv.Products[item.ProductID] = product
		}
		expiresAt, _ := time.Parse(time.RFC3339Nano, payload.ExpiresAt)
		inv.Reservations[payload.ReservationID] = entities.Reservation{
			ReservationID: payload.ReservationID,
			OrderID:       payload.OrderID,
			Items:         toItems(payload.Items),
			Status:        entities.ReservationPending,
			ExpiresAt:     expiresAt,
			CreatedAt:     event.OccurredAt,
			UpdatedAt:     event.OccurredAt,
		}

	case contractsv1.EventTypeReservationFailed:
		// No stock moved, no reservation entity created. The event exists for
		// sagas and audit, not for aggregate state.

	case contractsv1.EventTypeReservationConfirmed:
		var payload contractsv1.ReservationConfirmedData
		if err := event.DecodePayload(&payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		reservation := inv.Reservations[payload.ReservationID]
		for _, item := range reservation.Items {
			product := inv.Products[item.ProductID]
			product.ReservedQuantity -= item.Quantity
			product.UpdatedAt = event.OccurredAt
			inv.Products[item.ProductID] = product
		}
		reservation.Status = entities.ReservationConfirmed
		reservation.UpdatedAt = event.OccurredAt
		inv.Reservations[payload.ReservationID] = reservation

	case contractsv1.EventTypeReservationReleased:
		var payload contractsv1.ReservationReleasedData
		if err := event.DecodePayload(&payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		reservation := inv.Reservations[payload.ReservationID]
		for _, item := range reservation.Items {
			product := inv.Products[item.ProductID]
			if reservation.Status == entities.ReservationPending {
				product.ReservedQuantity -= item.Quantity
			}
			// Pending holds return to available; confirmed holds were already
			// consumed and a release restocks them.
			product.AvailableQuantity += item.Quantity
			product.UpdatedAt = event.OccurredAt
			inv.Products[item.ProductID] = product
		}
		reservation.Status = entities.ReservationReleased
		reservation.UpdatedAt = event.OccurredAt
		inv.Reservations[payload.ReservationID] = reservation

	case contractsv1.EventTypeReservationExpired:
		var payload contractsv1.ReservationExpiredData
		if err := event.DecodePayload(&payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		reservation := inv.Reservations[payload.ReservationID]
		for _, item := range reservation.Items {
			product := inv.Products[item.ProductID]
			product.ReservedQuantity -= item.Quantity
			product.AvailableQuantity += item.Quantity
			product.UpdatedAt = event.OccurredAt
			inv.Products[item.ProductID] = product
		}
		reservation.Status = entities.ReservationExpired
		reservation.UpdatedAt = event.OccurredAt
		inv.Reservations[payload.ReservationID] = reservation

	default:
		return nil, fmt.Errorf("unknown inventory event type %q", event.EventType)
	}

	return inv, nil
}
