// Package commands holds the pure inventory decision logic and the event
// applier that folds committed events back into the aggregate.
package commands

import (
	"fmt"
	"strings"
	"time"

	"meridian/contexts/commerce/inventory-service/domain/entities"
	"meridian/contexts/commerce/inventory-service/ports"
	contractsv1 "meridian/contracts/gen/events/v1"
	"meridian/internal/engine/decider"
	"meridian/internal/engine/lifecycle"
	"meridian/internal/shared/events"
)

// Decider returns the pure decision function for the inventory stream type.
func Decider() decider.Decider {
	return decider.Func(decide)
}

func decide(state any, command decider.Command) decider.Result {
	inv := inventoryState(state)

	switch command.CommandType {
	case ports.CommandCreateProduct:
		return decideCreateProduct(inv, command)
	case ports.CommandAddStock:
		return decideAddStock(inv, command)
	case ports.CommandReserveStock:
		return decideReserveStock(inv, command)
	case ports.CommandConfirmReservation:
		return decideConfirmReservation(inv, command)
	case ports.CommandReleaseReservation:
		return decideReleaseReservation(inv, command)
	case ports.CommandExpireReservation:
		return decideExpireReservation(inv, command)
	default:
		return decider.Rejected(decider.CodeInvalidCommand, "unknown inventory command type", map[string]any{
			"command_type": command.CommandType,
		})
	}
}

func inventoryState(state any) *entities.Inventory {
	if inv, ok := state.(*entities.Inventory); ok && inv != nil {
		return inv
	}
	return entities.NewInventory()
}

func decideCreateProduct(inv *entities.Inventory, command decider.Command) decider.Result {
	var payload ports.CreateProductPayload
	if err := command.DecodePayload(&payload); err != nil {
		return invalidPayload(err)
	}
	if strings.TrimSpace(payload.ProductID) == "" || strings.TrimSpace(payload.SKU) == "" {
		return decider.Rejected(decider.CodeInvalidCommand, "product_id and sku are required", nil)
	}
	if payload.InitialQuantity < 0 {
		return decider.Rejected(decider.CodeInvalidCommand, "initial_quantity must not be negative", nil)
	}
	if _, exists := inv.Products[payload.ProductID]; exists {
		return decider.Rejected(decider.CodeInvalidState, "product already exists", map[string]any{
			"product_id": payload.ProductID,
		})
	}
	if owner, taken := inv.SKUIndex[payload.SKU]; taken {
		return decider.Rejected(decider.CodeDuplicateSKU, "sku already registered", map[string]any{
			"sku":        payload.SKU,
			"product_id": owner,
		})
	}
	return successEvent(contractsv1.EventTypeProductCreated, payload)
}

func decideAddStock(inv *entities.Inventory, command decider.Command) decider.Result {
	var payload ports.AddStockPayload
	if err := command.DecodePayload(&payload); err != nil {
		return invalidPayload(err)
	}
	if payload.Quantity <= 0 {
		return decider.Rejected(decider.CodeInvalidCommand, "quantity must be positive", nil)
	}
	if _, ok := inv.Products[payload.ProductID]; !ok {
		return decider.Rejected(decider.CodeProductNotFound, "product not found", map[string]any{
			"product_id": payload.ProductID,
		})
	}
	return successEvent(contractsv1.EventTypeStockAdded, payload)
}

func decideReserveStock(inv *entities.Inventory, command decider.Command) decider.Result {
	var payload ports.ReserveStockPayload
	if err := command.DecodePayload(&payload); err != nil {
		return invalidPayload(err)
	}
	if strings.TrimSpace(payload.ReservationID) == "" || len(payload.Items) == 0 {
		return decider.Rejected(decider.CodeInvalidCommand, "reservation_id and items are required", nil)
	}
	for _, item := range payload.Items {
		if item.Quantity <= 0 {
			return decider.Rejected(decider.CodeInvalidCommand, "item quantity must be positive", map[string]any{
				"product_id": item.ProductID,
			})
		}
	}
	if _, exists := inv.Reservations[payload.ReservationID]; exists {
		return decider.Rejected(decider.CodeInvalidState, "reservation already exists", map[string]any{
			"reservation_id": payload.ReservationID,
		})
	}
	if productID, ok := inv.HasProduct(toItems(payload.Items)); !ok {
		return decider.Rejected(decider.CodeProductNotFound, "product not found", map[string]any{
			"product_id": productID,
		})
	}

	// All-or-nothing: a shortage on any line item fails the whole reservation
	// and moves zero stock. The negative outcome is itself an event.
	if shortages := inv.CheckAvailability(toItems(payload.Items)); len(shortages) > 0 {
		failed := contractsv1.ReservationFailedData{
			ReservationID: payload.ReservationID,
			OrderID:       payload.OrderID,
			Items:         payload.Items,
		}
		shortageContext := make([]map[string]any, 0, len(shortages))
		for _, s := range shortages {
			failed.Shortages = append(failed.Shortages, contractsv1.Shortage{
				ProductID: s.ProductID,
				Requested: s.Requested,
				Available: s.Available,
			})
			shortageContext = append(shortageContext, map[string]any{
				"product_id": s.ProductID,
				"requested":  s.Requested,
				"available":  s.Available,
			})
		}
		raw, err := events.MarshalPayload(failed)
		if err != nil {
			return invalidPayload(err)
		}
		return decider.Failed("insufficient stock", &events.Event{
			EventType:      contractsv1.EventTypeReservationFailed,
			Payload:        raw,
			Category:       events.CategoryIntegration,
			BoundedContext: "commerce",
		}, 0, map[string]any{"shortages": shortageContext})
	}

	return successEvent(contractsv1.EventTypeStockReserved, contractsv1.StockReservedData{
		ReservationID: payload.ReservationID,
		OrderID:       payload.OrderID,
		Items:         payload.Items,
		ExpiresAt:     payload.ExpiresAt.UTC().Format(time.RFC3339Nano),
	})
}

func decideConfirmReservation(inv *entities.Inventory, command decider.Command) decider.Result {
	var payload ports.ConfirmReservationPayload
	if err := command.DecodePayload(&payload); err != nil {
		return invalidPayload(err)
	}
	reservation, ok := inv.Reservations[payload.ReservationID]
	if !ok {
		return reservationNotFound(payload.ReservationID)
	}
	if result, ok := requireTransition(reservation, entities.ReservationConfirmed); !ok {
		return result
	}
	return successEvent(contractsv1.EventTypeReservationConfirmed, contractsv1.ReservationConfirmedData{
		ReservationID: reservation.ReservationID,
		OrderID:       reservation.OrderID,
	})
}

func decideReleaseReservation(inv *entities.Inventory, command decider.Command) decider.Result {
	var payload ports.ReleaseReservationPayload
	if err := command.DecodePayload(&payload); err != nil {
		return invalidPayload(err)
	}
	reservation, ok := inv.Reservations[payload.ReservationID]
	if !ok {
		return reservationNotFound(payload.ReservationID)
	}
	if result, ok := requireTransition(reservation, entities.ReservationReleased); !ok {
		return result
	}
	return successEvent(contractsv1.EventTypeReservationReleased, contractsv1.ReservationReleasedData{
		ReservationID: reservation.ReservationID,
		OrderID:       reservation.OrderID,
		Reason:        payload.Reason,
	})
}

func decideExpireReservation(inv *entities.Inventory, command decider.Command) decider.Result {
	var payload ports.ExpireReservationPayload
	if err := command.DecodePayload(&payload); err != nil {
		return invalidPayload(err)
	}
	reservation, ok := inv.Reservations[payload.ReservationID]
	if !ok {
		return reservationNotFound(payload.ReservationID)
	}
	if result, ok := requireTransition(reservation, entities.ReservationExpired); !ok {
		return result
	}
	if !reservation.ExpiresAt.Before(payload.Now) {
		return decider.Rejected(decider.CodeInvalidState, "reservation has not expired yet", map[string]any{
			"reservation_id": reservation.ReservationID,
			"expires_at":     reservation.ExpiresAt,
		})
	}
	return successEvent(contractsv1.EventTypeReservationExpired, contractsv1.ReservationExpiredData{
		ReservationID: reservation.ReservationID,
		OrderID:       reservation.OrderID,
	})
}

func requireTransition(reservation entities.Reservation, target lifecycle.State) (decider.Result, bool) {
	if _, err := entities.ReservationMachine.Transition(lifecycle.State(reservation.Status), target); err != nil {
		return decider.Rejected(decider.CodeInvalidLifecycleTransition, err.Error(), map[string]any{
			"reservation_id": reservation.ReservationID,
			"from":           reservation.Status,
			"to":             string(target),
		}), false
	}
	return decider.Result{}, true
}

func reservationNotFound(reservationID string) decider.Result {
	return decider.Rejected(decider.CodeNotFound, "reservation not found", map[string]any{
		"reservation_id": reservationID,
	})
}

func invalidPayload(err error) decider.Result {
	return decider.Rejected(decider.CodeInvalidCommand, fmt.Sprintf("payload decode failed: %v", err), nil)
}

func successEvent(eventType string, payload any) decider.Result {
	raw, err := events.MarshalPayload(payload)
	if err != nil {
		return invalidPayload(err)
	}
	return decider.Success(raw, 0, &events.Event{
		EventType:      eventType,
		Payload:        raw,
		Category:       events.CategoryIntegration,
		BoundedContext: "commerce",
	})
}

func toItems(items []contractsv1.OrderItem) []entities.ReservationItem {
	converted := make([]entities.ReservationItem, 0, len(items))
	for _, item := range items {
		converted = append(converted, entities.ReservationItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return converted
}
