// Package projections maintains the inventory read model from committed
// events. Application is idempotent through the checkpoint helper; redelivery
// and catch-up replay converge on the same rows.
package projections

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"meridian/contexts/commerce/inventory-service/domain/entities"
	"meridian/contexts/commerce/inventory-service/ports"
	contractsv1 "meridian/contracts/gen/events/v1"
	"meridian/internal/engine/checkpoint"
	"meridian/internal/shared/events"
)

// ProjectionName identifies the catalog projection's checkpoints.
const ProjectionName = "inventory-catalog"

// SkipCounter observes idempotent skips. A nil counter disables recording.
type SkipCounter interface {
	CheckpointSkipped(projection string)
}

// Catalog applies inventory events to the product and reservation views,
// partitioned by warehouse stream.
type Catalog struct {
	Checkpoints checkpoint.Helper
	ReadModel   ports.ReadModel
	Skips       SkipCounter
	Logger      *slog.Logger
}

// HandleEnvelope is the bus subscription entry point.
func (c Catalog) HandleEnvelope(ctx context.Context, envelope contractsv1.Envelope) error {
	return c.Handle(ctx, events.FromEnvelope(envelope))
}

// Handle applies one event under the checkpoint protocol.
func (c Catalog) Handle(ctx context.Context, event events.Event) error {
	outcome, err := c.Checkpoints.Apply(ctx, ProjectionName, event.StreamID, event.GlobalPosition, event.EventID, func(ctx context.Context) error {
		return c.apply(ctx, event)
	})
	if err != nil {
		return err
	}
	if outcome == checkpoint.OutcomeSkipped && c.Skips != nil {
		c.Skips.CheckpointSkipped(ProjectionName)
	}
	return nil
}

func (c Catalog) apply(ctx context.Context, event events.Event) error {
	warehouseID := event.StreamID

	switch event.EventType {
	case contractsv1.EventTypeProductCreated:
		var payload ports.CreateProductPayload
		if err := event.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		return c.ReadModel.UpsertProduct(ctx, ports.ProductView{
			WarehouseID:       warehouseID,
			ProductID:         payload.ProductID,
			SKU:               payload.SKU,
			Name:              payload.Name,
			AvailableQuantity: payload.InitialQuantity,
			UpdatedAt:         event.OccurredAt,
		})

	case contractsv1.EventTypeStockAdded:
		var payload ports.AddStockPayload
		if err := event.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		return c.adjustProduct(ctx, payload.ProductID, event.OccurredAt, payload.Quantity, 0)

	case contractsv1.EventTypeStockReserved:
		var payload contractsv1.StockReservedData
		if err := event.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		for _, item := range payload.Items {
			if err := c.adjustProduct(ctx, item.ProductID, event.OccurredAt, -item.Quantity, item.Quantity); err != nil {
				return err
			}
		}
		expiresAt, _ := time.Parse(time.RFC3339Nano, payload.ExpiresAt)
		return c.ReadModel.UpsertReservation(ctx, ports.ReservationView{
			WarehouseID:   warehouseID,
			ReservationID: payload.ReservationID,
			OrderID:       payload.OrderID,
			Items:         toItems(payload.Items),
			Status:        entities.ReservationPending,
			ExpiresAt:     expiresAt,
			UpdatedAt:     event.OccurredAt,
		})

	case contractsv1.EventTypeReservationFailed:
		// Nothing materialized; the saga reacts to the event directly.
		return nil

	case contractsv1.EventTypeReservationConfirmed:
		var payload contractsv1.ReservationConfirmedData
		if err := event.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		return c.transitionReservation(ctx, payload.ReservationID, entities.ReservationConfirmed, event.OccurredAt, func(item entities.ReservationItem) (int64, int64) {
			return 0, -item.Quantity
		})

	case contractsv1.EventTypeReservationReleased:
		var payload contractsv1.ReservationReleasedData
		if err := event.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		view, found, err := c.ReadModel.GetReservation(ctx, payload.ReservationID)
		if err != nil || !found {
			return err
		}
		return c.transitionReservation(ctx, payload.ReservationID, entities.ReservationReleased, event.OccurredAt, func(item entities.ReservationItem) (int64, int64) {
			if view.Status == entities.ReservationPending {
				return item.Quantity, -item.Quantity
			}
			return item.Quantity, 0
		})

	case contractsv1.EventTypeReservationExpired:
		var payload contractsv1.ReservationExpiredData
		if err := event.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		return c.transitionReservation(ctx, payload.ReservationID, entities.ReservationExpired, event.OccurredAt, func(item entities.ReservationItem) (int64, int64) {
			return item.Quantity, -item.Quantity
		})
	}
	return nil
}

// adjustProduct shifts available/reserved quantities on one product view.
func (c Catalog) adjustProduct(ctx context.Context, productID string, at time.Time, availableDelta, reservedDelta int64) error {
	view, found, err := c.ReadModel.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("product view %s missing during projection", productID)
	}
	view.AvailableQuantity += availableDelta
	view.ReservedQuantity += reservedDelta
	view.UpdatedAt = at
	return c.ReadModel.UpsertProduct(ctx, view)
}

func (c Catalog) transitionReservation(
	ctx context.Context,
	reservationID string,
	status string,
	at time.Time,
	deltas func(item entities.ReservationItem) (availableDelta, reservedDelta int64),
) error {
	view, found, err := c.ReadModel.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("reservation view %s missing during projection", reservationID)
	}
	for _, item := range view.Items {
		availableDelta, reservedDelta := deltas(item)
		if err := c.adjustProduct(ctx, item.ProductID, at, availableDelta, reservedDelta); err != nil {
			return err
		}
	}
	view.Status = status
	view.UpdatedAt = at
	return c.ReadModel.UpsertReservation(ctx, view)
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
