// Package projections maintains the order summary read model. Checkpoints
// are partitioned per order, so replays of one order's history never block
// or disturb another's.
package projections

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"meridian/contexts/commerce/order-service/domain/entities"
	"meridian/contexts/commerce/order-service/ports"
	contractsv1 "meridian/contracts/gen/events/v1"
	"meridian/internal/engine/checkpoint"
	"meridian/internal/shared/events"
)

// ProjectionName identifies the summary projection's checkpoints.
const ProjectionName = "order-summary"

// SkipCounter observes idempotent skips. A nil counter disables recording.
type SkipCounter interface {
	CheckpointSkipped(projection string)
}

type Summary struct {
	Checkpoints checkpoint.Helper
	ReadModel   ports.ReadModel
	Skips       SkipCounter
	Logger      *slog.Logger
}

// HandleEnvelope is the bus subscription entry point.
func (s Summary) HandleEnvelope(ctx context.Context, envelope contractsv1.Envelope) error {
	return s.Handle(ctx, events.FromEnvelope(envelope))
}

// Handle applies one order event under the checkpoint protocol. The
// partition key is the order id (equal to the stream id).
func (s Summary) Handle(ctx context.Context, event events.Event) error {
	outcome, err := s.Checkpoints.Apply(ctx, ProjectionName, event.StreamID, event.GlobalPosition, event.EventID, func(ctx context.Context) error {
		return s.apply(ctx, event)
	})
	if err != nil {
		return err
	}
	if outcome == checkpoint.OutcomeSkipped && s.Skips != nil {
		s.Skips.CheckpointSkipped(ProjectionName)
	}
	return nil
}

func (s Summary) apply(ctx context.Context, event events.Event) error {
	switch event.EventType {
	case contractsv1.EventTypeOrderSubmitted:
		var payload contractsv1.OrderSubmittedData
		if err := event.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		var itemCount int64
		for _, item := range payload.Items {
			itemCount += item.Quantity
		}
		submittedAt, _ := time.Parse(time.RFC3339Nano, payload.SubmittedAt)
		return s.ReadModel.UpsertSummary(ctx, ports.SummaryView{
			OrderID:     payload.OrderID,
			CustomerID:  payload.CustomerID,
			Items:       payload.Items,
			Status:      entities.OrderSubmitted,
			ItemCount:   itemCount,
			SubmittedAt: submittedAt,
			UpdatedAt:   event.OccurredAt,
		})

	case contractsv1.EventTypeOrderConfirmed:
		var payload contractsv1.OrderConfirmedData
		if err := event.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		return s.mutate(ctx, payload.OrderID, event.OccurredAt, func(view *ports.SummaryView) {
			view.Status = entities.OrderConfirmed
			view.ReservationID = payload.ReservationID
		})

	case contractsv1.EventTypeOrderCancelled:
		var payload contractsv1.OrderCancelledData
		if err := event.DecodePayload(&payload); err != nil {
			return fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		return s.mutate(ctx, payload.OrderID, event.OccurredAt, func(view *ports.SummaryView) {
			view.Status = entities.OrderCancelled
			view.CancelReason = payload.Reason
		})
	}
	return nil
}

func (s Summary) mutate(ctx context.Context, orderID string, at time.Time, change func(view *ports.SummaryView)) error {
	view, found, err := s.ReadModel.GetSummary(ctx, orderID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("order summary %s missing during projection", orderID)
	}
	change(&view)
	view.UpdatedAt = at
	return s.ReadModel.UpsertSummary(ctx, view)
}
