// Package workers holds the inventory background jobs.
package workers

import (
	"context"
	"log/slog"

	"meridian/contexts/commerce/inventory-service/application"
	"meridian/contexts/commerce/inventory-service/ports"
	"meridian/internal/engine/decider"
)

// Sweeper expires overdue pending reservations. Each sweep issues expire
// commands through the orchestrator; a stable command id per reservation
// makes re-sweeping the same reservation an idempotent replay.
type Sweeper struct {
	Service   application.Service
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce performs one sweep pass.
func (s Sweeper) RunOnce(ctx context.Context) error {
	logger := s.logger()
	now := s.Clock.Now().UTC()

	limit := s.BatchSize
	if limit <= 0 {
		limit = 100
	}
	overdue, err := s.Service.ReadModel.ListExpiredPending(ctx, now, limit)
	if err != nil {
		return err
	}

	for _, reservation := range overdue {
		result, err := s.Service.ExpireReservation(ctx, "expire:"+reservation.ReservationID, reservation.WarehouseID, ports.ExpireReservationPayload{
			ReservationID: reservation.ReservationID,
			Now:           now,
		})
		if err != nil {
			logger.Error("reservation expiration failed",
				"event", "reservation_sweep_error",
				"module", "commerce/inventory-service",
				"layer", "application",
				"reservation_id", reservation.ReservationID,
				"error", err.Error(),
			)
			continue
		}
		if result.Status == decider.StatusSuccess {
			logger.Info("reservation expired",
				"event", "reservation_expired",
				"module", "commerce/inventory-service",
				"layer", "application",
				"reservation_id", reservation.ReservationID,
				"order_id", reservation.OrderID,
			)
		}
	}
	return nil
}

func (s Sweeper) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
