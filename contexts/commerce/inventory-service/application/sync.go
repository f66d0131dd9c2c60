package application

import (
	"context"
	"time"

	"meridian/contexts/commerce/inventory-service/application/projections"
	"meridian/contexts/commerce/inventory-service/ports"
	"meridian/internal/engine/checkpoint"
	"meridian/internal/engine/optimistic"
)

// Sync reconciles a client's optimistic view of the catalog projection
// against the durable checkpoint for its warehouse partition.
type Sync struct {
	Checkpoints      checkpoint.Store
	MaxOptimisticAge time.Duration
	Clock            ports.Clock
}

// Reconcile compares the client state with the warehouse's projection cursor
// and returns the verdict the client should apply.
func (s Sync) Reconcile(ctx context.Context, warehouseID string, client optimistic.State) (optimistic.Verdict, error) {
	if warehouseID == "" {
		warehouseID = ports.DefaultWarehouse
	}

	durable := optimistic.DurableState{Position: checkpoint.NeverProcessed}
	cursor, found, err := s.Checkpoints.Get(ctx, projections.ProjectionName, warehouseID)
	if err != nil {
		return optimistic.Verdict{}, err
	}
	if found {
		durable = optimistic.DurableState{
			Position:    cursor.LastGlobalPosition,
			LastEventID: cursor.LastEventID,
			UpdatedAt:   cursor.UpdatedAt,
		}
	}

	return optimistic.Detect(client, durable, optimistic.Options{
		MaxOptimisticAge: s.MaxOptimisticAge,
		Now:              s.now(),
	}), nil
}

func (s Sync) now() time.Time {
	if s.Clock != nil {
		return s.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
