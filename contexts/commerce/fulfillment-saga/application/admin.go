package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	domainerrors "meridian/contexts/commerce/fulfillment-saga/domain/errors"
	"meridian/contexts/commerce/fulfillment-saga/ports"
	"meridian/internal/engine/decider"
	"meridian/internal/engine/saga"
	"meridian/internal/shared/events"
)

// Admin exposes the operator surface over saga records: inspection,
// cancellation and cleanup of finished workflows.
type Admin struct {
	Sagas  saga.Store
	Buses  map[string]ports.CommandBus
	Clock  ports.Clock
	Logger *slog.Logger
}

// GetSaga returns one saga record.
func (a *Admin) GetSaga(ctx context.Context, sagaID string) (saga.Saga, error) {
	instance, found, err := a.Sagas.Get(ctx, ports.SagaType, sagaID)
	if err != nil {
		return saga.Saga{}, err
	}
	if !found {
		return saga.Saga{}, domainerrors.ErrSagaNotFound
	}
	return instance, nil
}

// GetSteps returns the step history of one saga, in issue order.
func (a *Admin) GetSteps(ctx context.Context, sagaID string) ([]saga.Step, error) {
	if _, err := a.GetSaga(ctx, sagaID); err != nil {
		return nil, err
	}
	return a.Sagas.Steps(ctx, sagaID)
}

// CancelSaga forces a running workflow onto its compensation path. It releases
// the order's reservation and lets the resulting events drive the saga to the
// compensated terminal state through the normal reactions. When the
// reservation never existed the order is cancelled directly.
func (a *Admin) CancelSaga(ctx context.Context, sagaID, reason string) error {
	instance, err := a.GetSaga(ctx, sagaID)
	if err != nil {
		return err
	}
	if instance.IsTerminal() {
		return domainerrors.ErrSagaFinished
	}
	if reason == "" {
		reason = "cancelled by operator"
	}

	result, err := a.execute(ctx, ports.InventoryStreamType, decider.Command{
		CommandID:   stepCommandID(sagaID, ports.StepReleaseReservation),
		CommandType: ports.CommandReleaseReservation,
		StreamID:    ports.DefaultWarehouse,
		StreamType:  ports.InventoryStreamType,
		Payload: mustMarshal(ports.ReleaseReservationPayload{
			ReservationID: ReservationIDFor(sagaID),
			Reason:        reason,
		}),
	})
	if err != nil {
		return fmt.Errorf("release reservation for saga %s: %w", sagaID, err)
	}
	if result.Status == decider.StatusRejected {
		switch result.Code {
		case decider.CodeNotFound, decider.CodeInvalidLifecycleTransition:
			// Nothing left to unwind: the reservation never existed or
			// already settled while the events are still in flight.
			// Cancel the order directly; the deterministic commandId
			// dedupes against the runner's own cancel.
			if _, err := a.execute(ctx, ports.OrderStreamType, decider.Command{
				CommandID:   stepCommandID(sagaID, ports.StepCancelOrder),
				CommandType: ports.CommandCancelOrder,
				StreamID:    instance.WorkflowID,
				StreamType:  ports.OrderStreamType,
				Payload: mustMarshal(ports.CancelOrderPayload{
					OrderID: instance.WorkflowID,
					Reason:  reason,
				}),
			}); err != nil {
				return fmt.Errorf("cancel order for saga %s: %w", sagaID, err)
			}
		default:
			return fmt.Errorf("release reservation for saga %s rejected: %s (%s)",
				sagaID, result.Code, result.Reason)
		}
	}

	a.logger().Info("saga cancellation requested",
		"event", "saga_cancel_requested",
		"module", "fulfillment-saga",
		"layer", "application",
		"saga_id", sagaID,
		"reason", reason,
	)
	return nil
}

// CleanupSaga removes one finished saga and its steps. Running sagas are
// protected; cancel first, then clean up.
func (a *Admin) CleanupSaga(ctx context.Context, sagaID string) error {
	instance, err := a.GetSaga(ctx, sagaID)
	if err != nil {
		return err
	}
	if !instance.IsTerminal() {
		return domainerrors.ErrSagaStillRunning
	}
	deleted, err := a.Sagas.Delete(ctx, ports.SagaType, sagaID)
	if err != nil {
		return err
	}
	if !deleted {
		return domainerrors.ErrSagaNotFound
	}
	return nil
}

// PurgeTerminalBefore removes terminal sagas completed longer than retention
// ago. The background worker calls this on a timer.
func (a *Admin) PurgeTerminalBefore(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := a.now().Add(-retention)
	removed, err := a.Sagas.DeleteTerminalBefore(ctx, ports.SagaType, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		a.logger().Info("terminal sagas purged",
			"event", "saga_purged",
			"module", "fulfillment-saga",
			"layer", "application",
			"removed", removed,
			"cutoff", cutoff,
		)
	}
	return removed, nil
}

func (a *Admin) execute(ctx context.Context, streamType string, command decider.Command) (decider.Result, error) {
	bus, ok := a.Buses[streamType]
	if !ok {
		return decider.Result{}, fmt.Errorf("no command bus for stream type %q", streamType)
	}
	return bus.Execute(ctx, command)
}

func mustMarshal(payload any) []byte {
	raw, err := events.MarshalPayload(payload)
	if err != nil {
		panic(err)
	}
	return raw
}

func (a *Admin) now() time.Time {
	if a.Clock != nil {
		return a.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (a *Admin) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}
