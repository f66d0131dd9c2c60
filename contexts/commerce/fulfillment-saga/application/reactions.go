// Package application implements the order fulfillment workflow: pure
// reactions over order and inventory events, the runner that executes them,
// and the admin operations over saga records.
package application

import (
	"fmt"

	"meridian/contexts/commerce/fulfillment-saga/ports"
	contractsv1 "meridian/contracts/gen/events/v1"
	"meridian/internal/engine/decider"
	"meridian/internal/engine/saga"
	"meridian/internal/shared/events"
)

// ReservationIDFor derives the deterministic reservation id for an order, so
// redelivered events regenerate identical commands.
func ReservationIDFor(orderID string) string {
	return "res-" + orderID
}

func stepCommandID(sagaID, stepName string) string {
	return "saga:" + sagaID + ":" + stepName
}

// Reactions builds the registered reaction set. Every handler is a pure
// function of (saga, event); the runner owns all I/O.
func Reactions() (*saga.Registry, error) {
	registry := saga.NewRegistry()

	register := []saga.Registration{
		{Name: "on-order-submitted", Predicate: eventIs(contractsv1.EventTypeOrderSubmitted), Handler: onOrderSubmitted},
		{Name: "on-stock-reserved", Predicate: eventIs(contractsv1.EventTypeStockReserved), Handler: onStockReserved},
		{Name: "on-reservation-failed", Predicate: eventIs(contractsv1.EventTypeReservationFailed), Handler: onReservationFailed},
		{Name: "on-order-confirmed", Predicate: eventIs(contractsv1.EventTypeOrderConfirmed), Handler: onOrderConfirmed},
		{Name: "on-reservation-confirmed", Predicate: eventIs(contractsv1.EventTypeReservationConfirmed), Handler: onReservationConfirmed},
		{Name: "on-reservation-released", Predicate: eventIs(contractsv1.EventTypeReservationReleased), Handler: onReservationReleased},
		{Name: "on-reservation-expired", Predicate: eventIs(contractsv1.EventTypeReservationExpired), Handler: onReservationExpired},
		{Name: "on-order-cancelled", Predicate: eventIs(contractsv1.EventTypeOrderCancelled), Handler: onOrderCancelled},
	}
	for _, registration := range register {
		if err := registry.Register(registration); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func eventIs(eventType string) func(events.Event) bool {
	return func(event events.Event) bool { return event.EventType == eventType }
}

func onOrderSubmitted(current saga.Saga, event events.Event) (saga.Transition, error) {
	if current.SagaID != "" {
		// Duplicate trigger: exactly one saga per (type, id).
		return saga.Transition{Saga: current}, nil
	}
	var data contractsv1.OrderSubmittedData
	if err := event.DecodePayload(&data); err != nil {
		return saga.Transition{}, fmt.Errorf("decode %s: %w", event.EventType, err)
	}

	instance := saga.Saga{
		SagaID:          data.OrderID,
		SagaType:        ports.SagaType,
		ExecutionStatus: saga.ExecutionRunning,
		BusinessOutcome: saga.OutcomeNone,
		WorkflowID:      data.OrderID,
		SubmittedAt:     event.OccurredAt,
		UpdatedAt:       event.OccurredAt,
	}
	command, err := buildCommand(
		stepCommandID(data.OrderID, ports.StepReserveStock),
		ports.CommandReserveStock,
		ports.InventoryStreamType,
		ports.DefaultWarehouse,
		event.CorrelationID,
		ports.ReserveStockPayload{
			ReservationID: ReservationIDFor(data.OrderID),
			OrderID:       data.OrderID,
			Items:         data.Items,
		},
	)
	if err != nil {
		return saga.Transition{}, err
	}
	return saga.Transition{
		Saga:     instance,
		Commands: []decider.Command{command},
		Steps: []saga.Step{{
			SagaID:    data.OrderID,
			StepName:  ports.StepReserveStock,
			CommandID: command.CommandID,
			Kind:      saga.StepForward,
			Status:    saga.StepIssued,
			StartedAt: event.OccurredAt,
		}},
	}, nil
}

func onStockReserved(current saga.Saga, event events.Event) (saga.Transition, error) {
	if !isRunning(current) {
		return saga.Transition{Saga: current}, nil
	}
	var data contractsv1.StockReservedData
	if err := event.DecodePayload(&data); err != nil {
		return saga.Transition{}, fmt.Errorf("decode %s: %w", event.EventType, err)
	}

	command, err := buildCommand(
		stepCommandID(current.SagaID, ports.StepConfirmOrder),
		ports.CommandConfirmOrder,
		ports.OrderStreamType,
		data.OrderID,
		event.CorrelationID,
		ports.ConfirmOrderPayload{OrderID: data.OrderID, ReservationID: data.ReservationID},
	)
	if err != nil {
		return saga.Transition{}, err
	}
	next := current
	next.UpdatedAt = event.OccurredAt
	return saga.Transition{
		Saga:     next,
		Commands: []decider.Command{command},
		Steps: []saga.Step{
			stepDone(current.SagaID, ports.StepReserveStock, saga.StepForward, saga.StepSucceeded, event, ""),
			{
				SagaID:    current.SagaID,
				StepName:  ports.StepConfirmOrder,
				CommandID: command.CommandID,
				Kind:      saga.StepForward,
				Status:    saga.StepIssued,
				StartedAt: event.OccurredAt,
			},
		},
	}, nil
}

func onReservationFailed(current saga.Saga, event events.Event) (saga.Transition, error) {
	if !isRunning(current) {
		return saga.Transition{Saga: current}, nil
	}
	var data contractsv1.ReservationFailedData
	if err := event.DecodePayload(&data); err != nil {
		return saga.Transition{}, fmt.Errorf("decode %s: %w", event.EventType, err)
	}

	// All-or-nothing reservation means no stock was consumed; cancelling the
	// order is the only compensation needed.
	command, err := buildCommand(
		stepCommandID(current.SagaID, ports.StepCancelOrder),
		ports.CommandCancelOrder,
		ports.OrderStreamType,
		data.OrderID,
		event.CorrelationID,
		ports.CancelOrderPayload{OrderID: data.OrderID, Reason: "insufficient stock"},
	)
	if err != nil {
		return saga.Transition{}, err
	}
	next := current
	next.UpdatedAt = event.OccurredAt
	return saga.Transition{
		Saga:     next,
		Commands: []decider.Command{command},
		Steps: []saga.Step{
			stepDone(current.SagaID, ports.StepReserveStock, saga.StepForward, saga.StepFailed, event, "insufficient stock"),
			{
				SagaID:    current.SagaID,
				StepName:  ports.StepCancelOrder,
				CommandID: command.CommandID,
				Kind:      saga.StepCompensation,
				Status:    saga.StepIssued,
				StartedAt: event.OccurredAt,
			},
		},
	}, nil
}

func onOrderConfirmed(current saga.Saga, event events.Event) (saga.Transition, error) {
	if !isRunning(current) {
		return saga.Transition{Saga: current}, nil
	}
	var data contractsv1.OrderConfirmedData
	if err := event.DecodePayload(&data); err != nil {
		return saga.Transition{}, fmt.Errorf("decode %s: %w", event.EventType, err)
	}

	command, err := buildCommand(
		stepCommandID(current.SagaID, ports.StepConfirmReservation),
		ports.CommandConfirmReservation,
		ports.InventoryStreamType,
		ports.DefaultWarehouse,
		event.CorrelationID,
		ports.ConfirmReservationPayload{ReservationID: data.ReservationID},
	)
	if err != nil {
		return saga.Transition{}, err
	}
	next := current
	next.UpdatedAt = event.OccurredAt
	return saga.Transition{
		Saga:     next,
		Commands: []decider.Command{command},
		Steps: []saga.Step{
			stepDone(current.SagaID, ports.StepConfirmOrder, saga.StepForward, saga.StepSucceeded, event, ""),
			{
				SagaID:    current.SagaID,
				StepName:  ports.StepConfirmReservation,
				CommandID: command.CommandID,
				Kind:      saga.StepForward,
				Status:    saga.StepIssued,
				StartedAt: event.OccurredAt,
			},
		},
	}, nil
}

func onReservationConfirmed(current saga.Saga, event events.Event) (saga.Transition, error) {
	if !isRunning(current) {
		return saga.Transition{Saga: current}, nil
	}
	next := terminal(current, saga.OutcomeFulfilled, event)
	return saga.Transition{
		Saga: next,
		Steps: []saga.Step{
			stepDone(current.SagaID, ports.StepConfirmReservation, saga.StepForward, saga.StepSucceeded, event, ""),
		},
	}, nil
}

func onReservationReleased(current saga.Saga, event events.Event) (saga.Transition, error) {
	if !isRunning(current) {
		return saga.Transition{Saga: current}, nil
	}
	var data contractsv1.ReservationReleasedData
	if err := event.DecodePayload(&data); err != nil {
		return saga.Transition{}, fmt.Errorf("decode %s: %w", event.EventType, err)
	}

	// Release after reservation is the late-failure path: stock is already
	// back, so finish the compensation by cancelling the order.
	command, err := buildCommand(
		stepCommandID(current.SagaID, ports.StepCancelOrder),
		ports.CommandCancelOrder,
		ports.OrderStreamType,
		data.OrderID,
		event.CorrelationID,
		ports.CancelOrderPayload{OrderID: data.OrderID, Reason: "reservation released"},
	)
	if err != nil {
		return saga.Transition{}, err
	}
	next := current
	next.UpdatedAt = event.OccurredAt
	return saga.Transition{
		Saga:     next,
		Commands: []decider.Command{command},
		Steps: []saga.Step{
			stepDone(current.SagaID, ports.StepReleaseReservation, saga.StepCompensation, saga.StepSucceeded, event, ""),
			{
				SagaID:    current.SagaID,
				StepName:  ports.StepCancelOrder,
				CommandID: command.CommandID,
				Kind:      saga.StepCompensation,
				Status:    saga.StepIssued,
				StartedAt: event.OccurredAt,
			},
		},
	}, nil
}

func onReservationExpired(current saga.Saga, event events.Event) (saga.Transition, error) {
	if !isRunning(current) {
		return saga.Transition{Saga: current}, nil
	}
	var data contractsv1.ReservationExpiredData
	if err := event.DecodePayload(&data); err != nil {
		return saga.Transition{}, fmt.Errorf("decode %s: %w", event.EventType, err)
	}

	command, err := buildCommand(
		stepCommandID(current.SagaID, ports.StepCancelOrder),
		ports.CommandCancelOrder,
		ports.OrderStreamType,
		data.OrderID,
		event.CorrelationID,
		ports.CancelOrderPayload{OrderID: data.OrderID, Reason: "reservation expired"},
	)
	if err != nil {
		return saga.Transition{}, err
	}
	next := current
	next.UpdatedAt = event.OccurredAt
	return saga.Transition{
		Saga:     next,
		Commands: []decider.Command{command},
		Steps: []saga.Step{{
			SagaID:    current.SagaID,
			StepName:  ports.StepCancelOrder,
			CommandID: command.CommandID,
			Kind:      saga.StepCompensation,
			Status:    saga.StepIssued,
			StartedAt: event.OccurredAt,
		}},
	}, nil
}

func onOrderCancelled(current saga.Saga, event events.Event) (saga.Transition, error) {
	if !isRunning(current) {
		return saga.Transition{Saga: current}, nil
	}
	next := terminal(current, saga.OutcomeCompensated, event)
	return saga.Transition{
		Saga: next,
		Steps: []saga.Step{
			stepDone(current.SagaID, ports.StepCancelOrder, saga.StepCompensation, saga.StepSucceeded, event, ""),
		},
	}, nil
}

func isRunning(current saga.Saga) bool {
	return current.SagaID != "" && current.ExecutionStatus == saga.ExecutionRunning
}

// terminal marks the saga completed. Compensated and fulfilled workflows both
// complete; only infrastructure failure uses the failed status, and that is
// the runner's call, never a reaction's.
func terminal(current saga.Saga, outcome saga.BusinessOutcome, event events.Event) saga.Saga {
	next := current
	next.ExecutionStatus = saga.ExecutionCompleted
	next.BusinessOutcome = outcome
	if next.CompletedAt == nil {
		completedAt := event.OccurredAt
		next.CompletedAt = &completedAt
	}
	next.UpdatedAt = event.OccurredAt
	return next
}

func stepDone(sagaID, stepName string, kind saga.StepKind, status saga.StepStatus, event events.Event, detail string) saga.Step {
	completedAt := event.OccurredAt
	return saga.Step{
		SagaID:      sagaID,
		StepName:    stepName,
		CommandID:   stepCommandID(sagaID, stepName),
		Kind:        kind,
		Status:      status,
		StartedAt:   event.OccurredAt,
		CompletedAt: &completedAt,
		Detail:      detail,
	}
}

func buildCommand(commandID, commandType, streamType, streamID, correlationID string, payload any) (decider.Command, error) {
	raw, err := events.MarshalPayload(payload)
	if err != nil {
		return decider.Command{}, err
	}
	return decider.Command{
		CommandID:     commandID,
		CommandType:   commandType,
		StreamID:      streamID,
		StreamType:    streamType,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}
