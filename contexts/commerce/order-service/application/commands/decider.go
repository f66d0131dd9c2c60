// Package commands holds the pure order decision logic and event applier.
package commands

import (
	"fmt"
	"strings"
	"time"

	"meridian/contexts/commerce/order-service/domain/entities"
	"meridian/contexts/commerce/order-service/ports"
	contractsv1 "meridian/contracts/gen/events/v1"
	"meridian/internal/engine/decider"
	"meridian/internal/engine/lifecycle"
	"meridian/internal/shared/events"
)

// Decider returns the pure decision function for the order stream type.
func Decider() decider.Decider {
	return decider.Func(decide)
}

func decide(state any, command decider.Command) decider.Result {
	order, _ := state.(*entities.Order)

	switch command.CommandType {
	case ports.CommandSubmitOrder:
		return decideSubmit(order, command)
	case ports.CommandConfirmOrder:
		return decideConfirm(order, command)
	case ports.CommandCancelOrder:
		return decideCancel(order, command)
	default:
		return decider.Rejected(decider.CodeInvalidCommand, "unknown order command type", map[string]any{
			"command_type": command.CommandType,
		})
	}
}

func decideSubmit(order *entities.Order, command decider.Command) decider.Result {
	var payload ports.SubmitOrderPayload
	if err := command.DecodePayload(&payload); err != nil {
		return invalidPayload(err)
	}
	if strings.TrimSpace(payload.OrderID) == "" || len(payload.Items) == 0 {
		return decider.Rejected(decider.CodeInvalidCommand, "order_id and items are required", nil)
	}
	for _, item := range payload.Items {
		if item.Quantity <= 0 {
			return decider.Rejected(decider.CodeInvalidCommand, "item quantity must be positive", map[string]any{
				"product_id": item.ProductID,
			})
		}
	}
	if order != nil {
		return decider.Rejected(decider.CodeInvalidState, "order already exists", map[string]any{
			"order_id": payload.OrderID,
		})
	}
	return successEvent(contractsv1.EventTypeOrderSubmitted, contractsv1.OrderSubmittedData{
		OrderID:     payload.OrderID,
		CustomerID:  payload.CustomerID,
		Items:       payload.Items,
		SubmittedAt: payload.SubmittedAt.UTC().Format(time.RFC3339Nano),
	})
}

func decideConfirm(order *entities.Order, command decider.Command) decider.Result {
	var payload ports.ConfirmOrderPayload
	if err := command.DecodePayload(&payload); err != nil {
		return invalidPayload(err)
	}
	if order == nil {
		return orderNotFound(payload.OrderID)
	}
	if result, ok := requireTransition(order, entities.OrderConfirmed); !ok {
		return result
	}
	return successEvent(contractsv1.EventTypeOrderConfirmed, contractsv1.OrderConfirmedData{
		OrderID:       order.OrderID,
		ReservationID: payload.ReservationID,
	})
}

func decideCancel(order *entities.Order, command decider.Command) decider.Result {
	var payload ports.CancelOrderPayload
	if err := command.DecodePayload(&payload); err != nil {
		return invalidPayload(err)
	}
	if order == nil {
		return orderNotFound(payload.OrderID)
	}
	if result, ok := requireTransition(order, entities.OrderCancelled); !ok {
		return result
	}
	return successEvent(contractsv1.EventTypeOrderCancelled, contractsv1.OrderCancelledData{
		OrderID: order.OrderID,
		Reason:  payload.Reason,
	})
}

func requireTransition(order *entities.Order, target lifecycle.State) (decider.Result, bool) {
	if _, err := entities.OrderMachine.Transition(lifecycle.State(order.Status), target); err != nil {
		return decider.Rejected(decider.CodeInvalidLifecycleTransition, err.Error(), map[string]any{
			"order_id": order.OrderID,
			"from":     order.Status,
			"to":       string(target),
		}), false
	}
	return decider.Result{}, true
}

func orderNotFound(orderID string) decider.Result {
	return decider.Rejected(decider.CodeNotFound, "order not found", map[string]any{
		"order_id": orderID,
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

// Apply folds a committed order event into the aggregate state.
func Apply(state any, event events.Event) (any, error) {
	order, _ := state.(*entities.Order)

	switch event.EventType {
	case contractsv1.EventTypeOrderSubmitted:
		var payload contractsv1.OrderSubmittedData
		if err := event.DecodePayload(&payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		submittedAt, _ := time.Parse(time.RFC3339Nano, payload.SubmittedAt)
		items := make([]entities.OrderItem, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, entities.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
		}
		return &entities.Order{
			OrderID:     payload.OrderID,
			CustomerID:  payload.CustomerID,
			Items:       items,
			Status:      entities.OrderSubmitted,
			SubmittedAt: submittedAt,
			UpdatedAt:   event.OccurredAt,
		}, nil

	case contractsv1.EventTypeOrderConfirmed:
		var payload contractsv1.OrderConfirmedData
		if err := event.DecodePayload(&payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		order.Status = entities.OrderConfirmed
		order.ReservationID = payload.ReservationID
		order.UpdatedAt = event.OccurredAt
		return order, nil

	case contractsv1.EventTypeOrderCancelled:
		var payload contractsv1.OrderCancelledData
		if err := event.DecodePayload(&payload); err != nil {
			return nil, fmt.Errorf("decode %s: %w", event.EventType, err)
		}
		order.Status = entities.OrderCancelled
		order.CancelReason = payload.Reason
		order.UpdatedAt = event.OccurredAt
		return order, nil

	default:
		return nil, fmt.Errorf("unknown order event type %q", event.EventType)
	}
}
