package application

import (
	"context"
	"log/slog"
	"strings"

	domainerrors "meridian/contexts/commerce/order-service/domain/errors"
	"meridian/contexts/commerce/order-service/ports"
	"meridian/internal/engine/decider"
	"meridian/internal/engine/orchestrator"
	"meridian/internal/shared/events"
)

// Service is the order command/query facade.
type Service struct {
	Orchestrator *orchestrator.Orchestrator
	ReadModel    ports.ReadModel
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	Logger       *slog.Logger
}

func (s Service) SubmitOrder(ctx context.Context, commandID string, input ports.SubmitOrderPayload) (decider.Result, error) {
	if strings.TrimSpace(input.OrderID) == "" {
		id, err := s.IDGen.NewID(ctx)
		if err != nil {
			return decider.Result{}, err
		}
		input.OrderID = id
	}
	if input.SubmittedAt.IsZero() {
		input.SubmittedAt = s.Clock.Now().UTC()
	}
	return s.execute(ctx, commandID, input.OrderID, ports.CommandSubmitOrder, input)
}

func (s Service) ConfirmOrder(ctx context.Context, commandID string, input ports.ConfirmOrderPayload) (decider.Result, error) {
	return s.execute(ctx, commandID, input.OrderID, ports.CommandConfirmOrder, input)
}

func (s Service) CancelOrder(ctx context.Context, commandID string, input ports.CancelOrderPayload) (decider.Result, error) {
	return s.execute(ctx, commandID, input.OrderID, ports.CommandCancelOrder, input)
}

func (s Service) GetOrder(ctx context.Context, orderID string) (ports.SummaryView, error) {
	view, found, err := s.ReadModel.GetSummary(ctx, orderID)
	if err != nil {
		return ports.SummaryView{}, err
	}
	if !found {
		return ports.SummaryView{}, domainerrors.ErrOrderNotFound
	}
	return view, nil
}

func (s Service) ListOrders(ctx context.Context, status string, limit int) ([]ports.SummaryView, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.ReadModel.ListSummaries(ctx, status, limit)
}

func (s Service) execute(ctx context.Context, commandID, orderID, commandType string, payload any) (decider.Result, error) {
	if strings.TrimSpace(orderID) == "" {
		return decider.Rejected(decider.CodeInvalidCommand, "order_id is required", nil), nil
	}
	if strings.TrimSpace(commandID) == "" {
		id, err := s.IDGen.NewID(ctx)
		if err != nil {
			return decider.Result{}, err
		}
		commandID = id
	}
	raw, err := events.MarshalPayload(payload)
	if err != nil {
		return decider.Result{}, err
	}
	return s.Orchestrator.Execute(ctx, decider.Command{
		CommandID:   commandID,
		CommandType: commandType,
		StreamID:    orderID,
		StreamType:  ports.StreamType,
		Payload:     raw,
	})
}
