package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"meridian/contexts/commerce/order-service/application"
	"meridian/contexts/commerce/order-service/ports"
	httptransport "meridian/contexts/commerce/order-service/transport/http"
	contractsv1 "meridian/contracts/gen/events/v1"
	"meridian/internal/engine/decider"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) SubmitOrderHandler(ctx context.Context, req httptransport.SubmitOrderRequest) (httptransport.CommandResponse, error) {
	items := make([]contractsv1.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, contractsv1.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	result, err := h.Service.SubmitOrder(ctx, req.CommandID, ports.SubmitOrderPayload{
		OrderID:    req.OrderID,
		CustomerID: req.CustomerID,
		Items:      items,
	})
	if err != nil {
		return httptransport.CommandResponse{}, err
	}
	return toCommandResponse(result), nil
}

func (h Handler) ConfirmOrderHandler(ctx context.Context, req httptransport.ConfirmOrderRequest) (httptransport.CommandResponse, error) {
	result, err := h.Service.ConfirmOrder(ctx, req.CommandID, ports.ConfirmOrderPayload{
		OrderID:       req.OrderID,
		ReservationID: req.ReservationID,
	})
	if err != nil {
		return httptransport.CommandResponse{}, err
	}
	return toCommandResponse(result), nil
}

func (h Handler) CancelOrderHandler(ctx context.Context, req httptransport.CancelOrderRequest) (httptransport.CommandResponse, error) {
	result, err := h.Service.CancelOrder(ctx, req.CommandID, ports.CancelOrderPayload{
		OrderID: req.OrderID,
		Reason:  req.Reason,
	})
	if err != nil {
		return httptransport.CommandResponse{}, err
	}
	return toCommandResponse(result), nil
}

func (h Handler) GetOrderHandler(ctx context.Context, orderID string) (httptransport.OrderResponse, error) {
	view, err := h.Service.GetOrder(ctx, orderID)
	if err != nil {
		return httptransport.OrderResponse{}, err
	}
	return httptransport.OrderResponse{Status: "success", Data: toOrderDTO(view)}, nil
}

func (h Handler) ListOrdersHandler(ctx context.Context, status string, limit int) (httptransport.OrderListResponse, error) {
	views, err := h.Service.ListOrders(ctx, status, limit)
	if err != nil {
		return httptransport.OrderListResponse{}, err
	}
	resp := httptransport.OrderListResponse{
		Status: "success",
		Data:   make([]httptransport.OrderDTO, 0, len(views)),
	}
	for _, view := range views {
		resp.Data = append(resp.Data, toOrderDTO(view))
	}
	return resp, nil
}

func toCommandResponse(result decider.Result) httptransport.CommandResponse {
	return httptransport.CommandResponse{
		Status:      string(result.Status),
		Code:        result.Code,
		Reason:      result.Reason,
		Version:     result.Version,
		Data:        result.Data,
		Context:     result.Context,
		Attempt:     result.Attempt,
		ScheduledMs: result.ScheduledMs,
	}
}

func toOrderDTO(view ports.SummaryView) httptransport.OrderDTO {
	items := make([]httptransport.ItemDTO, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, httptransport.ItemDTO{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return httptransport.OrderDTO{
		OrderID:       view.OrderID,
		CustomerID:    view.CustomerID,
		Items:         items,
		Status:        view.Status,
		ReservationID: view.ReservationID,
		CancelReason:  view.CancelReason,
		ItemCount:     view.ItemCount,
		SubmittedAt:   view.SubmittedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     view.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
