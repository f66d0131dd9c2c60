package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"meridian/contexts/commerce/inventory-service/application"
	"meridian/contexts/commerce/inventory-service/ports"
	httptransport "meridian/contexts/commerce/inventory-service/transport/http"
	contractsv1 "meridian/contracts/gen/events/v1"
	"meridian/internal/engine/decider"
	"meridian/internal/engine/optimistic"
)

type Handler struct {
	Service application.Service
	Sync    application.Sync
	Logger  *slog.Logger
}

func (h Handler) CreateProductHandler(ctx context.Context, req httptransport.CreateProductRequest) (httptransport.CommandResponse, error) {
	result, err := h.Service.CreateProduct(ctx, req.CommandID, req.WarehouseID, ports.CreateProductPayload{
		ProductID:       req.ProductID,
		SKU:             req.SKU,
		Name:            req.Name,
		InitialQuantity: req.InitialQuantity,
	})
	if err != nil {
		return httptransport.CommandResponse{}, err
	}
	return toCommandResponse(result), nil
}

func (h Handler) AddStockHandler(ctx context.Context, req httptransport.AddStockRequest) (httptransport.CommandResponse, error) {
	result, err := h.Service.AddStock(ctx, req.CommandID, req.WarehouseID, ports.AddStockPayload{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return httptransport.CommandResponse{}, err
	}
	return toCommandResponse(result), nil
}

func (h Handler) ReserveStockHandler(ctx context.Context, req httptransport.ReserveStockRequest) (httptransport.CommandResponse, error) {
	items := make([]contractsv1.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, contractsv1.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	result, err := h.Service.ReserveStock(ctx, req.CommandID, req.WarehouseID, ports.ReserveStockPayload{
		ReservationID: req.ReservationID,
		OrderID:       req.OrderID,
		Items:         items,
	})
	if err != nil {
		return httptransport.CommandResponse{}, err
	}
	return toCommandResponse(result), nil
}

func (h Handler) ConfirmReservationHandler(ctx context.Context, req httptransport.ReservationActionRequest) (httptransport.CommandResponse, error) {
	result, err := h.Service.ConfirmReservation(ctx, req.CommandID, req.WarehouseID, ports.ConfirmReservationPayload{
		ReservationID: req.ReservationID,
	})
	if err != nil {
		return httptransport.CommandResponse{}, err
	}
	return toCommandResponse(result), nil
}

func (h Handler) ReleaseReservationHandler(ctx context.Context, req httptransport.ReservationActionRequest) (httptransport.CommandResponse, error) {
	result, err := h.Service.ReleaseReservation(ctx, req.CommandID, req.WarehouseID, ports.ReleaseReservationPayload{
		ReservationID: req.ReservationID,
		Reason:        req.Reason,
	})
	if err != nil {
		return httptransport.CommandResponse{}, err
	}
	return toCommandResponse(result), nil
}

func (h Handler) GetProductHandler(ctx context.Context, productID string) (httptransport.ProductResponse, error) {
	view, err := h.Service.GetProduct(ctx, productID)
	if err != nil {
		return httptransport.ProductResponse{}, err
	}
	return httptransport.ProductResponse{Status: "success", Data: toProductDTO(view)}, nil
}

func (h Handler) ListProductsHandler(ctx context.Context, warehouseID string) (httptransport.ProductListResponse, error) {
	views, err := h.Service.ListProducts(ctx, warehouseID)
	if err != nil {
		return httptransport.ProductListResponse{}, err
	}
	resp := httptransport.ProductListResponse{
		Status: "success",
		Data:   make([]httptransport.ProductDTO, 0, len(views)),
	}
	for _, view := range views {
		resp.Data = append(resp.Data, toProductDTO(view))
	}
	return resp, nil
}

func (h Handler) GetReservationHandler(ctx context.Context, reservationID string) (httptransport.ReservationResponse, error) {
	view, err := h.Service.GetReservation(ctx, reservationID)
	if err != nil {
		return httptransport.ReservationResponse{}, err
	}
	items := make([]httptransport.ItemDTO, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, httptransport.ItemDTO{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return httptransport.ReservationResponse{
		Status: "success",
		Data: httptransport.ReservationDTO{
			WarehouseID:   view.WarehouseID,
			ReservationID: view.ReservationID,
			OrderID:       view.OrderID,
			Items:         items,
			Status:        view.Status,
			ExpiresAt:     view.ExpiresAt.UTC().Format(time.RFC3339),
			UpdatedAt:     view.UpdatedAt.UTC().Format(time.RFC3339),
		},
	}, nil
}

func (h Handler) ReconcileHandler(ctx context.Context, warehouseID string, req httptransport.ReconcileRequest) (httptransport.ReconcileResponse, error) {
	client := optimistic.State{
		Position:  req.Position,
		CreatedAt: req.CreatedAt,
	}
	for _, applied := range req.AppliedEvents {
		client.AppliedEvents = append(client.AppliedEvents, optimistic.AppliedEvent{
			EventID:  applied.EventID,
			Position: applied.Position,
		})
	}

	verdict, err := h.Sync.Reconcile(ctx, warehouseID, client)
	if err != nil {
		return httptransport.ReconcileResponse{}, err
	}
	return httptransport.ReconcileResponse{
		Status: "success",
		Data: httptransport.VerdictDTO{
			HasConflict: verdict.HasConflict,
			Type:        string(verdict.Type),
			Resolution:  string(optimistic.Resolve(verdict)),
		},
	}, nil
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

func toProductDTO(view ports.ProductView) httptransport.ProductDTO {
	return httptransport.ProductDTO{
		WarehouseID:       view.WarehouseID,
		ProductID:         view.ProductID,
		SKU:               view.SKU,
		Name:              view.Name,
		AvailableQuantity: view.AvailableQuantity,
		ReservedQuantity:  view.ReservedQuantity,
		UpdatedAt:         view.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
