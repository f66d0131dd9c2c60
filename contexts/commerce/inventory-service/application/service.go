package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	domainerrors "meridian/contexts/commerce/inventory-service/domain/errors"
	"meridian/contexts/commerce/inventory-service/ports"
	"meridian/internal/engine/decider"
	"meridian/internal/engine/orchestrator"
	"meridian/internal/shared/events"
)

// Service is the inventory command/query facade. Writes go through the
// orchestrator against the warehouse stream; reads come from the catalog
// read model.
type Service struct {
	Orchestrator   *orchestrator.Orchestrator
	ReadModel      ports.ReadModel
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	ReservationTTL time.Duration
	Logger         *slog.Logger
}

func (s Service) CreateProduct(ctx context.Context, commandID, warehouseID string, input ports.CreateProductPayload) (decider.Result, error) {
	if strings.TrimSpace(input.ProductID) == "" {
		id, err := s.IDGen.NewID(ctx)
		if err != nil {
			return decider.Result{}, err
		}
		input.ProductID = id
	}
	return s.execute(ctx, commandID, warehouseID, ports.CommandCreateProduct, input)
}

func (s Service) AddStock(ctx context.Context, commandID, warehouseID string, input ports.AddStockPayload) (decider.Result, error) {
	return s.execute(ctx, commandID, warehouseID, ports.CommandAddStock, input)
}

func (s Service) ReserveStock(ctx context.Context, commandID, warehouseID string, input ports.ReserveStockPayload) (decider.Result, error) {
	if strings.TrimSpace(input.ReservationID) == "" {
		id, err := s.IDGen.NewID(ctx)
		if err != nil {
			return decider.Result{}, err
		}
		input.ReservationID = id
	}
	if input.ExpiresAt.IsZero() {
		input.ExpiresAt = s.Clock.Now().UTC().Add(s.ReservationTTL)
	}
	return s.execute(ctx, commandID, warehouseID, ports.CommandReserveStock, input)
}

func (s Service) ConfirmReservation(ctx context.Context, commandID, warehouseID string, input ports.ConfirmReservationPayload) (decider.Result, error) {
	return s.execute(ctx, commandID, warehouseID, ports.CommandConfirmReservation, input)
}

func (s Service) ReleaseReservation(ctx context.Context, commandID, warehouseID string, input ports.ReleaseReservationPayload) (decider.Result, error) {
	return s.execute(ctx, commandID, warehouseID, ports.CommandReleaseReservation, input)
}

func (s Service) ExpireReservation(ctx context.Context, commandID, warehouseID string, input ports.ExpireReservationPayload) (decider.Result, error) {
	if input.Now.IsZero() {
		input.Now = s.Clock.Now().UTC()
	}
	return s.execute(ctx, commandID, warehouseID, ports.CommandExpireReservation, input)
}

func (s Service) GetProduct(ctx context.Context, productID string) (ports.ProductView, error) {
	view, found, err := s.ReadModel.GetProduct(ctx, productID)
	if err != nil {
		return ports.ProductView{}, err
	}
	if !found {
		return ports.ProductView{}, domainerrors.ErrProductNotFound
	}
	return view, nil
}

func (s Service) ListProducts(ctx context.Context, warehouseID string) ([]ports.ProductView, error) {
	if strings.TrimSpace(warehouseID) == "" {
		warehouseID = ports.DefaultWarehouse
	}
	return s.ReadModel.ListProducts(ctx, warehouseID)
}

func (s Service) GetReservation(ctx context.Context, reservationID string) (ports.ReservationView, error) {
	view, found, err := s.ReadModel.GetReservation(ctx, reservationID)
	if err != nil {
		return ports.ReservationView{}, err
	}
	if !found {
		return ports.ReservationView{}, domainerrors.ErrReservationNotFound
	}
	return view, nil
}

func (s Service) execute(ctx context.Context, commandID, warehouseID, commandType string, payload any) (decider.Result, error) {
	if strings.TrimSpace(commandID) == "" {
		id, err := s.IDGen.NewID(ctx)
		if err != nil {
			return decider.Result{}, err
		}
		commandID = id
	}
	if strings.TrimSpace(warehouseID) == "" {
		warehouseID = ports.DefaultWarehouse
	}
	raw, err := events.MarshalPayload(payload)
	if err != nil {
		return decider.Result{}, err
	}
	return s.Orchestrator.Execute(ctx, decider.Command{
		CommandID:   commandID,
		CommandType: commandType,
		StreamID:    warehouseID,
		StreamType:  ports.StreamType,
		Payload:     raw,
	})
}
