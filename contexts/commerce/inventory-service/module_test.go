package inventoryservice

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"meridian/contexts/commerce/inventory-service/domain/entities"
	httptransport "meridian/contexts/commerce/inventory-service/transport/http"
	"meridian/internal/engine/decider"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCommandFlowUpdatesReadModel(t *testing.T) {
	module := NewInMemoryModule(15*time.Minute, discardLogger())
	ctx := context.Background()

	created, err := module.Handler.CreateProductHandler(ctx, httptransport.CreateProductRequest{
		CommandID:       "create-1",
		ProductID:       "p1",
		SKU:             "SKU-1",
		Name:            "widget",
		InitialQuantity: 10,
	})
	if err != nil || created.Status != string(decider.StatusSuccess) {
		t.Fatalf("create = %+v, err = %v", created, err)
	}

	if _, err := module.Handler.AddStockHandler(ctx, httptransport.AddStockRequest{
		CommandID: "add-1",
		ProductID: "p1",
		Quantity:  5,
	}); err != nil {
		t.Fatalf("add stock: %v", err)
	}

	reserved, err := module.Handler.ReserveStockHandler(ctx, httptransport.ReserveStockRequest{
		CommandID:     "reserve-1",
		ReservationID: "res-1",
		OrderID:       "ord-1",
		Items:         []httptransport.ItemDTO{{ProductID: "p1", Quantity: 6}},
	})
	if err != nil || reserved.Status != string(decider.StatusSuccess) {
		t.Fatalf("reserve = %+v, err = %v", reserved, err)
	}

	product, err := module.Handler.GetProductHandler(ctx, "p1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Data.AvailableQuantity != 9 || product.Data.ReservedQuantity != 6 {
		t.Fatalf("product view = %+v", product.Data)
	}

	reservation, err := module.Handler.GetReservationHandler(ctx, "res-1")
	if err != nil {
		t.Fatalf("get reservation: %v", err)
	}
	if reservation.Data.Status != entities.ReservationPending {
		t.Fatalf("reservation view = %+v", reservation.Data)
	}
}

func TestDuplicateCommandReplaysStoredResult(t *testing.T) {
	module := NewInMemoryModule(15*time.Minute, discardLogger())
	ctx := context.Background()

	first, err := module.Handler.CreateProductHandler(ctx, httptransport.CreateProductRequest{
		CommandID:       "create-1",
		ProductID:       "p1",
		SKU:             "SKU-1",
		InitialQuantity: 3,
	})
	if err != nil || first.Status != string(decider.StatusSuccess) {
		t.Fatalf("first = %+v, err = %v", first, err)
	}

	second, err := module.Handler.CreateProductHandler(ctx, httptransport.CreateProductRequest{
		CommandID:       "create-1",
		ProductID:       "p1",
		SKU:             "SKU-1",
		InitialQuantity: 3,
	})
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.Status != string(decider.StatusDuplicate) {
		t.Fatalf("second status = %s, want duplicate", second.Status)
	}
	if second.Version != first.Version {
		t.Fatalf("replayed version = %d, want %d", second.Version, first.Version)
	}

	// The aggregate saw the command once.
	product, err := module.Handler.GetProductHandler(ctx, "p1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Data.AvailableQuantity != 3 {
		t.Fatalf("available = %d, want 3", product.Data.AvailableQuantity)
	}
}

func TestSweepExpiresOverdueReservations(t *testing.T) {
	// A negative TTL makes every reservation instantly overdue.
	module := NewInMemoryModule(-time.Minute, discardLogger())
	ctx := context.Background()

	if _, err := module.Handler.CreateProductHandler(ctx, httptransport.CreateProductRequest{
		CommandID:       "create-1",
		ProductID:       "p1",
		SKU:             "SKU-1",
		InitialQuantity: 10,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := module.Handler.ReserveStockHandler(ctx, httptransport.ReserveStockRequest{
		CommandID:     "reserve-1",
		ReservationID: "res-1",
		OrderID:       "ord-1",
		Items:         []httptransport.ItemDTO{{ProductID: "p1", Quantity: 4}},
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := module.Sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}

	reservation, err := module.Handler.GetReservationHandler(ctx, "res-1")
	if err != nil {
		t.Fatalf("get reservation: %v", err)
	}
	if reservation.Data.Status != entities.ReservationExpired {
		t.Fatalf("status = %s, want expired", reservation.Data.Status)
	}
	product, err := module.Handler.GetProductHandler(ctx, "p1")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Data.AvailableQuantity != 10 || product.Data.ReservedQuantity != 0 {
		t.Fatalf("product view = %+v", product.Data)
	}

	// A second sweep finds nothing pending; the stable command id would
	// replay the stored result even if it did.
	if err := module.Sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
}
