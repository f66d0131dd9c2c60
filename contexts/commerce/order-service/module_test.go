package orderservice

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"meridian/contexts/commerce/order-service/domain/entities"
	httptransport "meridian/contexts/commerce/order-service/transport/http"
	"meridian/internal/engine/decider"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOrderFlowUpdatesSummary(t *testing.T) {
	module := NewInMemoryModule(discardLogger())
	ctx := context.Background()

	submitted, err := module.Handler.SubmitOrderHandler(ctx, httptransport.SubmitOrderRequest{
		CommandID:  "submit-1",
		OrderID:    "ord-1",
		CustomerID: "cust-1",
		Items:      []httptransport.ItemDTO{{ProductID: "p1", Quantity: 2}, {ProductID: "p2", Quantity: 1}},
	})
	if err != nil || submitted.Status != string(decider.StatusSuccess) {
		t.Fatalf("submit = %+v, err = %v", submitted, err)
	}

	order, err := module.Handler.GetOrderHandler(ctx, "ord-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Data.Status != entities.OrderSubmitted || order.Data.ItemCount != 3 {
		t.Fatalf("summary = %+v", order.Data)
	}

	if _, err := module.Handler.ConfirmOrderHandler(ctx, httptransport.ConfirmOrderRequest{
		CommandID:     "confirm-1",
		OrderID:       "ord-1",
		ReservationID: "res-1",
	}); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	order, err = module.Handler.GetOrderHandler(ctx, "ord-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Data.Status != entities.OrderConfirmed || order.Data.ReservationID != "res-1" {
		t.Fatalf("summary after confirm = %+v", order.Data)
	}

	listed, err := module.Handler.ListOrdersHandler(ctx, entities.OrderConfirmed, 10)
	if err != nil || len(listed.Data) != 1 {
		t.Fatalf("list = %+v, err = %v", listed, err)
	}
}

func TestCancelRecordsReason(t *testing.T) {
	module := NewInMemoryModule(discardLogger())
	ctx := context.Background()

	if _, err := module.Handler.SubmitOrderHandler(ctx, httptransport.SubmitOrderRequest{
		CommandID:  "submit-1",
		OrderID:    "ord-1",
		CustomerID: "cust-1",
		Items:      []httptransport.ItemDTO{{ProductID: "p1", Quantity: 2}},
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	cancelled, err := module.Handler.CancelOrderHandler(ctx, httptransport.CancelOrderRequest{
		CommandID: "cancel-1",
		OrderID:   "ord-1",
		Reason:    "insufficient stock",
	})
	if err != nil || cancelled.Status != string(decider.StatusSuccess) {
		t.Fatalf("cancel = %+v, err = %v", cancelled, err)
	}

	order, err := module.Handler.GetOrderHandler(ctx, "ord-1")
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.Data.Status != entities.OrderCancelled || order.Data.CancelReason != "insufficient stock" {
		t.Fatalf("summary = %+v", order.Data)
	}
}
