package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	fulfillmentsaga "meridian/contexts/commerce/fulfillment-saga"
	sagaerrors "meridian/contexts/commerce/fulfillment-saga/domain/errors"
	sagahttp "meridian/contexts/commerce/fulfillment-saga/transport/http"
	inventoryservice "meridian/contexts/commerce/inventory-service"
	inventoryerrors "meridian/contexts/commerce/inventory-service/domain/errors"
	inventoryhttp "meridian/contexts/commerce/inventory-service/transport/http"
	orderservice "meridian/contexts/commerce/order-service"
	ordererrors "meridian/contexts/commerce/order-service/domain/errors"
	orderhttp "meridian/contexts/commerce/order-service/transport/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	_ "meridian/internal/platform/httpserver/docs"
)

type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	addr        string
	inventory   inventoryservice.Module
	orders      orderservice.Module
	fulfillment fulfillmentsaga.Module
}

func New(
	inventory inventoryservice.Module,
	orders orderservice.Module,
	fulfillment fulfillmentsaga.Module,
	logger *slog.Logger,
	addr string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if addr == "" {
		addr = ":8080"
	}

	s := &Server{
		mux:         http.NewServeMux(),
		logger:      logger,
		addr:        addr,
		inventory:   inventory,
		orders:      orders,
		fulfillment: fulfillment,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Start() error {
	s.logger.Info("http server starting",
		"event", "http_server_starting",
		"module", "internal/platform/httpserver",
		"layer", "platform",
		"addr", s.addr,
	)
	return http.ListenAndServe(s.addr, s.mux)
}

// Handler exposes the routed mux for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("POST /api/inventory/v1/products", s.handleCreateProduct)
	s.mux.HandleFunc("GET /api/inventory/v1/products", s.handleListProducts)
	s.mux.HandleFunc("GET /api/inventory/v1/products/{product_id}", s.handleGetProduct)
	s.mux.HandleFunc("POST /api/inventory/v1/products/{product_id}/stock", s.handleAddStock)
	s.mux.HandleFunc("POST /api/inventory/v1/reservations", s.handleReserveStock)
	s.mux.HandleFunc("GET /api/inventory/v1/reservations/{reservation_id}", s.handleGetReservation)
	s.mux.HandleFunc("POST /api/inventory/v1/reservations/{reservation_id}/confirm", s.handleConfirmReservation)
	s.mux.HandleFunc("POST /api/inventory/v1/reservations/{reservation_id}/release", s.handleReleaseReservation)
	s.mux.HandleFunc("POST /api/inventory/v1/warehouses/{warehouse_id}/reconcile", s.handleReconcile)

	s.mux.HandleFunc("POST /api/orders/v1/orders", s.handleSubmitOrder)
	s.mux.HandleFunc("GET /api/orders/v1/orders", s.handleListOrders)
	s.mux.HandleFunc("GET /api/orders/v1/orders/{order_id}", s.handleGetOrder)
	s.mux.HandleFunc("POST /api/orders/v1/orders/{order_id}/confirm", s.handleConfirmOrder)
	s.mux.HandleFunc("POST /api/orders/v1/orders/{order_id}/cancel", s.handleCancelOrder)

	s.mux.HandleFunc("GET /api/sagas/v1/fulfillment/{saga_id}", s.handleGetSaga)
	s.mux.HandleFunc("GET /api/sagas/v1/fulfillment/{saga_id}/steps", s.handleGetSagaSteps)
	s.mux.HandleFunc("POST /api/sagas/v1/fulfillment/{saga_id}/cancel", s.handleCancelSaga)
	s.mux.HandleFunc("DELETE /api/sagas/v1/fulfillment/{saga_id}", s.handleCleanupSaga)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req inventoryhttp.CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInventoryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.CommandID = idempotencyKey(req.CommandID, r)

	resp, err := s.inventory.Handler.CreateProductHandler(r.Context(), req)
	if err != nil {
		writeInventoryDomainError(w, err)
		return
	}
	writeJSON(w, commandStatus(resp.Status), resp)
}

func (s *Server) handleAddStock(w http.ResponseWriter, r *http.Request) {
	var req inventoryhttp.AddStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInventoryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.ProductID = r.PathValue("product_id")
	req.CommandID = idempotencyKey(req.CommandID, r)

	resp, err := s.inventory.Handler.AddStockHandler(r.Context(), req)
	if err != nil {
		writeInventoryDomainError(w, err)
		return
	}
	writeJSON(w, commandStatus(resp.Status), resp)
}

func (s *Server) handleReserveStock(w http.ResponseWriter, r *http.Request) {
	var req inventoryhttp.ReserveStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInventoryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.CommandID = idempotencyKey(req.CommandID, r)

	resp, err := s.inventory.Handler.ReserveStockHandler(r.Context(), req)
	if err != nil {
		writeInventoryDomainError(w, err)
		return
	}
	writeJSON(w, commandStatus(resp.Status), resp)
}

func (s *Server) handleConfirmReservation(w http.ResponseWriter, r *http.Request) {
	s.handleReservationAction(w, r, s.inventory.Handler.ConfirmReservationHandler)
}

func (s *Server) handleReleaseReservation(w http.ResponseWriter, r *http.Request) {
	s.handleReservationAction(w, r, s.inventory.Handler.ReleaseReservationHandler)
}

func (s *Server) handleReservationAction(
	w http.ResponseWriter,
	r *http.Request,
	action func(ctx context.Context, req inventoryhttp.ReservationActionRequest) (inventoryhttp.CommandResponse, error),
) {
	req := inventoryhttp.ReservationActionRequest{}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeInventoryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}
	}
	req.ReservationID = r.PathValue("reservation_id")
	req.CommandID = idempotencyKey(req.CommandID, r)

	resp, err := action(r.Context(), req)
	if err != nil {
		writeInventoryDomainError(w, err)
		return
	}
	writeJSON(w, commandStatus(resp.Status), resp)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	var req inventoryhttp.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInventoryError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}

	resp, err := s.inventory.Handler.ReconcileHandler(r.Context(), r.PathValue("warehouse_id"), req)
	if err != nil {
		writeInventoryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	resp, err := s.inventory.Handler.GetProductHandler(r.Context(), r.PathValue("product_id"))
	if err != nil {
		writeInventoryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	resp, err := s.inventory.Handler.ListProductsHandler(r.Context(), r.URL.Query().Get("warehouse_id"))
	if err != nil {
		writeInventoryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetReservation(w http.ResponseWriter, r *http.Request) {
	resp, err := s.inventory.Handler.GetReservationHandler(r.Context(), r.PathValue("reservation_id"))
	if err != nil {
		writeInventoryDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req orderhttp.SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOrderError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	req.CommandID = idempotencyKey(req.CommandID, r)

	resp, err := s.orders.Handler.SubmitOrderHandler(r.Context(), req)
	if err != nil {
		writeOrderDomainError(w, err)
		return
	}
	writeJSON(w, commandStatus(resp.Status), resp)
}

func (s *Server) handleConfirmOrder(w http.ResponseWriter, r *http.Request) {
	var req orderhttp.ConfirmOrderRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeOrderError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}
	}
	req.OrderID = r.PathValue("order_id")
	req.CommandID = idempotencyKey(req.CommandID, r)

	resp, err := s.orders.Handler.ConfirmOrderHandler(r.Context(), req)
	if err != nil {
		writeOrderDomainError(w, err)
		return
	}
	writeJSON(w, commandStatus(resp.Status), resp)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req orderhttp.CancelOrderRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeOrderError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}
	}
	req.OrderID = r.PathValue("order_id")
	req.CommandID = idempotencyKey(req.CommandID, r)

	resp, err := s.orders.Handler.CancelOrderHandler(r.Context(), req)
	if err != nil {
		writeOrderDomainError(w, err)
		return
	}
	writeJSON(w, commandStatus(resp.Status), resp)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	resp, err := s.orders.Handler.GetOrderHandler(r.Context(), r.PathValue("order_id"))
	if err != nil {
		writeOrderDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	if limitRaw := query.Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeOrderError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}

	resp, err := s.orders.Handler.ListOrdersHandler(r.Context(), query.Get("status"), limit)
	if err != nil {
		writeOrderDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSaga(w http.ResponseWriter, r *http.Request) {
	resp, err := s.fulfillment.Handler.GetSagaHandler(r.Context(), r.PathValue("saga_id"))
	if err != nil {
		writeSagaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSagaSteps(w http.ResponseWriter, r *http.Request) {
	resp, err := s.fulfillment.Handler.GetStepsHandler(r.Context(), r.PathValue("saga_id"))
	if err != nil {
		writeSagaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancelSaga(w http.ResponseWriter, r *http.Request) {
	var req sagahttp.CancelSagaRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeSagaError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
			return
		}
	}

	resp, err := s.fulfillment.Handler.CancelSagaHandler(r.Context(), r.PathValue("saga_id"), req)
	if err != nil {
		writeSagaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleCleanupSaga(w http.ResponseWriter, r *http.Request) {
	resp, err := s.fulfillment.Handler.CleanupSagaHandler(r.Context(), r.PathValue("saga_id"))
	if err != nil {
		writeSagaDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeInventoryDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventoryerrors.ErrProductNotFound):
		writeInventoryError(w, http.StatusNotFound, "product_not_found", err.Error())
	case errors.Is(err, inventoryerrors.ErrReservationNotFound):
		writeInventoryError(w, http.StatusNotFound, "reservation_not_found", err.Error())
	case errors.Is(err, inventoryerrors.ErrDuplicateSKU):
		writeInventoryError(w, http.StatusConflict, "duplicate_sku", err.Error())
	case errors.Is(err, inventoryerrors.ErrInvalidTransition):
		writeInventoryError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, inventoryerrors.ErrInvalidInput):
		writeInventoryError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeInventoryError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeOrderDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ordererrors.ErrOrderNotFound):
		writeOrderError(w, http.StatusNotFound, "order_not_found", err.Error())
	case errors.Is(err, ordererrors.ErrInvalidTransition):
		writeOrderError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, ordererrors.ErrInvalidInput):
		writeOrderError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeOrderError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeSagaDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sagaerrors.ErrSagaNotFound):
		writeSagaError(w, http.StatusNotFound, "saga_not_found", err.Error())
	case errors.Is(err, sagaerrors.ErrSagaFinished):
		writeSagaError(w, http.StatusConflict, "saga_finished", err.Error())
	case errors.Is(err, sagaerrors.ErrSagaStillRunning):
		writeSagaError(w, http.StatusConflict, "saga_still_running", err.Error())
	default:
		writeSagaError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// commandStatus maps the command result taxonomy onto HTTP. Rejections and
// recorded failures are successful HTTP exchanges carrying a business
// outcome; only transport-level problems use error statuses.
func commandStatus(status string) int {
	if status == "conflict_scheduled" {
		return http.StatusAccepted
	}
	return http.StatusOK
}

// idempotencyKey prefers an explicit command id and falls back to the
// Idempotency-Key header.
func idempotencyKey(commandID string, r *http.Request) string {
	if commandID != "" {
		return commandID
	}
	return r.Header.Get("Idempotency-Key")
}

func writeInventoryError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, inventoryhttp.ErrorResponse{Code: code, Message: message})
}

func writeOrderError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, orderhttp.ErrorResponse{Code: code, Message: message})
}

func writeSagaError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, sagahttp.ErrorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
