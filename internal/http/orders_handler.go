package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	d "github.com/looprex/checkout/internal/domain"
)

type OrdersService interface {
	ListOrders(ctx context.Context, userID int64) ([]d.OrderSummary, error)
	UpdateOrderStatus(ctx context.Context, orderID, statusID int64) error
}

type OrdersHandler struct {
	orders  OrdersService
	timeout time.Duration
}

func NewOrdersHandler(orders OrdersService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  orders,
		timeout: timeout,
	}
}

type OrderResponseDTO struct {
	CheckoutID  string  `json:"checkout_id"`
	OrderNumber string  `json:"order_number"`
	OrderID     int64   `json:"order_id,omitempty"`
	Status      string  `json:"status"`
	TotalAmount float64 `json:"total_amount"`
	Currency    string  `json:"currency"`
	CreatedAt   string  `json:"created_at"`
}

type UpdateOrderStatusRequestDTO struct {
	StatusID int64 `json:"status_id"`
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.ListOrders(ctx, getUserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	dtos := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		dtos = append(dtos, OrderResponseDTO{
			CheckoutID:  o.CheckoutID,
			OrderNumber: o.OrderNumber,
			OrderID:     o.OrderID,
			Status:      o.Status.String(),
			TotalAmount: o.Total.InexactFloat64(),
			Currency:    d.CurrencyCLP,
			CreatedAt:   o.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	respondJSON(w, http.StatusOK, dtos)
}

// PUT /api/v1/admin/orders/{order_id}/status
func (h *OrdersHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID, err := strconv.ParseInt(chi.URLParam(r, "order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return
	}

	var req UpdateOrderStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if err := h.orders.UpdateOrderStatus(ctx, orderID, req.StatusID); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
