package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	d "github.com/looprex/checkout/internal/domain"
)

type CheckoutService interface {
	InitiateCheckout(ctx context.Context, req d.CheckoutRequest) (*d.CheckoutResponse, error)
	GetCheckout(ctx context.Context, userID int64, checkoutID string) (*d.CheckoutResponse, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	timeout  time.Duration
}

func NewCheckoutHandler(checkout CheckoutService, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

type InitiateCheckoutRequestDTO struct {
	AddressID     int64  `json:"address_id"`
	PaymentMethod string `json:"payment_method"`
	// IdempotencyKey is accepted for clients that cannot set headers; the
	// Idempotency-Key header wins when both are present.
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

type CheckoutResponseDTO struct {
	CheckoutID     string     `json:"checkout_id"`
	Status         string     `json:"status"`
	OrderNumber    string     `json:"order_number,omitempty"`
	OrderID        int64      `json:"order_id,omitempty"`
	Totals         *TotalsDTO `json:"totals,omitempty"`
	FailedProducts []int64    `json:"failed_products,omitempty"`
	Message        string     `json:"message,omitempty"`
}

func convertCheckout(resp *d.CheckoutResponse) CheckoutResponseDTO {
	dto := CheckoutResponseDTO{
		CheckoutID:     resp.CheckoutID,
		Status:         resp.Status.String(),
		OrderNumber:    resp.OrderNumber,
		OrderID:        resp.OrderID,
		FailedProducts: resp.FailedProducts,
		Message:        resp.Message,
	}
	if resp.Totals != nil {
		totals := convertTotals(*resp.Totals)
		dto.Totals = &totals
	}
	return dto
}

// POST /api/v1/checkout
func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req InitiateCheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		key = req.IdempotencyKey
	}
	if key == "" {
		respondError(w, http.StatusBadRequest, "missing_idempotency_key", "Idempotency-Key header is required")
		return
	}
	if req.AddressID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_address_id", "address_id must be positive")
		return
	}
	method := d.PaymentMethod(strings.ToUpper(req.PaymentMethod))
	if !method.Valid() {
		respondError(w, http.StatusBadRequest, "invalid_payment_method", "payment_method must be TRANSFER or CARD")
		return
	}

	resp, err := h.checkout.InitiateCheckout(ctx, d.CheckoutRequest{
		UserID:         getUserIDFromContext(r.Context()),
		AddressID:      req.AddressID,
		PaymentMethod:  method,
		IdempotencyKey: key,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if !resp.Status.IsTerminal() {
		// a concurrent request with the same key is still submitting
		status = http.StatusAccepted
	}
	respondJSON(w, status, convertCheckout(resp))
}

// GET /api/v1/checkout/{checkout_id}
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checkoutID := chi.URLParam(r, "checkout_id")
	if checkoutID == "" {
		respondError(w, http.StatusBadRequest, "missing_checkout_id", "checkout_id is required")
		return
	}

	resp, err := h.checkout.GetCheckout(ctx, getUserIDFromContext(r.Context()), checkoutID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertCheckout(resp))
}
