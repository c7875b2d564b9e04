package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/looprex/checkout/internal/checkout/catalog"
	checkoutsvc "github.com/looprex/checkout/internal/checkout/service"
	"github.com/looprex/checkout/internal/domain"
	"github.com/looprex/checkout/internal/pricing"
	"github.com/looprex/checkout/pkg/apiclient"
	"github.com/looprex/checkout/pkg/circuitbreaker"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{pricing.ErrEmptyCart, http.StatusUnprocessableEntity, "empty_cart"},
	{pricing.ErrInvalidLineItem, http.StatusBadRequest, "invalid_line_item"},
	{pricing.ErrInvalidOrder, http.StatusBadRequest, "invalid_order"},
	{pricing.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{pricing.ErrPriceUnavailable, http.StatusServiceUnavailable, "price_unavailable"},
	{domain.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{domain.ErrInvalidPrice, http.StatusBadRequest, "invalid_price"},
	{domain.ErrOutOfStock, http.StatusConflict, "out_of_stock"},
	{domain.ErrItemNotInCart, http.StatusNotFound, "item_not_in_cart"},
	{catalog.ErrProductNotFound, http.StatusNotFound, "product_not_found"},
	{checkoutsvc.ErrMissingIdempotencyKey, http.StatusBadRequest, "missing_idempotency_key"},
	{checkoutsvc.ErrIdempotencyKeyReused, http.StatusConflict, "idempotency_key_reused"},
	{checkoutsvc.ErrCheckoutNotFound, http.StatusNotFound, "checkout_not_found"},
	{checkoutsvc.ErrInvalidOrderStatus, http.StatusBadRequest, "invalid_order_status"},
	{checkoutsvc.ErrSubmissionFailed, http.StatusBadGateway, "submission_failed"},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// handleServiceError converts service errors to HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			respondError(w, m.status, m.code, err.Error())
			return
		}
	}

	switch {
	case circuitbreaker.IsOpen(err):
		respondError(w, http.StatusServiceUnavailable, "service_unavailable", "upstream service unavailable")
	case apiclient.IsNotFound(err):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		zap.L().Error("unhandled service error", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
