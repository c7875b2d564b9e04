package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/looprex/checkout/internal/domain"
)

type CartService interface {
	GetCart(ctx context.Context, userID int64) (*domain.Cart, error)
	AddItem(ctx context.Context, userID, productID int64, quantity int) (*domain.Cart, error)
	UpdateQuantity(ctx context.Context, userID, productID int64, quantity int) (*domain.Cart, error)
	RemoveItem(ctx context.Context, userID, productID int64) (*domain.Cart, error)
	ClearCart(ctx context.Context, userID int64) error
	Totals(ctx context.Context, userID int64) (domain.OrderTotals, error)
}

type CartHandler struct {
	carts   CartService
	timeout time.Duration
}

func NewCartHandler(carts CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
	}
}

const maxQuantity = 99

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartItemDTO struct {
	ProductID    int64   `json:"product_id"`
	ProductName  string  `json:"product_name"`
	ProductPhoto string  `json:"product_photo,omitempty"`
	UnitPrice    float64 `json:"unit_price"`
	Quantity     int     `json:"quantity"`
	Subtotal     float64 `json:"subtotal"`
	AddedAt      string  `json:"added_at"`
}

type CartResponseDTO struct {
	UserID    int64         `json:"user_id"`
	Items     []CartItemDTO `json:"items"`
	ItemCount int           `json:"item_count"`
	Subtotal  float64       `json:"subtotal"`
	UpdatedAt string        `json:"updated_at"`
	// Warning is set when a quantity was reduced to the available stock.
	Warning string `json:"warning,omitempty"`
}

type TotalsDTO struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

func convertCart(c *domain.Cart) CartResponseDTO {
	items := make([]CartItemDTO, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, CartItemDTO{
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductPhoto: item.ProductPhoto,
			UnitPrice:    item.UnitPrice.InexactFloat64(),
			Quantity:     item.Quantity,
			Subtotal:     item.Subtotal().InexactFloat64(),
			AddedAt:      item.AddedAt.UTC().Format(time.RFC3339),
		})
	}
	return CartResponseDTO{
		UserID:    c.UserID,
		Items:     items,
		ItemCount: c.ItemCount(),
		Subtotal:  c.Subtotal().InexactFloat64(),
		UpdatedAt: c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func convertTotals(t domain.OrderTotals) TotalsDTO {
	return TotalsDTO{
		Subtotal: t.Subtotal.InexactFloat64(),
		Tax:      t.Tax.InexactFloat64(),
		Shipping: t.Shipping.InexactFloat64(),
		Total:    t.Total.InexactFloat64(),
	}
}

// respondCart writes the cart, downgrading a stock clamp to a warning.
func respondCart(w http.ResponseWriter, status int, cart *domain.Cart, err error) {
	if err != nil && !errors.Is(err, domain.ErrQuantityExceedsStock) {
		handleServiceError(w, err)
		return
	}
	dto := convertCart(cart)
	if err != nil {
		dto.Warning = err.Error()
	}
	respondJSON(w, status, dto)
}

func parseProductID(r *http.Request) (int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "product_id"), 10, 64)
	return productID, err == nil && productID > 0
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart, err := h.carts.GetCart(ctx, getUserIDFromContext(r.Context()))
	respondCart(w, http.StatusOK, cart, err)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	if req.Quantity <= 0 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	cart, err := h.carts.AddItem(ctx, getUserIDFromContext(r.Context()), req.ProductID, req.Quantity)
	respondCart(w, http.StatusCreated, cart, err)
}

// PUT /api/v1/cart/items/{product_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseProductID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity <= 0 || req.Quantity > maxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	cart, err := h.carts.UpdateQuantity(ctx, getUserIDFromContext(r.Context()), productID, req.Quantity)
	respondCart(w, http.StatusOK, cart, err)
}

// DELETE /api/v1/cart/items/{product_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID, ok := parseProductID(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	cart, err := h.carts.RemoveItem(ctx, getUserIDFromContext(r.Context()), productID)
	respondCart(w, http.StatusOK, cart, err)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.ClearCart(ctx, getUserIDFromContext(r.Context())); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/cart/totals
func (h *CartHandler) Totals(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	totals, err := h.carts.Totals(ctx, getUserIDFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, convertTotals(totals))
}
