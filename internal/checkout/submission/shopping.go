package submission

import (
	"context"
	"fmt"
	"net/http"

	"github.com/looprex/checkout/pkg/apiclient"
)

// BuyRequest is the order header accepted by the shopping service.
type BuyRequest struct {
	OrderNumber   string  `json:"orderNumber"`
	BuyDate       int64   `json:"buyDate"`
	Subtotal      float64 `json:"subtotal"`
	IVA           float64 `json:"iva"`
	Shipping      float64 `json:"shipping"`
	Total         float64 `json:"total"`
	PaymentMethod string  `json:"paymentMethod"`
	StatusID      int64   `json:"statusId"`
	AddressID     int64   `json:"addressId"`
	UserID        int64   `json:"userId"`
}

type Buy struct {
	BuyID       int64  `json:"buyId"`
	OrderNumber string `json:"orderNumber"`
	StatusID    int64  `json:"statusId"`
}

type DetailRequest struct {
	BuyID     int64   `json:"buyId"`
	ProductID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Subtotal  float64 `json:"subtotal"`
}

type Detail struct {
	DetailID  int64 `json:"detailId"`
	BuyID     int64 `json:"buyId"`
	ProductID int64 `json:"productId"`
}

// ShoppingClient is the REST client of the shopping service (buys and
// details).
type ShoppingClient struct {
	api *apiclient.Client
}

func NewShoppingClient(api *apiclient.Client) *ShoppingClient {
	return &ShoppingClient{api: api}
}

func (c *ShoppingClient) CreateBuy(ctx context.Context, req BuyRequest) (*Buy, error) {
	var buy Buy
	if err := c.api.Do(ctx, http.MethodPost, "/api/buys", req, &buy); err != nil {
		return nil, fmt.Errorf("create buy %s: %w", req.OrderNumber, err)
	}
	if buy.BuyID == 0 {
		return nil, fmt.Errorf("create buy %s: response carries no buy id", req.OrderNumber)
	}
	return &buy, nil
}

func (c *ShoppingClient) CreateDetail(ctx context.Context, req DetailRequest) (*Detail, error) {
	var detail Detail
	if err := c.api.Do(ctx, http.MethodPost, "/api/details", req, &detail); err != nil {
		return nil, fmt.Errorf("create detail for product %d: %w", req.ProductID, err)
	}
	return &detail, nil
}

func (c *ShoppingClient) UpdateBuyStatus(ctx context.Context, buyID, statusID int64) error {
	body := struct {
		StatusID int64 `json:"statusId"`
	}{StatusID: statusID}

	if err := c.api.Do(ctx, http.MethodPut, fmt.Sprintf("/api/buys/%d", buyID), body, nil); err != nil {
		return fmt.Errorf("update buy %d status to %d: %w", buyID, statusID, err)
	}
	return nil
}
