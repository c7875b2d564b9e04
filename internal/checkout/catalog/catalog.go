// Package catalog reads products and adjusts stock through the products
// service.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/looprex/checkout/pkg/apiclient"
	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

type Product struct {
	ProductID    int64           `json:"productId"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Stock        int             `json:"stock"`
	ProductPhoto string          `json:"productPhoto,omitempty"`
	Description  string          `json:"description,omitempty"`
}

// Catalog is the subset of the products service used by the cart and the
// checkout.
type Catalog interface {
	GetProduct(ctx context.Context, productID int64) (*Product, error)
	ReduceStock(ctx context.Context, productID int64, quantity int) error
}

type stockReduction struct {
	Quantity int `json:"quantity"`
}

type Client struct {
	api *apiclient.Client
}

func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

func (c *Client) GetProduct(ctx context.Context, productID int64) (*Product, error) {
	var p Product
	err := c.api.Do(ctx, http.MethodGet, fmt.Sprintf("/api/products/%d", productID), nil, &p)
	if apiclient.IsNotFound(err) {
		return nil, fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", productID, err)
	}
	if p.ProductID == 0 {
		p.ProductID = productID
	}
	return &p, nil
}

// ReduceStock asks the products service to subtract quantity from the
// product's stock.
func (c *Client) ReduceStock(ctx context.Context, productID int64, quantity int) error {
	path := fmt.Sprintf("/api/products/%d/stock", productID)
	err := c.api.Do(ctx, http.MethodPut, path, stockReduction{Quantity: quantity}, nil)
	if apiclient.IsNotFound(err) {
		return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}
	if err != nil {
		return fmt.Errorf("reduce stock of product %d: %w", productID, err)
	}
	return nil
}
