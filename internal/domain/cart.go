package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the per-session collection of line items, unique by product id and
// kept in insertion order. A Cart is owned by a single request at a time.
type Cart struct {
	UserID    int64      `json:"userId"`
	Items     []LineItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func NewCart(userID int64, now time.Time) *Cart {
	return &Cart{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddItem merges quantity into an existing entry for productID or appends a
// new entry. The resulting quantity is clamped to stock when stock is known
// (> 0); in that case ErrQuantityExceedsStock is returned alongside the
// applied change.
func (c *Cart) AddItem(item LineItem, now time.Time) error {
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if item.UnitPrice.IsNegative() {
		return ErrInvalidPrice
	}
	if item.Stock <= 0 {
		return ErrOutOfStock
	}

	var clamped bool
	if idx := c.indexOf(item.ProductID); idx >= 0 {
		existing := &c.Items[idx]
		existing.Stock = item.Stock
		existing.Quantity, clamped = clamp(existing.Quantity+item.Quantity, item.Stock)
	} else {
		item.Quantity, clamped = clamp(item.Quantity, item.Stock)
		if item.AddedAt.IsZero() {
			item.AddedAt = now
		}
		c.Items = append(c.Items, item)
	}
	c.UpdatedAt = now

	if clamped {
		return ErrQuantityExceedsStock
	}
	return nil
}

// RemoveItem drops the entry for productID. Absent products are a no-op.
func (c *Cart) RemoveItem(productID int64, now time.Time) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return
	}
	c.Items = slices.Delete(c.Items, idx, idx+1)
	c.UpdatedAt = now
}

// UpdateQuantity sets the quantity of an existing entry. A quantity <= 0
// removes the entry. Quantities above the known stock are clamped and
// reported with ErrQuantityExceedsStock.
func (c *Cart) UpdateQuantity(productID int64, quantity int, now time.Time) error {
	if quantity <= 0 {
		c.RemoveItem(productID, now)
		return nil
	}

	idx := c.indexOf(productID)
	if idx < 0 {
		return ErrItemNotInCart
	}

	item := &c.Items[idx]
	var clamped bool
	item.Quantity, clamped = clamp(quantity, item.Stock)
	c.UpdatedAt = now

	if clamped {
		return ErrQuantityExceedsStock
	}
	return nil
}

// RefreshStock records a newer stock level for productID without touching
// its quantity.
func (c *Cart) RefreshStock(productID int64, stock int) {
	if idx := c.indexOf(productID); idx >= 0 {
		c.Items[idx].Stock = stock
	}
}

func (c *Cart) Clear(now time.Time) {
	c.Items = nil
	c.UpdatedAt = now
}

func (c *Cart) Item(productID int64) (LineItem, bool) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return LineItem{}, false
	}
	return c.Items[idx], true
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount is the sum of all quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Subtotal is the exact sum of all line subtotals.
func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(item.Subtotal())
	}
	return sum
}

// Snapshot returns a copy of the items that is safe to hand to other
// components.
func (c *Cart) Snapshot() []LineItem {
	return slices.Clone(c.Items)
}

func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = slices.Clone(c.Items)
	return &cp
}

func (c *Cart) indexOf(productID int64) int {
	return slices.IndexFunc(c.Items, func(item LineItem) bool {
		return item.ProductID == productID
	})
}

// clamp bounds quantity to [1, stock]. A stock <= 0 means no stock level was
// recorded for the entry; callers reject sold out products before clamping.
func clamp(quantity, stock int) (int, bool) {
	if quantity < 1 {
		return 1, false
	}
	if stock > 0 && quantity > stock {
		return stock, true
	}
	return quantity, false
}
