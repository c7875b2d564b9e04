package domain

import "time"

// CartSnapshot is the priced cart state captured when a checkout starts.
type CartSnapshot struct {
	Order      Order     `json:"order"`
	Currency   string    `json:"currency"`
	CapturedAt time.Time `json:"capturedAt"`
}

const CurrencyCLP = "CLP"
