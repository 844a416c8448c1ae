package views

import (
	"time"

	"github.com/pigbank/orders/pkg"
	"github.com/shopspring/decimal"
)

// OrderResponse is the materialized order view returned to callers and stored
// in the response cache. Amount stays a decimal so a serialize/deserialize
// round trip loses no precision.
type OrderResponse struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
	Status      pkg.OrderStatus `json:"status"`
}
