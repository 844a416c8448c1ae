package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pigbank/orders/pkg"
	"github.com/pigbank/orders/pkg/views"
	"github.com/shopspring/decimal"
)

// Order maps to table `orders`
type Order struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
	Status      pkg.OrderStatus
	CreatedAt   time.Time
}

func (o Order) ToResponse() views.OrderResponse {
	return views.OrderResponse{
		ID:          o.ID.String(),
		UserID:      o.UserID.String(),
		Amount:      o.Amount,
		Description: o.Description,
		CreatedAt:   o.CreatedAt,
		Status:      o.Status,
	}
}
