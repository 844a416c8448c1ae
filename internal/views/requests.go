package views

import "github.com/shopspring/decimal"

// CreateOrderRequest is the creation payload consumed from the HTTP layer.
// Amount accepts either a JSON number or a numeric string.
type CreateOrderRequest struct {
	UserID      string          `json:"userId" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description"`
}

// RegisterUserRequest creates a named user through the explicit registration
// flow.
type RegisterUserRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}
