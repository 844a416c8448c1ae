package views

import (
	"errors"
	"time"

	"github.com/pigbank/orders/pkg"
	"github.com/shopspring/decimal"
)

// OrderCreatedEvent is the fixed schema published once per successful
// creation. Field names follow the wire contract consumed downstream.
type OrderCreatedEvent struct {
	EventType   string          `json:"eventType"`
	OrderID     string          `json:"orderId"`
	UserID      string          `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
	TraceID     string          `json:"traceId"`
	SpanID      string          `json:"spanId"`
}

// Validate is the publisher-boundary check: the schema is validated once
// here rather than by each call site assembling loose maps.
func (e OrderCreatedEvent) Validate() error {
	if e.EventType != pkg.EventTypeOrderCreated {
		return errors.New("unsupported event type")
	}
	if e.OrderID == "" {
		return errors.New("event is missing order id")
	}
	if e.UserID == "" {
		return errors.New("event is missing user id")
	}
	if !e.Amount.IsPositive() {
		return errors.New("event amount must be positive")
	}
	if e.Timestamp.IsZero() {
		return errors.New("event is missing timestamp")
	}
	return nil
}
