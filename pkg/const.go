package pkg

import "time"

const (
	HeaderTraceId   string = "X-Trace-Id"
	HeaderRequestId string = "X-Request-Id"
)

const (
	TraceId     string = "trace_id"
	SpanId      string = "span_id"
	OrderId     string = "order_id"
	UserId      string = "user_id"
	Fingerprint string = "fingerprint"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
)

const EventTypeOrderCreated = "OrderCreated"

// Key prefixes shared by the idempotency guard and the response cache.
const (
	IdempotencyKeyPrefix = "idempotency:"
	OrderCacheKeyPrefix  = "order:"
)

// The reservation window must stay shorter than the response cache TTL so a
// duplicate hit can still be resolved from the cache while the reservation
// is alive.
const (
	DefaultIdempotencyTTL = 5 * time.Minute
	DefaultOrderCacheTTL  = 30 * time.Minute
	ProjectionTTL         = 30 * 24 * time.Hour
)

// MaxDescriptionLength bounds order descriptions, counted in code points.
const MaxDescriptionLength = 500
