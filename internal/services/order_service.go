package services

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pigbank/orders/internal/observability"
	"github.com/pigbank/orders/internal/views"
	"github.com/pigbank/orders/pkg"
	"github.com/pigbank/orders/pkg/models"
	pkgviews "github.com/pigbank/orders/pkg/views"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderService interface {
	// CreateOrder runs the idempotent creation workflow and returns the
	// materialized response. Duplicate submissions within the idempotency
	// window return the first submission's order.
	CreateOrder(ctx context.Context, traceID string, req views.CreateOrderRequest) (*pkgviews.OrderResponse, error)
	// GetOrder fetches an order by id through the read-through cache.
	GetOrder(ctx context.Context, traceID string, orderID string) (*pkgviews.OrderResponse, error)
}

type OrderServiceImpl struct {
	logger      *zap.Logger
	guard       IdempotencyGuard
	store       OrderStore
	cache       OrderCache
	projections ProjectionStore
	publisher   EventPublisher
	metrics     *observability.OrderMetrics
	tracer      trace.Tracer

	now func() time.Time
}

func NewOrderService(
	logger *zap.Logger,
	guard IdempotencyGuard,
	store OrderStore,
	cache OrderCache,
	projections ProjectionStore,
	publisher EventPublisher,
	metrics *observability.OrderMetrics,
	tracer trace.Tracer,
) OrderService {
	return &OrderServiceImpl{
		logger:      logger,
		guard:       guard,
		store:       store,
		cache:       cache,
		projections: projections,
		publisher:   publisher,
		metrics:     metrics,
		tracer:      tracer,
		now:         time.Now,
	}
}

// The pipeline is not atomic across stores: a failure after the primary
// commit leaves the order committed with no projection, cache entry, or
// event, and the caller gets a retryable failure. Because the reservation is
// taken before any mutation and holds the order id, a retry resolves to the
// committed order instead of creating a second row.
func (s *OrderServiceImpl) CreateOrder(ctx context.Context, traceID string, req views.CreateOrderRequest) (*pkgviews.OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "CreateOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.String("amount", req.Amount.String()),
	)

	fail := func(err error) (*pkgviews.OrderResponse, error) {
		s.metrics.OrderCreated("error")
		return nil, err
	}

	// Validation carries no side effects; reject before touching any store.
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid user id format", err)
	}
	if !req.Amount.IsPositive() {
		return nil, pkg.NewAppError(pkg.ErrInvalidInputCode, "amount must be greater than zero", nil)
	}
	if utf8.RuneCountInString(req.Description) > pkg.MaxDescriptionLength {
		return nil, pkg.NewAppError(pkg.ErrInvalidInputCode, "description exceeds maximum length", nil)
	}

	orderID := uuid.New()
	fingerprint := Fingerprint(req.UserID, req.Amount, req.Description)

	// Stage 1: atomic reservation, taken before any store mutation.
	reserveCtx, reserveSpan := s.tracer.Start(ctx, "CheckIdempotency")
	result, err := s.guard.Reserve(reserveCtx, traceID, fingerprint, orderID.String())
	reserveSpan.End()
	if err != nil {
		return fail(err)
	}
	if result.Hit {
		s.metrics.CacheHit(observability.CacheTypeIdempotency)
		span.SetAttributes(attribute.Bool("idempotent", true))
		resp, err := s.cache.GetOrLoad(ctx, traceID, result.ExistingOrderID)
		if err != nil {
			return fail(err)
		}
		if resp == nil {
			// The reservation belongs to a request that has not committed
			// yet, or whose commit failed. Treating this as a miss would
			// reopen the duplicate-creation window, so surface a conflict.
			return fail(pkg.NewAppError(pkg.ErrIdempotencyConflictCode,
				"an identical request is in flight or recently failed", nil))
		}
		s.logger.Info("returning existing order due to idempotency",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.OrderId, resp.ID),
		)
		return resp, nil
	}
	s.metrics.CacheMiss(observability.CacheTypeIdempotency)

	createdAt := s.now().UTC()
	order := models.Order{
		ID:          orderID,
		UserID:      userID,
		Amount:      req.Amount,
		Description: req.Description,
		Status:      pkg.OrderStatusPending,
		CreatedAt:   createdAt,
	}

	// Stages 2-3: provision the user if missing and insert the order, one
	// transaction at the system of record.
	storeCtx, storeSpan := s.tracer.Start(ctx, "SaveToPostgres")
	err = s.store.CreateOrder(storeCtx, traceID, models.PlaceholderUser(userID, createdAt), order)
	storeSpan.End()
	if err != nil {
		return fail(err)
	}

	// Confirm directly after the primary commit. This closes the duplicate
	// window at the cost of briefly exposing an order that has not reached
	// the secondary store or the event channel.
	if err := s.guard.Confirm(ctx, traceID, fingerprint, orderID.String()); err != nil {
		return fail(err)
	}

	// Stage 4: secondary projection.
	projCtx, projSpan := s.tracer.Start(ctx, "SaveToDynamo")
	err = s.projections.Put(projCtx, traceID, NewOrderProjectionRecord(order))
	projSpan.End()
	if err != nil {
		return fail(err)
	}

	// Stage 5: response cache.
	resp := order.ToResponse()
	cacheCtx, cacheSpan := s.tracer.Start(ctx, "SaveToCache")
	err = s.cache.Set(cacheCtx, traceID, resp)
	cacheSpan.End()
	if err != nil {
		return fail(err)
	}

	// Stage 6: event, correlated with this request's span context.
	eventCtx, eventSpan := s.tracer.Start(ctx, "PublishEvent")
	sc := trace.SpanContextFromContext(ctx)
	event := pkgviews.OrderCreatedEvent{
		EventType:   pkg.EventTypeOrderCreated,
		OrderID:     orderID.String(),
		UserID:      req.UserID,
		Amount:      req.Amount,
		Description: req.Description,
		Timestamp:   createdAt,
		TraceID:     sc.TraceID().String(),
		SpanID:      sc.SpanID().String(),
	}
	err = s.publisher.PublishOrderCreated(eventCtx, traceID, event)
	eventSpan.End()
	if err != nil {
		return fail(err)
	}

	s.metrics.OrderCreated("success")
	s.metrics.ObserveAmount(req.Amount)
	s.logger.Info("order creation completed",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.OrderId, orderID.String()),
		zap.String(pkg.UserId, req.UserID),
	)
	return &resp, nil
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, traceID string, orderID string) (*pkgviews.OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "GetOrder")
	defer span.End()

	if _, err := uuid.Parse(orderID); err != nil {
		return nil, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid order id format", err)
	}
	resp, err := s.cache.GetOrLoad(ctx, traceID, orderID)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, pkg.NewAppError(pkg.ErrRecordNotFoundCode, "order not found", nil)
	}
	return resp, nil
}
