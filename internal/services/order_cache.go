package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pigbank/orders/internal/observability"
	"github.com/pigbank/orders/pkg"
	"github.com/pigbank/orders/pkg/views"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// OrderCache is the read-through cache over materialized order responses.
type OrderCache interface {
	// Set stores the response projection under order:{id}.
	Set(ctx context.Context, traceID string, resp views.OrderResponse) error
	// GetOrLoad returns the cached projection, falling back to the system of
	// record and repopulating the cache on a miss. Returns nil when the order
	// exists nowhere.
	GetOrLoad(ctx context.Context, traceID, orderID string) (*views.OrderResponse, error)
}

type RedisOrderCache struct {
	logger  *zap.Logger
	client  *redis.Client
	store   OrderStore
	metrics *observability.OrderMetrics
	ttl     time.Duration
}

func NewRedisOrderCache(logger *zap.Logger, client *redis.Client, store OrderStore, metrics *observability.OrderMetrics, ttl time.Duration) OrderCache {
	return &RedisOrderCache{
		logger:  logger,
		client:  client,
		store:   store,
		metrics: metrics,
		ttl:     ttl,
	}
}

func cacheKey(orderID string) string {
	return pkg.OrderCacheKeyPrefix + orderID
}

func (c *RedisOrderCache) Set(ctx context.Context, traceID string, resp views.OrderResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, cacheKey(resp.ID), payload, c.ttl).Err(); err != nil {
		c.logger.Error("order cache write failed", zap.String(pkg.TraceId, traceID), zap.Error(err))
		return pkg.NewAppError(pkg.ErrDependencyCode, "response cache unavailable", err)
	}
	return nil
}

func (c *RedisOrderCache) GetOrLoad(ctx context.Context, traceID, orderID string) (*views.OrderResponse, error) {
	payload, err := c.client.Get(ctx, cacheKey(orderID)).Bytes()
	switch {
	case err == nil:
		c.metrics.CacheHit(observability.CacheTypeOrderLookup)
		var resp views.OrderResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return nil, err
		}
		return &resp, nil
	case errors.Is(err, redis.Nil):
		c.metrics.CacheMiss(observability.CacheTypeOrderLookup)
	default:
		c.logger.Error("order cache read failed", zap.String(pkg.TraceId, traceID), zap.Error(err))
		return nil, pkg.NewAppError(pkg.ErrDependencyCode, "response cache unavailable", err)
	}

	id, err := uuid.Parse(orderID)
	if err != nil {
		return nil, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid order id", err)
	}
	order, err := c.store.FindOrder(ctx, traceID, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, nil
	}

	resp := order.ToResponse()
	// Repopulate for subsequent lookups; a failure here only costs the next
	// reader a database round trip.
	if err := c.Set(ctx, traceID, resp); err != nil {
		c.logger.Warn("order cache refill failed", zap.String(pkg.TraceId, traceID), zap.Error(err))
	}
	return &resp, nil
}
