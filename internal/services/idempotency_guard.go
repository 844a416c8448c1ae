package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/pigbank/orders/pkg"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReserveResult is the outcome of an atomic reservation attempt.
type ReserveResult struct {
	Hit             bool
	ExistingOrderID string
}

// IdempotencyGuard maps a request fingerprint to an order id for the length
// of the idempotency window.
type IdempotencyGuard interface {
	// Reserve atomically claims the fingerprint for orderID. When another
	// request already holds the fingerprint, it returns a Hit with that
	// request's order id. A reservation is only ever released by TTL expiry.
	Reserve(ctx context.Context, traceID, fingerprint, orderID string) (ReserveResult, error)
	// Confirm refreshes the reservation TTL to the full window once the
	// order is committed at the system of record.
	Confirm(ctx context.Context, traceID, fingerprint, orderID string) error
}

// Fingerprint derives the deterministic idempotency key from the logical
// request content, not from the generated order id, so retries collide.
func Fingerprint(userID string, amount decimal.Decimal, description string) string {
	sum := sha256.Sum256([]byte(description))
	return fmt.Sprintf("%s%s:%s:%s", pkg.IdempotencyKeyPrefix, userID, amount.String(), hex.EncodeToString(sum[:8]))
}

type RedisIdempotencyGuard struct {
	logger *zap.Logger
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyGuard(logger *zap.Logger, client *redis.Client, ttl time.Duration) IdempotencyGuard {
	return &RedisIdempotencyGuard{logger: logger, client: client, ttl: ttl}
}

func (g *RedisIdempotencyGuard) Reserve(ctx context.Context, traceID, fingerprint, orderID string) (ReserveResult, error) {
	// Two attempts cover the window where a reservation expires between the
	// failed SETNX and the GET.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := g.client.SetNX(ctx, fingerprint, orderID, g.ttl).Result()
		if err != nil {
			// Fail closed: treating an unreachable guard as a miss would risk
			// duplicate creation.
			g.logger.Error("idempotency reserve failed", zap.String(pkg.TraceId, traceID), zap.Error(err))
			return ReserveResult{}, pkg.NewAppError(pkg.ErrDependencyCode, "idempotency store unavailable", err)
		}
		if ok {
			return ReserveResult{}, nil
		}
		existing, err := g.client.Get(ctx, fingerprint).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			g.logger.Error("idempotency lookup failed", zap.String(pkg.TraceId, traceID), zap.Error(err))
			return ReserveResult{}, pkg.NewAppError(pkg.ErrDependencyCode, "idempotency store unavailable", err)
		}
		g.logger.Info("duplicate request within idempotency window",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.Fingerprint, fingerprint),
			zap.String(pkg.OrderId, existing),
		)
		return ReserveResult{Hit: true, ExistingOrderID: existing}, nil
	}
	return ReserveResult{}, pkg.NewAppError(pkg.ErrIdempotencyConflictCode, "could not settle idempotency reservation", nil)
}

func (g *RedisIdempotencyGuard) Confirm(ctx context.Context, traceID, fingerprint, orderID string) error {
	// SET XX: only refresh an existing reservation, never resurrect one.
	ok, err := g.client.SetXX(ctx, fingerprint, orderID, g.ttl).Result()
	if err != nil {
		g.logger.Error("idempotency confirm failed", zap.String(pkg.TraceId, traceID), zap.Error(err))
		return pkg.NewAppError(pkg.ErrDependencyCode, "idempotency store unavailable", err)
	}
	if !ok {
		// Reservation expired mid-pipeline; the order is committed, so log
		// rather than fail the request.
		g.logger.Warn("idempotency reservation expired before confirm",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.Fingerprint, fingerprint),
			zap.String(pkg.OrderId, orderID),
		)
	}
	return nil
}
