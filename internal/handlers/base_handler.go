package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pigbank/orders/pkg/database"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type BaseHandler struct {
	logger      *zap.Logger
	db          *database.DB
	redisClient *redis.Client
}

func NewBaseHandler(logger *zap.Logger, db *database.DB, redisClient *redis.Client) *BaseHandler {
	return &BaseHandler{logger: logger, db: db, redisClient: redisClient}
}

func (b *BaseHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", b.GetHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// GetHealth pings the primary database and Redis; either failing marks the
// service not ready.
func (b *BaseHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
	defer cancel()

	status := http.StatusOK
	checks := gin.H{"postgres": "ok", "redis": "ok"}

	if err := b.db.Ping(ctx); err != nil {
		b.logger.Warn("health check: postgres unreachable", zap.Error(err))
		checks["postgres"] = "unavailable"
		status = http.StatusServiceUnavailable
	}
	if err := b.redisClient.Ping(ctx).Err(); err != nil {
		b.logger.Warn("health check: redis unreachable", zap.Error(err))
		checks["redis"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	c.JSON(status, gin.H{
		"status": overall,
		"checks": checks,
	})
}
