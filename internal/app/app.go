package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	"github.com/pigbank/orders/internal/configs"
	"github.com/pigbank/orders/internal/handlers"
	"github.com/pigbank/orders/internal/observability"
	"github.com/pigbank/orders/internal/services"
	"github.com/pigbank/orders/pkg"
	"github.com/pigbank/orders/pkg/cache"
	"github.com/pigbank/orders/pkg/database"
	middleware "github.com/pigbank/orders/pkg/middlewares"
	"github.com/pigbank/orders/pkg/repositories"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

const serviceName = "pigbank-orders"

// NewApp wires dependencies, builds the Gin engine, and returns an
// *http.Server plus a cleanup func. Configuration comes from environment
// variables via configs.Load.
func NewApp(ctx context.Context, logger *zap.Logger) (*http.Server, func(), error) {
	cfg, err := configs.Load(logger)
	if err != nil {
		return nil, nil, err
	}

	shutdownTracing, err := observability.SetupTracing(ctx, serviceName, cfg.OtelEndpoint)
	if err != nil {
		return nil, nil, err
	}
	tracer := otel.Tracer(serviceName)

	// Postgres
	dbConfig := database.Config{
		PrimaryDSN:  cfg.PrimaryDbAddr,
		ReplicaDSNs: []string{cfg.ReplicaDbAddr},
		MaxConns:    cfg.MaxDbCons,
		MinConns:    cfg.MinDbCons,
	}
	db, disconnect, err := database.New(ctx, logger, dbConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := database.RunMigrations(logger, cfg.PrimaryDbAddr); err != nil {
		disconnect()
		return nil, nil, err
	}

	// Redis backs the idempotency guard, the response cache, and the limiter.
	redisClient, closeRedis, err := cache.New(ctx, cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		disconnect()
		return nil, nil, err
	}

	// DynamoDB secondary projection store.
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AwsRegion))
	if err != nil {
		closeRedis()
		disconnect()
		return nil, nil, err
	}
	dynamoClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.AwsEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AwsEndpoint)
		}
	})

	// Kafka event publisher.
	publisher, err := services.NewKafkaEventPublisher(logger, ctx, cfg)
	if err != nil {
		closeRedis()
		disconnect()
		return nil, nil, err
	}

	// Setup dependencies
	metrics := observability.NewOrderMetrics(prometheus.DefaultRegisterer)
	userRepo := repositories.NewUserRepository()
	orderRepo := repositories.NewOrderRepository()
	store := services.NewPostgresOrderStore(logger, db, userRepo, orderRepo)
	guard := services.NewRedisIdempotencyGuard(logger, redisClient, cfg.IdempotencyTTL)
	orderCache := services.NewRedisOrderCache(logger, redisClient, store, metrics, cfg.OrderCacheTTL)
	projections := services.NewDynamoProjectionStore(logger, dynamoClient, cfg.DynamoOrderTable)

	orderService := services.NewOrderService(logger, guard, store, orderCache, projections, publisher, metrics, tracer)
	userService := services.NewUserService(logger, db, userRepo)

	baseHandler := handlers.NewBaseHandler(logger, db, redisClient)
	orderHandler := handlers.NewOrderHandler(logger, orderService)
	userHandler := handlers.NewUserHandler(logger, userService)

	limiter := pkg.NewDistributedLimiter(redisClient, "orders:create_rate",
		cfg.CreateRateLimit, cfg.CreateRateBurst, time.Second, logger)

	// Router
	r := gin.Default()

	api := r.Group("/api/v1")
	api.Use(middleware.TraceID())
	api.Use(middleware.Metrics())
	api.Use(middleware.RateLimit(limiter))

	orderHandler.RegisterRoutes(api)
	userHandler.RegisterRoutes(api)
	baseHandler.RegisterRoutes(r)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	cleanup := func() {
		publisher.Close()
		closeRedis()
		disconnect()
		_ = shutdownTracing(context.Background())
	}

	return srv, cleanup, nil
}
