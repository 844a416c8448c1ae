package configs

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pigbank/orders/pkg/utils"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Port          string `mapstructure:"PORT" validate:"required"`
	PrimaryDbAddr string `mapstructure:"PRIMARY_DB_ADDR" validate:"required"`
	ReplicaDbAddr string `mapstructure:"REPLICA_DB_ADDR"`
	MaxDbCons     int32  `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons     int32  `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	KafkaBrokers        string        `mapstructure:"KAFKA_BROKERS" validate:"required"`
	KafkaOrderTopic     string        `mapstructure:"KAFKA_ORDER_TOPIC" validate:"required"`
	KafkaPartition      uint32        `mapstructure:"KAFKA_PARTITION" validate:"min=1"`
	KafkaOrderRetention time.Duration `mapstructure:"KAFKA_ORDER_RETENTION"`

	AwsRegion        string `mapstructure:"AWS_REGION" validate:"required"`
	AwsEndpoint      string `mapstructure:"AWS_ENDPOINT"`
	DynamoOrderTable string `mapstructure:"DYNAMO_ORDER_TABLE" validate:"required"`

	OtelEndpoint string `mapstructure:"OTEL_ENDPOINT"`

	IdempotencyTTL  time.Duration `mapstructure:"IDEMPOTENCY_TTL" validate:"required"`
	OrderCacheTTL   time.Duration `mapstructure:"ORDER_CACHE_TTL" validate:"required,gtfield=IdempotencyTTL"`
	CreateRateLimit int           `mapstructure:"CREATE_RATE_LIMIT"`
	CreateRateBurst int           `mapstructure:"CREATE_RATE_BURST"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")
	viper.SetDefault("KAFKA_PARTITION", "4")
	viper.SetDefault("KAFKA_ORDER_RETENTION", "168h")
	viper.SetDefault("AWS_REGION", "us-east-1")
	viper.SetDefault("IDEMPOTENCY_TTL", "5m")
	viper.SetDefault("ORDER_CACHE_TTL", "30m")
	viper.SetDefault("CREATE_RATE_LIMIT", "100")
	viper.SetDefault("CREATE_RATE_BURST", "200")

	// Optional: Read from config.yaml if exists
	if gin.ReleaseMode == gin.Mode() {
		viper.SetConfigName("config.prod")
	} else if gin.TestMode == gin.Mode() {
		logger.Warn("running in test mode")
		viper.SetConfigName("config.test")
	} else {
		logger.Warn("running in development mode")
		viper.SetConfigName("config.dev")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./internal/configs")
	_ = viper.ReadInConfig() // Ignore if no file

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}
	// Validate after unmarshal
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, utils.FormatConfigErrors(logger, err, cfg)
	}
	return &cfg, nil
}
