package services

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/pigbank/orders/internal/configs"
	"github.com/pigbank/orders/pkg"
	kafkautils "github.com/pigbank/orders/pkg/kafka"
	"github.com/pigbank/orders/pkg/views"
	"go.uber.org/zap"
)

// EventPublisher emits OrderCreated notifications. Delivery is at-least-once;
// consumer-side deduplication is the consumer's concern.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, traceID string, event views.OrderCreatedEvent) error
	Close()
}

type KafkaEventPublisher struct {
	logger   *zap.Logger
	producer *kafka.Producer
	cnf      *configs.Config
}

// NewKafkaEventPublisher ensures the order-events topic exists and wires an
// idempotent producer with async delivery reporting.
func NewKafkaEventPublisher(logger *zap.Logger, ctx context.Context, cnf *configs.Config) (EventPublisher, error) {
	topicConfig := kafkautils.KafkaConfig{
		BootstrapServers: cnf.KafkaBrokers,
		Topics: []kafkautils.TopicConfig{
			{
				Topic:             cnf.KafkaOrderTopic,
				NumPartitions:     int(cnf.KafkaPartition),
				ReplicationFactor: 1,
				Config: map[string]string{
					"cleanup.policy": "delete",
					"retention.ms":   fmt.Sprintf("%d", cnf.KafkaOrderRetention.Milliseconds()),
				},
			},
		},
	}
	if err := kafkautils.InitKafkaTopics(logger, ctx, topicConfig); err != nil {
		return nil, err
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  cnf.KafkaBrokers,
		"acks":               "all",  // Wait for all replicas
		"enable.idempotence": "true", // No broker-side duplicates on retry
		"retries":            "1",
	})
	if err != nil {
		return nil, err
	}
	logger.Info("kafka producer created successfully", zap.String("brokers", cnf.KafkaBrokers))
	go handleDeliveryReports(logger, p)
	return &KafkaEventPublisher{
		logger:   logger,
		producer: p,
		cnf:      cnf,
	}, nil
}

func (k *KafkaEventPublisher) PublishOrderCreated(ctx context.Context, traceID string, event views.OrderCreatedEvent) error {
	msg, err := newOrderCreatedMessage(k.cnf.KafkaOrderTopic, k.cnf.KafkaPartition, event)
	if err != nil {
		return err
	}
	if err := k.producer.Produce(msg, nil); err != nil {
		k.logger.Error("event publish failed",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.OrderId, event.OrderID),
			zap.Error(err),
		)
		return pkg.NewAppError(pkg.ErrDependencyCode, "event channel unavailable", err)
	}
	k.logger.Info("order created event published",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.OrderId, event.OrderID),
		zap.String("topic", k.cnf.KafkaOrderTopic),
	)
	return nil
}

// newOrderCreatedMessage validates the event once at the boundary and renders
// the wire message: JSON body plus OrderId/EventType/TraceId headers.
func newOrderCreatedMessage(topic string, partitions uint32, event views.OrderCreatedEvent) (*kafka.Message, error) {
	if err := event.Validate(); err != nil {
		return nil, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid order event", err)
	}
	body, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	// Deterministic partitioning by user id keeps one user's events ordered
	// relative to each other.
	h := fnv.New32a()
	_, _ = h.Write([]byte(event.UserID))
	partition := int32(h.Sum32() % partitions)

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: partition,
		},
		Key:   []byte(event.OrderID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "OrderId", Value: []byte(event.OrderID)},
			{Key: "EventType", Value: []byte(event.EventType)},
			{Key: "TraceId", Value: []byte(event.TraceID)},
		},
	}, nil
}

func (k *KafkaEventPublisher) Close() {
	k.producer.Close()
}

func handleDeliveryReports(logger *zap.Logger, p *kafka.Producer) {
	for e := range p.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				logger.Error("failed to publish message", zap.Error(ev.TopicPartition.Error))
			}
		}
	}
}
