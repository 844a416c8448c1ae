package services

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pigbank/orders/pkg"
	"github.com/pigbank/orders/pkg/models"
	"go.uber.org/zap"
)

// OrderProjectionRecord is the denormalized per-order item written to the
// secondary store. Written once at creation time, expired by the store's own
// TTL mechanism, never updated by this workflow.
type OrderProjectionRecord struct {
	ID          string
	UserID      string
	Amount      string // numeric string
	Description string
	Status      string
	CreatedAt   string // ISO-8601
	TTL         int64  // epoch seconds
}

// NewOrderProjectionRecord builds the projection for an order; expiry is
// pinned to the order's creation time plus the projection window.
func NewOrderProjectionRecord(order models.Order) OrderProjectionRecord {
	return OrderProjectionRecord{
		ID:          order.ID.String(),
		UserID:      order.UserID.String(),
		Amount:      order.Amount.String(),
		Description: order.Description,
		Status:      string(order.Status),
		CreatedAt:   order.CreatedAt.UTC().Format(time.RFC3339Nano),
		TTL:         order.CreatedAt.Add(pkg.ProjectionTTL).Unix(),
	}
}

// Item renders the record as DynamoDB attribute values. Amount and ttl are
// numeric attributes; everything else travels as strings.
func (r OrderProjectionRecord) Item() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id":          &types.AttributeValueMemberS{Value: r.ID},
		"user_id":     &types.AttributeValueMemberS{Value: r.UserID},
		"amount":      &types.AttributeValueMemberN{Value: r.Amount},
		"description": &types.AttributeValueMemberS{Value: r.Description},
		"status":      &types.AttributeValueMemberS{Value: r.Status},
		"created_at":  &types.AttributeValueMemberS{Value: r.CreatedAt},
		"ttl":         &types.AttributeValueMemberN{Value: strconv.FormatInt(r.TTL, 10)},
	}
}

// ProjectionStore persists the secondary projection. Fire-and-forget relative
// to the primary store: no read-after-write consistency is promised.
type ProjectionStore interface {
	Put(ctx context.Context, traceID string, record OrderProjectionRecord) error
}

// DynamoAPI is the slice of the DynamoDB client the store needs.
type DynamoAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

type DynamoProjectionStore struct {
	logger *zap.Logger
	client DynamoAPI
	table  string
}

func NewDynamoProjectionStore(logger *zap.Logger, client DynamoAPI, table string) ProjectionStore {
	return &DynamoProjectionStore{logger: logger, client: client, table: table}
}

func (s *DynamoProjectionStore) Put(ctx context.Context, traceID string, record OrderProjectionRecord) error {
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      record.Item(),
	})
	if err != nil {
		s.logger.Error("projection write failed",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.OrderId, record.ID),
			zap.Error(err),
		)
		return pkg.NewAppError(pkg.ErrDependencyCode, "projection store unavailable", err)
	}
	s.logger.Info("order projection written",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.OrderId, record.ID),
	)
	return nil
}
