package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pigbank/orders/pkg"
	"github.com/pigbank/orders/pkg/database"
	"github.com/pigbank/orders/pkg/models"
	"github.com/pigbank/orders/pkg/repositories"
	"go.uber.org/zap"
)

// OrderStore is the system-of-record contract. Creation provisions the user
// when missing and inserts the order inside one transaction.
type OrderStore interface {
	CreateOrder(ctx context.Context, traceID string, user models.User, order models.Order) error
	FindOrder(ctx context.Context, traceID string, id uuid.UUID) (*models.Order, error)
}

type PostgresOrderStore struct {
	logger *zap.Logger
	db     *database.DB
	users  repositories.UserRepository
	orders repositories.OrderRepository
}

func NewPostgresOrderStore(logger *zap.Logger, db *database.DB, users repositories.UserRepository, orders repositories.OrderRepository) OrderStore {
	return &PostgresOrderStore{
		logger: logger,
		db:     db,
		users:  users,
		orders: orders,
	}
}

func (s *PostgresOrderStore) CreateOrder(ctx context.Context, traceID string, user models.User, order models.Order) error {
	// Validated again at the storage boundary; the schema enforces the same
	// constraints one layer deeper.
	if !order.Amount.IsPositive() {
		return pkg.NewAppError(pkg.ErrInvalidInputCode, "amount must be positive", nil)
	}
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.users.CreateIfMissing(ctx, tx, user); err != nil {
			return err
		}
		_, err := s.orders.Create(ctx, tx, order)
		return err
	})
	if err != nil {
		return pkg.HandleSQLError(traceID, s.logger, err)
	}
	s.logger.Info("order committed at system of record",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.OrderId, order.ID.String()),
		zap.String(pkg.UserId, order.UserID.String()),
	)
	return nil
}

func (s *PostgresOrderStore) FindOrder(ctx context.Context, traceID string, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, s.db, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, s.logger, err)
	}
	return &order, nil
}
