package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pigbank/orders/pkg/database"
	"github.com/pigbank/orders/pkg/models"
	"github.com/shopspring/decimal"
)

type OrderRepository interface {
	// Create inserts a new order. The id is server-generated, so a conflict
	// surfaces as a constraint violation rather than being swallowed.
	Create(ctx context.Context, tx pgx.Tx, order models.Order) (pgconn.CommandTag, error)
	// FindByID loads an order by id, routed to a read replica.
	FindByID(ctx context.Context, db *database.DB, id uuid.UUID) (models.Order, error)
}

type OrderRepositoryImpl struct {
}

func NewOrderRepository() OrderRepository {
	return &OrderRepositoryImpl{}
}

func (o OrderRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, order models.Order) (pgconn.CommandTag, error) {
	if order.ID == uuid.Nil {
		return pgconn.CommandTag{}, errors.New("order id cannot be nil")
	}
	// Amount travels as its decimal string so numeric precision survives the
	// driver round trip.
	return tx.Exec(ctx, `
						INSERT INTO orders (id, user_id, amount, description, status, created_at)
						VALUES ($1, $2, $3, $4, $5, $6)`,
		order.ID,
		order.UserID,
		order.Amount.String(),
		order.Description,
		order.Status,
		order.CreatedAt,
	)
}

func (o OrderRepositoryImpl) FindByID(ctx context.Context, db *database.DB, id uuid.UUID) (models.Order, error) {
	var (
		order  models.Order
		amount string
	)
	err := db.QueryRow(ctx, `
							SELECT id, user_id, amount::text, description, status, created_at
							FROM orders WHERE id = $1`,
		id,
	).Scan(
		&order.ID,
		&order.UserID,
		&amount,
		&order.Description,
		&order.Status,
		&order.CreatedAt,
	)
	if err != nil {
		return models.Order{}, err
	}
	order.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return models.Order{}, err
	}
	return order, nil
}
