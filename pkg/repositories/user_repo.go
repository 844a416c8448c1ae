package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pigbank/orders/pkg/models"
)

// UserRepository defines the interface for user repository.
type UserRepository interface {
	// Create creates a new user. Fails on duplicate id or email.
	Create(ctx context.Context, tx pgx.Tx, user models.User) (pgconn.CommandTag, error)
	// CreateIfMissing provisions a user row for an unrecognized id; a no-op
	// when the id already exists.
	CreateIfMissing(ctx context.Context, tx pgx.Tx, user models.User) error
	// Exists reports whether a user with the given id exists.
	Exists(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error)
}

type UserRepositoryImpl struct {
}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func (u UserRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, user models.User) (pgconn.CommandTag, error) {
	return tx.Exec(ctx, `INSERT INTO users (id, name, email, created_at)
				VALUES ($1, $2, $3, $4)`,
		user.ID,
		user.Name,
		user.Email,
		user.CreatedAt,
	)
}

func (u UserRepositoryImpl) CreateIfMissing(ctx context.Context, tx pgx.Tx, user models.User) error {
	_, err := tx.Exec(ctx, `INSERT INTO users (id, name, email, created_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO NOTHING`,
		user.ID,
		user.Name,
		user.Email,
		user.CreatedAt,
	)
	return err
}

func (u UserRepositoryImpl) Exists(ctx context.Context, tx pgx.Tx, id uuid.UUID) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}
