package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pigbank/orders/internal/views"
	"github.com/pigbank/orders/pkg"
	"github.com/pigbank/orders/pkg/database"
	"github.com/pigbank/orders/pkg/models"
	"github.com/pigbank/orders/pkg/repositories"
	"go.uber.org/zap"
)

// UserService handles the explicit registration flow; the order workflow
// provisions placeholder users on its own.
type UserService interface {
	RegisterUser(ctx context.Context, traceID string, req views.RegisterUserRequest) (*models.User, error)
}

type UserServiceImpl struct {
	logger *zap.Logger
	db     *database.DB
	users  repositories.UserRepository
}

func NewUserService(logger *zap.Logger, db *database.DB, users repositories.UserRepository) UserService {
	return &UserServiceImpl{logger: logger, db: db, users: users}
}

func (s *UserServiceImpl) RegisterUser(ctx context.Context, traceID string, req views.RegisterUserRequest) (*models.User, error) {
	user := models.User{
		ID:        uuid.New(),
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: time.Now().UTC(),
	}
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		_, err := s.users.Create(ctx, tx, user)
		return err
	})
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, s.logger, err)
	}
	s.logger.Info("user registered",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.UserId, user.ID.String()),
	)
	return &user, nil
}
