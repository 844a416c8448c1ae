package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User maps to table `users`
type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	CreatedAt time.Time
}

// PlaceholderUser synthesizes a minimal user row for ids referenced by an
// order before any explicit registration happened.
func PlaceholderUser(id uuid.UUID, createdAt time.Time) User {
	return User{
		ID:        id,
		Name:      fmt.Sprintf("User %s", id),
		Email:     fmt.Sprintf("user%s@example.com", id),
		CreatedAt: createdAt,
	}
}
