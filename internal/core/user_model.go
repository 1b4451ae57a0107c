package core

import (
	"context"
	"time"
)

// User is a console operator.
type User struct {
	ID           int
	Username     string
	Email        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

// UserService provides user lookup and provisioning.
type UserService interface {
	// GetByUsername finds an active user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)

	// Create stores a new user with an already-hashed password.
	Create(ctx context.Context, username, email, passwordHash, role string) (*User, error)
}
