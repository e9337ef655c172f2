package repository

import (
	"context"

	"github.com/fastygo/taskmanager/domain"
)

// UserRepository is the credential store.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create inserts a new user; a duplicate email yields domain.ErrIdentityTaken.
	Create(ctx context.Context, user *domain.User) error
}
