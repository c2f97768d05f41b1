package repositories

import (
	"context"

	"github.com/google/uuid"
	"spark.backend/internal/domain/entities"
)

// UserRepository defines user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	// GetByIDForShare reads a live user and holds a shared row lock until the unit ends
	GetByIDForShare(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role entities.UserRole) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}
