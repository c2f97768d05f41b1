package repositories

import (
	"context"

	"github.com/google/uuid"
	"spark.backend/internal/domain/entities"
)

// GiftRepository defines gift catalogue operations
type GiftRepository interface {
	Create(ctx context.Context, gift *entities.Gift) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Gift, error)
	ListActive(ctx context.Context) ([]*entities.Gift, error)
}
