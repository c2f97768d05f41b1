package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/internal/infrastructure/models"
)

// GiftRepository implements gift catalogue operations
type GiftRepository struct {
	db *gorm.DB
}

// NewGiftRepository creates a new gift repository
func NewGiftRepository(db *gorm.DB) *GiftRepository {
	return &GiftRepository{db: db}
}

// Create adds a gift to the catalogue
func (r *GiftRepository) Create(ctx context.Context, gift *entities.Gift) error {
	now := time.Now().UTC()
	gift.CreatedAt = now
	gift.UpdatedAt = now
	m := &models.Gift{
		ID:        gift.ID,
		Name:      gift.Name,
		PriceGems: gift.PriceGems,
		IsActive:  gift.IsActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := GetDB(ctx, r.db).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByID gets a gift
func (r *GiftRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Gift, error) {
	var m models.Gift
	if err := GetDB(ctx, r.db).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toGiftEntity(&m), nil
}

// ListActive lists purchasable gifts, cheapest first
func (r *GiftRepository) ListActive(ctx context.Context) ([]*entities.Gift, error) {
	var ms []models.Gift
	if err := GetDB(ctx, r.db).Where("is_active = ?", true).Order("price_gems ASC").Order("name ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	gifts := make([]*entities.Gift, 0, len(ms))
	for i := range ms {
		gifts = append(gifts, toGiftEntity(&ms[i]))
	}
	return gifts, nil
}

func toGiftEntity(m *models.Gift) *entities.Gift {
	return &entities.Gift{
		ID:        m.ID,
		Name:      m.Name,
		PriceGems: m.PriceGems,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
