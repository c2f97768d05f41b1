package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/internal/infrastructure/models"
	"spark.backend/pkg/utils"
)

// WalletRepository implements wallet balance operations
type WalletRepository struct {
	db *gorm.DB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetByUserAndCurrency gets a wallet without locking it
func (r *WalletRepository) GetByUserAndCurrency(ctx context.Context, userID uuid.UUID, currency entities.Currency) (*entities.Wallet, error) {
	return r.get(GetDB(ctx, r.db), userID, currency)
}

// GetForUpdate gets a wallet with SELECT ... FOR UPDATE
func (r *WalletRepository) GetForUpdate(ctx context.Context, userID uuid.UUID, currency entities.Currency) (*entities.Wallet, error) {
	return r.get(GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), userID, currency)
}

func (r *WalletRepository) get(db *gorm.DB, userID uuid.UUID, currency entities.Currency) (*entities.Wallet, error) {
	var m models.Wallet
	if err := db.Where("user_id = ? AND currency = ?", userID, string(currency)).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// EnsureExists inserts a zero-balance wallet unless one exists, then returns it locked
func (r *WalletRepository) EnsureExists(ctx context.Context, userID uuid.UUID, currency entities.Currency) (*entities.Wallet, error) {
	now := time.Now().UTC()
	m := &models.Wallet{
		ID:        utils.GenerateUUIDv7(),
		UserID:    userID,
		Currency:  string(currency),
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := GetDB(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "currency"}},
			DoNothing: true,
		}).
		Create(m).Error
	if err != nil {
		return nil, err
	}
	return r.GetForUpdate(ctx, userID, currency)
}

// UpdateBalance writes a new balance guarded by the optimistic version
func (r *WalletRepository) UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal, expectedVersion int64) error {
	result := GetDB(ctx, r.db).Model(&models.Wallet{}).
		Where("id = ? AND version = ?", walletID, expectedVersion).
		Updates(map[string]interface{}{
			"balance":    balance,
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConcurrentUpdate
	}
	return nil
}

// ListByUserID lists a user's wallets ordered by currency
func (r *WalletRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.Wallet, error) {
	var ms []models.Wallet
	if err := GetDB(ctx, r.db).Where("user_id = ?", userID).Order("currency ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	wallets := make([]*entities.Wallet, 0, len(ms))
	for i := range ms {
		wallets = append(wallets, r.toEntity(&ms[i]))
	}
	return wallets, nil
}

// DeleteByUserID hard deletes all wallets of a user
func (r *WalletRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := GetDB(ctx, r.db).Where("user_id = ?", userID).Delete(&models.Wallet{})
	return result.RowsAffected, result.Error
}

func (r *WalletRepository) toEntity(m *models.Wallet) *entities.Wallet {
	return &entities.Wallet{
		ID:        m.ID,
		UserID:    m.UserID,
		Currency:  entities.Currency(m.Currency),
		Balance:   m.Balance,
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
