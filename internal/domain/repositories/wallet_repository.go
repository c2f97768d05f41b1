package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"spark.backend/internal/domain/entities"
)

// WalletRepository defines wallet balance operations
type WalletRepository interface {
	// GetByUserAndCurrency returns ErrNotFound when the wallet was never created
	GetByUserAndCurrency(ctx context.Context, userID uuid.UUID, currency entities.Currency) (*entities.Wallet, error)
	// GetForUpdate reads the wallet with a row lock; must run inside UnitOfWork.Do
	GetForUpdate(ctx context.Context, userID uuid.UUID, currency entities.Currency) (*entities.Wallet, error)
	// EnsureExists inserts a zero wallet if absent, then returns it locked
	EnsureExists(ctx context.Context, userID uuid.UUID, currency entities.Currency) (*entities.Wallet, error)
	// UpdateBalance writes the balance if the stored version still equals expectedVersion.
	// Returns ErrConcurrentUpdate otherwise.
	UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal, expectedVersion int64) error
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*entities.Wallet, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}
