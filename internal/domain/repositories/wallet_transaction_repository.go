package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"spark.backend/internal/domain/entities"
	"spark.backend/pkg/utils"
)

// WalletTransactionRepository defines ledger row operations
type WalletTransactionRepository interface {
	Create(ctx context.Context, tx *entities.WalletTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.WalletTransaction, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.WalletTransaction, error)
	GetByReferenceForUpdate(ctx context.Context, reference string) (*entities.WalletTransaction, error)
	// ListByUserID returns the user's rows newest first
	ListByUserID(ctx context.Context, userID uuid.UUID, pagination utils.PaginationParams) ([]*entities.WalletTransaction, int64, error)
	List(ctx context.Context, filter entities.TransactionFilter, pagination utils.PaginationParams) ([]*entities.WalletTransaction, int64, error)
	// Finalize moves a pending row to its final status with its balance snapshot.
	// Returns ErrTransactionFinalized when the row is no longer pending.
	Finalize(ctx context.Context, tx *entities.WalletTransaction) error
	GetExpiredPending(ctx context.Context, before time.Time, limit int) ([]*entities.WalletTransaction, error)
	FailPending(ctx context.Context, ids []uuid.UUID) (int64, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}
