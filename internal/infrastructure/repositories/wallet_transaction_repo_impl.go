package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/internal/infrastructure/models"
	"spark.backend/pkg/utils"
)

// WalletTransactionRepository implements ledger row operations
type WalletTransactionRepository struct {
	db *gorm.DB
}

// NewWalletTransactionRepository creates a new wallet transaction repository
func NewWalletTransactionRepository(db *gorm.DB) *WalletTransactionRepository {
	return &WalletTransactionRepository{db: db}
}

// Create inserts a ledger row. ID and CreatedAt are filled when empty.
func (r *WalletTransactionRepository) Create(ctx context.Context, tx *entities.WalletTransaction) error {
	now := time.Now().UTC()
	if tx.ID == uuid.Nil {
		tx.ID = utils.GenerateUUIDv7()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now

	m := r.toModel(tx)
	if err := GetDB(ctx, r.db).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetByID gets a ledger row
func (r *WalletTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.WalletTransaction, error) {
	return r.first(GetDB(ctx, r.db).Where("id = ?", id))
}

// GetByIDForUpdate gets a ledger row with a row lock
func (r *WalletTransactionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.WalletTransaction, error) {
	return r.first(GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// GetByReferenceForUpdate gets a ledger row by its external reference with a row lock
func (r *WalletTransactionRepository) GetByReferenceForUpdate(ctx context.Context, reference string) (*entities.WalletTransaction, error) {
	return r.first(GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Where("reference = ?", reference))
}

func (r *WalletTransactionRepository) first(db *gorm.DB) (*entities.WalletTransaction, error) {
	var m models.WalletTransaction
	if err := db.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return r.toEntity(&m), nil
}

// ListByUserID lists a user's rows across all wallets, newest first
func (r *WalletTransactionRepository) ListByUserID(ctx context.Context, userID uuid.UUID, pagination utils.PaginationParams) ([]*entities.WalletTransaction, int64, error) {
	return r.List(ctx, entities.TransactionFilter{UserID: &userID}, pagination)
}

// List lists rows matching filter, newest first
func (r *WalletTransactionRepository) List(ctx context.Context, filter entities.TransactionFilter, pagination utils.PaginationParams) ([]*entities.WalletTransaction, int64, error) {
	query := GetDB(ctx, r.db).Model(&models.WalletTransaction{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Currency != "" {
		query = query.Where("currency = ?", string(filter.Currency))
	}
	if filter.Type != "" {
		query = query.Where("type = ?", string(filter.Type))
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("created_at DESC").Order("id DESC")
	if pagination.Limit > 0 {
		query = query.Limit(pagination.Limit).Offset(pagination.CalculateOffset())
	}

	var ms []models.WalletTransaction
	if err := query.Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	txs := make([]*entities.WalletTransaction, 0, len(ms))
	for i := range ms {
		txs = append(txs, r.toEntity(&ms[i]))
	}
	return txs, total, nil
}

// Finalize moves a pending row to its final status. Only the snapshot, description and confirmation time change.
func (r *WalletTransactionRepository) Finalize(ctx context.Context, tx *entities.WalletTransaction) error {
	now := time.Now().UTC()
	result := GetDB(ctx, r.db).Model(&models.WalletTransaction{}).
		Where("id = ? AND status = ?", tx.ID, string(entities.TransactionStatusPending)).
		Updates(map[string]interface{}{
			"status":         string(tx.Status),
			"balance_before": tx.BalanceBefore,
			"balance_after":  tx.BalanceAfter,
			"description":    tx.Description.Ptr(),
			"confirmed_at":   tx.ConfirmedAt.Ptr(),
			"updated_at":     now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrTransactionFinalized
	}
	tx.UpdatedAt = now
	return nil
}

// GetExpiredPending returns pending rows created before the cutoff, oldest first
func (r *WalletTransactionRepository) GetExpiredPending(ctx context.Context, before time.Time, limit int) ([]*entities.WalletTransaction, error) {
	var ms []models.WalletTransaction
	if err := GetDB(ctx, r.db).
		Where("status = ? AND created_at < ?", string(entities.TransactionStatusPending), before.UTC()).
		Order("created_at ASC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}

	txs := make([]*entities.WalletTransaction, 0, len(ms))
	for i := range ms {
		txs = append(txs, r.toEntity(&ms[i]))
	}
	return txs, nil
}

// FailPending marks the given rows failed if they are still pending
func (r *WalletTransactionRepository) FailPending(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	result := GetDB(ctx, r.db).Model(&models.WalletTransaction{}).
		Where("id IN ? AND status = ?", ids, string(entities.TransactionStatusPending)).
		Updates(map[string]interface{}{
			"status":       string(entities.TransactionStatusFailed),
			"confirmed_at": now,
			"updated_at":   now,
		})
	return result.RowsAffected, result.Error
}

// DeleteByUserID hard deletes all rows owned by a user
func (r *WalletTransactionRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := GetDB(ctx, r.db).Where("user_id = ?", userID).Delete(&models.WalletTransaction{})
	return result.RowsAffected, result.Error
}

func (r *WalletTransactionRepository) toModel(tx *entities.WalletTransaction) *models.WalletTransaction {
	return &models.WalletTransaction{
		ID:                 tx.ID,
		WalletID:           tx.WalletID,
		UserID:             tx.UserID,
		Currency:           string(tx.Currency),
		Type:               string(tx.Type),
		Amount:             tx.Amount,
		BalanceBefore:      tx.BalanceBefore,
		BalanceAfter:       tx.BalanceAfter,
		Status:             string(tx.Status),
		Reference:          tx.Reference.Ptr(),
		CounterpartyUserID: tx.CounterpartyUserID,
		Description:        tx.Description.Ptr(),
		ConfirmedAt:        tx.ConfirmedAt.Ptr(),
		CreatedAt:          tx.CreatedAt,
		UpdatedAt:          tx.UpdatedAt,
	}
}

func (r *WalletTransactionRepository) toEntity(m *models.WalletTransaction) *entities.WalletTransaction {
	return &entities.WalletTransaction{
		ID:                 m.ID,
		WalletID:           m.WalletID,
		UserID:             m.UserID,
		Currency:           entities.Currency(m.Currency),
		Type:               entities.TransactionType(m.Type),
		Amount:             m.Amount,
		BalanceBefore:      m.BalanceBefore,
		BalanceAfter:       m.BalanceAfter,
		Status:             entities.TransactionStatus(m.Status),
		Reference:          null.StringFromPtr(m.Reference),
		CounterpartyUserID: m.CounterpartyUserID,
		Description:        null.StringFromPtr(m.Description),
		ConfirmedAt:        null.TimeFromPtr(m.ConfirmedAt),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}
