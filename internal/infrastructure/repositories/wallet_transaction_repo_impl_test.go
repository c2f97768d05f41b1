package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/pkg/utils"
)

func newLedgerRow(userID, walletID uuid.UUID, amount int64, status entities.TransactionStatus) *entities.WalletTransaction {
	return &entities.WalletTransaction{
		WalletID: walletID,
		UserID:   userID,
		Currency: entities.CurrencyGem,
		Type:     entities.TransactionTypeDeposit,
		Amount:   decimal.NewFromInt(amount),
		Status:   status,
	}
}

func TestWalletTransactionRepository_CreateAndGet(t *testing.T) {
	db := newMigratedDB(t)
	repo := NewWalletTransactionRepository(db)
	ctx := context.Background()
	userID, walletID, peer := uuid.New(), uuid.New(), uuid.New()

	row := newLedgerRow(userID, walletID, 50, entities.TransactionStatusSuccess)
	row.BalanceAfter = decimal.NewFromInt(50)
	row.Reference = null.StringFrom("ref-1")
	row.Description = null.StringFrom("welcome bonus")
	row.CounterpartyUserID = &peer
	require.NoError(t, repo.Create(ctx, row))
	assert.NotEqual(t, uuid.Nil, row.ID)
	assert.False(t, row.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, row.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(got.Amount))
	assert.Equal(t, "ref-1", got.Reference.String)
	assert.Equal(t, "welcome bonus", got.Description.String)
	require.NotNil(t, got.CounterpartyUserID)
	assert.Equal(t, peer, *got.CounterpartyUserID)
	assert.False(t, got.ConfirmedAt.Valid)

	byRef, err := repo.GetByReferenceForUpdate(ctx, "ref-1")
	require.NoError(t, err)
	assert.Equal(t, row.ID, byRef.ID)

	_, err = repo.GetByReferenceForUpdate(ctx, "missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	dup := newLedgerRow(userID, walletID, 1, entities.TransactionStatusPending)
	dup.Reference = null.StringFrom("ref-1")
	assert.ErrorIs(t, repo.Create(ctx, dup), domainerrors.ErrAlreadyExists)

	// rows without a reference never collide
	require.NoError(t, repo.Create(ctx, newLedgerRow(userID, walletID, 1, entities.TransactionStatusSuccess)))
	require.NoError(t, repo.Create(ctx, newLedgerRow(userID, walletID, 1, entities.TransactionStatusSuccess)))
}

func TestWalletTransactionRepository_ListNewestFirstWithPagination(t *testing.T) {
	db := newMigratedDB(t)
	repo := NewWalletTransactionRepository(db)
	ctx := context.Background()
	userID, walletID := uuid.New(), uuid.New()

	base := time.Now().UTC().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 25; i++ {
		row := newLedgerRow(userID, walletID, int64(i+1), entities.TransactionStatusSuccess)
		row.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, row))
		ids = append(ids, row.ID)
	}
	require.NoError(t, repo.Create(ctx, newLedgerRow(uuid.New(), uuid.New(), 1, entities.TransactionStatusSuccess)))

	page, total, err := repo.ListByUserID(ctx, userID, utils.PaginationParams{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	require.Len(t, page, 10)
	for i, row := range page {
		assert.Equal(t, ids[14-i], row.ID)
	}

	all, _, err := repo.ListByUserID(ctx, userID, utils.PaginationParams{})
	require.NoError(t, err)
	assert.Len(t, all, 25)
}

func TestWalletTransactionRepository_ListFilter(t *testing.T) {
	db := newMigratedDB(t)
	repo := NewWalletTransactionRepository(db)
	ctx := context.Background()
	userID, walletID := uuid.New(), uuid.New()

	require.NoError(t, repo.Create(ctx, newLedgerRow(userID, walletID, 1, entities.TransactionStatusSuccess)))
	pending := newLedgerRow(userID, walletID, 2, entities.TransactionStatusPending)
	pending.Type = entities.TransactionTypeWithdraw
	pending.Currency = entities.CurrencyVex
	require.NoError(t, repo.Create(ctx, pending))

	rows, total, err := repo.List(ctx, entities.TransactionFilter{Status: entities.TransactionStatusPending}, utils.PaginationParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, pending.ID, rows[0].ID)

	rows, _, err = repo.List(ctx, entities.TransactionFilter{
		UserID: &userID, Currency: entities.CurrencyVex, Type: entities.TransactionTypeWithdraw,
	}, utils.PaginationParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestWalletTransactionRepository_FinalizeOnlyOnce(t *testing.T) {
	db := newMigratedDB(t)
	repo := NewWalletTransactionRepository(db)
	ctx := context.Background()

	row := newLedgerRow(uuid.New(), uuid.New(), 30, entities.TransactionStatusPending)
	require.NoError(t, repo.Create(ctx, row))

	locked, err := repo.GetByIDForUpdate(ctx, row.ID)
	require.NoError(t, err)
	locked.Status = entities.TransactionStatusSuccess
	locked.BalanceBefore = decimal.NewFromInt(10)
	locked.BalanceAfter = decimal.NewFromInt(40)
	locked.ConfirmedAt = null.TimeFrom(time.Now().UTC())
	require.NoError(t, repo.Finalize(ctx, locked))

	got, err := repo.GetByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusSuccess, got.Status)
	assert.True(t, decimal.NewFromInt(40).Equal(got.BalanceAfter))
	assert.True(t, got.ConfirmedAt.Valid)

	locked.Status = entities.TransactionStatusFailed
	assert.ErrorIs(t, repo.Finalize(ctx, locked), domainerrors.ErrTransactionFinalized)
}

func TestWalletTransactionRepository_ExpiredPending(t *testing.T) {
	db := newMigratedDB(t)
	repo := NewWalletTransactionRepository(db)
	ctx := context.Background()
	userID, walletID := uuid.New(), uuid.New()

	old := newLedgerRow(userID, walletID, 5, entities.TransactionStatusPending)
	old.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, repo.Create(ctx, old))

	oldDone := newLedgerRow(userID, walletID, 5, entities.TransactionStatusSuccess)
	oldDone.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, repo.Create(ctx, oldDone))

	fresh := newLedgerRow(userID, walletID, 5, entities.TransactionStatusPending)
	require.NoError(t, repo.Create(ctx, fresh))

	expired, err := repo.GetExpiredPending(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, old.ID, expired[0].ID)

	n, err := repo.FailPending(ctx, []uuid.UUID{old.ID, oldDone.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusFailed, got.Status)

	got, err = repo.GetByID(ctx, oldDone.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusSuccess, got.Status)

	n, err = repo.FailPending(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWalletTransactionRepository_DeleteByUserID(t *testing.T) {
	db := newMigratedDB(t)
	repo := NewWalletTransactionRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, repo.Create(ctx, newLedgerRow(userID, uuid.New(), 1, entities.TransactionStatusSuccess)))
	require.NoError(t, repo.Create(ctx, newLedgerRow(userID, uuid.New(), 1, entities.TransactionStatusSuccess)))

	n, err := repo.DeleteByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestWalletTransactionRepository_DBErrors(t *testing.T) {
	repo := NewWalletTransactionRepository(newTestDB(t))
	ctx := context.Background()

	assert.Error(t, repo.Create(ctx, newLedgerRow(uuid.New(), uuid.New(), 1, entities.TransactionStatusSuccess)))
	_, _, err := repo.ListByUserID(ctx, uuid.New(), utils.PaginationParams{Page: 1, Limit: 10})
	assert.Error(t, err)
	_, err = repo.GetExpiredPending(ctx, time.Now(), 10)
	assert.Error(t, err)
	assert.Error(t, repo.Finalize(ctx, &entities.WalletTransaction{ID: uuid.New()}))
}
