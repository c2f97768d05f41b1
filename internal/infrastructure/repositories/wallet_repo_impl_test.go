package repositories

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
)

func TestWalletRepository_EnsureExistsIsIdempotent(t *testing.T) {
	db := newMigratedDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	first, err := repo.EnsureExists(ctx, userID, entities.CurrencyGem)
	require.NoError(t, err)
	assert.True(t, first.Balance.IsZero())
	assert.Equal(t, int64(0), first.Version)

	second, err := repo.EnsureExists(ctx, userID, entities.CurrencyGem)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Table("wallets").Where("user_id = ?", userID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestWalletRepository_UpdateBalanceVersionGuard(t *testing.T) {
	db := newMigratedDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()
	userID := uuid.New()

	w, err := repo.EnsureExists(ctx, userID, entities.CurrencyVex)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateBalance(ctx, w.ID, decimal.RequireFromString("12.5"), w.Version))

	got, err := repo.GetByUserAndCurrency(ctx, userID, entities.CurrencyVex)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.5").Equal(got.Balance), got.Balance.String())
	assert.Equal(t, w.Version+1, got.Version)

	err = repo.UpdateBalance(ctx, w.ID, decimal.NewFromInt(99), w.Version)
	assert.ErrorIs(t, err, domainerrors.ErrConcurrentUpdate)

	got, err = repo.GetForUpdate(ctx, userID, entities.CurrencyVex)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.5").Equal(got.Balance))
}

func TestWalletRepository_ListAndDelete(t *testing.T) {
	db := newMigratedDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()
	userID, other := uuid.New(), uuid.New()

	_, err := repo.EnsureExists(ctx, userID, entities.CurrencyVex)
	require.NoError(t, err)
	_, err = repo.EnsureExists(ctx, userID, entities.CurrencyGem)
	require.NoError(t, err)
	_, err = repo.EnsureExists(ctx, other, entities.CurrencyGem)
	require.NoError(t, err)

	wallets, err := repo.ListByUserID(ctx, userID)
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, entities.CurrencyGem, wallets[0].Currency)
	assert.Equal(t, entities.CurrencyVex, wallets[1].Currency)

	deleted, err := repo.DeleteByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	wallets, err = repo.ListByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, wallets)

	_, err = repo.GetByUserAndCurrency(ctx, other, entities.CurrencyGem)
	assert.NoError(t, err)
}

func TestWalletRepository_NotFoundAndDBErrors(t *testing.T) {
	db := newMigratedDB(t)
	repo := NewWalletRepository(db)
	ctx := context.Background()

	_, err := repo.GetByUserAndCurrency(ctx, uuid.New(), entities.CurrencyGem)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)

	bare := NewWalletRepository(newTestDB(t))
	_, err = bare.GetForUpdate(ctx, uuid.New(), entities.CurrencyGem)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domainerrors.ErrNotFound)
	_, err = bare.EnsureExists(ctx, uuid.New(), entities.CurrencyGem)
	assert.Error(t, err)
	assert.Error(t, bare.UpdateBalance(ctx, uuid.New(), decimal.Zero, 0))
	_, err = bare.ListByUserID(ctx, uuid.New())
	assert.Error(t, err)
}
