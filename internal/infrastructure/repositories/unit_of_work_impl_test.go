package repositories

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"spark.backend/internal/domain/entities"
)

func TestUnitOfWork_DoCommitAndRollback(t *testing.T) {
	db := newMigratedDB(t)
	u := &UnitOfWorkImpl{db: db}
	repo := NewWalletRepository(db)
	userA, userB := uuid.New(), uuid.New()

	err := u.Do(context.Background(), func(ctx context.Context) error {
		require.True(t, InTransaction(ctx))
		_, err := repo.EnsureExists(ctx, userA, entities.CurrencyGem)
		return err
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Table("wallets").Count(&count).Error)
	require.Equal(t, int64(1), count)

	err = u.Do(context.Background(), func(ctx context.Context) error {
		if _, err := repo.EnsureExists(ctx, userB, entities.CurrencyGem); err != nil {
			return err
		}
		return errors.New("force rollback")
	})
	require.EqualError(t, err, "force rollback")

	require.NoError(t, db.Table("wallets").Count(&count).Error)
	require.Equal(t, int64(1), count, "second insert must be rolled back")
}

func TestUnitOfWork_NestedDoJoinsOuterTransaction(t *testing.T) {
	db := newMigratedDB(t)
	u := &UnitOfWorkImpl{db: db}
	repo := NewWalletRepository(db)

	err := u.Do(context.Background(), func(ctx context.Context) error {
		outer := GetDB(ctx, db)
		return u.Do(ctx, func(inner context.Context) error {
			require.Same(t, outer, GetDB(inner, db))
			_, err := repo.EnsureExists(inner, uuid.New(), entities.CurrencyVex)
			return err
		})
	})
	require.NoError(t, err)
}

func TestUnitOfWork_GetDB(t *testing.T) {
	db := newTestDB(t)
	u := &UnitOfWorkImpl{db: db}

	require.False(t, InTransaction(context.Background()))
	require.NotNil(t, u.GetDB(context.Background()))

	tx := db.Begin()
	txCtx := context.WithValue(context.Background(), txKey, tx)
	require.Same(t, tx, u.GetDB(txCtx))
	tx.Rollback()
}

func TestUnitOfWork_DoBeginFailure(t *testing.T) {
	db := newTestDB(t)
	u := NewUnitOfWork(db)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = u.Do(context.Background(), func(ctx context.Context) error {
		return nil
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to begin transaction")
}

func TestUnitOfWork_DoCommitFailure_WithHook(t *testing.T) {
	db := newMigratedDB(t)
	u := &UnitOfWorkImpl{db: db}

	origCommit := commitTx
	t.Cleanup(func() { commitTx = origCommit })
	commitTx = func(tx *gorm.DB) error {
		return errors.New("forced commit fail")
	}

	err := u.Do(context.Background(), func(ctx context.Context) error {
		_, err := NewWalletRepository(db).EnsureExists(ctx, uuid.New(), entities.CurrencyGem)
		return err
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to commit transaction")

	var count int64
	require.NoError(t, db.Table("wallets").Count(&count).Error)
	require.Zero(t, count)
}
