package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	domainrepos "spark.backend/internal/domain/repositories"
	"spark.backend/internal/infrastructure/models"
	"spark.backend/internal/infrastructure/repositories"
	"spark.backend/internal/usecases"
	"spark.backend/pkg/utils"
)

type ledgerFixture struct {
	db      *gorm.DB
	uow     domainrepos.UnitOfWork
	users   *repositories.UserRepository
	wallets *repositories.WalletRepository
	txs     *repositories.WalletTransactionRepository
	gifts   *repositories.GiftRepository
	cache   *recordingCache
	ledger  *usecases.LedgerUsecase
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	return openLedgerFixture(t, dsn, 1)
}

// newConcurrentLedgerFixture backs the ledger with a file database and a pool of conns connections.
// BEGIN IMMEDIATE takes the write lock before the unit reads, like the row locks on postgres,
// and busy_timeout queues the other units instead of failing them.
func newConcurrentLedgerFixture(t *testing.T, conns int) *ledgerFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?_busy_timeout=10000&_txlock=immediate", filepath.Join(t.TempDir(), "ledger.db"))
	f := openLedgerFixture(t, dsn, conns)
	sqlDB, err := f.db.DB()
	require.NoError(t, err)
	require.Equal(t, conns, sqlDB.Stats().MaxOpenConnections)
	return f
}

func openLedgerFixture(t *testing.T, dsn string, conns int) *ledgerFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))

	f := &ledgerFixture{
		db:      db,
		uow:     repositories.NewUnitOfWork(db),
		users:   repositories.NewUserRepository(db),
		wallets: repositories.NewWalletRepository(db),
		txs:     repositories.NewWalletTransactionRepository(db),
		gifts:   repositories.NewGiftRepository(db),
		cache:   newRecordingCache(),
	}
	f.ledger = f.newLedger(f.txs)
	return f
}

var testRates = usecases.ConversionRates{
	VexToGem: decimal.RequireFromString("0.1"),
	GemToVex: decimal.NewFromInt(10),
}

func (f *ledgerFixture) newLedger(txRepo domainrepos.WalletTransactionRepository) *usecases.LedgerUsecase {
	return usecases.NewLedgerUsecase(f.uow, f.wallets, txRepo, f.users, f.cache, nil, testRates)
}

func (f *ledgerFixture) newUser(t *testing.T, email string) uuid.UUID {
	t.Helper()
	u := &entities.User{
		ID:           utils.GenerateUUIDv7(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: "hash",
		Role:         entities.UserRoleUser,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func (f *ledgerFixture) balance(t *testing.T, userID uuid.UUID, currency entities.Currency) decimal.Decimal {
	t.Helper()
	w, err := f.wallets.GetByUserAndCurrency(context.Background(), userID, currency)
	if errors.Is(err, domainerrors.ErrNotFound) {
		return decimal.Zero
	}
	require.NoError(t, err)
	return w.Balance
}

func (f *ledgerFixture) rows(t *testing.T, filter entities.TransactionFilter) []*entities.WalletTransaction {
	t.Helper()
	rows, _, err := f.txs.List(context.Background(), filter, utils.PaginationParams{})
	require.NoError(t, err)
	return rows
}

func (f *ledgerFixture) userRows(t *testing.T, userID uuid.UUID) []*entities.WalletTransaction {
	t.Helper()
	return f.rows(t, entities.TransactionFilter{UserID: &userID})
}

// requireConsistent checks that the wallet balance equals the sum of its success rows
// and that every success row carries a coherent snapshot.
func (f *ledgerFixture) requireConsistent(t *testing.T, userID uuid.UUID, currency entities.Currency) {
	t.Helper()
	rows := f.rows(t, entities.TransactionFilter{
		UserID:   &userID,
		Currency: currency,
		Status:   entities.TransactionStatusSuccess,
	})
	sum := decimal.Zero
	for _, r := range rows {
		sum = sum.Add(r.Amount)
		require.True(t, r.BalanceBefore.Add(r.Amount).Equal(r.BalanceAfter),
			"row %s: %s + %s != %s", r.ID, r.BalanceBefore, r.Amount, r.BalanceAfter)
	}
	bal := f.balance(t, userID, currency)
	require.True(t, bal.Equal(sum), "balance %s != sum of success rows %s", bal, sum)
	require.False(t, bal.IsNegative())
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// recordingCache is an in-memory BalanceCache that records invalidations
type recordingCache struct {
	mu          sync.Mutex
	entries     map[uuid.UUID][]entities.WalletBalance
	generations map[uuid.UUID]int64
	invalidated []uuid.UUID
}

func newRecordingCache() *recordingCache {
	return &recordingCache{
		entries:     map[uuid.UUID][]entities.WalletBalance{},
		generations: map[uuid.UUID]int64{},
	}
}

func (c *recordingCache) Get(_ context.Context, userID uuid.UUID) ([]entities.WalletBalance, int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.entries[userID]
	return b, c.generations[userID], ok
}

func (c *recordingCache) Set(_ context.Context, userID uuid.UUID, generation int64, balances []entities.WalletBalance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[userID] != generation {
		return
	}
	c.entries[userID] = balances
}

func (c *recordingCache) Invalidate(_ context.Context, userIDs ...uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		delete(c.entries, id)
		c.generations[id]++
		c.invalidated = append(c.invalidated, id)
	}
}

func (c *recordingCache) invalidations() []uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uuid.UUID(nil), c.invalidated...)
}

// failingTxRepo fails Create once armed, after the wallet update already ran in the unit
type failingTxRepo struct {
	*repositories.WalletTransactionRepository
	err error
}

func (r *failingTxRepo) Create(ctx context.Context, tx *entities.WalletTransaction) error {
	if r.err != nil {
		return r.err
	}
	return r.WalletTransactionRepository.Create(ctx, tx)
}
