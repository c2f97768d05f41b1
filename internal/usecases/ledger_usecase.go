package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/internal/domain/repositories"
	"spark.backend/internal/infrastructure/metrics"
	"spark.backend/pkg/logger"
	"spark.backend/pkg/utils"
)

// BalanceCache caches the balances view of a user.
// Get reports the user's cache generation; Set must drop the write when an
// Invalidate happened after that generation was read.
type BalanceCache interface {
	Get(ctx context.Context, userID uuid.UUID) ([]entities.WalletBalance, int64, bool)
	Set(ctx context.Context, userID uuid.UUID, generation int64, balances []entities.WalletBalance)
	Invalidate(ctx context.Context, userIDs ...uuid.UUID)
}

type noopBalanceCache struct{}

func (noopBalanceCache) Get(context.Context, uuid.UUID) ([]entities.WalletBalance, int64, bool) {
	return nil, -1, false
}
func (noopBalanceCache) Set(context.Context, uuid.UUID, int64, []entities.WalletBalance) {}
func (noopBalanceCache) Invalidate(context.Context, ...uuid.UUID)                        {}

// ConversionRates holds the configured exchange rates between currencies
type ConversionRates struct {
	VexToGem decimal.Decimal
	GemToVex decimal.Decimal
}

// businessErrors pass through unchanged; anything else from storage becomes ErrStorageFailure
var businessErrors = []error{
	domainerrors.ErrInvalidAmount,
	domainerrors.ErrInsufficientBalance,
	domainerrors.ErrSelfTransfer,
	domainerrors.ErrReceiverNotFound,
	domainerrors.ErrUnsupportedCurrency,
	domainerrors.ErrUnsupportedConversion,
	domainerrors.ErrTransactionFinalized,
	domainerrors.ErrInvalidInput,
	domainerrors.ErrNotFound,
	domainerrors.ErrAlreadyExists,
	domainerrors.ErrPaymentGateway,
}

// LedgerUsecase owns every balance mutation. Each mutation runs in one unit of work:
// wallets are locked, balances written under a version guard and ledger rows appended atomically.
type LedgerUsecase struct {
	uow        repositories.UnitOfWork
	walletRepo repositories.WalletRepository
	txRepo     repositories.WalletTransactionRepository
	userRepo   repositories.UserRepository
	cache      BalanceCache
	metrics    metrics.Collector
	rates      ConversionRates
	now        func() time.Time
}

// NewLedgerUsecase creates a new ledger usecase
func NewLedgerUsecase(
	uow repositories.UnitOfWork,
	walletRepo repositories.WalletRepository,
	txRepo repositories.WalletTransactionRepository,
	userRepo repositories.UserRepository,
	cache BalanceCache,
	collector metrics.Collector,
	rates ConversionRates,
) *LedgerUsecase {
	if cache == nil {
		cache = noopBalanceCache{}
	}
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	return &LedgerUsecase{
		uow:        uow,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		userRepo:   userRepo,
		cache:      cache,
		metrics:    collector,
		rates:      rates,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Credit adds amount to the user's wallet, creating the wallet on first use
func (u *LedgerUsecase) Credit(ctx context.Context, userID uuid.UUID, currency entities.Currency, amount decimal.Decimal, txType entities.TransactionType, reference string) (*entities.WalletTransaction, error) {
	if err := validateAmount(amount, currency); err != nil {
		return nil, err
	}
	if !txType.IsValid() {
		return nil, domainerrors.ErrInvalidInput
	}

	start := time.Now()
	var row *entities.WalletTransaction
	err := u.uow.Do(ctx, func(ctx context.Context) error {
		wallets, err := u.lockWallets(ctx, walletKey{userID: userID, currency: currency, create: true})
		if err != nil {
			return err
		}
		row, err = u.post(ctx, posting{
			wallet:    wallets.get(userID, currency),
			amount:    amount,
			txType:    txType,
			reference: optionalString(reference),
		})
		return err
	})
	err = u.finish(ctx, OpCredit, start, err, []uuid.UUID{userID}, currency, amount)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Debit removes amount from the user's wallet. A missing wallet has balance zero.
func (u *LedgerUsecase) Debit(ctx context.Context, userID uuid.UUID, currency entities.Currency, amount decimal.Decimal, txType entities.TransactionType, reference string) (*entities.WalletTransaction, error) {
	if err := validateAmount(amount, currency); err != nil {
		return nil, err
	}
	if !txType.IsValid() {
		return nil, domainerrors.ErrInvalidInput
	}

	start := time.Now()
	var row *entities.WalletTransaction
	err := u.uow.Do(ctx, func(ctx context.Context) error {
		wallets, err := u.lockWallets(ctx, walletKey{userID: userID, currency: currency})
		if err != nil {
			return err
		}
		row, err = u.post(ctx, posting{
			wallet:    wallets.get(userID, currency),
			amount:    amount.Neg(),
			txType:    txType,
			reference: optionalString(reference),
		})
		return err
	})
	err = u.finish(ctx, OpDebit, start, err, []uuid.UUID{userID}, currency, amount)
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Transfer moves amount between two users in one unit of work
func (u *LedgerUsecase) Transfer(ctx context.Context, senderID, receiverID uuid.UUID, currency entities.Currency, amount decimal.Decimal) (*entities.TransferResult, error) {
	if err := validateAmount(amount, currency); err != nil {
		return nil, err
	}
	if senderID == receiverID {
		return nil, domainerrors.ErrSelfTransfer
	}

	start := time.Now()
	result := &entities.TransferResult{}
	err := u.uow.Do(ctx, func(ctx context.Context) error {
		if err := u.ensureReceiver(ctx, receiverID); err != nil {
			return err
		}
		wallets, err := u.lockWallets(ctx,
			walletKey{userID: senderID, currency: currency},
			walletKey{userID: receiverID, currency: currency, create: true},
		)
		if err != nil {
			return err
		}
		result.Debit, err = u.post(ctx, posting{
			wallet:       wallets.get(senderID, currency),
			amount:       amount.Neg(),
			txType:       entities.TransactionTypeTransfer,
			counterparty: &receiverID,
		})
		if err != nil {
			return err
		}
		result.Credit, err = u.post(ctx, posting{
			wallet:       wallets.get(receiverID, currency),
			amount:       amount,
			txType:       entities.TransactionTypeTransfer,
			counterparty: &senderID,
		})
		return err
	})
	err = u.finish(ctx, OpTransfer, start, err, []uuid.UUID{senderID, receiverID}, currency, amount)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Convert debits amount in from and credits floor(amount*rate) in to
func (u *LedgerUsecase) Convert(ctx context.Context, userID uuid.UUID, from, to entities.Currency, amount, rate decimal.Decimal) (*entities.ConvertResult, error) {
	if err := validateAmount(amount, from); err != nil {
		return nil, err
	}
	if !to.IsValid() {
		return nil, domainerrors.ErrUnsupportedCurrency
	}
	if from == to {
		return nil, domainerrors.ErrInvalidInput
	}
	if !rate.IsPositive() {
		return nil, domainerrors.ErrInvalidAmount
	}
	credit := amount.Mul(rate).Floor()
	if !credit.IsPositive() {
		return nil, domainerrors.ErrInvalidAmount
	}

	start := time.Now()
	result := &entities.ConvertResult{Rate: rate}
	err := u.uow.Do(ctx, func(ctx context.Context) error {
		wallets, err := u.lockWallets(ctx,
			walletKey{userID: userID, currency: from},
			walletKey{userID: userID, currency: to, create: true},
		)
		if err != nil {
			return err
		}
		desc := null.StringFrom(fmt.Sprintf("%s %s -> %s %s @ %s", amount, from, credit, to, rate))
		result.Debit, err = u.post(ctx, posting{
			wallet:      wallets.get(userID, from),
			amount:      amount.Neg(),
			txType:      entities.TransactionTypeConvert,
			description: desc,
		})
		if err != nil {
			return err
		}
		result.Credit, err = u.post(ctx, posting{
			wallet:      wallets.get(userID, to),
			amount:      credit,
			txType:      entities.TransactionTypeConvert,
			description: desc,
		})
		return err
	})
	err = u.finish(ctx, OpConvert, start, err, []uuid.UUID{userID}, from, amount)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConvertAtConfiguredRate converts using the configured rate for the pair
func (u *LedgerUsecase) ConvertAtConfiguredRate(ctx context.Context, userID uuid.UUID, from, to entities.Currency, amount decimal.Decimal) (*entities.ConvertResult, error) {
	if !from.IsValid() || !to.IsValid() {
		return nil, domainerrors.ErrUnsupportedCurrency
	}
	if from == to {
		return nil, domainerrors.ErrInvalidInput
	}
	rate, err := u.Rate(from, to)
	if err != nil {
		return nil, err
	}
	return u.Convert(ctx, userID, from, to, amount, rate)
}

// Rate returns the configured conversion rate for a currency pair
func (u *LedgerUsecase) Rate(from, to entities.Currency) (decimal.Decimal, error) {
	var rate decimal.Decimal
	switch {
	case from == entities.CurrencyVex && to == entities.CurrencyGem:
		rate = u.rates.VexToGem
	case from == entities.CurrencyGem && to == entities.CurrencyVex:
		rate = u.rates.GemToVex
	}
	if !rate.IsPositive() {
		return decimal.Zero, domainerrors.ErrUnsupportedConversion
	}
	return rate, nil
}

// GetHistory returns the user's ledger rows across all wallets, newest first
func (u *LedgerUsecase) GetHistory(ctx context.Context, userID uuid.UUID, pagination utils.PaginationParams) ([]*entities.WalletTransaction, utils.PaginationMeta, error) {
	pagination = pagination.Normalize()
	rows, total, err := u.txRepo.ListByUserID(ctx, userID, pagination)
	if err != nil {
		return nil, utils.PaginationMeta{}, classify(err)
	}
	return rows, utils.CalculateMeta(total, pagination.Page, pagination.Limit), nil
}

// ListTransactions lists ledger rows for administrators
func (u *LedgerUsecase) ListTransactions(ctx context.Context, filter entities.TransactionFilter, pagination utils.PaginationParams) ([]*entities.WalletTransaction, utils.PaginationMeta, error) {
	pagination = pagination.Normalize()
	rows, total, err := u.txRepo.List(ctx, filter, pagination)
	if err != nil {
		return nil, utils.PaginationMeta{}, classify(err)
	}
	return rows, utils.CalculateMeta(total, pagination.Page, pagination.Limit), nil
}

// GetBalances returns one balance per supported currency, served from cache when possible
func (u *LedgerUsecase) GetBalances(ctx context.Context, userID uuid.UUID) ([]entities.WalletBalance, error) {
	cached, generation, ok := u.cache.Get(ctx, userID)
	if ok {
		return cached, nil
	}
	wallets, err := u.walletRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	balances := entities.BalancesFromWallets(wallets)
	u.cache.Set(ctx, userID, generation, balances)
	return balances, nil
}

type walletKey struct {
	userID   uuid.UUID
	currency entities.Currency
	// create inserts the wallet when absent; otherwise a missing wallet reads as balance zero
	create bool
}

type walletRef struct {
	userID   uuid.UUID
	currency entities.Currency
}

type lockedWallets map[walletRef]*entities.Wallet

func (l lockedWallets) get(userID uuid.UUID, currency entities.Currency) *entities.Wallet {
	return l[walletRef{userID: userID, currency: currency}]
}

// lockWallets locks wallets in (user_id, currency) order so concurrent units never deadlock.
// Wallets that do not exist and are not created come back as unsaved zero wallets.
func (u *LedgerUsecase) lockWallets(ctx context.Context, keys ...walletKey) (lockedWallets, error) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i].userID.String(), keys[j].userID.String()
		if a != b {
			return a < b
		}
		return keys[i].currency < keys[j].currency
	})

	out := make(lockedWallets, len(keys))
	for _, k := range keys {
		var (
			w   *entities.Wallet
			err error
		)
		if k.create {
			w, err = u.walletRepo.EnsureExists(ctx, k.userID, k.currency)
		} else {
			w, err = u.walletRepo.GetForUpdate(ctx, k.userID, k.currency)
			if errors.Is(err, domainerrors.ErrNotFound) {
				w, err = &entities.Wallet{UserID: k.userID, Currency: k.currency, Balance: decimal.Zero}, nil
			}
		}
		if err != nil {
			return nil, err
		}
		out[walletRef{userID: k.userID, currency: k.currency}] = w
	}
	return out, nil
}

type posting struct {
	wallet       *entities.Wallet
	amount       decimal.Decimal
	txType       entities.TransactionType
	reference    null.String
	counterparty *uuid.UUID
	description  null.String
}

// post applies a signed amount to a locked wallet and appends the matching success row
func (u *LedgerUsecase) post(ctx context.Context, p posting) (*entities.WalletTransaction, error) {
	before, after, err := u.applyToWallet(ctx, p.wallet, p.amount)
	if err != nil {
		return nil, err
	}
	row := &entities.WalletTransaction{
		ID:                 utils.GenerateUUIDv7(),
		WalletID:           p.wallet.ID,
		UserID:             p.wallet.UserID,
		Currency:           p.wallet.Currency,
		Type:               p.txType,
		Amount:             p.amount,
		BalanceBefore:      before,
		BalanceAfter:       after,
		Status:             entities.TransactionStatusSuccess,
		Reference:          p.reference,
		CounterpartyUserID: p.counterparty,
		Description:        p.description,
		ConfirmedAt:        null.TimeFrom(u.now()),
	}
	if err := u.txRepo.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// applyToWallet writes balance+amount under the version guard. A result below zero is ErrInsufficientBalance.
func (u *LedgerUsecase) applyToWallet(ctx context.Context, w *entities.Wallet, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	before := w.Balance
	after := before.Add(amount)
	if after.IsNegative() {
		return before, before, domainerrors.ErrInsufficientBalance
	}
	if w.ID == uuid.Nil {
		// only debits reach an unsaved wallet and those fail above
		return before, before, domainerrors.ErrInsufficientBalance
	}
	if err := u.walletRepo.UpdateBalance(ctx, w.ID, after, w.Version); err != nil {
		return before, before, err
	}
	w.Balance = after
	w.Version++
	return before, after, nil
}

// ensureReceiver share-locks the receiver so a concurrent account deletion waits for the transfer
func (u *LedgerUsecase) ensureReceiver(ctx context.Context, receiverID uuid.UUID) error {
	if _, err := u.userRepo.GetByIDForShare(ctx, receiverID); err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return domainerrors.ErrReceiverNotFound
		}
		return err
	}
	return nil
}

// finish classifies the unit's error, records metrics, logs and invalidates cached balances
func (u *LedgerUsecase) finish(ctx context.Context, op string, start time.Time, err error, userIDs []uuid.UUID, currency entities.Currency, amount decimal.Decimal) error {
	u.metrics.RecordOperationDuration(op, time.Since(start))
	err = classify(err)
	fields := []zap.Field{
		zap.String("operation", op),
		zap.String("currency", string(currency)),
		zap.String("amount", amount.String()),
		zap.Stringer("user_id", userIDs[0]),
	}
	switch {
	case err == nil:
		u.metrics.RecordOperationResult(op, ResultSuccess)
		u.metrics.RecordVolume(op, string(currency), amount)
		u.cache.Invalidate(ctx, userIDs...)
		logger.Info(ctx, "Ledger operation succeeded", fields...)
	case errors.Is(err, domainerrors.ErrStorageFailure):
		u.metrics.RecordOperationResult(op, ResultStorageFailure)
		logger.Error(ctx, "Ledger operation failed", append(fields, zap.Error(err))...)
	default:
		u.metrics.RecordOperationResult(op, ResultRejected)
		logger.Warn(ctx, "Ledger operation rejected", append(fields, zap.Error(err))...)
	}
	return err
}

func validateAmount(amount decimal.Decimal, currency entities.Currency) error {
	if !amount.IsPositive() || !fitsAmountScale(amount) {
		return domainerrors.ErrInvalidAmount
	}
	if !currency.IsValid() {
		return domainerrors.ErrUnsupportedCurrency
	}
	return nil
}

// fitsAmountScale reports whether amount is representable in a NUMERIC(20,4) column without rounding
func fitsAmountScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(AmountScale))
}

func optionalString(s string) null.String {
	if s == "" {
		return null.String{}
	}
	return null.StringFrom(s)
}

// classify wraps infrastructure errors in ErrStorageFailure and keeps business errors intact
func classify(err error) error {
	if err == nil || errors.Is(err, domainerrors.ErrStorageFailure) {
		return err
	}
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", domainerrors.ErrStorageFailure, err)
}
