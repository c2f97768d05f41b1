package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/pkg/utils"
)

// WithdrawalUsecase runs vex withdrawals: users request, administrators approve or reject
type WithdrawalUsecase struct {
	ledger        *LedgerUsecase
	minWithdrawal decimal.Decimal
}

// NewWithdrawalUsecase creates a new withdrawal usecase
func NewWithdrawalUsecase(ledger *LedgerUsecase, minWithdrawal decimal.Decimal) *WithdrawalUsecase {
	return &WithdrawalUsecase{ledger: ledger, minWithdrawal: minWithdrawal}
}

// RequestWithdrawal records a pending vex withdrawal. The balance check is advisory; the debit happens on approval.
func (u *WithdrawalUsecase) RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*entities.WalletTransaction, error) {
	if err := validateAmount(amount, entities.CurrencyVex); err != nil {
		return nil, err
	}
	if amount.LessThan(u.minWithdrawal) {
		return nil, domainerrors.ErrInvalidAmount
	}

	l := u.ledger
	start := time.Now()
	var row *entities.WalletTransaction
	err := l.uow.Do(ctx, func(ctx context.Context) error {
		wallets, err := l.lockWallets(ctx, walletKey{userID: userID, currency: entities.CurrencyVex})
		if err != nil {
			return err
		}
		w := wallets.get(userID, entities.CurrencyVex)
		if w.ID == uuid.Nil || w.Balance.LessThan(amount) {
			return domainerrors.ErrInsufficientBalance
		}
		row = &entities.WalletTransaction{
			ID:       utils.GenerateUUIDv7(),
			WalletID: w.ID,
			UserID:   userID,
			Currency: entities.CurrencyVex,
			Type:     entities.TransactionTypeWithdraw,
			Amount:   amount.Neg(),
			Status:   entities.TransactionStatusPending,
		}
		return l.txRepo.Create(ctx, row)
	})
	if err = l.finish(ctx, OpRequestWithdrawal, start, err, []uuid.UUID{userID}, entities.CurrencyVex, amount); err != nil {
		return nil, err
	}
	return row, nil
}

// ConfirmWithdrawal approves or rejects a pending withdrawal. An approval the wallet can no longer cover
// is committed as failed and ErrInsufficientBalance is returned alongside the row.
func (u *WithdrawalUsecase) ConfirmWithdrawal(ctx context.Context, transactionID uuid.UUID, approve bool, note string) (*entities.WalletTransaction, error) {
	l := u.ledger
	start := time.Now()
	var (
		row       *entities.WalletTransaction
		shortfall bool
	)
	err := l.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		row, err = l.txRepo.GetByIDForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if row.Type != entities.TransactionTypeWithdraw {
			return domainerrors.ErrInvalidInput
		}
		if row.Status.IsFinal() {
			return domainerrors.ErrTransactionFinalized
		}
		if note != "" {
			row.Description = null.StringFrom(note)
		}
		shortfall, err = l.settle(ctx, row, approve)
		return err
	})
	var (
		userIDs = []uuid.UUID{uuid.Nil}
		amount  decimal.Decimal
	)
	if row != nil {
		userIDs[0] = row.UserID
		amount = row.Amount.Abs()
	}
	if err == nil && shortfall {
		err = domainerrors.ErrInsufficientBalance
	}
	if err = l.finish(ctx, OpConfirmWithdrawal, start, err, userIDs, entities.CurrencyVex, amount); err != nil {
		if shortfall {
			return row, err
		}
		return nil, err
	}
	return row, nil
}
