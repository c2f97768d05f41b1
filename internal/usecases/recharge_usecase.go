package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/pkg/logger"
	"spark.backend/pkg/utils"
)

// PaymentGateway charges users for gem recharges and reports outcomes through webhooks
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, req entities.CheckoutRequest) (*entities.Checkout, error)
	ParseWebhook(payload []byte, signature string) (*entities.PaymentEvent, error)
}

// RechargeSettings prices gem recharges
type RechargeSettings struct {
	UnitPriceCents  int64
	FiatCurrency    string
	MaxGemsPerOrder int64
}

// RechargeUsecase runs the gem recharge flow: a pending deposit row is confirmed by the payment gateway
type RechargeUsecase struct {
	ledger   *LedgerUsecase
	gateway  PaymentGateway
	settings RechargeSettings
}

// NewRechargeUsecase creates a new recharge usecase
func NewRechargeUsecase(ledger *LedgerUsecase, gateway PaymentGateway, settings RechargeSettings) *RechargeUsecase {
	return &RechargeUsecase{
		ledger:   ledger,
		gateway:  gateway,
		settings: settings,
	}
}

// StartRecharge opens a gateway checkout and records a pending deposit. The balance is untouched.
func (u *RechargeUsecase) StartRecharge(ctx context.Context, userID uuid.UUID, gems int64, idempotencyKey string) (*entities.RechargeCheckout, error) {
	if gems < 1 || (u.settings.MaxGemsPerOrder > 0 && gems > u.settings.MaxGemsPerOrder) {
		return nil, domainerrors.ErrInvalidAmount
	}
	amountCents := gems * u.settings.UnitPriceCents
	if amountCents < 1 {
		return nil, domainerrors.ErrInvalidAmount
	}

	start := time.Now()
	checkout, err := u.gateway.CreateCheckout(ctx, entities.CheckoutRequest{
		UserID:         userID,
		Gems:           gems,
		AmountCents:    amountCents,
		FiatCurrency:   u.settings.FiatCurrency,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		if !errors.Is(err, domainerrors.ErrPaymentGateway) {
			err = fmt.Errorf("%w: %w", domainerrors.ErrPaymentGateway, err)
		}
		return nil, u.ledger.finish(ctx, OpStartRecharge, start, err, []uuid.UUID{userID}, entities.CurrencyGem, decimal.NewFromInt(gems))
	}

	l := u.ledger
	var row *entities.WalletTransaction
	err = l.uow.Do(ctx, func(ctx context.Context) error {
		w, err := l.walletRepo.EnsureExists(ctx, userID, entities.CurrencyGem)
		if err != nil {
			return err
		}
		row = &entities.WalletTransaction{
			ID:          utils.GenerateUUIDv7(),
			WalletID:    w.ID,
			UserID:      userID,
			Currency:    entities.CurrencyGem,
			Type:        entities.TransactionTypeDeposit,
			Amount:      decimal.NewFromInt(gems),
			Status:      entities.TransactionStatusPending,
			Reference:   null.StringFrom(checkout.Reference),
			Description: null.StringFrom(fmt.Sprintf("recharge %d gems", gems)),
		}
		return l.txRepo.Create(ctx, row)
	})
	// pending rows do not move balances, so nothing is invalidated here
	err = classify(err)
	l.metrics.RecordOperationDuration(OpStartRecharge, time.Since(start))
	if err != nil {
		l.metrics.RecordOperationResult(OpStartRecharge, ResultStorageFailure)
		logger.Error(ctx, "Failed to record pending recharge",
			zap.Stringer("user_id", userID),
			zap.String("reference", checkout.Reference),
			zap.Error(err),
		)
		return nil, err
	}
	l.metrics.RecordOperationResult(OpStartRecharge, ResultSuccess)
	logger.Info(ctx, "Recharge started",
		zap.Stringer("user_id", userID),
		zap.Int64("gems", gems),
		zap.String("reference", checkout.Reference),
	)

	return &entities.RechargeCheckout{
		Transaction:  row,
		ClientSecret: checkout.ClientSecret,
		AmountCents:  amountCents,
		FiatCurrency: u.settings.FiatCurrency,
	}, nil
}

// ConfirmRecharge finalizes the pending deposit identified by the gateway reference.
// On success the gem wallet is credited; otherwise the row is marked failed.
func (u *RechargeUsecase) ConfirmRecharge(ctx context.Context, reference string, succeeded bool) (*entities.WalletTransaction, error) {
	if reference == "" {
		return nil, domainerrors.ErrInvalidInput
	}

	l := u.ledger
	start := time.Now()
	var row *entities.WalletTransaction
	err := l.uow.Do(ctx, func(ctx context.Context) error {
		var err error
		row, err = l.txRepo.GetByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		if row.Type != entities.TransactionTypeDeposit {
			return domainerrors.ErrInvalidInput
		}
		if row.Status.IsFinal() {
			return domainerrors.ErrTransactionFinalized
		}
		_, err = l.settle(ctx, row, succeeded)
		return err
	})
	var (
		userIDs = []uuid.UUID{uuid.Nil}
		amount  decimal.Decimal
	)
	if row != nil {
		userIDs[0] = row.UserID
		amount = row.Amount
	}
	if err = l.finish(ctx, OpConfirmRecharge, start, err, userIDs, entities.CurrencyGem, amount); err != nil {
		return nil, err
	}
	return row, nil
}

// HandlePaymentEvent verifies a gateway webhook and applies it. Replayed events are accepted silently.
func (u *RechargeUsecase) HandlePaymentEvent(ctx context.Context, payload []byte, signature string) (*entities.PaymentEvent, error) {
	event, err := u.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return nil, err
	}
	if event.Kind == entities.PaymentEventIgnored {
		logger.Debug(ctx, "Ignoring payment event", zap.String("event_id", event.ID))
		return event, nil
	}

	_, err = u.ConfirmRecharge(ctx, event.Reference, event.Kind == entities.PaymentEventSucceeded)
	switch {
	case err == nil:
		return event, nil
	case errors.Is(err, domainerrors.ErrTransactionFinalized):
		logger.Warn(ctx, "Payment event for finalized recharge",
			zap.String("event_id", event.ID),
			zap.String("reference", event.Reference),
			zap.String("kind", string(event.Kind)),
		)
		return event, nil
	case errors.Is(err, domainerrors.ErrNotFound):
		// intents created outside this service
		logger.Warn(ctx, "Payment event for unknown recharge",
			zap.String("event_id", event.ID),
			zap.String("reference", event.Reference),
		)
		return event, nil
	default:
		return nil, err
	}
}

// settle finalizes a locked pending row. Credits apply immediately; a debit the wallet cannot cover
// marks the row failed and reports shortfall=true without an error so the unit still commits.
func (l *LedgerUsecase) settle(ctx context.Context, row *entities.WalletTransaction, succeeded bool) (shortfall bool, err error) {
	row.ConfirmedAt = null.TimeFrom(l.now())
	if !succeeded {
		row.Status = entities.TransactionStatusFailed
		return false, l.txRepo.Finalize(ctx, row)
	}

	key := walletKey{userID: row.UserID, currency: row.Currency, create: row.Amount.IsPositive()}
	wallets, err := l.lockWallets(ctx, key)
	if err != nil {
		return false, err
	}
	before, after, err := l.applyToWallet(ctx, wallets.get(row.UserID, row.Currency), row.Amount)
	if errors.Is(err, domainerrors.ErrInsufficientBalance) {
		row.Status = entities.TransactionStatusFailed
		return true, l.txRepo.Finalize(ctx, row)
	}
	if err != nil {
		return false, err
	}
	row.Status = entities.TransactionStatusSuccess
	row.BalanceBefore = before
	row.BalanceAfter = after
	return false, l.txRepo.Finalize(ctx, row)
}
