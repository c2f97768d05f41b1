package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/internal/domain/repositories"
	"spark.backend/pkg/utils"
)

// GiftUsecase handles the gift catalogue and gift sending
type GiftUsecase struct {
	ledger   *LedgerUsecase
	giftRepo repositories.GiftRepository
	vexShare decimal.Decimal
}

// NewGiftUsecase creates a new gift usecase. vexShare is the fraction of the gem cost paid to the receiver in vex.
func NewGiftUsecase(ledger *LedgerUsecase, giftRepo repositories.GiftRepository, vexShare decimal.Decimal) *GiftUsecase {
	return &GiftUsecase{
		ledger:   ledger,
		giftRepo: giftRepo,
		vexShare: vexShare,
	}
}

// ListGifts lists active gifts
func (u *GiftUsecase) ListGifts(ctx context.Context) ([]*entities.Gift, error) {
	gifts, err := u.giftRepo.ListActive(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return gifts, nil
}

// CreateGift adds a gift to the catalogue
func (u *GiftUsecase) CreateGift(ctx context.Context, input *entities.CreateGiftInput) (*entities.Gift, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	if !input.PriceGems.IsPositive() || !fitsAmountScale(input.PriceGems) {
		return nil, domainerrors.ErrInvalidAmount
	}

	gift := &entities.Gift{
		ID:        utils.GenerateUUIDv7(),
		Name:      name,
		PriceGems: input.PriceGems,
		IsActive:  true,
	}
	if err := u.giftRepo.Create(ctx, gift); err != nil {
		return nil, classify(err)
	}
	return gift, nil
}

// SendGift charges the sender price*quantity gems and pays the receiver floor(cost*share) vex atomically
func (u *GiftUsecase) SendGift(ctx context.Context, senderID, receiverID, giftID uuid.UUID, quantity int) (*entities.SendGiftResult, error) {
	if quantity < 1 || quantity > MaxGiftQuantity {
		return nil, domainerrors.ErrInvalidAmount
	}
	if senderID == receiverID {
		return nil, domainerrors.ErrSelfTransfer
	}

	gift, err := u.giftRepo.GetByID(ctx, giftID)
	if err != nil {
		return nil, classify(err)
	}
	if !gift.IsActive {
		return nil, domainerrors.ErrNotFound
	}

	cost := gift.PriceGems.Mul(decimal.NewFromInt(int64(quantity)))
	share := cost.Mul(u.vexShare).Floor()
	desc := null.StringFrom(fmt.Sprintf("gift:%s x%d", gift.Name, quantity))

	l := u.ledger
	start := time.Now()
	result := &entities.SendGiftResult{Gift: gift, Quantity: quantity}
	err = l.uow.Do(ctx, func(ctx context.Context) error {
		if err := l.ensureReceiver(ctx, receiverID); err != nil {
			return err
		}
		keys := []walletKey{{userID: senderID, currency: entities.CurrencyGem}}
		if share.IsPositive() {
			keys = append(keys, walletKey{userID: receiverID, currency: entities.CurrencyVex, create: true})
		}
		wallets, err := l.lockWallets(ctx, keys...)
		if err != nil {
			return err
		}
		result.Debit, err = l.post(ctx, posting{
			wallet:       wallets.get(senderID, entities.CurrencyGem),
			amount:       cost.Neg(),
			txType:       entities.TransactionTypeGift,
			counterparty: &receiverID,
			description:  desc,
		})
		if err != nil || !share.IsPositive() {
			return err
		}
		result.Credit, err = l.post(ctx, posting{
			wallet:       wallets.get(receiverID, entities.CurrencyVex),
			amount:       share,
			txType:       entities.TransactionTypeGift,
			counterparty: &senderID,
			description:  desc,
		})
		return err
	})
	err = l.finish(ctx, OpSendGift, start, err, []uuid.UUID{senderID, receiverID}, entities.CurrencyGem, cost)
	if err != nil {
		return nil, err
	}
	return result, nil
}
