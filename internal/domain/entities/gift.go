package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gift is a catalogue item that can be sent to another user
type Gift struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	PriceGems decimal.Decimal `json:"priceGems"`
	IsActive  bool            `json:"isActive"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// CreateGiftInput represents input for adding a gift to the catalogue
type CreateGiftInput struct {
	Name      string          `json:"name" binding:"required,min=1,max=100"`
	PriceGems decimal.Decimal `json:"priceGems"`
}

// SendGiftInput represents a gift sent to another user
type SendGiftInput struct {
	ReceiverID uuid.UUID `json:"receiverId" binding:"required"`
	GiftID     uuid.UUID `json:"giftId" binding:"required"`
	Quantity   int       `json:"quantity"`
}

// SendGiftResult holds both legs of a gift
type SendGiftResult struct {
	Gift     *Gift              `json:"gift"`
	Quantity int                `json:"quantity"`
	Debit    *WalletTransaction `json:"debit"`
	Credit   *WalletTransaction `json:"credit"`
}
