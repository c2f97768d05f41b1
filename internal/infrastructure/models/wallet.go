package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Wallet struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_wallets_user_currency,priority:1"`
	Currency  string          `gorm:"type:varchar(8);not null;uniqueIndex:idx_wallets_user_currency,priority:2"`
	Balance   decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	Version   int64           `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WalletTransaction struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"`
	WalletID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	UserID             uuid.UUID       `gorm:"type:uuid;not null;index:idx_wallet_transactions_user_created,priority:1"`
	Currency           string          `gorm:"type:varchar(8);not null"`
	Type               string          `gorm:"type:varchar(16);not null"`
	Amount             decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	BalanceBefore      decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	BalanceAfter       decimal.Decimal `gorm:"type:numeric(20,4);not null;default:0"`
	Status             string          `gorm:"type:varchar(16);not null;index"`
	Reference          *string         `gorm:"type:varchar(255);uniqueIndex"`
	CounterpartyUserID *uuid.UUID      `gorm:"type:uuid"`
	Description        *string         `gorm:"type:text"`
	ConfirmedAt        *time.Time
	CreatedAt          time.Time `gorm:"index:idx_wallet_transactions_user_created,priority:2"`
	UpdatedAt          time.Time
}

func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
