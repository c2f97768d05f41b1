package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
)

// TransactionType classifies a ledger row
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "deposit"
	TransactionTypeWithdraw TransactionType = "withdraw"
	TransactionTypeGift     TransactionType = "gift"
	TransactionTypeConvert  TransactionType = "convert"
	TransactionTypeTransfer TransactionType = "transfer"
)

// IsValid reports whether t is a known transaction type
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdraw, TransactionTypeGift,
		TransactionTypeConvert, TransactionTypeTransfer:
		return true
	}
	return false
}

// TransactionStatus is the lifecycle state of a ledger row
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// IsFinal reports whether the status can no longer change
func (s TransactionStatus) IsFinal() bool {
	return s == TransactionStatusSuccess || s == TransactionStatusFailed
}

// WalletTransaction is one append-only ledger row.
// Amount is signed: credits are positive and debits negative.
type WalletTransaction struct {
	ID                 uuid.UUID         `json:"id"`
	WalletID           uuid.UUID         `json:"walletId"`
	UserID             uuid.UUID         `json:"userId"`
	Currency           Currency          `json:"currency"`
	Type               TransactionType   `json:"type"`
	Amount             decimal.Decimal   `json:"amount"`
	BalanceBefore      decimal.Decimal   `json:"balanceBefore"`
	BalanceAfter       decimal.Decimal   `json:"balanceAfter"`
	Status             TransactionStatus `json:"status"`
	Reference          null.String       `json:"reference"`
	CounterpartyUserID *uuid.UUID        `json:"counterpartyUserId,omitempty"`
	Description        null.String       `json:"description"`
	ConfirmedAt        null.Time         `json:"confirmedAt"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// TransferResult holds both legs of a transfer
type TransferResult struct {
	Debit  *WalletTransaction `json:"debit"`
	Credit *WalletTransaction `json:"credit"`
}

// ConvertResult holds both legs of a conversion
type ConvertResult struct {
	Debit  *WalletTransaction `json:"debit"`
	Credit *WalletTransaction `json:"credit"`
	Rate   decimal.Decimal    `json:"rate"`
}

// TransferInput represents a user to user transfer request
type TransferInput struct {
	ReceiverID uuid.UUID       `json:"receiverId" binding:"required"`
	Currency   Currency        `json:"currency" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

// ConvertInput represents a conversion request at the configured rate
type ConvertInput struct {
	From   Currency        `json:"from" binding:"required"`
	To     Currency        `json:"to" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
}

// AdjustmentInput represents an admin credit or debit
type AdjustmentInput struct {
	UserID    uuid.UUID       `json:"userId" binding:"required"`
	Currency  Currency        `json:"currency" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Type      TransactionType `json:"type"`
	Reference string          `json:"reference"`
}

// RechargeInput represents a gem purchase request
type RechargeInput struct {
	Gems int64 `json:"gems" binding:"required,min=1"`
}

// RechargeCheckout is returned when a recharge is started
type RechargeCheckout struct {
	Transaction  *WalletTransaction `json:"transaction"`
	ClientSecret string             `json:"clientSecret"`
	AmountCents  int64              `json:"amountCents"`
	FiatCurrency string             `json:"fiatCurrency"`
}

// WithdrawalInput represents a vex withdrawal request
type WithdrawalInput struct {
	Amount decimal.Decimal `json:"amount"`
}

// TransactionFilter narrows admin transaction listings
type TransactionFilter struct {
	UserID   *uuid.UUID
	Currency Currency
	Type     TransactionType
	Status   TransactionStatus
}
