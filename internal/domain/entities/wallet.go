package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency identifies one of the in-app currencies
type Currency string

const (
	// CurrencyGem is bought with real money and spent on gifts
	CurrencyGem Currency = "gem"
	// CurrencyVex is earned from received gifts and can be withdrawn or converted
	CurrencyVex Currency = "vex"
)

// SupportedCurrencies lists currencies in their canonical order
var SupportedCurrencies = []Currency{CurrencyGem, CurrencyVex}

// IsValid reports whether c is a supported currency
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyGem, CurrencyVex:
		return true
	}
	return false
}

// ParseCurrency normalizes s and reports whether it names a supported currency
func ParseCurrency(s string) (Currency, bool) {
	c := Currency(strings.ToLower(strings.TrimSpace(s)))
	return c, c.IsValid()
}

// Wallet holds one user's balance in one currency
type Wallet struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userId"`
	Currency  Currency        `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"-"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// WalletBalance is the client view of a balance
type WalletBalance struct {
	Currency Currency        `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

// BalancesFromWallets returns one entry per supported currency, zero for wallets that do not exist yet
func BalancesFromWallets(wallets []*Wallet) []WalletBalance {
	byCurrency := make(map[Currency]decimal.Decimal, len(wallets))
	for _, w := range wallets {
		byCurrency[w.Currency] = w.Balance
	}
	out := make([]WalletBalance, 0, len(SupportedCurrencies))
	for _, c := range SupportedCurrencies {
		out = append(out, WalletBalance{Currency: c, Balance: byCurrency[c]})
	}
	return out
}
