package entities

import "github.com/google/uuid"

// CheckoutRequest asks the payment gateway to charge a user for gems
type CheckoutRequest struct {
	UserID         uuid.UUID
	Gems           int64
	AmountCents    int64
	FiatCurrency   string
	IdempotencyKey string
}

// Checkout is the gateway side of a started recharge
type Checkout struct {
	Reference    string
	ClientSecret string
}

// PaymentEventKind is the outcome reported by a gateway webhook
type PaymentEventKind string

const (
	PaymentEventSucceeded PaymentEventKind = "succeeded"
	PaymentEventFailed    PaymentEventKind = "failed"
	PaymentEventIgnored   PaymentEventKind = "ignored"
)

// PaymentEvent is a verified gateway notification
type PaymentEvent struct {
	ID        string
	Kind      PaymentEventKind
	Reference string
}
