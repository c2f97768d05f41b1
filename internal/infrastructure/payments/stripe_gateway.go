package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
	"github.com/stripe/stripe-go/v72/webhook"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
)

const (
	eventPaymentSucceeded = "payment_intent.succeeded"
	eventPaymentFailed    = "payment_intent.payment_failed"
	eventPaymentCanceled  = "payment_intent.canceled"
)

// StripeGateway creates PaymentIntents for gem purchases and verifies Stripe webhooks
type StripeGateway struct {
	webhookSecret string
	createIntent  func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// NewStripeGateway creates a gateway using its own API client instead of the global stripe.Key
func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeGateway{
		webhookSecret: webhookSecret,
		createIntent:  sc.PaymentIntents.New,
	}
}

// CreateCheckout creates a PaymentIntent; its id is the ledger reference
func (g *StripeGateway) CreateCheckout(ctx context.Context, req entities.CheckoutRequest) (*entities.Checkout, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.AmountCents),
		Currency:           stripe.String(req.FiatCurrency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Description:        stripe.String(fmt.Sprintf("%d gems", req.Gems)),
	}
	params.Context = ctx
	params.AddMetadata("user_id", req.UserID.String())
	params.AddMetadata("gems", strconv.FormatInt(req.Gems, 10))
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := g.createIntent(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrPaymentGateway, err)
	}
	return &entities.Checkout{
		Reference:    pi.ID,
		ClientSecret: pi.ClientSecret,
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and maps the event
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*entities.PaymentEvent, error) {
	if err := webhook.ValidatePayload(payload, signature, g.webhookSecret); err != nil {
		return nil, fmt.Errorf("%w: %v", domainerrors.ErrUnauthorized, err)
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("%w: malformed event", domainerrors.ErrInvalidInput)
	}

	out := &entities.PaymentEvent{ID: event.ID, Kind: entities.PaymentEventIgnored}
	switch event.Type {
	case eventPaymentSucceeded:
		out.Kind = entities.PaymentEventSucceeded
	case eventPaymentFailed, eventPaymentCanceled:
		out.Kind = entities.PaymentEventFailed
	default:
		return out, nil
	}

	if event.Data == nil {
		return nil, fmt.Errorf("%w: event has no data", domainerrors.ErrInvalidInput)
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil || pi.ID == "" {
		return nil, fmt.Errorf("%w: malformed payment intent", domainerrors.ErrInvalidInput)
	}
	out.Reference = pi.ID
	return out, nil
}
