package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/internal/interfaces/http/response"
)

const (
	// PaymentSignatureHeader carries the gateway's webhook signature
	PaymentSignatureHeader = "Stripe-Signature"
	maxWebhookBodyBytes    = 64 << 10
)

type paymentEventService interface {
	HandlePaymentEvent(ctx context.Context, payload []byte, signature string) (*entities.PaymentEvent, error)
}

// WebhookHandler handles payment gateway webhooks
type WebhookHandler struct {
	recharge paymentEventService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(recharge paymentEventService) *WebhookHandler {
	return &WebhookHandler{recharge: recharge}
}

// HandlePaymentWebhook verifies and applies a gateway event
// POST /api/v1/webhooks/payments
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("Unreadable webhook body"))
		return
	}

	event, err := h.recharge.HandlePaymentEvent(c.Request.Context(), payload, c.GetHeader(PaymentSignatureHeader))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"received": true,
		"eventId":  event.ID,
	})
}
