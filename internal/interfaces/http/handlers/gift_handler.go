package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/internal/interfaces/http/response"
)

type giftService interface {
	ListGifts(ctx context.Context) ([]*entities.Gift, error)
	CreateGift(ctx context.Context, input *entities.CreateGiftInput) (*entities.Gift, error)
	SendGift(ctx context.Context, senderID, receiverID, giftID uuid.UUID, quantity int) (*entities.SendGiftResult, error)
}

// GiftHandler handles the gift catalogue and gift sending
type GiftHandler struct {
	giftUsecase giftService
}

// NewGiftHandler creates a new gift handler
func NewGiftHandler(giftUsecase giftService) *GiftHandler {
	return &GiftHandler{giftUsecase: giftUsecase}
}

// ListGifts lists purchasable gifts
// GET /api/v1/gifts
func (h *GiftHandler) ListGifts(c *gin.Context) {
	gifts, err := h.giftUsecase.ListGifts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	if gifts == nil {
		gifts = []*entities.Gift{}
	}

	response.Success(c, http.StatusOK, gin.H{"items": gifts})
}

// SendGift sends a gift to another user
// POST /api/v1/gifts/send
func (h *GiftHandler) SendGift(c *gin.Context) {
	var input entities.SendGiftInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.giftUsecase.SendGift(c.Request.Context(), userID, input.ReceiverID, input.GiftID, input.Quantity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// CreateGift adds a gift to the catalogue
// POST /api/v1/admin/gifts
func (h *GiftHandler) CreateGift(c *gin.Context) {
	var input entities.CreateGiftInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	gift, err := h.giftUsecase.CreateGift(c.Request.Context(), &input)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gift)
}
