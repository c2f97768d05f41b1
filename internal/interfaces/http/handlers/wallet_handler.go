package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/internal/interfaces/http/middleware"
	"spark.backend/internal/interfaces/http/response"
	"spark.backend/pkg/utils"
)

type ledgerService interface {
	GetBalances(ctx context.Context, userID uuid.UUID) ([]entities.WalletBalance, error)
	GetHistory(ctx context.Context, userID uuid.UUID, pagination utils.PaginationParams) ([]*entities.WalletTransaction, utils.PaginationMeta, error)
	Transfer(ctx context.Context, senderID, receiverID uuid.UUID, currency entities.Currency, amount decimal.Decimal) (*entities.TransferResult, error)
	ConvertAtConfiguredRate(ctx context.Context, userID uuid.UUID, from, to entities.Currency, amount decimal.Decimal) (*entities.ConvertResult, error)
}

type rechargeService interface {
	StartRecharge(ctx context.Context, userID uuid.UUID, gems int64, idempotencyKey string) (*entities.RechargeCheckout, error)
}

type withdrawalRequester interface {
	RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (*entities.WalletTransaction, error)
}

// WalletHandler handles wallet endpoints
type WalletHandler struct {
	ledger      ledgerService
	recharge    rechargeService
	withdrawals withdrawalRequester
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(ledger ledgerService, recharge rechargeService, withdrawals withdrawalRequester) *WalletHandler {
	return &WalletHandler{
		ledger:      ledger,
		recharge:    recharge,
		withdrawals: withdrawals,
	}
}

// GetBalances returns the caller's balance in every currency
// GET /api/v1/wallet/balances
func (h *WalletHandler) GetBalances(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	balances, err := h.ledger.GetBalances(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"balances": balances})
}

// ListTransactions returns the caller's history, newest first
// GET /api/v1/wallet/transactions?page=1&limit=20
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	items, meta, err := h.ledger.GetHistory(c.Request.Context(), userID, parsePagination(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	if items == nil {
		items = []*entities.WalletTransaction{}
	}

	response.Success(c, http.StatusOK, gin.H{
		"items": items,
		"meta":  meta,
	})
}

// Transfer sends funds to another user
// POST /api/v1/wallet/transfer
func (h *WalletHandler) Transfer(c *gin.Context) {
	var input entities.TransferInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.ledger.Transfer(c.Request.Context(), userID, input.ReceiverID, input.Currency, input.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// Convert exchanges one currency for another at the configured rate
// POST /api/v1/wallet/convert
func (h *WalletHandler) Convert(c *gin.Context) {
	var input entities.ConvertInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.ledger.ConvertAtConfiguredRate(c.Request.Context(), userID, input.From, input.To, input.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// Recharge starts a gem purchase through the payment gateway
// POST /api/v1/wallet/recharge
func (h *WalletHandler) Recharge(c *gin.Context) {
	var input entities.RechargeInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	checkout, err := h.recharge.StartRecharge(c.Request.Context(), userID, input.Gems, c.GetHeader(middleware.IdempotencyHeader))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, checkout)
}

// RequestWithdrawal asks for a vex payout, settled later by an administrator
// POST /api/v1/wallet/withdrawals
func (h *WalletHandler) RequestWithdrawal(c *gin.Context) {
	var input entities.WithdrawalInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	tx, err := h.withdrawals.RequestWithdrawal(c.Request.Context(), userID, input.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusAccepted, tx)
}
