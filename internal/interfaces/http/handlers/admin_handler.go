package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"spark.backend/internal/domain/entities"
	domainerrors "spark.backend/internal/domain/errors"
	"spark.backend/internal/interfaces/http/response"
	"spark.backend/pkg/utils"
)

type adminLedgerService interface {
	Credit(ctx context.Context, userID uuid.UUID, currency entities.Currency, amount decimal.Decimal, txType entities.TransactionType, reference string) (*entities.WalletTransaction, error)
	Debit(ctx context.Context, userID uuid.UUID, currency entities.Currency, amount decimal.Decimal, txType entities.TransactionType, reference string) (*entities.WalletTransaction, error)
	ListTransactions(ctx context.Context, filter entities.TransactionFilter, pagination utils.PaginationParams) ([]*entities.WalletTransaction, utils.PaginationMeta, error)
}

type withdrawalConfirmer interface {
	ConfirmWithdrawal(ctx context.Context, transactionID uuid.UUID, approve bool, note string) (*entities.WalletTransaction, error)
}

// AdminHandler handles administrative ledger endpoints
type AdminHandler struct {
	ledger      adminLedgerService
	withdrawals withdrawalConfirmer
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(ledger adminLedgerService, withdrawals withdrawalConfirmer) *AdminHandler {
	return &AdminHandler{
		ledger:      ledger,
		withdrawals: withdrawals,
	}
}

// ListTransactions lists ledger rows across all users
// GET /api/v1/admin/transactions?userId=&currency=&type=&status=&page=&limit=
func (h *AdminHandler) ListTransactions(c *gin.Context) {
	filter := entities.TransactionFilter{
		Currency: entities.Currency(c.Query("currency")),
		Type:     entities.TransactionType(c.Query("type")),
		Status:   entities.TransactionStatus(c.Query("status")),
	}
	if raw := c.Query("userId"); raw != "" {
		id, ok := utils.ParseUUID(raw)
		if !ok {
			response.Error(c, domainerrors.BadRequest("Invalid userId"))
			return
		}
		filter.UserID = &id
	}

	items, meta, err := h.ledger.ListTransactions(c.Request.Context(), filter, parsePagination(c))
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

// CreditWallet manually credits a user's wallet
// POST /api/v1/admin/wallets/credit
func (h *AdminHandler) CreditWallet(c *gin.Context) {
	h.adjust(c, entities.TransactionTypeDeposit, h.ledger.Credit)
}

// DebitWallet manually debits a user's wallet
// POST /api/v1/admin/wallets/debit
func (h *AdminHandler) DebitWallet(c *gin.Context) {
	h.adjust(c, entities.TransactionTypeWithdraw, h.ledger.Debit)
}

type adjustFunc func(ctx context.Context, userID uuid.UUID, currency entities.Currency, amount decimal.Decimal, txType entities.TransactionType, reference string) (*entities.WalletTransaction, error)

func (h *AdminHandler) adjust(c *gin.Context, defaultType entities.TransactionType, apply adjustFunc) {
	var input entities.AdjustmentInput

	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}
	if input.Type == "" {
		input.Type = defaultType
	}

	tx, err := apply(c.Request.Context(), input.UserID, input.Currency, input.Amount, input.Type, input.Reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, tx)
}

type withdrawalDecision struct {
	Note string `json:"note"`
}

// ApproveWithdrawal debits the wallet and settles a pending withdrawal
// POST /api/v1/admin/withdrawals/:id/approve
func (h *AdminHandler) ApproveWithdrawal(c *gin.Context) {
	h.decideWithdrawal(c, true)
}

// RejectWithdrawal marks a pending withdrawal failed
// POST /api/v1/admin/withdrawals/:id/reject
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	h.decideWithdrawal(c, false)
}

func (h *AdminHandler) decideWithdrawal(c *gin.Context, approve bool) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var input withdrawalDecision
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			response.Error(c, domainerrors.BadRequest(err.Error()))
			return
		}
	}

	tx, err := h.withdrawals.ConfirmWithdrawal(c.Request.Context(), id, approve, input.Note)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, tx)
}
