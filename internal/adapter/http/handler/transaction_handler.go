package handler

import (
	"strings"

	"upi-ledger/internal/adapter/http/dto"
	"upi-ledger/internal/adapter/http/middleware"
	"upi-ledger/internal/core/domain"
	"upi-ledger/internal/core/ports"
	"upi-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransactionHandler handles payment and ledger query endpoints.
type TransactionHandler struct {
	transferSvc ports.TransferService
	querySvc    ports.QueryService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transferSvc ports.TransferService, querySvc ports.QueryService) *TransactionHandler {
	return &TransactionHandler{transferSvc: transferSvc, querySvc: querySvc}
}

// Pay handles POST /api/v1/transactions/pay.
// A settled payment and a payment recorded as FAILED both answer 201 with
// the transaction record; the status field tells them apart.
func (h *TransactionHandler) Pay(c *gin.Context) {
	var req dto.PaymentRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	txn, err := h.transferSvc.Pay(c.Request.Context(), req.ToPort())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, txn.TransactionID)
	response.Created(c, dto.NewTransactionResponse(txn))
}

// List handles GET /api/v1/transactions with optional ?status= and ?type=.
func (h *TransactionHandler) List(c *gin.Context) {
	var filter ports.TransactionFilter
	if s := strings.ToUpper(strings.TrimSpace(c.Query("status"))); s != "" {
		status := domain.TransactionStatus(s)
		filter.Status = &status
	}
	if t := strings.ToUpper(strings.TrimSpace(c.Query("type"))); t != "" {
		txnType := domain.TransactionType(t)
		filter.Type = &txnType
	}

	txns, err := h.querySvc.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionList(txns))
}

// Stats handles GET /api/v1/transactions/stats.
func (h *TransactionHandler) Stats(c *gin.Context) {
	stats, err := h.querySvc.GetLedgerStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewLedgerStatsResponse(stats))
}

// GetByID handles GET /api/v1/transactions/id/:id.
func (h *TransactionHandler) GetByID(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	txn, err := h.querySvc.GetTransactionByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionResponse(txn))
}

// GetByTransactionID handles GET /api/v1/transactions/:transactionId.
func (h *TransactionHandler) GetByTransactionID(c *gin.Context) {
	txn, err := h.querySvc.GetTransactionByTransactionID(c.Request.Context(), c.Param("transactionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionResponse(txn))
}

// ListByHandle handles GET /api/v1/transactions/account/:handle.
func (h *TransactionHandler) ListByHandle(c *gin.Context) {
	txns, err := h.querySvc.ListTransactionsByHandle(c.Request.Context(), c.Param("handle"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewTransactionList(txns))
}
