package handler

import (
	"upi-ledger/internal/adapter/http/dto"
	"upi-ledger/internal/adapter/http/middleware"
	"upi-ledger/internal/core/ports"
	"upi-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// AccountHandler handles account endpoints.
type AccountHandler struct {
	accountSvc ports.AccountService
	querySvc   ports.QueryService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc ports.AccountService, querySvc ports.QueryService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc, querySvc: querySvc}
}

// Create handles POST /api/v1/accounts.
func (h *AccountHandler) Create(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, err)
		return
	}

	account, err := h.accountSvc.CreateAccount(c.Request.Context(), req.ToPort())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, account.Handle)
	response.Created(c, dto.NewAccountResponse(account))
}

// List handles GET /api/v1/accounts.
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.querySvc.ListAccounts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountList(accounts))
}

// GetByID handles GET /api/v1/accounts/:id.
func (h *AccountHandler) GetByID(c *gin.Context) {
	id, err := int64Param(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	account, err := h.querySvc.GetAccountByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountResponse(account))
}

// GetByHandle handles GET /api/v1/accounts/handle/:handle.
func (h *AccountHandler) GetByHandle(c *gin.Context) {
	account, err := h.querySvc.GetAccountByHandle(c.Request.Context(), c.Param("handle"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewAccountResponse(account))
}
