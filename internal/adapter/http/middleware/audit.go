package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"upi-ledger/internal/core/domain"
	"upi-ledger/internal/core/ports"
	"upi-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that records successful writes.
// It maps HTTP methods and route templates to audit actions.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": status,
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxResourceID),
			RequestID:    c.GetString(response.RequestIDKey),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now().UTC(),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	if method != http.MethodPost {
		return "", ""
	}
	switch route {
	case "/api/v1/accounts":
		return domain.AuditActionAccountCreate, "account"
	case "/api/v1/transactions/pay":
		return domain.AuditActionPayment, "transaction"
	}
	return "", ""
}
