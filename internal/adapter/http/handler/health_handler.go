package handler

import (
	"context"
	"net/http"
	"time"

	"upi-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck pings every dependency and reports 503 when any of them fails.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status  string `json:"status"`
			Latency string `json:"latency"`
			Error   string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus, len(checkers))
		allHealthy := true

		for _, checker := range checkers {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
			start := time.Now()
			err := checker.Ping(ctx)
			cancel()

			st := depStatus{Status: "healthy", Latency: time.Since(start).String()}
			if err != nil {
				st.Status = "unhealthy"
				st.Error = err.Error()
				allHealthy = false
			}
			deps[checker.Name()] = st
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
