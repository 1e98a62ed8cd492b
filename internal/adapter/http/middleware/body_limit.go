package middleware

import (
	"net/http"

	"upi-ledger/pkg/apperror"
	"upi-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// MaxBodySize rejects requests whose declared Content-Length exceeds maxBytes
// with 413 and caps the body reader for the rest. Reads past the cap fail
// with *http.MaxBytesError.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			response.Error(c, apperror.ErrPayloadTooLarge())
			c.Abort()
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
