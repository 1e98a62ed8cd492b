package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"upi-ledger/internal/adapter/http/dto"
	"upi-ledger/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// bindJSON decodes the request body into req, trims its string fields, then
// runs the binding validators. Trimming first means surrounding whitespace
// never fails a format check.
func bindJSON(c *gin.Context, req interface{}) error {
	if c.Request.Body == nil {
		return apperror.Validation("request body is required")
	}
	if err := json.NewDecoder(c.Request.Body).Decode(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ErrPayloadTooLarge()
		}
		return apperror.Validation("invalid JSON body: " + err.Error())
	}
	dto.SanitizeStruct(req)
	if err := binding.Validator.ValidateStruct(req); err != nil {
		return apperror.Validation(err.Error())
	}
	return nil
}

// int64Param parses a positive integer path parameter.
func int64Param(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.Validation("invalid " + name)
	}
	return id, nil
}
