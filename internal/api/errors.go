package api

import (
	"errors"
	"net/http"

	"github.com/Fi44er/roi_ledger/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	codeUnauthorized      = "UNAUTHORIZED"
	codeForbidden         = "FORBIDDEN"
	codeInvalidRequest    = "INVALID_REQUEST"
	codeValidation        = "VALIDATION_ERROR"
	codeNotFound          = "NOT_FOUND"
	codeConflict          = "CONFLICT"
	codeInsufficientFunds = "INSUFFICIENT_FUNDS"
	codeUnavailable       = "SERVICE_UNAVAILABLE"
	codeInternal          = "INTERNAL_ERROR"
)

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps a ledger error category to an HTTP status and code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, codeConflict
	case errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, codeInsufficientFunds
	case errors.Is(err, service.ErrTransientStorage):
		return http.StatusServiceUnavailable, codeUnavailable
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": errorBody{
		Code:      code,
		Message:   message,
		RequestID: c.GetString(ctxRequestID),
	}})
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, code := statusFor(err)
	message := err.Error()
	var le *service.LedgerError
	if errors.As(err, &le) {
		message = le.Kind.Error()
		if le.Message != "" {
			message = le.Message
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.WithField("request_id", c.GetString(ctxRequestID)).Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		message = http.StatusText(status)
	}
	_ = c.Error(err)
	abort(c, status, code, message)
}
