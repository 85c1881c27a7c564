package http

import (
	"context"
	"errors"
	"net/http"

	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/logging"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
	"github.com/gin-gonic/gin"
)

// writeError maps use case error kinds to HTTP status codes.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusForbidden, "forbidden"
	case errors.Is(err, domain.ErrInconsistentState):
		code = "inconsistent_state"
	case errors.Is(err, usecase.ErrDuplicate):
		status, code = http.StatusConflict, "duplicate_request"
	case errors.Is(err, usecase.ErrPayment):
		status, code = http.StatusBadGateway, "payment_error"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	}

	_ = c.Error(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		logging.From(c).Error("request failed", "err", err)
		c.JSON(status, gin.H{"error": code})
		return
	}
	c.JSON(status, gin.H{"error": code, "message": err.Error()})
}
