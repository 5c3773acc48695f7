package apihttp

import (
	"errors"
	"fmt"
	"net/http"

	"tradejournal/internal/logger"
	"tradejournal/internal/market"
	"tradejournal/internal/plan"
	"tradejournal/internal/settings"

	"github.com/gin-gonic/gin"
)

const (
	CodeDisciplineViolation = "DISCIPLINE_VIOLATION"
	CodeBadRequest          = "BAD_REQUEST"
	CodeInvalidState        = "INVALID_STATE"
	CodeNotFound            = "NOT_FOUND"
	CodeQuoteUnavailable    = "QUOTE_UNAVAILABLE"
	CodeInternal            = "INTERNAL_ERROR"
)

var errBadRequest = errors.New("bad request")

// ErrorBody 统一错误响应。
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, plan.ErrDisciplineViolation):
		return http.StatusBadRequest, CodeDisciplineViolation
	case errors.Is(err, plan.ErrInvalidSetup),
		errors.Is(err, settings.ErrInvalidSettings),
		errors.Is(err, market.ErrInvalidSymbol),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, CodeBadRequest
	case errors.Is(err, plan.ErrInvalidState):
		return http.StatusConflict, CodeInvalidState
	case errors.Is(err, plan.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, market.ErrQuoteUnavailable):
		return http.StatusServiceUnavailable, CodeQuoteUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func writeError(c *gin.Context, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.Errorf("[api] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: code, Message: err.Error()})
}
