package shared

import (
	"errors"

	"github.com/bluewater-shop/storefront/internal/constants"
	"github.com/bluewater-shop/storefront/internal/http/response"
	"github.com/bluewater-shop/storefront/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog returns a logger carrying the request id.
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if c.Request != nil {
		if id := logger.RequestID(c.Request.Context()); id != "" {
			return logger.SW("request_id", id)
		}
	}
	if requestID, ok := c.Get(constants.ContextKeyRequestID); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError writes an error envelope and logs err when present.
func RespondError(c *gin.Context, code int, msg string, err error) {
	appErr := response.WrapError(code, msg, err)
	if err != nil {
		RequestLog(c).Errorw("handler_error",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.FromAppError(c, appErr)
}

// MappedError maps a service error to a response code and message.
type MappedError struct {
	Target  error
	Code    int
	Message string
}

// RespondWithMappedError writes the first rule matching err, else the fallback.
// Matched errors are expected outcomes and are not logged as failures.
func RespondWithMappedError(c *gin.Context, err error, rules []MappedError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			msg := rule.Message
			if msg == "" {
				msg = err.Error()
			}
			RespondError(c, rule.Code, msg, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackMsg, err)
}
