package admin

import (
	"github.com/bluewater-shop/storefront/internal/http/response"
	handlershared "github.com/bluewater-shop/storefront/internal/http/handlers/shared"
	"github.com/bluewater-shop/storefront/internal/payment/gateway"
	"github.com/bluewater-shop/storefront/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, msg string, err error) {
	handlershared.RespondError(c, code, msg, err)
}

func respondWithMappedError(c *gin.Context, err error, rules []handlershared.MappedError, fallbackCode int, fallbackMsg string) {
	handlershared.RespondWithMappedError(c, err, rules, fallbackCode, fallbackMsg)
}

var tenantGatewayErrorRules = []handlershared.MappedError{
	{Target: service.ErrTenantRequired, Code: response.CodeBadRequest},
	{Target: gateway.ErrUnknownGateway, Code: response.CodeBadRequest},
	{Target: service.ErrGatewayCredentialsIncomplete, Code: response.CodeUnprocessable},
	{Target: service.ErrDefaultGatewayDisabled, Code: response.CodeUnprocessable},
	{Target: service.ErrTenantGatewayNotFound, Code: response.CodeNotFound},
}

var webhookEventErrorRules = []handlershared.MappedError{
	{Target: service.ErrTenantRequired, Code: response.CodeBadRequest},
	{Target: service.ErrWebhookEventNotFound, Code: response.CodeNotFound},
	{Target: service.ErrWebhookEnqueueFailed, Code: response.CodeInternal, Message: "failed to enqueue webhook event"},
}
