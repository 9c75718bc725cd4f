package public

import (
	"github.com/bluewater-shop/storefront/internal/http/response"
	handlershared "github.com/bluewater-shop/storefront/internal/http/handlers/shared"
	"github.com/bluewater-shop/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

var tenantGatewayErrorRules = []handlershared.MappedError{
	{Target: service.ErrTenantRequired, Code: response.CodeBadRequest},
}

func respondWithMappedError(c *gin.Context, err error, rules []handlershared.MappedError, fallbackCode int, fallbackMsg string) {
	handlershared.RespondWithMappedError(c, err, rules, fallbackCode, fallbackMsg)
}
