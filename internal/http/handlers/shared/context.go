package shared

import (
	"github.com/bluewater-shop/storefront/internal/constants"
	"github.com/bluewater-shop/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// SetAdminClaims stores verified admin claims on the request.
func SetAdminClaims(c *gin.Context, claims *service.AdminClaims) {
	c.Set(constants.ContextKeyAdminClaims, claims)
}

// GetAdminClaims returns the verified admin claims, or nil.
func GetAdminClaims(c *gin.Context) *service.AdminClaims {
	value, ok := c.Get(constants.ContextKeyAdminClaims)
	if !ok {
		return nil
	}
	claims, _ := value.(*service.AdminClaims)
	return claims
}
