package admin

import (
	handlershared "github.com/bluewater-shop/storefront/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

// adminSubject names the caller in audit logs.
func adminSubject(c *gin.Context) string {
	claims := handlershared.GetAdminClaims(c)
	if claims == nil {
		return ""
	}
	return claims.Subject
}
