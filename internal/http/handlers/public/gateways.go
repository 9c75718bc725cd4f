package public

import (
	"github.com/bluewater-shop/storefront/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListTenantGateways returns the gateways a tenant offers at checkout.
func (h *Handler) ListTenantGateways(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	gateways, err := h.TenantPaymentService.GetTenantGateways(c.Request.Context(), tenantID)
	if err != nil {
		respondWithMappedError(c, err, tenantGatewayErrorRules, response.CodeInternal, "failed to load payment gateways")
		return
	}
	response.Success(c, gin.H{
		"tenant_id": tenantID,
		"gateways":  gateways,
	})
}
