package admin

import (
	"errors"

	"github.com/bluewater-shop/storefront/internal/http/response"
	"github.com/bluewater-shop/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// SaveTenantGatewayRequest creates or replaces one tenant gateway. Masked
// credential values ("****...") keep the stored secret.
type SaveTenantGatewayRequest struct {
	Credentials  map[string]string `json:"credentials"`
	IsEnabled    bool              `json:"is_enabled"`
	IsDefault    bool              `json:"is_default"`
	IsSandbox    bool              `json:"is_sandbox"`
	DisplayOrder int               `json:"display_order"`
	WebhookURL   string            `json:"webhook_url"`
}

// ListTenantGateways lists every configured gateway of a tenant.
func (h *Handler) ListTenantGateways(c *gin.Context) {
	views, err := h.TenantGatewayAdminService.ListTenantGatewayConfigs(c.Request.Context(), c.Param("tenant_id"))
	if err != nil {
		respondWithMappedError(c, err, tenantGatewayErrorRules, response.CodeInternal, "failed to list tenant gateways")
		return
	}
	response.Success(c, views)
}

// SaveTenantGateway upserts the tenant's configuration of one gateway.
func (h *Handler) SaveTenantGateway(c *gin.Context) {
	var req SaveTenantGatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	input := service.SaveTenantGatewayInput{
		TenantID:     c.Param("tenant_id"),
		GatewayCode:  c.Param("gateway_code"),
		Credentials:  req.Credentials,
		IsEnabled:    req.IsEnabled,
		IsDefault:    req.IsDefault,
		IsSandbox:    req.IsSandbox,
		DisplayOrder: req.DisplayOrder,
		WebhookURL:   req.WebhookURL,
	}
	view, err := h.TenantGatewayAdminService.SaveTenantGateway(c.Request.Context(), input)
	if err != nil {
		var incomplete *service.CredentialsIncompleteError
		if errors.As(err, &incomplete) {
			response.ErrorWithData(c, response.CodeUnprocessable, incomplete.Error(), gin.H{
				"missing_fields": incomplete.MissingFields,
			})
			return
		}
		respondWithMappedError(c, err, tenantGatewayErrorRules, response.CodeInternal, "failed to save tenant gateway")
		return
	}
	requestLog(c).Infow("admin_tenant_gateway_saved", "admin", adminSubject(c), "tenant_id", view.TenantID, "gateway_code", view.GatewayCode)
	response.Success(c, view)
}

// DeleteTenantGateway removes the tenant's configuration of one gateway.
func (h *Handler) DeleteTenantGateway(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	code := c.Param("gateway_code")
	if err := h.TenantGatewayAdminService.DeleteTenantGateway(c.Request.Context(), tenantID, code); err != nil {
		respondWithMappedError(c, err, tenantGatewayErrorRules, response.CodeInternal, "failed to delete tenant gateway")
		return
	}
	requestLog(c).Infow("admin_tenant_gateway_deleted", "admin", adminSubject(c), "tenant_id", tenantID, "gateway_code", code)
	response.Success(c, gin.H{"deleted": true})
}

// SetDefaultTenantGateway makes one enabled gateway the tenant default.
func (h *Handler) SetDefaultTenantGateway(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	code := c.Param("gateway_code")
	if err := h.TenantGatewayAdminService.SetDefaultTenantGateway(c.Request.Context(), tenantID, code); err != nil {
		respondWithMappedError(c, err, tenantGatewayErrorRules, response.CodeInternal, "failed to set default gateway")
		return
	}
	response.Success(c, gin.H{"default": code})
}
