package admin

import (
	"errors"

	"github.com/bluewater-shop/storefront/internal/http/response"
	"github.com/bluewater-shop/storefront/internal/payment"
	"github.com/bluewater-shop/storefront/internal/payment/gateway"

	"github.com/gin-gonic/gin"
)

// ListGatewayInfo returns the static descriptor of every supported gateway.
func (h *Handler) ListGatewayInfo(c *gin.Context) {
	response.Success(c, payment.AllInfo())
}

// ValidateCredentialsRequest carries a credential map to check.
type ValidateCredentialsRequest struct {
	Credentials map[string]string `json:"credentials"`
}

// ValidateGatewayCredentials reports which required fields are missing.
func (h *Handler) ValidateGatewayCredentials(c *gin.Context) {
	var req ValidateCredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", nil)
		return
	}
	result, err := payment.ValidateCredentials(c.Param("gateway_code"), req.Credentials)
	if err != nil {
		if errors.Is(err, gateway.ErrUnknownGateway) {
			respondError(c, response.CodeBadRequest, err.Error(), nil)
			return
		}
		respondError(c, response.CodeInternal, "credential validation failed", err)
		return
	}
	response.Success(c, result)
}
