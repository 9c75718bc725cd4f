package public

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/bluewater-shop/storefront/internal/http/response"
	"github.com/bluewater-shop/storefront/internal/payment/gateway"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CreatePaymentRequest starts a checkout. A blank gateway_code uses the
// tenant's default gateway.
type CreatePaymentRequest struct {
	GatewayCode     string            `json:"gateway_code"`
	Amount          decimal.Decimal   `json:"amount"`
	Currency        string            `json:"currency" binding:"required"`
	OrderID         string            `json:"order_id" binding:"required"`
	OrderNumber     string            `json:"order_number"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerName    string            `json:"customer_name"`
	CustomerPhone   string            `json:"customer_phone"`
	ItemName        string            `json:"item_name"`
	ItemDescription string            `json:"item_description"`
	SuccessURL      string            `json:"success_url"`
	CancelURL       string            `json:"cancel_url"`
	NotifyURL       string            `json:"notify_url"`
	Metadata        map[string]string `json:"metadata"`
}

func (r CreatePaymentRequest) toParams() gateway.PaymentParams {
	return gateway.PaymentParams{
		Amount:          r.Amount,
		Currency:        r.Currency,
		OrderID:         strings.TrimSpace(r.OrderID),
		OrderNumber:     strings.TrimSpace(r.OrderNumber),
		CustomerEmail:   strings.TrimSpace(r.CustomerEmail),
		CustomerName:    strings.TrimSpace(r.CustomerName),
		CustomerPhone:   strings.TrimSpace(r.CustomerPhone),
		ItemName:        strings.TrimSpace(r.ItemName),
		ItemDescription: strings.TrimSpace(r.ItemDescription),
		SuccessURL:      strings.TrimSpace(r.SuccessURL),
		CancelURL:       strings.TrimSpace(r.CancelURL),
		NotifyURL:       strings.TrimSpace(r.NotifyURL),
		Metadata:        r.Metadata,
	}
}

// CreatePayment runs ProcessPayment. The envelope always carries the
// PaymentResult so checkout can render redirects, forms and failures alike.
func (h *Handler) CreatePayment(c *gin.Context) {
	tenantID := strings.TrimSpace(c.Param("tenant_id"))
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		requestLog(c).Warnw("payment_create_request_invalid", "tenant_id", tenantID, "error", err)
		respondError(c, response.CodeBadRequest, "invalid payment request", nil)
		return
	}
	params := req.toParams()
	if params.NotifyURL == "" {
		params.NotifyURL = h.defaultNotifyURL(c, tenantID, req.GatewayCode)
	}

	result := h.TenantPaymentService.ProcessPayment(c.Request.Context(), tenantID, req.GatewayCode, params)
	data := gin.H{"payment": result}
	if result.Success {
		response.Success(c, data)
		return
	}
	code := response.CodeUnprocessable
	if result.FailureKind == gateway.FailureAmbiguous {
		code = response.CodeBadGateway
	}
	response.ErrorWithData(c, code, result.Error, data)
}

// defaultNotifyURL derives the webhook URL from server.public_base_url when
// neither the request nor the tenant row names one. Adapters fall back to the
// row's webhook_url on their own.
func (h *Handler) defaultNotifyURL(c *gin.Context, tenantID, code string) string {
	if h.Config == nil {
		return ""
	}
	base := strings.TrimRight(strings.TrimSpace(h.Config.Server.PublicBaseURL), "/")
	if base == "" || tenantID == "" {
		return ""
	}
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		gateways, err := h.TenantPaymentService.GetTenantGateways(c.Request.Context(), tenantID)
		if err != nil {
			return ""
		}
		for _, g := range gateways {
			if g.IsDefault {
				code = string(g.Code)
				break
			}
		}
	}
	if _, err := gateway.ParseCode(code); err != nil {
		return ""
	}
	return fmt.Sprintf("%s/api/v1/payments/webhook/%s/%s", base, url.PathEscape(tenantID), code)
}
