package public

import (
	"io"
	"strings"

	"github.com/bluewater-shop/storefront/internal/http/response"
	"github.com/bluewater-shop/storefront/internal/service"

	"github.com/gin-gonic/gin"
)

const maxWebhookBodyBytes = 1 << 20

// PaymentWebhook receives a provider notification. The raw body is read
// before anything else so signatures are checked over the exact bytes. The
// HTTP status is always 200; providers retry on anything else, and a rejected
// or failed delivery is reported in the envelope instead.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	log := requestLog(c)
	tenantID := strings.TrimSpace(c.Param("tenant_id"))
	code := strings.ToLower(strings.TrimSpace(c.Param("gateway_code")))

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		log.Warnw("payment_webhook_body_read_failed", "tenant_id", tenantID, "gateway_code", code, "error", err)
		response.Success(c, gin.H{"accepted": false})
		return
	}
	log.Infow("payment_webhook_received",
		"tenant_id", tenantID,
		"gateway_code", code,
		"client_ip", c.ClientIP(),
		"body_size", len(body),
	)

	headers := make(map[string]string, len(c.Request.Header))
	for key, values := range c.Request.Header {
		if len(values) == 0 {
			continue
		}
		headers[key] = values[0]
	}
	outcome, err := h.PaymentWebhookService.HandleWebhook(c.Request.Context(), service.WebhookInput{
		TenantID:    tenantID,
		GatewayCode: code,
		Headers:     headers,
		Body:        body,
	})
	if err != nil {
		log.Errorw("payment_webhook_handle_failed", "tenant_id", tenantID, "gateway_code", code, "error", err)
		response.Success(c, gin.H{"accepted": false, "error": "webhook processing failed"})
		return
	}

	data := gin.H{
		"accepted":  outcome.Accepted,
		"duplicate": outcome.Duplicate,
	}
	if v := outcome.Verification; v != nil {
		data["verified"] = v.Verified
		data["status"] = v.Status
		if v.Error != "" {
			data["error"] = v.Error
		}
	}
	response.Success(c, data)
}
