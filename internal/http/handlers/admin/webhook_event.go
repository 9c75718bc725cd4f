package admin

import (
	"strconv"
	"time"

	handlershared "github.com/bluewater-shop/storefront/internal/http/handlers/shared"
	"github.com/bluewater-shop/storefront/internal/http/response"
	"github.com/bluewater-shop/storefront/internal/repository"

	"github.com/gin-gonic/gin"
)

// WebhookEventListQuery filters the webhook event listing.
type WebhookEventListQuery struct {
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
	GatewayCode string `form:"gateway_code"`
	OrderID     string `form:"order_id"`
	Keyword     string `form:"keyword"`
	From        string `form:"from"`
	To          string `form:"to"`
}

// ListWebhookEvents pages through a tenant's recorded webhooks.
func (h *Handler) ListWebhookEvents(c *gin.Context) {
	var query WebhookEventListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, response.CodeBadRequest, "invalid query", nil)
		return
	}
	from, err := parseTimeParam(query.From)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid from time", nil)
		return
	}
	to, err := parseTimeParam(query.To)
	if err != nil {
		respondError(c, response.CodeBadRequest, "invalid to time", nil)
		return
	}
	page, pageSize := handlershared.NormalizePagination(query.Page, query.PageSize)
	events, total, err := h.PaymentWebhookService.ListWebhookEvents(c.Request.Context(), repository.PaymentWebhookEventListFilter{
		Page:        page,
		PageSize:    pageSize,
		TenantID:    c.Param("tenant_id"),
		GatewayCode: query.GatewayCode,
		OrderID:     query.OrderID,
		Keyword:     query.Keyword,
		CreatedFrom: from,
		CreatedTo:   to,
	})
	if err != nil {
		respondWithMappedError(c, err, webhookEventErrorRules, response.CodeInternal, "failed to list webhook events")
		return
	}
	response.SuccessWithPage(c, events, handlershared.BuildPagination(page, pageSize, total))
}

// ReplayWebhookEvent re-enqueues a stored webhook event.
func (h *Handler) ReplayWebhookEvent(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid event id", nil)
		return
	}
	event, err := h.PaymentWebhookService.ReplayWebhookEvent(c.Request.Context(), c.Param("tenant_id"), uint(id))
	if err != nil {
		respondWithMappedError(c, err, webhookEventErrorRules, response.CodeInternal, "failed to replay webhook event")
		return
	}
	requestLog(c).Infow("admin_webhook_event_replayed", "admin", adminSubject(c), "event_id", event.ID)
	response.Success(c, event)
}

func parseTimeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
