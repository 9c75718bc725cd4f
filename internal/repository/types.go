package repository

import "time"

// TenantGatewayListFilter filters a tenant's gateway rows.
type TenantGatewayListFilter struct {
	EnabledOnly bool
}

// PaymentWebhookEventListFilter filters stored webhook events.
type PaymentWebhookEventListFilter struct {
	Page        int
	PageSize    int
	TenantID    string
	GatewayCode string
	OrderID     string
	// Keyword matches payment_id, order_id and the raw body's id/type.
	Keyword     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
