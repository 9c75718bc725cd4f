package models

import "time"

// PaymentWebhookEvent records every verified webhook once. DedupKey makes
// replays and provider retries idempotent.
type PaymentWebhookEvent struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	TenantID    string    `gorm:"type:varchar(64);not null;index" json:"tenant_id"`
	GatewayCode string    `gorm:"type:varchar(20);not null;index" json:"gateway_code"`
	DedupKey    string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"dedup_key"`
	PaymentID   string    `gorm:"type:varchar(128);index" json:"payment_id"`
	OrderID     string    `gorm:"type:varchar(128);index" json:"order_id"`
	Status      string    `gorm:"type:varchar(20);not null" json:"status"`
	Amount      Money     `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`
	Currency    string    `gorm:"type:varchar(8)" json:"currency"`
	Trust       string    `gorm:"type:varchar(20);not null" json:"trust"`
	RawData     JSON      `gorm:"type:json" json:"raw_data"`
	ReceivedAt  time.Time `gorm:"index" json:"received_at"`
}

// TableName sets the table name.
func (PaymentWebhookEvent) TableName() string {
	return "payment_webhook_events"
}
