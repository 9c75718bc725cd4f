package models

import "time"

// TenantGateway is one tenant's configuration for one payment gateway.
type TenantGateway struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	TenantID     string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_tenant_gateway_code" json:"tenant_id"`
	GatewayCode  string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_tenant_gateway_code" json:"gateway_code"`
	Credentials  JSON      `gorm:"type:json" json:"-"`
	IsEnabled    bool      `gorm:"not null;default:false;index" json:"is_enabled"`
	IsDefault    bool      `gorm:"not null;default:false" json:"is_default"`
	IsSandbox    bool      `gorm:"not null;default:false" json:"is_sandbox"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	WebhookURL   string    `gorm:"type:text" json:"webhook_url"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`
}

// TableName sets the table name.
func (TenantGateway) TableName() string {
	return "tenant_gateways"
}
