package constants

// Queue names and async task types.
const (
	QueueDefault             = "default"
	TaskPaymentStatusSync    = "payment:status_sync"
	TaskPaymentStatusConfirm = "payment:status_confirm"
)

// Admin token roles.
const (
	AdminRolePlatform = "platform"
	AdminRoleTenant   = "tenant"
)

// Cache key templates.
const (
	CacheKeyTenantGateways = "tenant_gateways:%s"
)

// Request context keys.
const (
	ContextKeyRequestID   = "request_id"
	ContextKeyAdminClaims = "admin_claims"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"
