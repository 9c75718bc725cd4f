package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bluewater-shop/storefront/internal/cache"
	"github.com/bluewater-shop/storefront/internal/constants"
	"github.com/bluewater-shop/storefront/internal/logger"
	"github.com/bluewater-shop/storefront/internal/metrics"
	"github.com/bluewater-shop/storefront/internal/models"
	"github.com/bluewater-shop/storefront/internal/payment"
	"github.com/bluewater-shop/storefront/internal/payment/gateway"
	"github.com/bluewater-shop/storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultGatewayListCacheTTL = 5 * time.Minute

// TenantPaymentService resolves a tenant's gateway configuration and runs
// payment operations against a freshly built adapter.
type TenantPaymentService struct {
	repo     repository.TenantGatewayRepository
	factory  *payment.Factory
	cacheTTL time.Duration
}

// NewTenantPaymentService creates the service. A nil factory uses default adapter settings.
func NewTenantPaymentService(repo repository.TenantGatewayRepository, factory *payment.Factory, cacheTTL time.Duration) *TenantPaymentService {
	if factory == nil {
		factory = payment.NewFactory(payment.FactoryOptions{})
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultGatewayListCacheTTL
	}
	return &TenantPaymentService{repo: repo, factory: factory, cacheTTL: cacheTTL}
}

// TenantGatewaySummary is what checkout needs to offer a gateway. It never carries credentials.
type TenantGatewaySummary struct {
	Code         gateway.Code `json:"code"`
	DisplayName  string       `json:"display_name"`
	Currencies   []string     `json:"currencies"`
	IsDefault    bool         `json:"is_default"`
	IsSandbox    bool         `json:"is_sandbox"`
	DisplayOrder int          `json:"display_order"`
}

// WebhookVerification is the webhook handler's view of a verification.
type WebhookVerification struct {
	Verified  bool                   `json:"verified"`
	Status    gateway.Status         `json:"status"`
	PaymentID string                 `json:"payment_id,omitempty"`
	OrderID   string                 `json:"order_id,omitempty"`
	Amount    decimal.Decimal        `json:"amount"`
	Trust     gateway.Trust          `json:"trust,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Result    *gateway.WebhookResult `json:"-"`
}

func tenantPaymentLogger(ctx context.Context, kv ...interface{}) *zap.SugaredLogger {
	return logger.Ctx(ctx, kv...)
}

func tenantGatewaysCacheKey(tenantID string) string {
	return fmt.Sprintf(constants.CacheKeyTenantGateways, tenantID)
}

// GetTenantGateways lists the tenant's enabled gateways in display order.
func (s *TenantPaymentService) GetTenantGateways(ctx context.Context, tenantID string) ([]TenantGatewaySummary, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	key := tenantGatewaysCacheKey(tenantID)
	var cached []TenantGatewaySummary
	hit, err := cache.GetJSON(ctx, key, &cached)
	if err != nil {
		tenantPaymentLogger(ctx, "tenant_id", tenantID).Warnw("tenant_gateway_cache_read_failed", "error", err)
	}
	if hit {
		return cached, nil
	}

	rows, err := s.repo.ListByTenant(tenantID, repository.TenantGatewayListFilter{EnabledOnly: true})
	if err != nil {
		return nil, err
	}
	summaries := make([]TenantGatewaySummary, 0, len(rows))
	for _, row := range rows {
		code, err := gateway.ParseCode(row.GatewayCode)
		if err != nil {
			tenantPaymentLogger(ctx, "tenant_id", tenantID, "gateway_code", row.GatewayCode).Warnw("tenant_gateway_unknown_code_skipped")
			continue
		}
		info, _ := payment.Info(string(code))
		summaries = append(summaries, TenantGatewaySummary{
			Code:         code,
			DisplayName:  info.DisplayName,
			Currencies:   info.Currencies,
			IsDefault:    row.IsDefault,
			IsSandbox:    row.IsSandbox,
			DisplayOrder: row.DisplayOrder,
		})
	}
	if err := cache.SetJSON(ctx, key, summaries, s.cacheTTL); err != nil {
		tenantPaymentLogger(ctx, "tenant_id", tenantID).Warnw("tenant_gateway_cache_write_failed", "error", err)
	}
	return summaries, nil
}

// InvalidateTenantGateways drops the cached gateway list for a tenant.
func (s *TenantPaymentService) InvalidateTenantGateways(ctx context.Context, tenantID string) {
	if err := cache.Del(ctx, tenantGatewaysCacheKey(strings.TrimSpace(tenantID))); err != nil {
		tenantPaymentLogger(ctx, "tenant_id", tenantID).Warnw("tenant_gateway_cache_invalidate_failed", "error", err)
	}
}

// GetTenantGateway builds the adapter for the tenant's enabled configuration
// of code. It returns nil, nil when the tenant has no such configuration.
func (s *TenantPaymentService) GetTenantGateway(ctx context.Context, tenantID, code string) (gateway.Gateway, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	parsed, err := gateway.ParseCode(code)
	if err != nil {
		return nil, err
	}
	row, err := s.repo.GetEnabledByTenantCode(tenantID, string(parsed))
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return s.build(row)
}

// GetDefaultTenantGateway builds the adapter for the tenant's enabled default
// gateway, or returns nil, nil when none is set.
func (s *TenantPaymentService) GetDefaultTenantGateway(ctx context.Context, tenantID string) (gateway.Gateway, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	row, err := s.repo.GetDefaultEnabled(tenantID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	return s.build(row)
}

func (s *TenantPaymentService) build(row *models.TenantGateway) (gateway.Gateway, error) {
	return s.factory.CreateGateway(row.GatewayCode, payment.GatewayConfig{
		Credentials: row.Credentials.StringMap(),
		IsSandbox:   row.IsSandbox,
		WebhookURL:  row.WebhookURL,
	})
}

func (s *TenantPaymentService) resolve(ctx context.Context, tenantID, code string) (gateway.Gateway, error) {
	if strings.TrimSpace(code) == "" {
		return s.GetDefaultTenantGateway(ctx, tenantID)
	}
	return s.GetTenantGateway(ctx, tenantID, code)
}

// ProcessPayment creates a payment with the named gateway, or the tenant's
// default when code is blank. It never returns an error: every failure is a
// PaymentResult with Success=false so checkout can render it.
func (s *TenantPaymentService) ProcessPayment(ctx context.Context, tenantID, code string, params gateway.PaymentParams) *gateway.PaymentResult {
	log := tenantPaymentLogger(ctx, "tenant_id", tenantID, "gateway_code", code, "order_id", params.OrderID)
	requested := gateway.Code(strings.ToLower(strings.TrimSpace(code)))

	g, err := s.resolve(ctx, tenantID, code)
	if err != nil {
		if errors.Is(err, gateway.ErrUnknownGateway) || errors.Is(err, ErrTenantRequired) {
			log.Warnw("payment_gateway_resolve_rejected", "error", err)
			metrics.PaymentAttempt(string(requested), metrics.OutcomeRejected)
			return gateway.Failure(requested, gateway.FailureRejected, err.Error())
		}
		log.Errorw("payment_gateway_resolve_failed", "error", err)
		metrics.PaymentAttempt(string(requested), metrics.OutcomeRejected)
		return gateway.Failure(requested, gateway.FailureRejected, "Payment gateway unavailable")
	}
	if g == nil {
		log.Infow("payment_gateway_not_configured")
		metrics.PaymentAttempt(string(requested), metrics.OutcomeUnconfigured)
		return gateway.Failure(requested, gateway.FailureRejected, NoGatewayConfiguredMessage)
	}

	started := time.Now()
	result, err := g.CreatePayment(ctx, params)
	metrics.ObserveGatewayRequest(string(g.Code()), "create_payment", time.Since(started).Seconds())
	if err != nil {
		log.Warnw("payment_params_invalid", "gateway", g.Code(), "error", err)
		metrics.PaymentAttempt(string(g.Code()), metrics.OutcomeInvalid)
		return gateway.Failure(g.Code(), gateway.FailureRejected, err.Error())
	}
	if result == nil {
		metrics.PaymentAttempt(string(g.Code()), metrics.OutcomeRejected)
		return gateway.Failure(g.Code(), gateway.FailureRejected, "payment request failed")
	}
	switch {
	case result.Success:
		log.Infow("payment_created", "gateway", g.Code(), "payment_id", result.PaymentID)
		metrics.PaymentAttempt(string(g.Code()), metrics.OutcomeCreated)
	case result.FailureKind == gateway.FailureAmbiguous:
		log.Warnw("payment_create_ambiguous", "gateway", g.Code(), "error", result.Error)
		metrics.PaymentAttempt(string(g.Code()), metrics.OutcomeAmbiguous)
	default:
		log.Warnw("payment_create_failed", "gateway", g.Code(), "error", result.Error)
		metrics.PaymentAttempt(string(g.Code()), metrics.OutcomeRejected)
	}
	return result
}

// VerifyWebhook verifies an inbound notification with the tenant's adapter
// for code. Unconfigured or unknown gateways yield an unverified result.
func (s *TenantPaymentService) VerifyWebhook(ctx context.Context, tenantID, code string, data gateway.WebhookData) *WebhookVerification {
	g, err := s.GetTenantGateway(ctx, tenantID, code)
	if err != nil {
		tenantPaymentLogger(ctx, "tenant_id", tenantID, "gateway_code", code).Warnw("webhook_gateway_resolve_failed", "error", err)
		return &WebhookVerification{Verified: false, Status: gateway.StatusFailed, Error: err.Error()}
	}
	if g == nil {
		return &WebhookVerification{Verified: false, Status: gateway.StatusFailed, Error: NoGatewayConfiguredMessage}
	}
	result := g.VerifyWebhook(ctx, data)
	if result == nil {
		result = gateway.InvalidWebhook(g.Code(), "")
	}
	return &WebhookVerification{
		Verified:  result.Valid,
		Status:    result.Status,
		PaymentID: result.PaymentID,
		OrderID:   result.OrderID,
		Amount:    result.Amount,
		Trust:     result.Trust,
		Error:     result.Error,
		Result:    result,
	}
}

// GetPaymentStatus polls the provider through the tenant's adapter for code.
func (s *TenantPaymentService) GetPaymentStatus(ctx context.Context, tenantID, code, paymentID string) (*gateway.WebhookResult, error) {
	g, err := s.GetTenantGateway(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGatewayNotConfigured
	}
	started := time.Now()
	defer func() {
		metrics.ObserveGatewayRequest(string(g.Code()), "payment_status", time.Since(started).Seconds())
	}()
	return g.GetPaymentStatus(ctx, paymentID)
}

// RefundPayment refunds through the tenant's adapter for code.
func (s *TenantPaymentService) RefundPayment(ctx context.Context, tenantID, code string, params gateway.RefundParams) (*gateway.RefundResult, error) {
	g, err := s.GetTenantGateway(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGatewayNotConfigured
	}
	result, err := g.RefundPayment(ctx, params)
	if err != nil {
		tenantPaymentLogger(ctx, "tenant_id", tenantID, "gateway_code", code, "payment_id", params.PaymentID).Warnw("payment_refund_failed", "error", err)
		return nil, err
	}
	return result, nil
}
