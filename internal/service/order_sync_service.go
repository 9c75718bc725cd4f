package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/bluewater-shop/storefront/internal/config"
	"github.com/bluewater-shop/storefront/internal/logger"

	"github.com/go-resty/resty/v2"
)

// OrderSyncService forwards confirmed payment statuses to the order
// management endpoint.
type OrderSyncService struct {
	endpoint string
	client   *resty.Client
}

// NewOrderSyncService creates the service. An empty endpoint disables syncing.
func NewOrderSyncService(cfg *config.OrderSyncConfig) *OrderSyncService {
	timeout := 10 * time.Second
	endpoint := ""
	token := ""
	if cfg != nil {
		endpoint = strings.TrimSpace(cfg.Endpoint)
		token = strings.TrimSpace(cfg.Token)
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
	}
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &OrderSyncService{endpoint: endpoint, client: client}
}

// Enabled reports whether an endpoint is configured.
func (s *OrderSyncService) Enabled() bool {
	return s != nil && s.endpoint != ""
}

// PaymentStatusUpdate is the body posted to order management.
type PaymentStatusUpdate struct {
	EventID     uint   `json:"event_id"`
	TenantID    string `json:"tenant_id"`
	GatewayCode string `json:"gateway_code"`
	OrderID     string `json:"order_id"`
	PaymentID   string `json:"payment_id"`
	Status      string `json:"status"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency,omitempty"`
	Source      string `json:"source"`
}

// Update sources.
const (
	SyncSourceWebhook    = "webhook"
	SyncSourceStatusPoll = "status_poll"
)

// SyncPaymentStatus posts update. 4xx replies wrap ErrOrderSyncRejected and
// should not be retried; everything else wraps ErrOrderSyncFailed.
func (s *OrderSyncService) SyncPaymentStatus(ctx context.Context, update PaymentStatusUpdate) error {
	if !s.Enabled() {
		logger.Debugw("order_sync_skip_disabled", "order_id", update.OrderID, "status", update.Status)
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", fmt.Sprintf("payment-event-%d-%s", update.EventID, update.Status)).
		SetBody(update).
		Post(s.endpoint)
	if err != nil {
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return fmt.Errorf("%w: timeout: %v", ErrOrderSyncFailed, err)
		}
		return fmt.Errorf("%w: %v", ErrOrderSyncFailed, err)
	}
	switch code := resp.StatusCode(); {
	case code >= 200 && code < 300:
		return nil
	case code >= 400 && code < 500 && code != 408 && code != 429:
		return fmt.Errorf("%w: status %d: %s", ErrOrderSyncRejected, code, truncateBody(resp.Body(), 200))
	default:
		return fmt.Errorf("%w: status %d", ErrOrderSyncFailed, code)
	}
}
