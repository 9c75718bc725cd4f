package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bluewater-shop/storefront/internal/logger"
	"github.com/bluewater-shop/storefront/internal/metrics"
	"github.com/bluewater-shop/storefront/internal/payment/gateway"
	"github.com/bluewater-shop/storefront/internal/provider"
	"github.com/bluewater-shop/storefront/internal/queue"
	"github.com/bluewater-shop/storefront/internal/service"

	"github.com/hibiken/asynq"
)

const (
	jobKindSync    = "sync"
	jobKindConfirm = "confirm"

	jobResultSynced   = "synced"
	jobResultRejected = "rejected"
	jobResultFailed   = "failed"
	jobResultPending  = "pending"
	jobResultDropped  = "dropped"
)

// errPaymentStillPending makes asynq retry a confirmation later.
var errPaymentStillPending = errors.New("payment still pending")

// Consumer handles payment status tasks.
type Consumer struct {
	*provider.Container
}

// NewConsumer creates a consumer.
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register binds task handlers to mux.
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskPaymentStatusSync, c.handlePaymentStatusSync)
	mux.HandleFunc(queue.TaskPaymentStatusConfirm, c.handlePaymentStatusConfirm)
}

func (c *Consumer) handlePaymentStatusSync(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_payment_status_sync_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParsePaymentStatusPayload(task)
	if err != nil {
		logger.Warnw("worker_payment_status_sync_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return c.syncStatus(ctx, jobKindSync, payload, service.SyncSourceWebhook)
}

// handlePaymentStatusConfirm polls the provider for a payment reported by an
// unsigned webhook and forwards the polled status, never the reported one.
func (c *Consumer) handlePaymentStatusConfirm(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_payment_status_confirm_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParsePaymentStatusPayload(task)
	if err != nil {
		logger.Warnw("worker_payment_status_confirm_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	log := logger.Ctx(ctx, "tenant_id", payload.TenantID, "gateway_code", payload.GatewayCode, "payment_id", payload.PaymentID, "event_id", payload.EventID)
	if c.TenantPaymentService == nil {
		log.Warnw("worker_payment_status_confirm_skip_service_nil")
		return nil
	}

	polled, err := c.TenantPaymentService.GetPaymentStatus(ctx, payload.TenantID, payload.GatewayCode, payload.PaymentID)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrUnsupported),
			errors.Is(err, service.ErrGatewayNotConfigured),
			errors.Is(err, gateway.ErrUnknownGateway),
			errors.Is(err, gateway.ErrInvalidParams),
			errors.Is(err, gateway.ErrResponseInvalid) && !errors.Is(err, gateway.ErrRequestFailed):
			log.Warnw("worker_payment_status_confirm_dropped", "error", err)
			metrics.StatusSyncJob(jobKindConfirm, jobResultDropped)
			return nil
		default:
			log.Warnw("worker_payment_status_confirm_poll_failed", "error", err)
			metrics.StatusSyncJob(jobKindConfirm, jobResultFailed)
			return err
		}
	}
	if polled == nil || polled.Status == gateway.StatusPending {
		log.Infow("worker_payment_status_confirm_pending")
		metrics.StatusSyncJob(jobKindConfirm, jobResultPending)
		return errPaymentStillPending
	}
	if string(polled.Status) != payload.Status {
		log.Warnw("worker_payment_status_confirm_mismatch", "reported", payload.Status, "polled", polled.Status)
	}
	confirmed, ok := confirmedPayload(payload, polled)
	if !ok {
		log.Warnw("worker_payment_status_confirm_order_mismatch", "reported_order_id", payload.OrderID, "polled_order_id", polled.OrderID)
		metrics.StatusSyncJob(jobKindConfirm, jobResultDropped)
		return nil
	}
	return c.syncStatus(ctx, jobKindConfirm, confirmed, service.SyncSourceStatusPoll)
}

func (c *Consumer) syncStatus(ctx context.Context, kind string, payload queue.PaymentStatusPayload, source string) error {
	log := logger.Ctx(ctx, "tenant_id", payload.TenantID, "gateway_code", payload.GatewayCode, "order_id", payload.OrderID, "event_id", payload.EventID)
	if c.OrderSyncService == nil {
		log.Warnw("worker_payment_status_sync_skip_service_nil")
		return nil
	}
	err := c.OrderSyncService.SyncPaymentStatus(ctx, service.PaymentStatusUpdate{
		EventID:     payload.EventID,
		TenantID:    payload.TenantID,
		GatewayCode: payload.GatewayCode,
		OrderID:     payload.OrderID,
		PaymentID:   payload.PaymentID,
		Status:      payload.Status,
		Amount:      payload.Amount,
		Currency:    payload.Currency,
		Source:      source,
	})
	switch {
	case err == nil:
		log.Infow("worker_payment_status_synced", "status", payload.Status, "source", source)
		metrics.StatusSyncJob(kind, jobResultSynced)
		return nil
	case errors.Is(err, service.ErrOrderSyncRejected):
		log.Warnw("worker_payment_status_sync_rejected", "status", payload.Status, "error", err)
		metrics.StatusSyncJob(kind, jobResultRejected)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	default:
		log.Warnw("worker_payment_status_sync_failed", "status", payload.Status, "error", err)
		metrics.StatusSyncJob(kind, jobResultFailed)
		return err
	}
}

// confirmedPayload builds the update from the polled result only. The
// unsigned webhook contributes nothing but the ids used to find the payment;
// ok is false when the polled order does not match the reported one.
func confirmedPayload(reported queue.PaymentStatusPayload, polled *gateway.WebhookResult) (queue.PaymentStatusPayload, bool) {
	orderID := strings.TrimSpace(polled.OrderID)
	if orderID == "" || orderID != strings.TrimSpace(reported.OrderID) {
		return queue.PaymentStatusPayload{}, false
	}
	confirmed := reported
	confirmed.OrderID = orderID
	confirmed.Status = string(polled.Status)
	confirmed.Trust = string(gateway.TrustVerified)
	confirmed.Amount = ""
	if polled.Amount.IsPositive() {
		confirmed.Amount = polled.Amount.StringFixed(2)
	}
	confirmed.Currency = polled.Currency
	return confirmed, true
}
