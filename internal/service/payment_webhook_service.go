package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bluewater-shop/storefront/internal/logger"
	"github.com/bluewater-shop/storefront/internal/metrics"
	"github.com/bluewater-shop/storefront/internal/models"
	"github.com/bluewater-shop/storefront/internal/payment/gateway"
	"github.com/bluewater-shop/storefront/internal/queue"
	"github.com/bluewater-shop/storefront/internal/repository"

	"github.com/hibiken/asynq"
)

const defaultConfirmDelay = 30 * time.Second

// PaymentStatusEnqueuer is the part of queue.Client the webhook intake uses.
type PaymentStatusEnqueuer interface {
	EnqueuePaymentStatusSync(payload queue.PaymentStatusPayload, taskID string, opts ...asynq.Option) error
	EnqueuePaymentStatusConfirm(payload queue.PaymentStatusPayload, taskID string, delay time.Duration) error
}

// PaymentWebhookService verifies inbound webhooks, records each one once and
// hands it to the worker.
type PaymentWebhookService struct {
	paymentSvc   *TenantPaymentService
	eventRepo    repository.PaymentWebhookEventRepository
	queue        PaymentStatusEnqueuer
	confirmDelay time.Duration
	now          func() time.Time
}

// NewPaymentWebhookService creates the service.
func NewPaymentWebhookService(paymentSvc *TenantPaymentService, eventRepo repository.PaymentWebhookEventRepository, q PaymentStatusEnqueuer, confirmDelay time.Duration) *PaymentWebhookService {
	if confirmDelay <= 0 {
		confirmDelay = defaultConfirmDelay
	}
	return &PaymentWebhookService{
		paymentSvc:   paymentSvc,
		eventRepo:    eventRepo,
		queue:        q,
		confirmDelay: confirmDelay,
		now:          time.Now,
	}
}

// WebhookInput is one inbound webhook request.
type WebhookInput struct {
	TenantID    string
	GatewayCode string
	Headers     map[string]string
	Body        []byte
}

// WebhookOutcome reports what intake did with a webhook.
type WebhookOutcome struct {
	Accepted     bool
	Duplicate    bool
	Verification *WebhookVerification
	Event        *models.PaymentWebhookEvent
}

// HandleWebhook verifies and records a webhook. Rejected webhooks are not an
// error; the returned error means storage or enqueueing failed and the
// provider should retry.
func (s *PaymentWebhookService) HandleWebhook(ctx context.Context, input WebhookInput) (*WebhookOutcome, error) {
	code := strings.ToLower(strings.TrimSpace(input.GatewayCode))
	log := logger.Ctx(ctx, "tenant_id", input.TenantID, "gateway_code", code)

	verification := s.paymentSvc.VerifyWebhook(ctx, input.TenantID, code, gateway.WebhookData{
		Body:    input.Body,
		Headers: input.Headers,
	})
	outcome := &WebhookOutcome{Verification: verification}
	if !verification.Verified {
		log.Warnw("webhook_signature_invalid", "error", verification.Error, "body", truncateBody(input.Body, 256))
		if verification.Error == NoGatewayConfiguredMessage {
			metrics.WebhookVerification(code, metrics.WebhookNoGateway)
		} else {
			metrics.WebhookVerification(code, metrics.WebhookRejected)
		}
		return outcome, nil
	}

	event := buildWebhookEvent(input.TenantID, code, verification, input.Body, s.now())
	created, err := s.eventRepo.CreateIfAbsent(event)
	if err != nil {
		log.Errorw("webhook_event_store_failed", "dedup_key", event.DedupKey, "error", err)
		return outcome, err
	}
	outcome.Accepted = true
	outcome.Event = event
	if !created {
		outcome.Duplicate = true
		log.Infow("webhook_duplicate_ignored", "dedup_key", event.DedupKey)
		metrics.WebhookVerification(code, metrics.WebhookDuplicate)
		return outcome, nil
	}

	if err := s.enqueue(event); err != nil {
		log.Errorw("webhook_enqueue_failed", "dedup_key", event.DedupKey, "error", err)
		return outcome, fmt.Errorf("%w: %v", ErrWebhookEnqueueFailed, err)
	}
	if verification.Trust == gateway.TrustUnsigned {
		metrics.WebhookVerification(code, metrics.WebhookUnsigned)
	} else {
		metrics.WebhookVerification(code, metrics.WebhookVerified)
	}
	log.Infow("webhook_accepted", "order_id", event.OrderID, "payment_id", event.PaymentID, "status", event.Status, "trust", event.Trust)
	return outcome, nil
}

// ListWebhookEvents pages through recorded webhook events.
func (s *PaymentWebhookService) ListWebhookEvents(ctx context.Context, filter repository.PaymentWebhookEventListFilter) ([]models.PaymentWebhookEvent, int64, error) {
	filter.TenantID = strings.TrimSpace(filter.TenantID)
	if filter.TenantID == "" {
		return nil, 0, ErrTenantRequired
	}
	filter.GatewayCode = strings.ToLower(strings.TrimSpace(filter.GatewayCode))
	return s.eventRepo.List(filter)
}

// ReplayWebhookEvent enqueues a recorded event again, for deliveries whose
// first enqueue failed after the event was stored.
func (s *PaymentWebhookService) ReplayWebhookEvent(ctx context.Context, tenantID string, eventID uint) (*models.PaymentWebhookEvent, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}
	if event == nil || event.TenantID != tenantID {
		return nil, ErrWebhookEventNotFound
	}
	if err := s.enqueue(event); err != nil {
		logger.Ctx(ctx, "tenant_id", tenantID, "event_id", eventID).Errorw("webhook_replay_enqueue_failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrWebhookEnqueueFailed, err)
	}
	logger.Ctx(ctx, "tenant_id", tenantID, "event_id", eventID).Infow("webhook_event_replayed", "status", event.Status, "trust", event.Trust)
	return event, nil
}

// enqueue sends signed statuses straight to sync. Unsigned statuses only
// trigger a confirmation poll; their reported status is never forwarded.
func (s *PaymentWebhookService) enqueue(event *models.PaymentWebhookEvent) error {
	if s.queue == nil {
		return nil
	}
	payload := queue.PaymentStatusPayload{
		EventID:     event.ID,
		TenantID:    event.TenantID,
		GatewayCode: event.GatewayCode,
		OrderID:     event.OrderID,
		PaymentID:   event.PaymentID,
		Status:      event.Status,
		Amount:      event.Amount.String(),
		Currency:    event.Currency,
		Trust:       event.Trust,
	}
	taskID := fmt.Sprintf("webhook-event-%d", event.ID)
	if event.Trust == string(gateway.TrustUnsigned) {
		return s.queue.EnqueuePaymentStatusConfirm(payload, taskID, s.confirmDelay)
	}
	return s.queue.EnqueuePaymentStatusSync(payload, taskID)
}

// WebhookDedupKey identifies one status transition of one payment.
func WebhookDedupKey(tenantID, code, paymentID string, status gateway.Status) string {
	return strings.Join([]string{strings.TrimSpace(tenantID), code, strings.TrimSpace(paymentID), string(status)}, ":")
}

// buildWebhookEvent keys the event on the payment id, then the order id, then
// a digest of the body so id-less events never share a key.
func buildWebhookEvent(tenantID, code string, verification *WebhookVerification, body []byte, receivedAt time.Time) *models.PaymentWebhookEvent {
	paymentID := verification.PaymentID
	if paymentID == "" {
		paymentID = verification.OrderID
	}
	if paymentID == "" {
		sum := sha256.Sum256(body)
		paymentID = "body-" + hex.EncodeToString(sum[:])
	}
	event := &models.PaymentWebhookEvent{
		TenantID:    strings.TrimSpace(tenantID),
		GatewayCode: code,
		DedupKey:    WebhookDedupKey(tenantID, code, paymentID, verification.Status),
		PaymentID:   verification.PaymentID,
		OrderID:     verification.OrderID,
		Status:      string(verification.Status),
		Amount:      models.NewMoneyFromDecimal(verification.Amount),
		Trust:       string(verification.Trust),
		ReceivedAt:  receivedAt,
	}
	if verification.Result != nil {
		event.Currency = verification.Result.Currency
		if verification.Result.RawData != nil {
			event.RawData = models.JSON(verification.Result.RawData)
		}
	}
	return event
}

func truncateBody(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
