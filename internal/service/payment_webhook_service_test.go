package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bluewater-shop/storefront/internal/models"
	"github.com/bluewater-shop/storefront/internal/payment/gateway"
	"github.com/bluewater-shop/storefront/internal/queue"
	"github.com/bluewater-shop/storefront/internal/repository"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

type enqueuedTask struct {
	kind    string
	payload queue.PaymentStatusPayload
	taskID  string
	delay   time.Duration
}

type recordingEnqueuer struct {
	tasks []enqueuedTask
	err   error
}

func (r *recordingEnqueuer) EnqueuePaymentStatusSync(payload queue.PaymentStatusPayload, taskID string, opts ...asynq.Option) error {
	if r.err != nil {
		return r.err
	}
	r.tasks = append(r.tasks, enqueuedTask{kind: "sync", payload: payload, taskID: taskID})
	return nil
}

func (r *recordingEnqueuer) EnqueuePaymentStatusConfirm(payload queue.PaymentStatusPayload, taskID string, delay time.Duration) error {
	if r.err != nil {
		return r.err
	}
	r.tasks = append(r.tasks, enqueuedTask{kind: "confirm", payload: payload, taskID: taskID, delay: delay})
	return nil
}

func newTestWebhookService(t *testing.T) (*PaymentWebhookService, *recordingEnqueuer, *gorm.DB) {
	t.Helper()
	db := setupTenantGatewayDB(t)
	seedTenantGateway(t, db, yocoRow("t1"))
	seedTenantGateway(t, db, models.TenantGateway{
		TenantID:    "t1",
		GatewayCode: "peach",
		Credentials: models.JSONFromStrings(map[string]string{
			"entity_id":    "8ac7a4ca68c22c4d0168c2caab2e0025",
			"access_token": "OGFjN2E0Y2E2OGMyMmM0ZDAxNjhjMmNhYWI=",
		}),
		IsEnabled:    true,
		IsSandbox:    true,
		DisplayOrder: 3,
	})
	enqueuer := &recordingEnqueuer{}
	svc := NewPaymentWebhookService(
		newTestTenantPaymentService(t, db, nil),
		repository.NewPaymentWebhookEventRepository(db),
		enqueuer,
		45*time.Second,
	)
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, enqueuer, db
}

var yocoPaidBody = []byte(`{"id":"evt_1","type":"payment.succeeded","payload":{"id":"p_1","amount":150000,"currency":"ZAR","status":"succeeded","metadata":{"checkoutId":"ch_1","orderId":"ORD-1"}}}`)

func signedYocoInput(body []byte) WebhookInput {
	return WebhookInput{
		TenantID:    "t1",
		GatewayCode: "Yoco",
		Headers:     map[string]string{"Yoco-Signature": gateway.HMACSHA256Hex(testYocoWebhookSecret, body)},
		Body:        body,
	}
}

func TestHandleWebhookSignedEnqueuesSyncOnce(t *testing.T) {
	svc, enqueuer, db := newTestWebhookService(t)

	outcome, err := svc.HandleWebhook(context.Background(), signedYocoInput(yocoPaidBody))
	if err != nil {
		t.Fatalf("handle webhook failed: %v", err)
	}
	if !outcome.Accepted || outcome.Duplicate || outcome.Event == nil {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.Event.DedupKey != "t1:yoco:ch_1:PAID" {
		t.Fatalf("unexpected dedup key: %s", outcome.Event.DedupKey)
	}
	if len(enqueuer.tasks) != 1 || enqueuer.tasks[0].kind != "sync" {
		t.Fatalf("expected one sync task, got %+v", enqueuer.tasks)
	}
	task := enqueuer.tasks[0]
	if task.payload.OrderID != "ORD-1" || task.payload.Amount != "1500.00" || task.payload.Trust != "verified" {
		t.Fatalf("unexpected payload: %+v", task.payload)
	}
	if task.taskID != "webhook-event-1" {
		t.Fatalf("unexpected task id: %s", task.taskID)
	}

	again, err := svc.HandleWebhook(context.Background(), signedYocoInput(yocoPaidBody))
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if !again.Accepted || !again.Duplicate {
		t.Fatalf("replay should be an accepted duplicate: %+v", again)
	}
	if len(enqueuer.tasks) != 1 {
		t.Fatalf("replay must not enqueue again, got %d tasks", len(enqueuer.tasks))
	}

	var count int64
	if err := db.Model(&models.PaymentWebhookEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count events failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 stored event, got %d", count)
	}
}

func TestHandleWebhookForgedSignatureIsNotRecorded(t *testing.T) {
	svc, enqueuer, db := newTestWebhookService(t)

	input := signedYocoInput(yocoPaidBody)
	input.Headers["Yoco-Signature"] = gateway.HMACSHA256Hex("guess", yocoPaidBody)
	outcome, err := svc.HandleWebhook(context.Background(), input)
	if err != nil {
		t.Fatalf("rejected webhook must not be an error: %v", err)
	}
	if outcome.Accepted || outcome.Verification.Verified || outcome.Verification.Error != gateway.InvalidWebhookMessage {
		t.Fatalf("unexpected outcome: %+v", outcome.Verification)
	}
	if len(enqueuer.tasks) != 0 {
		t.Fatalf("forged webhook must not enqueue")
	}
	var count int64
	db.Model(&models.PaymentWebhookEvent{}).Count(&count)
	if count != 0 {
		t.Fatalf("forged webhook must not be stored")
	}
}

func TestHandleWebhookUnsignedSchedulesConfirmation(t *testing.T) {
	svc, enqueuer, _ := newTestWebhookService(t)

	body := []byte(`{"type":"PAYMENT","payload":{"id":"8ac7a4a1","ndc":"chk_9","merchantTransactionId":"ORD-9","amount":"99.90","currency":"ZAR","result":{"code":"000.100.110"}}}`)
	outcome, err := svc.HandleWebhook(context.Background(), WebhookInput{TenantID: "t1", GatewayCode: "peach", Body: body})
	if err != nil {
		t.Fatalf("handle webhook failed: %v", err)
	}
	if !outcome.Accepted || outcome.Verification.Trust != gateway.TrustUnsigned {
		t.Fatalf("unexpected outcome: %+v", outcome.Verification)
	}
	if len(enqueuer.tasks) != 1 || enqueuer.tasks[0].kind != "confirm" || enqueuer.tasks[0].delay != 45*time.Second {
		t.Fatalf("expected delayed confirm task, got %+v", enqueuer.tasks)
	}
	if enqueuer.tasks[0].payload.PaymentID != "chk_9" || enqueuer.tasks[0].payload.Trust != "unsigned" {
		t.Fatalf("unexpected payload: %+v", enqueuer.tasks[0].payload)
	}
}

func TestHandleWebhookUnconfiguredGateway(t *testing.T) {
	svc, enqueuer, _ := newTestWebhookService(t)

	outcome, err := svc.HandleWebhook(context.Background(), WebhookInput{TenantID: "t1", GatewayCode: "stripe", Body: []byte(`{}`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Accepted || outcome.Verification.Error != NoGatewayConfiguredMessage || len(enqueuer.tasks) != 0 {
		t.Fatalf("unexpected outcome: %+v", outcome.Verification)
	}
}

func TestHandleWebhookEnqueueFailureIsError(t *testing.T) {
	svc, enqueuer, _ := newTestWebhookService(t)
	enqueuer.err = errors.New("redis down")

	_, err := svc.HandleWebhook(context.Background(), signedYocoInput(yocoPaidBody))
	if !errors.Is(err, ErrWebhookEnqueueFailed) {
		t.Fatalf("expected enqueue failure, got %v", err)
	}
}

func TestWebhookDedupKeyFallsBackToOrderID(t *testing.T) {
	event := buildWebhookEvent("t1", "payfast", &WebhookVerification{
		Verified: true,
		Status:   gateway.StatusPaid,
		OrderID:  "ORD-7",
	}, []byte("m_payment_id=ORD-7"), time.Now())
	if event.DedupKey != "t1:payfast:ORD-7:PAID" {
		t.Fatalf("unexpected dedup key: %s", event.DedupKey)
	}
}

func TestWebhookDedupKeyWithoutIDsUsesBodyDigest(t *testing.T) {
	verification := &WebhookVerification{Verified: true, Status: gateway.StatusRefunded}
	first := buildWebhookEvent("t1", "stripe", verification, []byte(`{"id":"evt_1"}`), time.Now())
	second := buildWebhookEvent("t1", "stripe", verification, []byte(`{"id":"evt_2"}`), time.Now())
	redelivered := buildWebhookEvent("t1", "stripe", verification, []byte(`{"id":"evt_1"}`), time.Now())

	if first.DedupKey == second.DedupKey {
		t.Fatalf("distinct id-less events must not collide: %s", first.DedupKey)
	}
	if first.DedupKey != redelivered.DedupKey {
		t.Fatalf("redelivery should reuse the key: %s vs %s", first.DedupKey, redelivered.DedupKey)
	}
	// t1:stripe:body-<64 hex>:REFUNDED
	if want := len("t1:stripe:body-:REFUNDED") + 64; len(first.DedupKey) != want || first.PaymentID != "" {
		t.Fatalf("unexpected dedup key: %s", first.DedupKey)
	}
}

func TestReplayWebhookEventEnqueuesAgain(t *testing.T) {
	svc, enqueuer, _ := newTestWebhookService(t)
	enqueuer.err = errors.New("redis down")
	outcome, err := svc.HandleWebhook(context.Background(), signedYocoInput(yocoPaidBody))
	if !errors.Is(err, ErrWebhookEnqueueFailed) || outcome.Event == nil {
		t.Fatalf("expected stored event with enqueue failure, got %+v %v", outcome, err)
	}

	enqueuer.err = nil
	if _, err := svc.ReplayWebhookEvent(context.Background(), "t2", outcome.Event.ID); !errors.Is(err, ErrWebhookEventNotFound) {
		t.Fatalf("other tenant must not replay the event, got %v", err)
	}
	event, err := svc.ReplayWebhookEvent(context.Background(), "t1", outcome.Event.ID)
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if len(enqueuer.tasks) != 1 || enqueuer.tasks[0].payload.EventID != event.ID {
		t.Fatalf("unexpected tasks: %+v", enqueuer.tasks)
	}

	events, total, err := svc.ListWebhookEvents(context.Background(), repository.PaymentWebhookEventListFilter{TenantID: "t1", GatewayCode: "YOCO"})
	if err != nil || total != 1 || len(events) != 1 {
		t.Fatalf("unexpected listing: %d %v", total, err)
	}
}
