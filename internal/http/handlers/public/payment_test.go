package public

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bluewater-shop/storefront/internal/config"
	"github.com/bluewater-shop/storefront/internal/models"
	"github.com/bluewater-shop/storefront/internal/payment"
	"github.com/bluewater-shop/storefront/internal/payment/gateway"
	"github.com/bluewater-shop/storefront/internal/provider"
	"github.com/bluewater-shop/storefront/internal/repository"
	"github.com/bluewater-shop/storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testYocoWebhookSecret = "whsec_public"

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func newTestPublicRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:public_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.TenantGateway{}, &models.PaymentWebhookEvent{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	rows := []models.TenantGateway{
		{
			TenantID:    "t1",
			GatewayCode: "payfast",
			Credentials: models.JSONFromStrings(map[string]string{
				"merchant_id":  "10000100",
				"merchant_key": "46f0cd694581a",
				"passphrase":   "jt7NOE43FZPn",
			}),
			IsEnabled:    true,
			IsDefault:    true,
			IsSandbox:    true,
			DisplayOrder: 1,
		},
		{
			TenantID:    "t1",
			GatewayCode: "yoco",
			Credentials: models.JSONFromStrings(map[string]string{
				"secret_key":     "sk_test_yoco",
				"webhook_secret": testYocoWebhookSecret,
			}),
			IsEnabled:    true,
			DisplayOrder: 2,
		},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed gateway failed: %v", err)
		}
	}

	cfg := &config.Config{Server: config.ServerConfig{PublicBaseURL: "https://shop.example/"}}
	paymentSvc := service.NewTenantPaymentService(repository.NewTenantGatewayRepository(db), payment.NewFactory(payment.FactoryOptions{}), time.Minute)
	h := New(&provider.Container{
		Config:               cfg,
		TenantPaymentService: paymentSvc,
		PaymentWebhookService: service.NewPaymentWebhookService(
			paymentSvc,
			repository.NewPaymentWebhookEventRepository(db),
			nil,
			time.Minute,
		),
	})

	r := gin.New()
	r.GET("/tenants/:tenant_id/gateways", h.ListTenantGateways)
	r.POST("/tenants/:tenant_id/payments", h.CreatePayment)
	r.POST("/webhook/:tenant_id/:gateway_code", h.PaymentWebhook)
	return r
}

func doRequest(t *testing.T, r *gin.Engine, method, target, body string, headers map[string]string) envelope {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode envelope failed: %v", err)
	}
	return resp
}

func TestListTenantGatewaysHandler(t *testing.T) {
	r := newTestPublicRouter(t)
	resp := doRequest(t, r, http.MethodGet, "/tenants/t1/gateways", "", nil)
	var data struct {
		TenantID string                         `json:"tenant_id"`
		Gateways []service.TenantGatewaySummary `json:"gateways"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode data failed: %v", err)
	}
	if data.TenantID != "t1" || len(data.Gateways) != 2 || data.Gateways[0].Code != gateway.CodePayFast || !data.Gateways[0].IsDefault {
		t.Fatalf("unexpected gateways: %+v", data)
	}
}

func TestCreatePaymentUsesDefaultGatewayAndNotifyURL(t *testing.T) {
	r := newTestPublicRouter(t)
	resp := doRequest(t, r, http.MethodPost, "/tenants/t1/payments",
		`{"amount":"1500","currency":"ZAR","order_id":"ORD-1","item_name":"Gift box"}`, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("create payment failed: %+v", resp)
	}
	var data struct {
		Payment gateway.PaymentResult `json:"payment"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		t.Fatalf("decode data failed: %v", err)
	}
	if data.Payment.FormAction != "https://sandbox.payfast.co.za/eng/process" {
		t.Fatalf("unexpected form action: %s", data.Payment.FormAction)
	}
	if got := data.Payment.FormData["notify_url"]; got != "https://shop.example/api/v1/payments/webhook/t1/payfast" {
		t.Fatalf("unexpected notify url: %s", got)
	}
	if data.Payment.FormData["amount"] != "1500.00" {
		t.Fatalf("unexpected amount: %s", data.Payment.FormData["amount"])
	}
}

func TestCreatePaymentFailuresAreUnprocessable(t *testing.T) {
	r := newTestPublicRouter(t)
	resp := doRequest(t, r, http.MethodPost, "/tenants/t1/payments", `{"amount":"0","currency":"ZAR","order_id":"ORD-1"}`, nil)
	if resp.StatusCode != 422 {
		t.Fatalf("zero amount want 422 got %+v", resp)
	}
	resp = doRequest(t, r, http.MethodPost, "/tenants/t9/payments", `{"amount":"10","currency":"ZAR","order_id":"ORD-1"}`, nil)
	if resp.StatusCode != 422 || resp.Msg != service.NoGatewayConfiguredMessage {
		t.Fatalf("unconfigured tenant want 422 got %+v", resp)
	}
	resp = doRequest(t, r, http.MethodPost, "/tenants/t1/payments", `{"amount":"10"}`, nil)
	if resp.StatusCode != 400 {
		t.Fatalf("missing fields want 400 got %+v", resp)
	}
}

func TestPaymentWebhookAlwaysAcknowledges(t *testing.T) {
	r := newTestPublicRouter(t)
	body := `{"id":"evt_1","type":"payment.succeeded","payload":{"id":"p_1","amount":150000,"currency":"ZAR","status":"succeeded","metadata":{"checkoutId":"ch_1","orderId":"ORD-1"}}}`

	type ack struct {
		Accepted  bool   `json:"accepted"`
		Duplicate bool   `json:"duplicate"`
		Verified  bool   `json:"verified"`
		Status    string `json:"status"`
		Error     string `json:"error"`
	}
	decode := func(resp envelope) ack {
		var out ack
		if err := json.Unmarshal(resp.Data, &out); err != nil {
			t.Fatalf("decode ack failed: %v", err)
		}
		return out
	}

	forged := decode(doRequest(t, r, http.MethodPost, "/webhook/t1/yoco", body, map[string]string{
		"yoco-signature": gateway.HMACSHA256Hex("guess", []byte(body)),
	}))
	if forged.Accepted || forged.Error != gateway.InvalidWebhookMessage {
		t.Fatalf("forged webhook should be rejected in the envelope: %+v", forged)
	}

	signed := map[string]string{"yoco-signature": gateway.HMACSHA256Hex(testYocoWebhookSecret, []byte(body))}
	first := decode(doRequest(t, r, http.MethodPost, "/webhook/t1/YOCO", body, signed))
	if !first.Accepted || first.Duplicate || !first.Verified || first.Status != "PAID" {
		t.Fatalf("unexpected first ack: %+v", first)
	}
	second := decode(doRequest(t, r, http.MethodPost, "/webhook/t1/yoco", body, signed))
	if !second.Accepted || !second.Duplicate {
		t.Fatalf("replay should be a duplicate: %+v", second)
	}
}
