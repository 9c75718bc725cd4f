package payfast

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/bluewater-shop/storefront/internal/payment/gateway"
	"github.com/shopspring/decimal"
)

var md5Hex = regexp.MustCompile(`^[0-9a-f]{32}$`)

func testCreds() gateway.PayFastCredentials {
	return gateway.PayFastCredentials{
		MerchantID:  "10000100",
		MerchantKey: "46f0cd694581a",
		Passphrase:  "jt7NOE43FZPn",
	}
}

func TestSignReferenceValues(t *testing.T) {
	fields := map[string]string{
		"merchant_id":  "10000100",
		"merchant_key": "46f0cd694581a",
		"amount":       "1500.00",
		"item_name":    "Wetsuit 3mm",
		"m_payment_id": "ORD-1",
		"return_url":   "https://shop.example/success",
	}
	if got := Sign(fields, "jt7NOE43FZPn", true); got != "476b4e9921022332a656b127b56e06a9" {
		t.Fatalf("unexpected signature with passphrase: %s", got)
	}
	if got := Sign(fields, "", true); got != "48d68197bac3c5146713ecef235d8782" {
		t.Fatalf("unexpected signature without passphrase: %s", got)
	}

	fields["amount"] = "1500.01"
	if got := Sign(fields, "jt7NOE43FZPn", true); got != "039fd4a8ab5c0a14eaff57bcc82ccef7" {
		t.Fatalf("adjacent amount must change signature, got %s", got)
	}
}

func TestSignIgnoresSignatureField(t *testing.T) {
	fields := map[string]string{"amount": "10.00", "item_name": "Fins"}
	base := Sign(fields, "", true)
	fields["signature"] = "anything"
	if got := Sign(fields, "", true); got != base {
		t.Fatalf("signature field must be excluded: %s != %s", got, base)
	}
}

func TestCreatePaymentBuildsSignedForm(t *testing.T) {
	g := New(testCreds(), gateway.Options{WebhookURL: "https://shop.example/api/v1/payments/webhook/t1/payfast"})
	result, err := g.CreatePayment(context.Background(), gateway.PaymentParams{
		Amount:        decimal.NewFromInt(1500),
		Currency:      "ZAR",
		OrderID:       "ORD-1",
		OrderNumber:   "1001",
		CustomerEmail: "ann@example.com",
		CustomerName:  "Ann Lee",
		ItemName:      "Wetsuit 3mm",
		SuccessURL:    "https://shop.example/success",
		CancelURL:     "https://shop.example/cancel",
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if !result.Success || result.RedirectURL != "" || result.Error != "" {
		t.Fatalf("unexpected result shape: %+v", result)
	}
	if result.FormAction != "https://www.payfast.co.za/eng/process" {
		t.Fatalf("unexpected form action: %s", result.FormAction)
	}
	if result.FormData["amount"] != "1500.00" {
		t.Fatalf("expected major-unit amount, got %s", result.FormData["amount"])
	}
	if result.FormData["m_payment_id"] != "ORD-1" || result.PaymentID != "ORD-1" {
		t.Fatalf("unexpected payment id: %+v", result)
	}
	if result.FormData["notify_url"] != "https://shop.example/api/v1/payments/webhook/t1/payfast" {
		t.Fatalf("expected notify url fallback, got %s", result.FormData["notify_url"])
	}
	if _, ok := result.FormData["cell_number"]; ok {
		t.Fatalf("blank fields must be omitted")
	}
	sig := result.FormData["signature"]
	if !md5Hex.MatchString(sig) {
		t.Fatalf("expected 32-char hex signature, got %q", sig)
	}
	if sig != Sign(result.FormData, testCreds().Passphrase, true) {
		t.Fatalf("signature does not cover the form fields")
	}
}

func TestCreatePaymentSandboxHost(t *testing.T) {
	g := New(testCreds(), gateway.Options{Sandbox: true})
	result, err := g.CreatePayment(context.Background(), gateway.PaymentParams{
		Amount:   decimal.RequireFromString("19.99"),
		Currency: "ZAR",
		OrderID:  "ORD-2",
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if !strings.HasPrefix(result.FormAction, "https://sandbox.payfast.co.za") {
		t.Fatalf("expected sandbox host, got %s", result.FormAction)
	}
}

func TestCreatePaymentRejectsForeignCurrency(t *testing.T) {
	g := New(testCreds(), gateway.Options{})
	_, err := g.CreatePayment(context.Background(), gateway.PaymentParams{
		Amount:   decimal.NewFromInt(10),
		Currency: "USD",
		OrderID:  "ORD-3",
	})
	if !errors.Is(err, gateway.ErrInvalidParams) {
		t.Fatalf("expected invalid params, got %v", err)
	}
}

func itnBody(signature string) []byte {
	values := url.Values{}
	values.Set("m_payment_id", "ORD-1")
	values.Set("pf_payment_id", "1089250")
	values.Set("payment_status", "COMPLETE")
	values.Set("item_name", "Wetsuit 3mm")
	values.Set("item_description", "")
	values.Set("amount_gross", "1500.00")
	values.Set("amount_fee", "-34.50")
	values.Set("amount_net", "1465.50")
	values.Set("custom_str1", "")
	values.Set("name_first", "Ann")
	values.Set("name_last", "Lee")
	values.Set("email_address", "ann@example.com")
	values.Set("merchant_id", "10000100")
	if signature != "" {
		values.Set("signature", signature)
	}
	return []byte(values.Encode())
}

func TestVerifyWebhookValid(t *testing.T) {
	g := New(testCreds(), gateway.Options{})
	result := g.VerifyWebhook(context.Background(), gateway.WebhookData{Body: itnBody("9b8c03012756f7c168f70af3d46259d5")})
	if !result.Valid {
		t.Fatalf("expected valid webhook, got %+v", result)
	}
	if result.Status != gateway.StatusPaid {
		t.Fatalf("unexpected status: %s", result.Status)
	}
	if result.OrderID != "ORD-1" || result.PaymentID != "1089250" {
		t.Fatalf("unexpected ids: %+v", result)
	}
	if !result.Amount.Equal(decimal.RequireFromString("1500.00")) {
		t.Fatalf("unexpected amount: %s", result.Amount)
	}
	if result.Trust != gateway.TrustVerified {
		t.Fatalf("unexpected trust: %s", result.Trust)
	}
}

func TestVerifyWebhookTampered(t *testing.T) {
	g := New(testCreds(), gateway.Options{})
	body := strings.Replace(string(itnBody("9b8c03012756f7c168f70af3d46259d5")), "amount_gross=1500.00", "amount_gross=1.00", 1)
	result := g.VerifyWebhook(context.Background(), gateway.WebhookData{Body: []byte(body)})
	if result.Valid || result.Status != gateway.StatusFailed {
		t.Fatalf("expected tampered webhook to fail, got %+v", result)
	}
	if result.OrderID != "" || !result.Amount.IsZero() {
		t.Fatalf("invalid webhook must not expose payload fields: %+v", result)
	}
}

func TestVerifyWebhookMissingSignature(t *testing.T) {
	g := New(testCreds(), gateway.Options{})
	result := g.VerifyWebhook(context.Background(), gateway.WebhookData{Body: itnBody("")})
	if result.Valid || result.Error != gateway.InvalidWebhookMessage {
		t.Fatalf("expected missing signature to fail, got %+v", result)
	}
}

func TestVerifyWebhookSignatureIsCaseSensitive(t *testing.T) {
	g := New(testCreds(), gateway.Options{})
	result := g.VerifyWebhook(context.Background(), gateway.WebhookData{Body: itnBody("9B8C03012756F7C168F70AF3D46259D5")})
	if result.Valid {
		t.Fatalf("expected upper-case signature to be rejected")
	}
}

func TestAmountRoundTrip(t *testing.T) {
	g := New(testCreds(), gateway.Options{})
	for _, raw := range []string{"1500.00", "19.99", "999999.99"} {
		amount := decimal.RequireFromString(raw)
		wire := g.FormatAmount(amount, "ZAR")
		back, err := g.ParseAmount(wire)
		if err != nil || !back.Equal(amount) {
			t.Fatalf("round trip failed for %s: %s %v", raw, back, err)
		}
	}
}

func TestGetPaymentStatusUnsupported(t *testing.T) {
	g := New(testCreds(), gateway.Options{})
	_, err := g.GetPaymentStatus(context.Background(), "1089250")
	if err == nil || !strings.Contains(err.Error(), "does not support payment status polling") {
		t.Fatalf("expected polling unsupported error, got %v", err)
	}
	if !errors.Is(err, gateway.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestRefundUnsupported(t *testing.T) {
	g := New(testCreds(), gateway.Options{})
	amount := decimal.NewFromInt(5)
	for _, params := range []gateway.RefundParams{{}, {PaymentID: "1089250", Amount: &amount, Reason: "damaged"}} {
		if _, err := g.RefundPayment(context.Background(), params); !errors.Is(err, gateway.ErrUnsupported) {
			t.Fatalf("expected refund unsupported, got %v", err)
		}
	}
}

func TestMapStatus(t *testing.T) {
	cases := map[string]gateway.Status{
		"COMPLETE":  gateway.StatusPaid,
		"FAILED":    gateway.StatusFailed,
		"CANCELLED": gateway.StatusCancelled,
		"PENDING":   gateway.StatusPending,
		"SOMETHING": gateway.StatusPending,
	}
	for input, want := range cases {
		if got := MapStatus(input); got != want {
			t.Fatalf("status %s: expected %s, got %s", input, want, got)
		}
	}
}
