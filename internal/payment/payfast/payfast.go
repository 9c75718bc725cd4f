// Package payfast builds PayFast hosted-form payments and verifies ITN callbacks.
package payfast

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"

	"github.com/bluewater-shop/storefront/internal/payment/gateway"
)

const (
	liveHost    = "https://www.payfast.co.za"
	sandboxHost = "https://sandbox.payfast.co.za"
	processPath = "/eng/process"
)

// Currencies lists what PayFast settles.
var Currencies = []string{"ZAR"}

// Gateway is the PayFast adapter. PayFast takes decimal Rand strings.
type Gateway struct {
	gateway.MajorUnits
	creds gateway.PayFastCredentials
	opts  gateway.Options
}

var _ gateway.MajorUnitGateway = (*Gateway)(nil)

// New builds a PayFast adapter.
func New(creds gateway.PayFastCredentials, opts gateway.Options) *Gateway {
	return &Gateway{creds: creds, opts: opts}
}

func (g *Gateway) Code() gateway.Code { return gateway.CodePayFast }

// ProcessURL is the form action the buyer's browser posts to.
func (g *Gateway) ProcessURL() string {
	return g.opts.ResolveBaseURL(liveHost, sandboxHost) + processPath
}

// CreatePayment signs the checkout fields. No HTTP call is made; the caller
// renders FormData as an auto-submitted form to FormAction.
func (g *Gateway) CreatePayment(ctx context.Context, params gateway.PaymentParams) (*gateway.PaymentResult, error) {
	if err := gateway.ValidateParams(params, Currencies, false); err != nil {
		return nil, err
	}
	orderID := strings.TrimSpace(params.OrderID)
	itemName := strings.TrimSpace(params.ItemName)
	if itemName == "" {
		itemName = "Order " + firstNonEmpty(params.OrderNumber, orderID)
	}
	notifyURL := firstNonEmpty(params.NotifyURL, g.opts.WebhookURL)
	firstName, lastName := splitName(params.CustomerName)

	fields := map[string]string{
		"merchant_id":      g.creds.MerchantID,
		"merchant_key":     g.creds.MerchantKey,
		"return_url":       strings.TrimSpace(params.SuccessURL),
		"cancel_url":       strings.TrimSpace(params.CancelURL),
		"notify_url":       notifyURL,
		"name_first":       firstName,
		"name_last":        lastName,
		"email_address":    strings.TrimSpace(params.CustomerEmail),
		"cell_number":      strings.TrimSpace(params.CustomerPhone),
		"m_payment_id":     orderID,
		"amount":           g.FormatAmount(params.Amount, params.Currency),
		"item_name":        truncate(itemName, 100),
		"item_description": truncate(strings.TrimSpace(params.ItemDescription), 255),
		"custom_str1":      strings.TrimSpace(params.OrderNumber),
	}
	for key := range fields {
		if strings.TrimSpace(fields[key]) == "" {
			delete(fields, key)
		}
	}
	fields["signature"] = Sign(fields, g.creds.Passphrase, true)

	return gateway.FormPost(gateway.CodePayFast, orderID, g.ProcessURL(), fields), nil
}

// VerifyWebhook validates an ITN post. The signature covers every posted
// field except signature itself.
func (g *Gateway) VerifyWebhook(ctx context.Context, data gateway.WebhookData) *gateway.WebhookResult {
	values, err := url.ParseQuery(string(data.Body))
	if err != nil || len(values) == 0 {
		return gateway.InvalidWebhook(gateway.CodePayFast, "Invalid webhook payload")
	}
	fields := make(map[string]string, len(values))
	for key, list := range values {
		if len(list) > 0 {
			fields[key] = list[0]
		}
	}
	received := strings.TrimSpace(firstNonEmpty(data.Signature, fields["signature"]))
	if received == "" {
		return gateway.InvalidWebhook(gateway.CodePayFast, "")
	}
	delete(fields, "signature")
	expected := Sign(fields, g.creds.Passphrase, false)
	if !gateway.SecureCompare(expected, received) {
		return gateway.InvalidWebhook(gateway.CodePayFast, "")
	}
	if merchant := strings.TrimSpace(fields["merchant_id"]); merchant != "" && merchant != g.creds.MerchantID {
		return gateway.InvalidWebhook(gateway.CodePayFast, "Webhook merchant mismatch")
	}

	raw := make(map[string]interface{}, len(fields))
	for key, value := range fields {
		raw[key] = value
	}
	result := &gateway.WebhookResult{
		Valid:       true,
		OrderID:     strings.TrimSpace(fields["m_payment_id"]),
		PaymentID:   strings.TrimSpace(fields["pf_payment_id"]),
		Status:      MapStatus(fields["payment_status"]),
		Currency:    "ZAR",
		GatewayCode: gateway.CodePayFast,
		Trust:       gateway.TrustVerified,
		RawData:     raw,
	}
	if gross := strings.TrimSpace(fields["amount_gross"]); gross != "" {
		if amount, err := g.ParseAmount(gross); err == nil {
			result.Amount = amount
		}
	}
	return result
}

// GetPaymentStatus is not offered by PayFast; state arrives via ITN only.
func (g *Gateway) GetPaymentStatus(ctx context.Context, paymentID string) (*gateway.WebhookResult, error) {
	return nil, &gateway.UnsupportedError{
		Gateway:   gateway.CodePayFast,
		Operation: "payment status polling",
		Hint:      "rely on ITN webhooks for payment state",
	}
}

func (g *Gateway) RefundPayment(ctx context.Context, params gateway.RefundParams) (*gateway.RefundResult, error) {
	return nil, &gateway.UnsupportedError{
		Gateway:   gateway.CodePayFast,
		Operation: "refunds via API",
		Hint:      "issue the refund from the PayFast merchant dashboard",
	}
}

// Sign computes the PayFast MD5 signature: keys sorted, values URL encoded
// with + for spaces, passphrase appended when configured. With skipBlank,
// empty values are left out as PayFast does for checkout forms.
func Sign(fields map[string]string, passphrase string, skipBlank bool) string {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		if key == "signature" {
			continue
		}
		if skipBlank && strings.TrimSpace(fields[key]) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	for _, key := range keys {
		parts = append(parts, key+"="+url.QueryEscape(strings.TrimSpace(fields[key])))
	}
	if passphrase = strings.TrimSpace(passphrase); passphrase != "" {
		parts = append(parts, "passphrase="+url.QueryEscape(passphrase))
	}
	sum := md5.Sum([]byte(strings.Join(parts, "&")))
	return hex.EncodeToString(sum[:])
}

// MapStatus maps an ITN payment_status to the canonical enum.
func MapStatus(status string) gateway.Status {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "COMPLETE":
		return gateway.StatusPaid
	case "FAILED":
		return gateway.StatusFailed
	case "CANCELLED":
		return gateway.StatusCancelled
	default:
		return gateway.StatusPending
	}
}

func splitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}
