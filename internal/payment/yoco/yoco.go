// Package yoco integrates the Yoco online checkout API.
package yoco

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bluewater-shop/storefront/internal/payment/gateway"
)

const (
	defaultBaseURL  = "https://payments.yoco.com"
	checkoutsPath   = "/api/checkouts"
	signatureHeader = "yoco-signature"
)

// Currencies lists what Yoco settles.
var Currencies = []string{"ZAR"}

// Gateway is the Yoco adapter. Yoco amounts are integer cents. Yoco uses the
// same host for test and live keys; the key prefix selects the mode.
type Gateway struct {
	gateway.MinorUnits
	creds  gateway.YocoCredentials
	opts   gateway.Options
	client *gateway.HTTPClient
}

var _ gateway.MinorUnitGateway = (*Gateway)(nil)

// New builds a Yoco adapter.
func New(creds gateway.YocoCredentials, opts gateway.Options) *Gateway {
	return &Gateway{creds: creds, opts: opts, client: opts.HTTP()}
}

func (g *Gateway) Code() gateway.Code { return gateway.CodeYoco }

type checkoutRequest struct {
	Amount     int64             `json:"amount"`
	Currency   string            `json:"currency"`
	SuccessURL string            `json:"successUrl"`
	CancelURL  string            `json:"cancelUrl"`
	FailureURL string            `json:"failureUrl"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (g *Gateway) CreatePayment(ctx context.Context, params gateway.PaymentParams) (*gateway.PaymentResult, error) {
	if err := gateway.ValidateParams(params, Currencies, true); err != nil {
		return nil, err
	}
	currency := gateway.NormalizeCurrency(params.Currency)
	cents, err := g.ToMinor(params.Amount, currency)
	if err != nil {
		return nil, err
	}
	metadata := map[string]string{
		"orderId":     strings.TrimSpace(params.OrderID),
		"orderNumber": strings.TrimSpace(params.OrderNumber),
	}
	for key, value := range params.Metadata {
		if _, reserved := metadata[key]; !reserved {
			metadata[key] = value
		}
	}
	payload := checkoutRequest{
		Amount:     cents,
		Currency:   currency,
		SuccessURL: strings.TrimSpace(params.SuccessURL),
		CancelURL:  strings.TrimSpace(params.CancelURL),
		FailureURL: strings.TrimSpace(params.CancelURL),
		Metadata:   metadata,
	}

	req := g.client.Request(ctx).
		SetAuthToken(g.creds.SecretKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Idempotency-Key", "order-"+strings.TrimSpace(params.OrderID)).
		SetBody(payload)
	resp, err := g.client.Execute(req, http.MethodPost, g.baseURL()+checkoutsPath)
	if err != nil {
		return gateway.FailureFromError(gateway.CodeYoco, err), nil
	}
	if !resp.OK() {
		return gateway.Failure(gateway.CodeYoco, gateway.StatusFailureKind(resp.StatusCode), providerMessage(resp)), nil
	}
	raw, err := gateway.DecodeRawMap(resp.Body)
	if err != nil {
		return gateway.FailureFromError(gateway.CodeYoco, err), nil
	}
	checkoutID := gateway.ReadString(raw, "id")
	redirectURL := gateway.ReadString(raw, "redirectUrl")
	if checkoutID == "" || redirectURL == "" {
		return gateway.Failure(gateway.CodeYoco, gateway.FailureRejected, "yoco response missing checkout id or redirect url"), nil
	}
	return gateway.Redirect(gateway.CodeYoco, checkoutID, redirectURL), nil
}

// VerifyWebhook checks the hex HMAC-SHA256 of the raw body against the
// yoco-signature header before reading any field.
func (g *Gateway) VerifyWebhook(ctx context.Context, data gateway.WebhookData) *gateway.WebhookResult {
	received := strings.ToLower(data.SignatureOr(signatureHeader))
	if received == "" || len(data.Body) == 0 || g.creds.WebhookSecret == "" {
		return gateway.InvalidWebhook(gateway.CodeYoco, "")
	}
	expected := gateway.HMACSHA256Hex(g.creds.WebhookSecret, data.Body)
	if !gateway.SecureCompare(expected, received) {
		return gateway.InvalidWebhook(gateway.CodeYoco, "")
	}

	raw, err := gateway.DecodeRawMap(data.Body)
	if err != nil {
		return gateway.InvalidWebhook(gateway.CodeYoco, "Invalid webhook payload")
	}
	payload := gateway.ReadMap(raw, "payload")
	metadata := gateway.ReadMap(payload, "metadata")
	currency := gateway.NormalizeCurrency(gateway.ReadString(payload, "currency"))

	status := mapEventType(gateway.ReadString(raw, "type"))
	if status == "" {
		status = MapStatus(gateway.ReadString(payload, "status"))
	}
	paymentID := gateway.ReadString(metadata, "checkoutId")
	if paymentID == "" {
		paymentID = gateway.ReadString(payload, "id")
	}
	return &gateway.WebhookResult{
		Valid:       true,
		OrderID:     gateway.ReadString(metadata, "orderId"),
		PaymentID:   paymentID,
		Status:      status,
		Amount:      g.FromMinor(gateway.ReadInt64(payload, "amount"), currency),
		Currency:    currency,
		GatewayCode: gateway.CodeYoco,
		Trust:       gateway.TrustVerified,
		RawData:     raw,
	}
}

// GetPaymentStatus reads a checkout by id.
func (g *Gateway) GetPaymentStatus(ctx context.Context, paymentID string) (*gateway.WebhookResult, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id is required", gateway.ErrInvalidParams)
	}
	req := g.client.Request(ctx).SetAuthToken(g.creds.SecretKey)
	resp, err := g.client.Execute(req, http.MethodGet, g.baseURL()+checkoutsPath+"/"+url.PathEscape(paymentID))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: query checkout status %d", gateway.ErrResponseInvalid, resp.StatusCode)
	}
	raw, err := gateway.DecodeRawMap(resp.Body)
	if err != nil {
		return nil, err
	}
	currency := gateway.NormalizeCurrency(gateway.ReadString(raw, "currency"))
	metadata := gateway.ReadMap(raw, "metadata")
	return &gateway.WebhookResult{
		Valid:       true,
		OrderID:     gateway.ReadString(metadata, "orderId"),
		PaymentID:   gateway.ReadString(raw, "id"),
		Status:      MapStatus(gateway.ReadString(raw, "status")),
		Amount:      g.FromMinor(gateway.ReadInt64(raw, "amount"), currency),
		Currency:    currency,
		GatewayCode: gateway.CodeYoco,
		Trust:       gateway.TrustVerified,
		RawData:     raw,
	}, nil
}

func (g *Gateway) RefundPayment(ctx context.Context, params gateway.RefundParams) (*gateway.RefundResult, error) {
	return nil, &gateway.UnsupportedError{
		Gateway:   gateway.CodeYoco,
		Operation: "refunds via API",
		Hint:      "issue the refund from the Yoco business portal",
	}
}

// MapStatus maps Yoco checkout and payment statuses to the canonical enum.
func MapStatus(status string) gateway.Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "succeeded", "completed", "paid":
		return gateway.StatusPaid
	case "failed":
		return gateway.StatusFailed
	case "cancelled", "canceled", "expired", "abandoned":
		return gateway.StatusCancelled
	case "refunded":
		return gateway.StatusRefunded
	default:
		return gateway.StatusPending
	}
}

func mapEventType(eventType string) gateway.Status {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "payment.succeeded":
		return gateway.StatusPaid
	case "payment.failed":
		return gateway.StatusFailed
	case "refund.succeeded":
		return gateway.StatusRefunded
	default:
		return ""
	}
}

func (g *Gateway) baseURL() string {
	return g.opts.ResolveBaseURL(defaultBaseURL, defaultBaseURL)
}

func providerMessage(resp *gateway.Response) string {
	var body struct {
		Message        string `json:"message"`
		DisplayMessage string `json:"displayMessage"`
		Description    string `json:"description"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		for _, msg := range []string{body.DisplayMessage, body.Message, body.Description} {
			if strings.TrimSpace(msg) != "" {
				return "yoco: " + strings.TrimSpace(msg)
			}
		}
	}
	return fmt.Sprintf("yoco: checkout request rejected with status %d", resp.StatusCode)
}
