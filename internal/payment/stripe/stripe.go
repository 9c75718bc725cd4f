// Package stripe integrates Stripe Checkout Sessions.
package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bluewater-shop/storefront/internal/payment/gateway"
	"github.com/go-resty/resty/v2"
)

const (
	defaultAPIBaseURL = "https://api.stripe.com"
	signatureHeader   = "Stripe-Signature"
)

// Currencies lists the presentment currencies offered at checkout.
var Currencies = []string{"ZAR", "USD", "EUR", "GBP", "AUD", "NZD", "JPY"}

var refundReasons = map[string]struct{}{
	"duplicate":             {},
	"fraudulent":            {},
	"requested_by_customer": {},
}

// Gateway is the Stripe adapter. Stripe amounts are integer minor units,
// with zero-decimal currencies sent as whole units.
type Gateway struct {
	gateway.MinorUnits
	creds  gateway.StripeCredentials
	opts   gateway.Options
	client *gateway.HTTPClient
}

var _ gateway.MinorUnitGateway = (*Gateway)(nil)

// New builds a Stripe adapter. Stripe test and live modes share a host;
// the key prefix selects the mode.
func New(creds gateway.StripeCredentials, opts gateway.Options) *Gateway {
	return &Gateway{creds: creds, opts: opts, client: opts.HTTP()}
}

func (g *Gateway) Code() gateway.Code { return gateway.CodeStripe }

// CreatePayment creates a hosted Checkout Session.
func (g *Gateway) CreatePayment(ctx context.Context, params gateway.PaymentParams) (*gateway.PaymentResult, error) {
	if err := gateway.ValidateParams(params, Currencies, true); err != nil {
		return nil, err
	}
	currency := gateway.NormalizeCurrency(params.Currency)
	minorAmount, err := g.ToMinor(params.Amount, currency)
	if err != nil {
		return nil, err
	}
	orderID := strings.TrimSpace(params.OrderID)
	subject := strings.TrimSpace(params.ItemName)
	if subject == "" {
		subject = "Order " + firstNonEmpty(params.OrderNumber, orderID)
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", strings.TrimSpace(params.SuccessURL))
	form.Set("cancel_url", strings.TrimSpace(params.CancelURL))
	form.Set("client_reference_id", orderID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(minorAmount, 10))
	form.Set("line_items[0][price_data][product_data][name]", subject)
	if desc := strings.TrimSpace(params.ItemDescription); desc != "" {
		form.Set("line_items[0][price_data][product_data][description]", desc)
	}
	if email := strings.TrimSpace(params.CustomerEmail); email != "" {
		form.Set("customer_email", email)
	}
	for key, value := range params.Metadata {
		form.Set("metadata["+key+"]", value)
		form.Set("payment_intent_data[metadata]["+key+"]", value)
	}
	form.Set("metadata[order_id]", orderID)
	form.Set("payment_intent_data[metadata][order_id]", orderID)
	if number := strings.TrimSpace(params.OrderNumber); number != "" {
		form.Set("metadata[order_number]", number)
		form.Set("payment_intent_data[metadata][order_number]", number)
	}
	form.Add("payment_method_types[]", "card")

	req := g.authorized(ctx).
		SetHeader("Idempotency-Key", "checkout-"+orderID+"-"+strconv.FormatInt(minorAmount, 10)).
		SetFormDataFromValues(form)
	resp, err := g.client.Execute(req, http.MethodPost, g.baseURL()+"/v1/checkout/sessions")
	if err != nil {
		return gateway.FailureFromError(gateway.CodeStripe, err), nil
	}
	raw, decodeErr := gateway.DecodeRawMap(resp.Body)
	if !resp.OK() || decodeErr != nil {
		return gateway.Failure(gateway.CodeStripe, gateway.StatusFailureKind(resp.StatusCode), errorMessage(raw, resp.StatusCode)), nil
	}
	sessionID := gateway.ReadString(raw, "id")
	sessionURL := gateway.ReadString(raw, "url")
	if sessionID == "" || sessionURL == "" {
		return gateway.Failure(gateway.CodeStripe, gateway.FailureRejected, "stripe response missing session id or url"), nil
	}
	return gateway.Redirect(gateway.CodeStripe, sessionID, sessionURL), nil
}

// VerifyWebhook checks the Stripe-Signature header (t=..., v1=...) against
// HMAC-SHA256("{t}.{body}") and rejects timestamps outside the tolerance.
func (g *Gateway) VerifyWebhook(ctx context.Context, data gateway.WebhookData) *gateway.WebhookResult {
	if len(data.Body) == 0 || g.creds.WebhookSecret == "" {
		return gateway.InvalidWebhook(gateway.CodeStripe, "")
	}
	header := data.SignatureOr(signatureHeader)
	if header == "" {
		return gateway.InvalidWebhook(gateway.CodeStripe, "")
	}
	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return gateway.InvalidWebhook(gateway.CodeStripe, "")
	}
	expected := computeSignature(g.creds.WebhookSecret, timestamp, data.Body)
	matched := false
	for _, sig := range signatures {
		if gateway.SecureCompare(expected, sig) {
			matched = true
		}
	}
	if !matched {
		return gateway.InvalidWebhook(gateway.CodeStripe, "")
	}
	delta := math.Abs(float64(g.opts.Clock().Unix() - timestamp))
	if delta > g.opts.Tolerance().Seconds() {
		return gateway.InvalidWebhook(gateway.CodeStripe, "Webhook timestamp outside tolerance")
	}

	eventRaw, err := gateway.DecodeRawMap(data.Body)
	if err != nil {
		return gateway.InvalidWebhook(gateway.CodeStripe, "Invalid webhook payload")
	}
	eventType := gateway.ReadString(eventRaw, "type")
	objectRaw := gateway.ReadMap(gateway.ReadMap(eventRaw, "data"), "object")
	if eventType == "" || objectRaw == nil {
		return gateway.InvalidWebhook(gateway.CodeStripe, "Invalid webhook payload")
	}
	result := g.objectResult(eventType, objectRaw)
	result.RawData = eventRaw
	return result
}

// GetPaymentStatus reads a Checkout Session (cs_) or PaymentIntent (pi_).
func (g *Gateway) GetPaymentStatus(ctx context.Context, paymentID string) (*gateway.WebhookResult, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id is required", gateway.ErrInvalidParams)
	}
	var path string
	switch {
	case strings.HasPrefix(paymentID, "cs_"):
		path = "/v1/checkout/sessions/" + url.PathEscape(paymentID)
	case strings.HasPrefix(paymentID, "pi_"):
		path = "/v1/payment_intents/" + url.PathEscape(paymentID)
	default:
		return nil, fmt.Errorf("%w: unrecognised stripe id %q", gateway.ErrInvalidParams, paymentID)
	}
	resp, err := g.client.Execute(g.authorized(ctx), http.MethodGet, g.baseURL()+path)
	if err != nil {
		return nil, err
	}
	raw, err := gateway.DecodeRawMap(resp.Body)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: %s", gateway.ErrResponseInvalid, errorMessage(raw, resp.StatusCode))
	}
	result := g.objectResult("", raw)
	result.RawData = raw
	return result, nil
}

// RefundPayment refunds the PaymentIntent behind a session or intent id.
func (g *Gateway) RefundPayment(ctx context.Context, params gateway.RefundParams) (*gateway.RefundResult, error) {
	paymentID := strings.TrimSpace(params.PaymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id is required", gateway.ErrInvalidParams)
	}
	intentID := paymentID
	currency := gateway.NormalizeCurrency(params.Currency)
	if !strings.HasPrefix(paymentID, "pi_") {
		status, err := g.GetPaymentStatus(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		intentID = readPaymentIntentID(status.RawData)
		if intentID == "" {
			return nil, fmt.Errorf("%w: session %s has no payment intent", gateway.ErrInvalidParams, paymentID)
		}
		if currency == "" {
			currency = status.Currency
		}
	}

	form := url.Values{}
	form.Set("payment_intent", intentID)
	if params.Amount != nil {
		if currency == "" {
			return nil, fmt.Errorf("%w: currency is required for partial refunds", gateway.ErrInvalidParams)
		}
		minor, err := g.ToMinor(*params.Amount, currency)
		if err != nil {
			return nil, err
		}
		form.Set("amount", strconv.FormatInt(minor, 10))
	}
	if reason := strings.TrimSpace(params.Reason); reason != "" {
		if _, ok := refundReasons[reason]; ok {
			form.Set("reason", reason)
		} else {
			form.Set("metadata[reason]", reason)
		}
	}
	resp, err := g.client.Execute(g.authorized(ctx).SetFormDataFromValues(form), http.MethodPost, g.baseURL()+"/v1/refunds")
	if err != nil {
		return nil, err
	}
	raw, err := gateway.DecodeRawMap(resp.Body)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return &gateway.RefundResult{Status: gateway.RefundFailed, Error: errorMessage(raw, resp.StatusCode)}, nil
	}
	refundCurrency := firstNonEmpty(gateway.NormalizeCurrency(gateway.ReadString(raw, "currency")), currency)
	result := &gateway.RefundResult{
		RefundID: gateway.ReadString(raw, "id"),
		Amount:   g.FromMinor(gateway.ReadInt64(raw, "amount"), refundCurrency),
	}
	switch gateway.ReadString(raw, "status") {
	case "succeeded", "pending":
		result.Success = true
		result.Status = gateway.RefundCompleted
	default:
		result.Status = gateway.RefundFailed
		result.Error = "stripe: refund " + gateway.ReadString(raw, "status")
	}
	return result, nil
}

func (g *Gateway) objectResult(eventType string, objectRaw map[string]interface{}) *gateway.WebhookResult {
	metadata := gateway.ReadMap(objectRaw, "metadata")
	currency := gateway.NormalizeCurrency(gateway.ReadString(objectRaw, "currency"))
	result := &gateway.WebhookResult{
		Valid:       true,
		OrderID:     gateway.ReadString(metadata, "order_id"),
		Currency:    currency,
		GatewayCode: gateway.CodeStripe,
		Trust:       gateway.TrustVerified,
	}

	switch gateway.ReadString(objectRaw, "object") {
	case "checkout.session":
		result.PaymentID = gateway.ReadString(objectRaw, "id")
		if result.OrderID == "" {
			result.OrderID = gateway.ReadString(objectRaw, "client_reference_id")
		}
		result.Amount = g.FromMinor(gateway.ReadInt64(objectRaw, "amount_total"), currency)
		result.Status = mapCheckoutSessionStatus(gateway.ReadString(objectRaw, "payment_status"), gateway.ReadString(objectRaw, "status"))
		if status, ok := mapEventTypeStatus(eventType); ok && eventType != "checkout.session.completed" {
			result.Status = status
		}
	case "payment_intent":
		result.PaymentID = gateway.ReadString(objectRaw, "id")
		amountMinor := gateway.ReadInt64(objectRaw, "amount_received")
		if amountMinor <= 0 {
			amountMinor = gateway.ReadInt64(objectRaw, "amount")
		}
		result.Amount = g.FromMinor(amountMinor, currency)
		result.Status = mapPaymentIntentStatus(gateway.ReadString(objectRaw, "status"))
		if status, ok := mapEventTypeStatus(eventType); ok {
			result.Status = status
		}
	case "charge":
		result.PaymentID = firstNonEmpty(readPaymentIntentID(objectRaw), gateway.ReadString(objectRaw, "id"))
		result.Amount = g.FromMinor(gateway.ReadInt64(objectRaw, "amount_refunded"), currency)
		result.Status = gateway.StatusPending
		if status, ok := mapEventTypeStatus(eventType); ok {
			result.Status = status
		}
	default:
		result.PaymentID = gateway.ReadString(objectRaw, "id")
		result.Status = gateway.StatusPending
		if status, ok := mapEventTypeStatus(eventType); ok {
			result.Status = status
		}
	}
	return result
}

func mapEventTypeStatus(eventType string) (gateway.Status, bool) {
	switch strings.ToLower(strings.TrimSpace(eventType)) {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded", "payment_intent.succeeded":
		return gateway.StatusPaid, true
	case "checkout.session.expired", "payment_intent.canceled":
		return gateway.StatusCancelled, true
	case "checkout.session.async_payment_failed", "payment_intent.payment_failed":
		return gateway.StatusFailed, true
	case "payment_intent.processing":
		return gateway.StatusPending, true
	case "charge.refunded":
		return gateway.StatusRefunded, true
	default:
		return "", false
	}
}

func mapCheckoutSessionStatus(paymentStatus string, sessionStatus string) gateway.Status {
	paymentStatus = strings.ToLower(strings.TrimSpace(paymentStatus))
	sessionStatus = strings.ToLower(strings.TrimSpace(sessionStatus))
	if paymentStatus == "paid" {
		return gateway.StatusPaid
	}
	if sessionStatus == "expired" {
		return gateway.StatusCancelled
	}
	if sessionStatus == "complete" && paymentStatus == "no_payment_required" {
		return gateway.StatusPaid
	}
	return gateway.StatusPending
}

func mapPaymentIntentStatus(status string) gateway.Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "succeeded":
		return gateway.StatusPaid
	case "canceled":
		return gateway.StatusCancelled
	case "requires_payment_method":
		return gateway.StatusFailed
	default:
		return gateway.StatusPending
	}
}

func (g *Gateway) authorized(ctx context.Context) *resty.Request {
	return g.client.Request(ctx).SetAuthToken(g.creds.SecretKey)
}

func (g *Gateway) baseURL() string {
	return g.opts.ResolveBaseURL(defaultAPIBaseURL, defaultAPIBaseURL)
}

func errorMessage(raw map[string]interface{}, statusCode int) string {
	if msg := gateway.ReadString(gateway.ReadMap(raw, "error"), "message"); msg != "" {
		return "stripe: " + msg
	}
	return fmt.Sprintf("stripe: request rejected with status %d", statusCode)
}

func readPaymentIntentID(raw map[string]interface{}) string {
	if raw == nil {
		return ""
	}
	switch typed := raw["payment_intent"].(type) {
	case string:
		return strings.TrimSpace(typed)
	case map[string]interface{}:
		return gateway.ReadString(typed, "id")
	default:
		return ""
	}
}

func computeSignature(secret string, timestamp int64, body []byte) string {
	payload := strconv.FormatInt(timestamp, 10) + "." + string(body)
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write([]byte(payload))
	return hex.EncodeToString(h.Sum(nil))
}

func parseSignatureHeader(signatureHeader string) (int64, []string, error) {
	timestamp := int64(0)
	signatures := make([]string, 0)
	for _, part := range strings.Split(signatureHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		value := strings.TrimSpace(kv[1])
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil || parsed <= 0 {
				return 0, nil, fmt.Errorf("%w: invalid timestamp", gateway.ErrSignatureInvalid)
			}
			timestamp = parsed
		case "v1":
			if value != "" {
				signatures = append(signatures, strings.ToLower(value))
			}
		}
	}
	if timestamp <= 0 {
		return 0, nil, fmt.Errorf("%w: timestamp is missing", gateway.ErrSignatureInvalid)
	}
	if len(signatures) == 0 {
		return 0, nil, fmt.Errorf("%w: v1 signature is missing", gateway.ErrSignatureInvalid)
	}
	return timestamp, signatures, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
