// Package peach integrates Peach Payments through the OPPWA COPYandPAY API.
package peach

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bluewater-shop/storefront/internal/payment/gateway"
	"github.com/go-resty/resty/v2"
)

const (
	liveBaseURL    = "https://eu-prod.oppwa.com"
	sandboxBaseURL = "https://eu-test.oppwa.com"

	paymentTypeDebit  = "DB"
	paymentTypeRefund = "RF"
)

// Currencies lists what Peach settles for South African merchants.
var Currencies = []string{"ZAR", "USD", "EUR", "GBP", "KES", "MUR"}

// Gateway is the Peach adapter. OPPWA takes decimal strings.
type Gateway struct {
	gateway.MajorUnits
	creds  gateway.PeachCredentials
	opts   gateway.Options
	client *gateway.HTTPClient
}

var _ gateway.MajorUnitGateway = (*Gateway)(nil)

// New builds a Peach adapter.
func New(creds gateway.PeachCredentials, opts gateway.Options) *Gateway {
	return &Gateway{creds: creds, opts: opts, client: opts.HTTP()}
}

func (g *Gateway) Code() gateway.Code { return gateway.CodePeach }

// CreatePayment prepares a COPYandPAY checkout. The returned redirect URL
// loads the payment widget for that checkout.
func (g *Gateway) CreatePayment(ctx context.Context, params gateway.PaymentParams) (*gateway.PaymentResult, error) {
	if err := gateway.ValidateParams(params, Currencies, true); err != nil {
		return nil, err
	}
	currency := gateway.NormalizeCurrency(params.Currency)
	form := url.Values{}
	form.Set("entityId", g.creds.EntityID)
	form.Set("amount", g.FormatAmount(params.Amount, currency))
	form.Set("currency", currency)
	form.Set("paymentType", paymentTypeDebit)
	form.Set("merchantTransactionId", strings.TrimSpace(params.OrderID))
	form.Set("shopperResultUrl", strings.TrimSpace(params.SuccessURL))
	if invoice := strings.TrimSpace(params.OrderNumber); invoice != "" {
		form.Set("merchantInvoiceId", invoice)
	}
	if email := strings.TrimSpace(params.CustomerEmail); email != "" {
		form.Set("customer.email", email)
	}
	if parts := strings.Fields(params.CustomerName); len(parts) > 0 {
		form.Set("customer.givenName", parts[0])
		if len(parts) > 1 {
			form.Set("customer.surname", strings.Join(parts[1:], " "))
		}
	}
	if phone := strings.TrimSpace(params.CustomerPhone); phone != "" {
		form.Set("customer.mobile", phone)
	}
	if notify := firstNonEmpty(params.NotifyURL, g.opts.WebhookURL); notify != "" {
		form.Set("notificationUrl", notify)
	}
	for key, value := range params.Metadata {
		form.Set("customParameters["+key+"]", value)
	}

	resp, err := g.client.Execute(g.authorized(ctx).SetFormDataFromValues(form), http.MethodPost, g.baseURL()+"/v1/checkouts")
	if err != nil {
		return gateway.FailureFromError(gateway.CodePeach, err), nil
	}
	raw, decodeErr := gateway.DecodeRawMap(resp.Body)
	if !resp.OK() || decodeErr != nil {
		return gateway.Failure(gateway.CodePeach, gateway.StatusFailureKind(resp.StatusCode), resultMessage(raw, resp.StatusCode)), nil
	}
	checkoutID := gateway.ReadString(raw, "id")
	if checkoutID == "" || !strings.HasPrefix(resultCode(raw), "000.") {
		return gateway.Failure(gateway.CodePeach, gateway.FailureRejected, resultMessage(raw, resp.StatusCode)), nil
	}
	redirectURL := gateway.ReadString(gateway.ReadMap(raw, "redirect"), "url")
	if redirectURL == "" {
		redirectURL = g.baseURL() + "/v1/paymentWidgets.js?checkoutId=" + url.QueryEscape(checkoutID)
	}
	return gateway.Redirect(gateway.CodePeach, checkoutID, redirectURL), nil
}

// VerifyWebhook accepts the notification without a cryptographic check:
// OPPWA notifications carry no signature. The result is marked
// TrustUnsigned so callers confirm the status through GetPaymentStatus
// before acting on it.
func (g *Gateway) VerifyWebhook(ctx context.Context, data gateway.WebhookData) *gateway.WebhookResult {
	raw, err := gateway.DecodeRawMap(data.Body)
	if err != nil {
		return gateway.InvalidWebhook(gateway.CodePeach, "Invalid webhook payload")
	}
	payment := raw
	if payload := gateway.ReadMap(raw, "payload"); payload != nil {
		payment = payload
	}
	result := g.paymentResult(payment)
	result.RawData = raw
	result.Trust = gateway.TrustUnsigned
	return result
}

// GetPaymentStatus reads the payment attached to a checkout.
func (g *Gateway) GetPaymentStatus(ctx context.Context, paymentID string) (*gateway.WebhookResult, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id is required", gateway.ErrInvalidParams)
	}
	endpoint := fmt.Sprintf("%s/v1/checkouts/%s/payment?entityId=%s", g.baseURL(), url.PathEscape(paymentID), url.QueryEscape(g.creds.EntityID))
	resp, err := g.client.Execute(g.authorized(ctx), http.MethodGet, endpoint)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		// Error replies carry a result.code describing the request, not the payment.
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %w: query payment status %d", gateway.ErrResponseInvalid, gateway.ErrRequestFailed, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: query payment status %d", gateway.ErrResponseInvalid, resp.StatusCode)
	}
	raw, err := gateway.DecodeRawMap(resp.Body)
	if err != nil {
		return nil, err
	}
	result := g.paymentResult(raw)
	if isPendingPollCode(resultCode(raw)) {
		result.Status = gateway.StatusPending
	}
	result.PaymentID = paymentID
	result.RawData = raw
	result.Trust = gateway.TrustVerified
	return result, nil
}

// RefundPayment issues an RF transaction. paymentID is the checkout id
// returned by CreatePayment; the captured payment behind it is looked up
// first and its amount is refunded when none is given.
func (g *Gateway) RefundPayment(ctx context.Context, params gateway.RefundParams) (*gateway.RefundResult, error) {
	checkoutID := strings.TrimSpace(params.PaymentID)
	if checkoutID == "" {
		return nil, fmt.Errorf("%w: payment id is required", gateway.ErrInvalidParams)
	}
	status, err := g.GetPaymentStatus(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if status.Status != gateway.StatusPaid {
		return nil, fmt.Errorf("%w: payment %s is %s, not refundable", gateway.ErrInvalidParams, checkoutID, status.Status)
	}
	captureID := gateway.ReadString(status.RawData, "id")
	if captureID == "" {
		return nil, fmt.Errorf("%w: payment id missing from status response", gateway.ErrResponseInvalid)
	}
	amount := status.Amount
	if params.Amount != nil {
		amount = *params.Amount
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: refund amount must be greater than zero", gateway.ErrInvalidParams)
	}
	if amount.GreaterThan(status.Amount) && status.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: refund amount exceeds payment amount", gateway.ErrInvalidParams)
	}
	currency := firstNonEmpty(gateway.NormalizeCurrency(params.Currency), status.Currency, "ZAR")

	form := url.Values{}
	form.Set("entityId", g.creds.EntityID)
	form.Set("amount", g.FormatAmount(amount, currency))
	form.Set("currency", currency)
	form.Set("paymentType", paymentTypeRefund)
	if reason := strings.TrimSpace(params.Reason); reason != "" {
		form.Set("descriptor", reason)
	}
	resp, err := g.client.Execute(g.authorized(ctx).SetFormDataFromValues(form), http.MethodPost, g.baseURL()+"/v1/payments/"+url.PathEscape(captureID))
	if err != nil {
		return nil, err
	}
	raw, err := gateway.DecodeRawMap(resp.Body)
	if err != nil {
		return nil, err
	}
	result := &gateway.RefundResult{
		RefundID: gateway.ReadString(raw, "id"),
		Amount:   amount,
	}
	if strings.HasPrefix(resultCode(raw), "000.") {
		result.Success = true
		result.Status = gateway.RefundCompleted
		return result, nil
	}
	result.Status = gateway.RefundFailed
	result.Error = resultMessage(raw, resp.StatusCode)
	return result, nil
}

// MapResultCode maps an OPPWA result.code to the canonical enum by prefix.
func MapResultCode(code string) gateway.Status {
	code = strings.TrimSpace(code)
	switch {
	case code == "":
		return gateway.StatusPending
	case strings.HasPrefix(code, "000."):
		return gateway.StatusPaid
	case strings.HasPrefix(code, "100."):
		return gateway.StatusPending
	case strings.HasPrefix(code, "800."):
		return gateway.StatusCancelled
	default:
		return gateway.StatusFailed
	}
}

// isPendingPollCode reports 000.200.* codes, which the status endpoint returns
// for a checkout that exists but has not been paid.
func isPendingPollCode(code string) bool {
	return strings.HasPrefix(strings.TrimSpace(code), "000.200.")
}

func (g *Gateway) paymentResult(payment map[string]interface{}) *gateway.WebhookResult {
	result := &gateway.WebhookResult{
		Valid:       true,
		OrderID:     gateway.ReadString(payment, "merchantTransactionId"),
		PaymentID:   firstNonEmpty(gateway.ReadString(payment, "ndc"), gateway.ReadString(payment, "id")),
		Status:      MapResultCode(resultCode(payment)),
		Currency:    gateway.NormalizeCurrency(gateway.ReadString(payment, "currency")),
		GatewayCode: gateway.CodePeach,
	}
	if paymentType := gateway.ReadString(payment, "paymentType"); paymentType == paymentTypeRefund && result.Status == gateway.StatusPaid {
		result.Status = gateway.StatusRefunded
	}
	if rawAmount := gateway.ReadString(payment, "amount"); rawAmount != "" {
		if amount, err := g.ParseAmount(rawAmount); err == nil {
			result.Amount = amount
		}
	}
	return result
}

func (g *Gateway) authorized(ctx context.Context) *resty.Request {
	return g.client.Request(ctx).SetAuthToken(g.creds.AccessToken)
}

func (g *Gateway) baseURL() string {
	return g.opts.ResolveBaseURL(liveBaseURL, sandboxBaseURL)
}

func resultCode(raw map[string]interface{}) string {
	return gateway.ReadString(gateway.ReadMap(raw, "result"), "code")
}

func resultMessage(raw map[string]interface{}, statusCode int) string {
	result := gateway.ReadMap(raw, "result")
	if desc := gateway.ReadString(result, "description"); desc != "" {
		return fmt.Sprintf("peach: %s (%s)", desc, gateway.ReadString(result, "code"))
	}
	return fmt.Sprintf("peach: request rejected with status %d", statusCode)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
