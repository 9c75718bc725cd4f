// Package ikhokha integrates iKhokha iK Pay payment links.
package ikhokha

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
	defaultBaseURL  = "https://api.ikhokha.com"
	apiPrefix       = "/public-api/v1/api"
	signatureHeader = "x-signature"

	responseCodeOK = "00"
)

// Currencies lists what iKhokha settles.
var Currencies = []string{"ZAR"}

// Gateway is the iKhokha adapter. iK Pay amounts are integer cents.
type Gateway struct {
	gateway.MinorUnits
	creds  gateway.IKhokhaCredentials
	opts   gateway.Options
	client *gateway.HTTPClient
}

var _ gateway.MinorUnitGateway = (*Gateway)(nil)

// New builds an iKhokha adapter.
func New(creds gateway.IKhokhaCredentials, opts gateway.Options) *Gateway {
	return &Gateway{creds: creds, opts: opts, client: opts.HTTP()}
}

func (g *Gateway) Code() gateway.Code { return gateway.CodeIKhokha }

type paylinkURLs struct {
	CallbackURL    string `json:"callbackUrl,omitempty"`
	SuccessPageURL string `json:"successPageUrl"`
	FailurePageURL string `json:"failurePageUrl"`
	CancelURL      string `json:"cancelUrl"`
}

type paylinkRequest struct {
	EntityID              string      `json:"entityID"`
	ExternalEntityID      string      `json:"externalEntityID,omitempty"`
	Amount                int64       `json:"amount"`
	Currency              string      `json:"currency"`
	RequesterURL          string      `json:"requesterUrl,omitempty"`
	Mode                  string      `json:"mode"`
	Description           string      `json:"description"`
	PaymentReference      string      `json:"paymentReference"`
	ExternalTransactionID string      `json:"externalTransactionID"`
	URLs                  paylinkURLs `json:"urls"`
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
	orderID := strings.TrimSpace(params.OrderID)
	description := strings.TrimSpace(params.ItemName)
	if description == "" {
		description = "Order " + firstNonEmpty(params.OrderNumber, orderID)
	}
	mode := "live"
	if g.opts.Sandbox {
		mode = "test"
	}
	body, err := json.Marshal(paylinkRequest{
		EntityID:              g.creds.ApplicationID,
		Amount:                cents,
		Currency:              currency,
		Mode:                  mode,
		Description:           description,
		PaymentReference:      firstNonEmpty(params.OrderNumber, orderID),
		ExternalTransactionID: orderID,
		URLs: paylinkURLs{
			CallbackURL:    firstNonEmpty(params.NotifyURL, g.opts.WebhookURL),
			SuccessPageURL: strings.TrimSpace(params.SuccessURL),
			FailurePageURL: strings.TrimSpace(params.CancelURL),
			CancelURL:      strings.TrimSpace(params.CancelURL),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode paylink request failed", gateway.ErrInvalidParams)
	}

	resp, err := g.signedExecute(ctx, http.MethodPost, apiPrefix+"/payment", body)
	if err != nil {
		return gateway.FailureFromError(gateway.CodeIKhokha, err), nil
	}
	raw, decodeErr := gateway.DecodeRawMap(resp.Body)
	if !resp.OK() || decodeErr != nil {
		return gateway.Failure(gateway.CodeIKhokha, gateway.StatusFailureKind(resp.StatusCode), providerMessage(raw, resp.StatusCode)), nil
	}
	if code := gateway.ReadString(raw, "responseCode"); code != "" && code != responseCodeOK {
		return gateway.Failure(gateway.CodeIKhokha, gateway.FailureRejected, providerMessage(raw, resp.StatusCode)), nil
	}
	paylinkID := gateway.ReadString(raw, "paylinkID")
	paylinkURL := gateway.ReadString(raw, "paylinkUrl")
	if paylinkID == "" || paylinkURL == "" {
		return gateway.Failure(gateway.CodeIKhokha, gateway.FailureRejected, "ikhokha response missing paylink id or url"), nil
	}
	return gateway.Redirect(gateway.CodeIKhokha, paylinkID, paylinkURL), nil
}

// VerifyWebhook checks the hex HMAC-SHA256 of the raw body against x-signature.
func (g *Gateway) VerifyWebhook(ctx context.Context, data gateway.WebhookData) *gateway.WebhookResult {
	received := strings.ToLower(data.SignatureOr(signatureHeader))
	if received == "" || len(data.Body) == 0 || g.creds.ApplicationSecret == "" {
		return gateway.InvalidWebhook(gateway.CodeIKhokha, "")
	}
	expected := gateway.HMACSHA256Hex(g.creds.ApplicationSecret, data.Body)
	if !gateway.SecureCompare(expected, received) {
		return gateway.InvalidWebhook(gateway.CodeIKhokha, "")
	}
	raw, err := gateway.DecodeRawMap(data.Body)
	if err != nil {
		return gateway.InvalidWebhook(gateway.CodeIKhokha, "Invalid webhook payload")
	}
	return g.paylinkResult(raw)
}

// GetPaymentStatus reads a paylink by id.
func (g *Gateway) GetPaymentStatus(ctx context.Context, paymentID string) (*gateway.WebhookResult, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return nil, fmt.Errorf("%w: payment id is required", gateway.ErrInvalidParams)
	}
	resp, err := g.signedExecute(ctx, http.MethodGet, apiPrefix+"/payment/"+url.PathEscape(paymentID), nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, fmt.Errorf("%w: query paylink status %d", gateway.ErrResponseInvalid, resp.StatusCode)
	}
	raw, err := gateway.DecodeRawMap(resp.Body)
	if err != nil {
		return nil, err
	}
	result := g.paylinkResult(raw)
	if result.PaymentID == "" {
		result.PaymentID = paymentID
	}
	return result, nil
}

func (g *Gateway) RefundPayment(ctx context.Context, params gateway.RefundParams) (*gateway.RefundResult, error) {
	return nil, &gateway.UnsupportedError{
		Gateway:   gateway.CodeIKhokha,
		Operation: "refunds via API",
		Hint:      "issue the refund from the iKhokha dashboard",
	}
}

// MapStatus maps iK Pay paylink statuses to the canonical enum.
func MapStatus(status string) gateway.Status {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "SUCCESS", "PAID", "COMPLETED":
		return gateway.StatusPaid
	case "FAILED", "DECLINED":
		return gateway.StatusFailed
	case "CANCELLED", "CANCELED", "EXPIRED":
		return gateway.StatusCancelled
	case "REFUNDED":
		return gateway.StatusRefunded
	default:
		return gateway.StatusPending
	}
}

// Sign returns the IK-SIGN header value for a request path and body.
func Sign(secret, path string, body []byte) string {
	payload := make([]byte, 0, len(path)+len(body))
	payload = append(payload, path...)
	payload = append(payload, body...)
	return gateway.HMACSHA256Hex(secret, payload)
}

func (g *Gateway) signedExecute(ctx context.Context, method, path string, body []byte) (*gateway.Response, error) {
	req := g.client.Request(ctx).
		SetHeader("IK-APPID", g.creds.ApplicationID).
		SetHeader("IK-SIGN", Sign(g.creds.ApplicationSecret, path, body))
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	return g.client.Execute(req, method, g.opts.ResolveBaseURL(defaultBaseURL, defaultBaseURL)+path)
}

func (g *Gateway) paylinkResult(raw map[string]interface{}) *gateway.WebhookResult {
	currency := firstNonEmpty(gateway.NormalizeCurrency(gateway.ReadString(raw, "currency")), "ZAR")
	return &gateway.WebhookResult{
		Valid:       true,
		OrderID:     gateway.ReadString(raw, "externalTransactionID"),
		PaymentID:   gateway.ReadString(raw, "paylinkID"),
		Status:      MapStatus(gateway.ReadString(raw, "status")),
		Amount:      g.FromMinor(gateway.ReadInt64(raw, "amount"), currency),
		Currency:    currency,
		GatewayCode: gateway.CodeIKhokha,
		Trust:       gateway.TrustVerified,
		RawData:     raw,
	}
}

func providerMessage(raw map[string]interface{}, statusCode int) string {
	if msg := gateway.ReadString(raw, "message"); msg != "" {
		return "ikhokha: " + msg
	}
	return fmt.Sprintf("ikhokha: paylink request rejected with status %d", statusCode)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
