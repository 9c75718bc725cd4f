package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Config is the per-tenant gateway configuration handed to an adapter.
// It is read-only input; adapters never mutate it.
type Config struct {
	Code        Code
	Credentials Credentials
	IsSandbox   bool
	WebhookURL  string
}

// PaymentParams describes a checkout. Amount is always in major units;
// adapters own any conversion to the provider's unit.
type PaymentParams struct {
	Amount          decimal.Decimal
	Currency        string
	OrderID         string
	OrderNumber     string
	CustomerEmail   string
	CustomerName    string
	CustomerPhone   string
	ItemName        string
	ItemDescription string
	SuccessURL      string
	CancelURL       string
	NotifyURL       string
	Metadata        map[string]string
}

// ValidateParams checks the fields every adapter relies on.
func ValidateParams(params PaymentParams, currencies []string, requireReturnURLs bool) error {
	if !params.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidParams)
	}
	currency := NormalizeCurrency(params.Currency)
	if currency == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidParams)
	}
	if len(currencies) > 0 && !containsCurrency(currencies, currency) {
		return fmt.Errorf("%w: currency %s is not supported", ErrInvalidParams, currency)
	}
	if strings.TrimSpace(params.OrderID) == "" {
		return fmt.Errorf("%w: order_id is required", ErrInvalidParams)
	}
	if requireReturnURLs {
		if strings.TrimSpace(params.SuccessURL) == "" {
			return fmt.Errorf("%w: success_url is required", ErrInvalidParams)
		}
		if strings.TrimSpace(params.CancelURL) == "" {
			return fmt.Errorf("%w: cancel_url is required", ErrInvalidParams)
		}
	}
	return nil
}

// NormalizeCurrency upper-cases and trims an ISO 4217 code.
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

func containsCurrency(list []string, currency string) bool {
	for _, item := range list {
		if strings.EqualFold(item, currency) {
			return true
		}
	}
	return false
}

// FailureKind tells reconciliation how to treat an unsuccessful create.
type FailureKind string

const (
	// FailureRejected means the provider definitely did not create a payment.
	FailureRejected FailureKind = "rejected"
	// FailureAmbiguous means the provider may have created a payment; poll before retrying.
	FailureAmbiguous FailureKind = "ambiguous"
)

// PaymentResult carries exactly one of a redirect URL, a form post or an error.
type PaymentResult struct {
	Success     bool              `json:"success"`
	GatewayCode Code              `json:"gateway_code,omitempty"`
	PaymentID   string            `json:"payment_id,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	FormAction  string            `json:"form_action,omitempty"`
	FormData    map[string]string `json:"form_data,omitempty"`
	Error       string            `json:"error,omitempty"`
	FailureKind FailureKind       `json:"failure_kind,omitempty"`
}

// Redirect builds a successful result that sends the buyer to url.
func Redirect(code Code, paymentID, url string) *PaymentResult {
	return &PaymentResult{
		Success:     true,
		GatewayCode: code,
		PaymentID:   paymentID,
		RedirectURL: url,
	}
}

// FormPost builds a successful result the caller renders as an auto-submitted form.
func FormPost(code Code, paymentID, action string, fields map[string]string) *PaymentResult {
	return &PaymentResult{
		Success:     true,
		GatewayCode: code,
		PaymentID:   paymentID,
		FormAction:  action,
		FormData:    fields,
	}
}

// Failure builds an unsuccessful result.
func Failure(code Code, kind FailureKind, message string) *PaymentResult {
	if kind == "" {
		kind = FailureRejected
	}
	return &PaymentResult{
		Success:     false,
		GatewayCode: code,
		Error:       message,
		FailureKind: kind,
	}
}

// StatusFailureKind classifies a non-2xx provider reply. A 5xx may follow a
// payment the provider already created.
func StatusFailureKind(statusCode int) FailureKind {
	if statusCode >= 500 {
		return FailureAmbiguous
	}
	return FailureRejected
}

// FailureFromError builds an unsuccessful result, marking timeouts ambiguous.
func FailureFromError(code Code, err error) *PaymentResult {
	kind := FailureRejected
	if errors.Is(err, ErrAmbiguous) {
		kind = FailureAmbiguous
	}
	msg := "payment request failed"
	if err != nil {
		msg = err.Error()
	}
	return Failure(code, kind, msg)
}

// WebhookData is an inbound notification exactly as received.
type WebhookData struct {
	Body      []byte
	Headers   map[string]string
	Signature string
}

// Header looks up a header case-insensitively.
func (d WebhookData) Header(key string) string {
	if len(d.Headers) == 0 || strings.TrimSpace(key) == "" {
		return ""
	}
	for h, value := range d.Headers {
		if strings.EqualFold(strings.TrimSpace(h), key) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// SignatureOr returns the explicit signature override, else the named header.
func (d WebhookData) SignatureOr(header string) string {
	if sig := strings.TrimSpace(d.Signature); sig != "" {
		return sig
	}
	return d.Header(header)
}

// Trust records how a webhook result was authenticated.
type Trust string

const (
	TrustVerified Trust = "verified"
	// TrustUnsigned marks results from providers that offer no webhook signature.
	TrustUnsigned Trust = "unsigned"
)

// WebhookResult is the canonical outcome of a webhook or status poll.
type WebhookResult struct {
	Valid       bool                   `json:"valid"`
	OrderID     string                 `json:"order_id,omitempty"`
	PaymentID   string                 `json:"payment_id,omitempty"`
	Status      Status                 `json:"status"`
	Amount      decimal.Decimal        `json:"amount"`
	Currency    string                 `json:"currency,omitempty"`
	GatewayCode Code                   `json:"gateway_code"`
	Trust       Trust                  `json:"trust,omitempty"`
	RawData     map[string]interface{} `json:"raw_data,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// InvalidWebhookMessage is the error reported for any failed signature check.
const InvalidWebhookMessage = "Invalid webhook signature"

// InvalidWebhook builds a rejected result. Nothing from the payload is copied.
func InvalidWebhook(code Code, message string) *WebhookResult {
	if message == "" {
		message = InvalidWebhookMessage
	}
	return &WebhookResult{
		Valid:       false,
		Status:      StatusFailed,
		GatewayCode: code,
		Error:       message,
	}
}

// RefundParams requests a full refund when Amount is nil.
type RefundParams struct {
	PaymentID string
	Amount    *decimal.Decimal
	Reason    string
	Currency  string
}

// RefundResult is the canonical refund outcome.
type RefundResult struct {
	Success  bool            `json:"success"`
	RefundID string          `json:"refund_id,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Status   RefundStatus    `json:"status"`
	Error    string          `json:"error,omitempty"`
}
