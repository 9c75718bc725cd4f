// Package gateway holds the contracts shared by every payment provider adapter.
package gateway

import (
	"context"
	"strings"
)

// Code identifies a supported payment provider.
type Code string

const (
	CodePayFast Code = "payfast"
	CodeYoco    Code = "yoco"
	CodePeach   Code = "peach"
	CodeIKhokha Code = "ikhokha"
	CodeStripe  Code = "stripe"
)

var allCodes = []Code{CodePayFast, CodeYoco, CodePeach, CodeIKhokha, CodeStripe}

// AllCodes returns the supported gateway codes in display order.
func AllCodes() []Code {
	out := make([]Code, len(allCodes))
	copy(out, allCodes)
	return out
}

// Valid reports whether c is one of the supported gateway codes.
func (c Code) Valid() bool {
	for _, item := range allCodes {
		if item == c {
			return true
		}
	}
	return false
}

// ParseCode normalizes raw and rejects anything that is not a supported gateway.
func ParseCode(raw string) (Code, error) {
	code := Code(strings.ToLower(strings.TrimSpace(raw)))
	if !code.Valid() {
		return "", &UnknownGatewayError{Code: strings.TrimSpace(raw)}
	}
	return code, nil
}

// Status is the canonical payment status every adapter maps into.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusFailed    Status = "FAILED"
	StatusRefunded  Status = "REFUNDED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no further transition is expected from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusPaid, StatusFailed, StatusRefunded, StatusCancelled:
		return true
	default:
		return false
	}
}

// RefundStatus is the canonical refund outcome.
type RefundStatus string

const (
	RefundCompleted RefundStatus = "COMPLETED"
	RefundFailed    RefundStatus = "FAILED"
)

// Gateway is the capability every provider adapter implements.
//
// CreatePayment returns an error only when the params themselves are unusable
// (ErrInvalidParams). Provider and transport failures come back as a
// PaymentResult with Success=false. VerifyWebhook never returns an error and
// never trusts payload fields before the signature check passes.
type Gateway interface {
	Code() Code
	CreatePayment(ctx context.Context, params PaymentParams) (*PaymentResult, error)
	VerifyWebhook(ctx context.Context, data WebhookData) *WebhookResult
	GetPaymentStatus(ctx context.Context, paymentID string) (*WebhookResult, error)
	RefundPayment(ctx context.Context, params RefundParams) (*RefundResult, error)
}
