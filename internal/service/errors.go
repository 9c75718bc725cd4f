package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrTenantRequired               = errors.New("tenant id is required")
	ErrGatewayNotConfigured         = errors.New("payment gateway not configured")
	ErrGatewayCredentialsIncomplete = errors.New("gateway credentials incomplete")
	ErrTenantGatewayNotFound        = errors.New("tenant gateway not found")
	ErrDefaultGatewayDisabled       = errors.New("default gateway must be enabled")
	ErrWebhookEnqueueFailed         = errors.New("webhook enqueue failed")
	ErrWebhookEventNotFound         = errors.New("webhook event not found")
	ErrOrderSyncFailed              = errors.New("order sync failed")
	ErrOrderSyncRejected            = errors.New("order sync rejected")
)

// NoGatewayConfiguredMessage is the checkout failure shown when a tenant has no usable gateway.
const NoGatewayConfiguredMessage = "No payment gateway configured"

// CredentialsIncompleteError lists the required credential fields that are missing.
type CredentialsIncompleteError struct {
	GatewayCode   string
	MissingFields []string
}

func (e *CredentialsIncompleteError) Error() string {
	return fmt.Sprintf("%s credentials missing: %s", e.GatewayCode, strings.Join(e.MissingFields, ", "))
}

// Is matches ErrGatewayCredentialsIncomplete.
func (e *CredentialsIncompleteError) Is(target error) bool {
	return target == ErrGatewayCredentialsIncomplete
}
