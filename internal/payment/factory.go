// Package payment builds gateway adapters from stored tenant configuration.
package payment

import (
	"fmt"
	"strings"
	"time"

	"github.com/bluewater-shop/storefront/internal/payment/gateway"
	"github.com/bluewater-shop/storefront/internal/payment/ikhokha"
	"github.com/bluewater-shop/storefront/internal/payment/payfast"
	"github.com/bluewater-shop/storefront/internal/payment/peach"
	"github.com/bluewater-shop/storefront/internal/payment/stripe"
	"github.com/bluewater-shop/storefront/internal/payment/yoco"
)

// GatewayConfig is one tenant's stored configuration for one gateway.
type GatewayConfig struct {
	Credentials map[string]string
	IsSandbox   bool
	WebhookURL  string
}

// FactoryOptions are service-wide adapter settings.
type FactoryOptions struct {
	Timeout          time.Duration
	WebhookTolerance time.Duration
	// BaseURLs overrides provider hosts per gateway, mainly for tests.
	BaseURLs map[gateway.Code]string
	Now      func() time.Time
}

// Factory builds a fresh adapter per call. Adapters are never shared across tenants.
type Factory struct {
	opts   FactoryOptions
	client *gateway.HTTPClient
}

// NewFactory creates a factory.
func NewFactory(opts FactoryOptions) *Factory {
	return &Factory{opts: opts, client: gateway.NewHTTPClient(opts.Timeout)}
}

var defaultFactory = NewFactory(FactoryOptions{})

// CreateGateway builds the adapter for code with the package default settings.
func CreateGateway(code string, cfg GatewayConfig) (gateway.Gateway, error) {
	return defaultFactory.CreateGateway(code, cfg)
}

// CreateGateway resolves code to a gateway variant, decodes its typed
// credentials and builds the adapter. Unknown codes fail with
// *gateway.UnknownGatewayError; there is no fallback gateway.
func (f *Factory) CreateGateway(code string, cfg GatewayConfig) (gateway.Gateway, error) {
	parsed, err := gateway.ParseCode(code)
	if err != nil {
		return nil, err
	}
	creds, err := gateway.DecodeCredentials(parsed, cfg.Credentials)
	if err != nil {
		return nil, err
	}
	return f.Build(gateway.Config{
		Code:        parsed,
		Credentials: creds,
		IsSandbox:   cfg.IsSandbox,
		WebhookURL:  strings.TrimSpace(cfg.WebhookURL),
	})
}

// Build constructs an adapter from an already typed configuration.
func (f *Factory) Build(cfg gateway.Config) (gateway.Gateway, error) {
	if cfg.Credentials != nil && cfg.Code != "" && cfg.Credentials.GatewayCode() != cfg.Code {
		return nil, fmt.Errorf("%w: %s credentials supplied for %s", gateway.ErrCredentialsInvalid, cfg.Credentials.GatewayCode(), cfg.Code)
	}
	opts := f.options(cfg)
	switch creds := cfg.Credentials.(type) {
	case gateway.PayFastCredentials:
		return payfast.New(creds, opts), nil
	case gateway.YocoCredentials:
		return yoco.New(creds, opts), nil
	case gateway.PeachCredentials:
		return peach.New(creds, opts), nil
	case gateway.IKhokhaCredentials:
		return ikhokha.New(creds, opts), nil
	case gateway.StripeCredentials:
		return stripe.New(creds, opts), nil
	case nil:
		return nil, fmt.Errorf("%w: credentials are required", gateway.ErrCredentialsInvalid)
	default:
		return nil, &gateway.UnknownGatewayError{Code: string(cfg.Code)}
	}
}

func (f *Factory) options(cfg gateway.Config) gateway.Options {
	opts := gateway.Options{
		Sandbox:          cfg.IsSandbox,
		WebhookURL:       cfg.WebhookURL,
		Timeout:          f.opts.Timeout,
		WebhookTolerance: f.opts.WebhookTolerance,
		Client:           f.client,
		Now:              f.opts.Now,
	}
	if cfg.Credentials != nil {
		opts.BaseURL = f.opts.BaseURLs[cfg.Credentials.GatewayCode()]
	}
	return opts
}
