package gateway

import (
	"strings"
	"time"
)

// DefaultWebhookTolerance is the accepted clock skew for timestamped signatures.
const DefaultWebhookTolerance = 300 * time.Second

// Options are the per-instance settings an adapter is built with.
type Options struct {
	Sandbox    bool
	WebhookURL string
	// BaseURL replaces the provider API host, mainly for tests.
	BaseURL          string
	Timeout          time.Duration
	WebhookTolerance time.Duration
	Client           *HTTPClient
	Now              func() time.Time
}

// HTTP returns the configured client or a fresh one honoring Timeout.
func (o Options) HTTP() *HTTPClient {
	if o.Client != nil {
		return o.Client
	}
	return NewHTTPClient(o.Timeout)
}

// Clock returns the current time from Now, falling back to time.Now.
func (o Options) Clock() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Tolerance returns WebhookTolerance or the default.
func (o Options) Tolerance() time.Duration {
	if o.WebhookTolerance > 0 {
		return o.WebhookTolerance
	}
	return DefaultWebhookTolerance
}

// ResolveBaseURL picks BaseURL when set, else the sandbox or live host.
func (o Options) ResolveBaseURL(live, sandbox string) string {
	if base := strings.TrimRight(strings.TrimSpace(o.BaseURL), "/"); base != "" {
		return base
	}
	if o.Sandbox {
		return sandbox
	}
	return live
}
