// Package metrics holds the Prometheus collectors for payment traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Payment attempt outcomes.
const (
	OutcomeCreated      = "created"
	OutcomeRejected     = "rejected"
	OutcomeAmbiguous    = "ambiguous"
	OutcomeInvalid      = "invalid_params"
	OutcomeUnconfigured = "unconfigured"
)

// Webhook verification results.
const (
	WebhookVerified  = "verified"
	WebhookUnsigned  = "unsigned"
	WebhookRejected  = "rejected"
	WebhookDuplicate = "duplicate"
	WebhookNoGateway = "unconfigured"
)

var (
	paymentAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Checkout payment attempts by gateway and outcome.",
	}, []string{"gateway", "outcome"})

	webhookVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_verifications_total",
		Help: "Inbound payment webhooks by gateway and verification result.",
	}, []string{"gateway", "result"})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payment_gateway_request_duration_seconds",
		Help:    "Latency of gateway operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"gateway", "operation"})

	statusSyncJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_status_sync_jobs_total",
		Help: "Background status sync and confirmation jobs by kind and result.",
	}, []string{"kind", "result"})
)

func label(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

// PaymentAttempt counts one ProcessPayment call.
func PaymentAttempt(gateway, outcome string) {
	paymentAttempts.WithLabelValues(label(gateway), outcome).Inc()
}

// WebhookVerification counts one inbound webhook.
func WebhookVerification(gateway, result string) {
	webhookVerifications.WithLabelValues(label(gateway), result).Inc()
}

// ObserveGatewayRequest records how long a gateway operation took.
func ObserveGatewayRequest(gateway, operation string, seconds float64) {
	gatewayRequestDuration.WithLabelValues(label(gateway), operation).Observe(seconds)
}

// StatusSyncJob counts one finished background job.
func StatusSyncJob(kind, result string) {
	statusSyncJobs.WithLabelValues(kind, result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
