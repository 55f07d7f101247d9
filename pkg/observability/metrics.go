// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the portier authentication service.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portier_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portier_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// AuthAttemptsTotal counts Authorization header evaluations by scheme
	// (bearer, basic, other, none) and outcome (authenticated, guest, rejected).
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portier_auth_attempts_total",
			Help: "Authentication attempts",
		},
		[]string{"scheme", "outcome"},
	)

	// TokenVerificationsTotal counts token verifications by strategy
	// (key_set, secret) and result (verified, rejected).
	TokenVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portier_token_verifications_total",
			Help: "Token verifications",
		},
		[]string{"strategy", "result"},
	)

	// TokensIssuedTotal counts minted tokens by signing algorithm.
	TokensIssuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portier_tokens_issued_total",
			Help: "Tokens issued",
		},
		[]string{"algorithm"},
	)

	// ClaimCoercionFallbacksTotal counts claims kept in stringified form
	// because no typed decoding applied.
	ClaimCoercionFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portier_claim_coercion_fallbacks_total",
			Help: "Claims decoded with the string fallback",
		},
	)

	// TenantSwitchesTotal counts tenant transitions within executions.
	TenantSwitchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portier_tenant_switches_total",
			Help: "Tenant switches",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthAttemptsTotal,
		TokenVerificationsTotal,
		TokensIssuedTotal,
		ClaimCoercionFallbacksTotal,
		TenantSwitchesTotal,
	)
}
