package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	authDecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fortiban_auth_decisions_total",
		Help: "Total number of API gate decisions by outcome",
	}, []string{"outcome"})
	bansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fortiban_bans_total",
		Help: "Total number of ban requests by backend and result",
	}, []string{"backend", "result"})
	upstreamUp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fortiban_upstream_up",
		Help: "Whether the last probe of an upstream succeeded (1) or failed (0)",
	}, []string{"upstream"})
)

// Auth gate outcomes.
const (
	OutcomeAdmitKey       = "admit_key"
	OutcomeAdmitWhitelist = "admit_whitelist"
	OutcomeDenied         = "denied"
	OutcomeError          = "error"
)

// Register registers Prometheus collectors. Call once at startup.
func Register(registry prometheus.Registerer) {
	registry.MustRegister(authDecisionsTotal, bansTotal, upstreamUp)
}

// IncAuthDecision increments the gate decision counter.
func IncAuthDecision(outcome string) { authDecisionsTotal.WithLabelValues(outcome).Inc() }

// IncBan counts a ban attempt against backend ("firewall" or "blocklist").
func IncBan(backend string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	bansTotal.WithLabelValues(backend, result).Inc()
}

// SetUpstreamUp records the last probe result for upstream.
func SetUpstreamUp(upstream string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	upstreamUp.WithLabelValues(upstream).Set(v)
}
