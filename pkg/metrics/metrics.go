package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authrouter", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authrouter", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	// LoginResults counts completed callbacks by provider and outcome
	// (success | provider_error | state_mismatch | store_error | token_error).
	LoginResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authrouter", Name: "login_results_total", Help: "Login callbacks by provider and outcome."},
		[]string{"provider", "outcome"},
	)
	UsersCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authrouter", Name: "users_created_total", Help: "Users created on first login, by provider."},
		[]string{"provider"},
	)
	GateRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "authrouter", Name: "session_gate_rejected_total", Help: "Requests rejected by the session token gate."},
		[]string{"reason"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(LoginResults)
	reg.MustRegister(UsersCreated)
	reg.MustRegister(GateRejected)
}
