package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for login attempts.
const (
	OutcomeRedirected    = "redirected"
	OutcomeAuthenticated = "authenticated"
	OutcomeRejected      = "rejected"
)

var loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "oauthlogin_attempts_total",
	Help: "Login attempts by outcome.",
}, []string{"outcome"})

// RecordLogin increments the attempt counter for an outcome.
func RecordLogin(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}
