package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "eventic"

var (
	admissionDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_decisions_total",
			Help:      "Admission decisions by category and validator role",
		},
		[]string{"category", "role"},
	)

	admissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "admission_duration_seconds",
			Help:      "Time to reach an admission decision",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"category"},
	)

	effectsAssigned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "effects_assigned_total",
			Help:      "Thematic effects won on first grants",
		},
		[]string{"effect"},
	)

	goldenTickets = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "golden_tickets_total",
			Help:      "Golden tickets drawn",
		},
	)

	locationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "location_requests_total",
			Help:      "Validator location requests by outcome",
		},
		[]string{"outcome"},
	)

	credentialsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credentials_issued_total",
			Help:      "Ticket credentials issued or regenerated",
		},
	)

	outboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_messages_total",
			Help:      "Outbox messages handled by the relay",
		},
		[]string{"status"},
	)
)

// Location request outcomes
const (
	LocationResolved = "resolved"
	LocationDenied   = "denied"
	LocationTimeout  = "timeout"
)

// ObserveDecision tracks one terminal admission decision
func ObserveDecision(category, role string, elapsed time.Duration) {
	if role == "" {
		role = "none"
	}
	admissionDecisions.WithLabelValues(category, role).Inc()
	admissionDuration.WithLabelValues(category).Observe(elapsed.Seconds())
}

// EffectAssigned tracks a won thematic effect
func EffectAssigned(effect string) {
	effectsAssigned.WithLabelValues(effect).Inc()
}

// GoldenTicket tracks a golden ticket draw win
func GoldenTicket() {
	goldenTickets.Inc()
}

// LocationRequest tracks a location request outcome
func LocationRequest(outcome string) {
	locationRequests.WithLabelValues(outcome).Inc()
}

// CredentialIssued tracks an issued credential
func CredentialIssued() {
	credentialsIssued.Inc()
}

// OutboxMessage tracks a relay result, "published" or "failed"
func OutboxMessage(status string) {
	outboxPublished.WithLabelValues(status).Inc()
}
