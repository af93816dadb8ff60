package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for monitoring the signing pipeline
var (
	SignaturesCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petition_signatures_created_total",
			Help: "Total number of signatures created, by initial status",
		},
		[]string{"status"},
	)

	SignRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petition_sign_rejections_total",
			Help: "Total number of rejected signing attempts, by reason",
		},
		[]string{"reason"},
	)

	ConfirmationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "petition_confirmations_total",
			Help: "Total number of pending signatures confirmed",
		},
	)

	EmailsSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petition_emails_sent_total",
			Help: "Total number of transactional emails sent, by template",
		},
		[]string{"template"},
	)

	EmailsFailedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petition_emails_failed_total",
			Help: "Total number of failed transactional email sends, by template",
		},
		[]string{"template"},
	)
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(SignaturesCreatedTotal)
	prometheus.MustRegister(SignRejectionsTotal)
	prometheus.MustRegister(ConfirmationsTotal)
	prometheus.MustRegister(EmailsSentTotal)
	prometheus.MustRegister(EmailsFailedTotal)
}
