package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(notificationsEnqueuedTotal, notificationsSentTotal, notificationsFailedTotal)
}

var notificationsEnqueuedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_enqueued_total",
		Help: "Total number of notifications written to the outbox, labeled by category.",
	},
	[]string{"category"},
)

var notificationsSentTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of notifications delivered, labeled by category.",
	},
	[]string{"category"},
)

var notificationsFailedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total number of per-recipient delivery failures (skipped, not retried).",
	},
)

func IncNotificationsEnqueued(category string) {
	notificationsEnqueuedTotal.WithLabelValues(category).Inc()
}

func IncNotificationsSent(category string) {
	notificationsSentTotal.WithLabelValues(category).Inc()
}

func IncNotificationsFailed() {
	notificationsFailedTotal.Inc()
}
