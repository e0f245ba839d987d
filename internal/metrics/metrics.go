package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosplaydate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cosplaydate_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosplaydate_bookings_total",
			Help: "Total number of booking transitions",
		},
		[]string{"status"},
	)

	EscrowResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosplaydate_escrow_resolutions_total",
			Help: "Total number of escrow releases and refunds",
		},
		[]string{"outcome"},
	)

	WalletTopUpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosplaydate_wallet_topups_total",
			Help: "Total number of wallet top-ups",
		},
		[]string{"status"},
	)

	WebhooksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosplaydate_payment_webhooks_total",
			Help: "Total number of payment gateway webhooks processed",
		},
		[]string{"outcome"},
	)

	OrphanedPaymentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cosplaydate_orphaned_payments_total",
			Help: "Successful payments with no matching pending top-up",
		},
	)

	NotificationsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cosplaydate_notifications_sent_total",
			Help: "Total number of notifications sent",
		},
		[]string{"type", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cosplaydate_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(status string) {
	BookingsTotal.WithLabelValues(status).Inc()
}

func RecordEscrowResolution(outcome string) {
	EscrowResolutionsTotal.WithLabelValues(outcome).Inc()
}

func RecordWalletTopUp(status string) {
	WalletTopUpsTotal.WithLabelValues(status).Inc()
}

func RecordWebhook(outcome string) {
	WebhooksTotal.WithLabelValues(outcome).Inc()
}

func RecordOrphanedPayment() {
	OrphanedPaymentsTotal.Inc()
}

func RecordNotification(notifType, status string) {
	NotificationsSentTotal.WithLabelValues(notifType, status).Inc()
}
