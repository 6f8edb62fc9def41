package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khidmapay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "khidmapay_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khidmapay_payments_total",
			Help: "Total number of payment attempts",
		},
		[]string{"provider", "status"},
	)

	PaymentAmountFr = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khidmapay_payment_amount_fr_total",
			Help: "Total amount collected in DJF",
		},
		[]string{"provider"},
	)

	RefundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khidmapay_refunds_total",
			Help: "Total number of refund outcomes",
		},
		[]string{"reason"},
	)

	WithdrawalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khidmapay_withdrawals_total",
			Help: "Total number of withdrawal request transitions",
		},
		[]string{"status"},
	)

	LedgerIntegrityFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "khidmapay_ledger_integrity_failures_total",
			Help: "Wallet balances that did not reconcile against the transaction log",
		},
	)

	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khidmapay_jobs_total",
			Help: "Total number of scheduled jobs processed",
		},
		[]string{"kind", "status"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "khidmapay_notifications_total",
			Help: "Total number of notifications emitted",
		},
		[]string{"type", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "khidmapay_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordPayment(provider, status string) {
	PaymentsTotal.WithLabelValues(provider, status).Inc()
}

func RecordPaymentAmount(provider string, amountFr int64) {
	PaymentAmountFr.WithLabelValues(provider).Add(float64(amountFr))
}

func RecordRefund(reason string) {
	RefundsTotal.WithLabelValues(reason).Inc()
}

func RecordWithdrawal(status string) {
	WithdrawalsTotal.WithLabelValues(status).Inc()
}

func RecordIntegrityFailure() {
	LedgerIntegrityFailures.Inc()
}

func RecordJob(kind, status string) {
	JobsTotal.WithLabelValues(kind, status).Inc()
}

func RecordNotification(notifType, status string) {
	NotificationsTotal.WithLabelValues(notifType, status).Inc()
}
