package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	Namespace = "forum_notifier"

	MailSubsystem = "mail"
	ReadSubsystem = "read"
)

// Общие метрики сервиса.
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
	)
)

// Метрики почтового конвейера.
var (
	PostsMailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: MailSubsystem,
			Name:      "posts_mailed_total",
			Help:      "Total number of posts delivered immediately",
		},
		[]string{"status"},
	)

	DigestsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: MailSubsystem,
			Name:      "digests_sent_total",
			Help:      "Total number of digest emails sent",
		},
		[]string{"status"},
	)

	DeliveryFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: MailSubsystem,
			Name:      "delivery_failures_total",
			Help:      "Total number of failed mail deliveries",
		},
	)

	DigestQueueEnqueuedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: MailSubsystem,
			Name:      "digest_queue_enqueued_total",
			Help:      "Total number of posts enqueued for digest delivery",
		},
	)

	MailRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: MailSubsystem,
			Name:      "run_duration_seconds",
			Help:      "Mail cron run duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100},
		},
	)
)

// Метрики хранилища отметок о прочтении.
var (
	ReadRecordsPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: ReadSubsystem,
			Name:      "records_pruned_total",
			Help:      "Total number of stale read records pruned",
		},
	)

	DatabaseQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "database_queries_total",
			Help:      "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DatabaseQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "database_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := "success"
	if statusCode >= 400 {
		status = "error"
	}

	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func RecordRateLimited() {
	RateLimitedTotal.Inc()
}

func RecordPostMailed(status string) {
	PostsMailedTotal.WithLabelValues(status).Inc()
}

func RecordDigestSent(status string) {
	DigestsSentTotal.WithLabelValues(status).Inc()
}

func RecordDeliveryFailure() {
	DeliveryFailuresTotal.Inc()
}

func RecordDigestEnqueued() {
	DigestQueueEnqueuedTotal.Inc()
}

func RecordReadRecordsPruned(count int64) {
	ReadRecordsPrunedTotal.Add(float64(count))
}

func RecordDatabaseQuery(operation, status string, duration time.Duration) {
	DatabaseQueriesTotal.WithLabelValues(operation, status).Inc()
	DatabaseQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
