package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "pool_monitor_"

	ResultSuccess = "success"
	ResultInvalid = "invalid"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	alertsCreated      *prometheus.CounterVec
	alertsSuppressed   *prometheus.CounterVec
	alertsAcknowledged prometheus.Counter

	dispenserCommands *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
)

// Init registers the service metrics once. db may be nil; when set its pool stats are exported.
func Init(db *sql.DB) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total telemetry ingests by result",
			},
			[]string{"source", "result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Telemetry ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		alertsCreated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_created_total",
				Help: "Total alerts persisted by type",
			},
			[]string{"alert_type"},
		)
		alertsSuppressed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_suppressed_total",
				Help: "Total candidate alerts suppressed by the dedup window",
			},
			[]string{"alert_type"},
		)
		alertsAcknowledged = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_acknowledged_total",
				Help: "Total alert acknowledgments",
			},
		)

		dispenserCommands = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "dispenser_commands_total",
				Help: "Total dispenser commands by kind",
			},
			[]string{"kind"},
		)

		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "Total HTTP requests by method and status",
			},
			[]string{"method", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestLatency,
			alertsCreated,
			alertsSuppressed,
			alertsAcknowledged,
			dispenserCommands,
			httpRequests,
			httpLatency,
		)

		if db != nil {
			prometheus.MustRegister(collectors.NewDBStatsCollector(db, "pool_monitor"))
		}
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveIngest(source, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(source, result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

func IncAlertCreated(alertType string) {
	if alertsCreated != nil {
		alertsCreated.WithLabelValues(alertType).Inc()
	}
}

func IncAlertSuppressed(alertType string) {
	if alertsSuppressed != nil {
		alertsSuppressed.WithLabelValues(alertType).Inc()
	}
}

func IncAlertAcknowledged() {
	if alertsAcknowledged != nil {
		alertsAcknowledged.Inc()
	}
}

func IncDispenserCommand(kind string) {
	if dispenserCommands != nil {
		dispenserCommands.WithLabelValues(kind).Inc()
	}
}

func ObserveHTTP(method string, status int, duration time.Duration) {
	if httpRequests != nil {
		httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(method).Observe(duration.Seconds())
	}
}
