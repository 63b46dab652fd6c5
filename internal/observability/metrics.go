package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	channelConnections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reliefd",
			Subsystem: "channel",
			Name:      "connections_total",
			Help:      "Total accepted channel connections.",
		},
	)
	channelRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reliefd",
			Subsystem: "channel",
			Name:      "requests_total",
			Help:      "Total assembled request payloads.",
		},
	)
	channelFramingErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "reliefd",
			Subsystem: "channel",
			Name:      "framing_errors_total",
			Help:      "Connections aborted with a partial line or payload.",
		},
	)
	channelPayloadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reliefd",
			Subsystem: "channel",
			Name:      "request_payload_bytes",
			Help:      "Size of assembled request payloads.",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 8),
		},
	)
	conversions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reliefd",
			Subsystem: "convert",
			Name:      "conversions_total",
			Help:      "Image to mesh conversions by outcome.",
		},
		[]string{"outcome"},
	)
	conversionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reliefd",
			Subsystem: "convert",
			Name:      "duration_seconds",
			Help:      "Image to mesh conversion duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reliefd",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reliefd",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			channelConnections,
			channelRequests,
			channelFramingErrors,
			channelPayloadBytes,
			conversions,
			conversionDuration,
			httpRequests,
			httpDuration,
		)
	})
}

func RecordChannelConnection() {
	RegisterMetrics()
	channelConnections.Inc()
}

func RecordChannelRequest(payloadBytes int) {
	RegisterMetrics()
	channelRequests.Inc()
	channelPayloadBytes.Observe(float64(payloadBytes))
}

func RecordChannelFramingError() {
	RegisterMetrics()
	channelFramingErrors.Inc()
}

func RecordConversion(duration time.Duration, success bool) {
	RegisterMetrics()
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	conversions.WithLabelValues(outcome).Inc()
	if success {
		conversionDuration.Observe(duration.Seconds())
	}
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
