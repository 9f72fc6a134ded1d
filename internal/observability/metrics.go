package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "veins"

var (
	registerOnce sync.Once

	traciQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "traci",
			Name:      "queries_total",
			Help:      "TraCI queries by command and status outcome.",
		},
		[]string{"command", "status"},
	)
	traciQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "traci",
			Name:      "query_duration_seconds",
			Help:      "TraCI query round trip duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"command"},
	)
	traciFrameBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "traci",
			Name:      "frame_bytes_total",
			Help:      "Framed bytes moved over TraCI channels.",
		},
		[]string{"direction"},
	)
	traciConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "traci",
			Name:      "connections_open",
			Help:      "Currently open TraCI connections.",
		},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			traciQueries,
			traciQueryDuration,
			traciFrameBytes,
			traciConnections,
			httpRequests,
			httpDuration,
		)
	})
}

// Direction labels for RecordFrame.
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

func RecordQuery(command, status string, duration time.Duration) {
	RegisterMetrics()
	traciQueries.WithLabelValues(command, status).Inc()
	traciQueryDuration.WithLabelValues(command).Observe(duration.Seconds())
}

func RecordFrame(direction string, n int) {
	RegisterMetrics()
	traciFrameBytes.WithLabelValues(direction).Add(float64(n))
}

func ConnectionOpened() {
	RegisterMetrics()
	traciConnections.Inc()
}

func ConnectionClosed() {
	RegisterMetrics()
	traciConnections.Dec()
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}
