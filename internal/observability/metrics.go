package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "passport"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total status API requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Status API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	connectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "connect_attempts_total",
			Help:      "Connection attempts by outcome.",
		},
		[]string{"result"},
	)
	sessionEnds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "session_ends_total",
			Help:      "Finished sessions by end reason.",
		},
		[]string{"reason"},
	)
	sessionActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collector",
			Name:      "session_active",
			Help:      "1 while a handshaken session is streaming.",
		},
	)
	packets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "packets_total",
			Help:      "Decoded packets by kind.",
		},
		[]string{"kind"},
	)
	payloadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "payload_bytes_total",
			Help:      "Payload bytes received, headers excluded.",
		},
	)
	freeDiskMB = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "free_disk_megabytes",
			Help:      "Free space on the session log volume at the last check.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			connectAttempts,
			sessionEnds,
			sessionActive,
			packets,
			payloadBytes,
			freeDiskMB,
		)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// RecordConnectAttempt counts one dial+handshake attempt. result is one of
// "ok", "dial_error" or "handshake_error".
func RecordConnectAttempt(result string) {
	RegisterMetrics()
	connectAttempts.WithLabelValues(result).Inc()
}

func RecordSessionStart() {
	RegisterMetrics()
	sessionActive.Set(1)
}

func RecordSessionEnd(reason string) {
	RegisterMetrics()
	sessionActive.Set(0)
	sessionEnds.WithLabelValues(reason).Inc()
}

func RecordPacket(kind string, payloadLen int) {
	RegisterMetrics()
	packets.WithLabelValues(kind).Inc()
	if payloadLen > 0 {
		payloadBytes.Add(float64(payloadLen))
	}
}

func RecordFreeDisk(mb float64) {
	RegisterMetrics()
	freeDiskMB.Set(mb)
}
