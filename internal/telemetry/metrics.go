package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Registry = prometheus.NewRegistry()

	MessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "messages_received_total",
			Help:      "Decoded input envelopes by payload type.",
		},
		[]string{"type"},
	)

	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "messages_sent_total",
			Help:      "Emitted envelopes by payload type.",
		},
		[]string{"type"},
	)

	Malformed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "malformed_total",
			Help:      "Input lines skipped because they could not be decoded.",
		},
	)

	ProtocolViolations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "protocol_violations_total",
			Help:      "Reply-only payloads received that answer nothing this node sent.",
		},
	)

	HandleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "glomers",
			Name:      "handle_duration_seconds",
			Help:      "Time spent handling one input envelope.",
			// 10µs .. ~80ms
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 14),
		},
		[]string{"type"},
	)

	BroadcastValues = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "glomers",
			Name:      "broadcast_values",
			Help:      "Distinct values held by the broadcast role.",
		},
	)

	GossipPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "glomers",
			Name:      "gossip_pending",
			Help:      "Peer sends waiting for an acknowledgement.",
		},
	)

	GossipRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "glomers",
			Name:      "gossip_retries_total",
			Help:      "Peer sends repeated after their backoff expired.",
		},
	)

	// ---- Process / build info ----
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "glomers",
			Name:      "build_info",
			Help:      "Build info (constant 1, labeled by role and version).",
		},
		[]string{"role", "version"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "glomers",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(
		MessagesReceived, MessagesSent, Malformed, ProtocolViolations,
		HandleDuration, BroadcastValues, GossipPending, GossipRetries,
		buildInfo, uptime,
	)
}

// SetBuildInfo should be called once at startup.
func SetBuildInfo(role, version string) {
	buildInfo.WithLabelValues(role, version).Set(1)
}

// WriteTextfile dumps every registered metric in the Prometheus text format.
// Nodes never listen on a socket, so this is the only exposition path.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

// Instrument runs fn and records it under the given payload type.
func Instrument(typ string, fn func() error) error {
	start := time.Now()
	MessagesReceived.WithLabelValues(typ).Inc()
	err := fn()
	HandleDuration.WithLabelValues(typ).Observe(time.Since(start).Seconds())
	return err
}
