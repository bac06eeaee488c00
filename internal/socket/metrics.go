package socket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "genius"
	metricsSubsystem = "socket"
)

// Drop reasons for the frames_dropped_total counter.
const (
	dropDecode       = "decode"
	dropNoEvent      = "no_event"
	dropReserved     = "reserved"
	dropDisconnected = "disconnected"
	dropEncode       = "encode"
	dropWrite        = "write"
)

type metrics struct {
	connected       prometheus.Gauge
	connectAttempts prometheus.Counter
	reconnects      prometheus.Counter
	unresponsive    prometheus.Counter
	framesReceived  prometheus.Counter
	framesSent      prometheus.Counter
	framesDropped   *prometheus.CounterVec
	listenerPanics  *prometheus.CounterVec
}

// newMetrics registers the socket collectors with reg. A nil registerer
// keeps them in a private registry so independent sockets never collide.
func newMetrics(reg prometheus.Registerer, url string) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	labels := prometheus.Labels{"url": url}

	counter := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   metricsNamespace,
			Subsystem:   metricsSubsystem,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}
	}

	connected := factory.NewGauge(prometheus.GaugeOpts{
		Namespace:   metricsNamespace,
		Subsystem:   metricsSubsystem,
		Name:        "connected",
		Help:        "1 while the gateway connection is open",
		ConstLabels: labels,
	})

	return &metrics{
		connected:       connected,
		connectAttempts: factory.NewCounter(counter("connect_attempts_total", "Connection attempts including the first one")),
		reconnects:      factory.NewCounter(counter("reconnects_total", "Scheduled reconnect attempts that dialed")),
		unresponsive:    factory.NewCounter(counter("unresponsive_total", "Connections closed by the liveness monitor")),
		framesReceived:  factory.NewCounter(counter("frames_received_total", "Inbound frames")),
		framesSent:      factory.NewCounter(counter("frames_sent_total", "Outbound frames written")),
		framesDropped:   factory.NewCounterVec(counter("frames_dropped_total", "Frames dropped by reason"), []string{"reason"}),
		listenerPanics:  factory.NewCounterVec(counter("listener_panics_total", "Listener invocations that panicked"), []string{"event"}),
	}
}
