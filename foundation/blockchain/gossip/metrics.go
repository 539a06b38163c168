package gossip

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

// MetricsSubsystem is the subsystem label for the gossip metrics.
const MetricsSubsystem = "gossip"

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of live peer connections.
	Peers metrics.Gauge
	// Number of blocks in the local chain.
	ChainLength metrics.Gauge
	// Number of messages received, labeled by type.
	MessagesReceived metrics.Counter
	// Number of messages dropped because they were malformed.
	MessagesDropped metrics.Counter
	// Number of reconciliation decisions, labeled by outcome.
	Reconciliations metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
func PrometheusMetrics(namespace string) *Metrics {
	return &Metrics{
		Peers: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "peers",
			Help:      "Number of live peer connections.",
		}, []string{}),
		ChainLength: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "chain_length",
			Help:      "Number of blocks in the local chain.",
		}, []string{}),
		MessagesReceived: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "messages_received",
			Help:      "Number of messages received from peers.",
		}, []string{"type"}),
		MessagesDropped: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "messages_dropped",
			Help:      "Number of malformed messages dropped.",
		}, []string{}),
		Reconciliations: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "reconciliations",
			Help:      "Number of reconciliation decisions by outcome.",
		}, []string{"outcome"}),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Peers:            discard.NewGauge(),
		ChainLength:      discard.NewGauge(),
		MessagesReceived: discard.NewCounter(),
		MessagesDropped:  discard.NewCounter(),
		Reconciliations:  discard.NewCounter(),
	}
}
