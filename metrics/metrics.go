// Package metrics exposes Prometheus collectors for a match: messages on the
// wire, protocol errors, shots and match outcomes.
//
// A nil *Metrics is valid and records nothing, so components can take one
// optionally.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "seabattle").
	Namespace string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Registry receives the collectors. Default: a fresh registry.
	Registry prometheus.Registerer
}

type Option func(*Config)

func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// Shot directions.
const (
	Outgoing = "outgoing"
	Incoming = "incoming"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	messagesSent     *prometheus.CounterVec
	messagesReceived *prometheus.CounterVec
	protocolErrors   prometheus.Counter
	shots            *prometheus.CounterVec
	matches          *prometheus.CounterVec
	connected        prometheus.Gauge
}

func New(opts ...Option) *Metrics {
	config := Config{Namespace: "seabattle"}
	for _, opt := range opts {
		opt(&config)
	}

	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if config.Registry == nil {
		registry := prometheus.NewRegistry()
		config.Registry = registry
		gatherer = registry
	} else if g, ok := config.Registry.(prometheus.Gatherer); ok {
		gatherer = g
	}

	factory := promauto.With(config.Registry)
	return &Metrics{
		gatherer: gatherer,

		messagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "messages_sent_total",
			Help:        "Messages written to the peer, by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		messagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "messages_received_total",
			Help:        "Messages decoded from the peer, by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		protocolErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "protocol_errors_total",
			Help:        "Frames dropped because they could not be decoded",
			ConstLabels: config.ConstLabels,
		}),

		shots: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "shots_total",
			Help:        "Resolved shots by direction and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"direction", "result"}),

		matches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "matches_total",
			Help:        "Finished matches by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "peer_connected",
			Help:        "1 while a peer connection is established",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) MessageSent(kind string) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(kind).Inc()
}

func (m *Metrics) MessageReceived(kind string) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) ProtocolError() {
	if m == nil {
		return
	}
	m.protocolErrors.Inc()
}

func (m *Metrics) Shot(direction, result string) {
	if m == nil {
		return
	}
	m.shots.WithLabelValues(direction, result).Inc()
}

// MatchFinished counts a finished match under its outcome label.
func (m *Metrics) MatchFinished(outcome string) {
	if m == nil {
		return
	}
	m.matches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

// Handler serves the collected metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
