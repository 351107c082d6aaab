// Package metrics exports multisock group events as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/multisock"
)

// Collector is a multisock.Observer that counts group lifecycle events.
type Collector struct {
	sources        *prometheus.GaugeVec
	closed         *prometheus.CounterVec
	closeFailures  prometheus.Counter
	accepted       prometheus.Counter
	attempts       *prometheus.CounterVec
	connectFailure *prometheus.CounterVec
}

// New creates a Collector with metric names under namespace and registers it
// with reg when reg is non-nil.
func New(namespace string, reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		sources: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "group",
			Name:      "sources",
			Help:      "Registered source descriptors by role.",
		}, []string{"role"}),
		closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "group",
			Name:      "sources_closed_total",
			Help:      "Source descriptors closed by the group, by role.",
		}, []string{"role"}),
		closeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "group",
			Name:      "close_failures_total",
			Help:      "Source descriptors whose close reported an error.",
		}),
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "group",
			Name:      "accepted_total",
			Help:      "Connections returned by Accept.",
		}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "group",
			Name:      "connect_attempts_total",
			Help:      "Connect attempts by address family.",
		}, []string{"family"}),
		connectFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "group",
			Name:      "connect_failures_total",
			Help:      "Failed connect attempts by address family.",
		}, []string{"family"}),
	}

	if reg != nil {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{c.sources, c.closed, c.closeFailures, c.accepted, c.attempts, c.connectFailure}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.collectors() {
		m.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.collectors() {
		m.Collect(ch)
	}
}

// OnGroupEvent implements multisock.Observer.
func (c *Collector) OnGroupEvent(e multisock.Event) {
	role := e.Source.Role.String()

	switch e.Type {
	case multisock.EventSourceAdded:
		c.sources.WithLabelValues(role).Inc()
	case multisock.EventSourceRemoved:
		c.sources.WithLabelValues(role).Dec()
	case multisock.EventSourceClosed:
		c.sources.WithLabelValues(role).Dec()
		c.closed.WithLabelValues(role).Inc()
		if e.Err != nil {
			c.closeFailures.Inc()
		}
	case multisock.EventAccepted:
		c.accepted.Inc()
	case multisock.EventConnectAttempt:
		c.attempts.WithLabelValues(e.Peer.Family.String()).Inc()
	case multisock.EventConnectFailed:
		c.connectFailure.WithLabelValues(e.Peer.Family.String()).Inc()
	}
}
