// Package metrics exposes session outcomes in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/jrsteele09/go-chat-auth/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chatauth"

var _ session.Observer = (*Metrics)(nil)

// Metrics counts session outcomes in its own registry.
type Metrics struct {
	registry *prometheus.Registry
	attempts *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Login, sign up and refresh attempts by outcome.",
		}, []string{"op", "outcome"}),
	}
	m.registry.MustRegister(
		m.attempts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe implements session.Observer.
func (m *Metrics) Observe(op session.Op, outcome session.Outcome) {
	m.attempts.WithLabelValues(string(op), string(outcome)).Inc()
}

// TrackSessions exports count as the number of client sessions held in memory.
func (m *Metrics) TrackSessions(count func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "client_sessions",
		Help:      "Client sessions held in memory.",
	}, func() float64 {
		return float64(count())
	}))
}

// Handler serves the registry in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
