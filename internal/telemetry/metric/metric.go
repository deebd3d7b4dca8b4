// Package metric exposes Prometheus metrics for the server: connection
// and command counters, protocol errors, keyspace size, and snapshot
// activity.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all application metrics. A nil *Registry is valid for
// the recording methods and records nothing, so callers never need to
// guard them. Handler needs a registry created by NewRegistry.
type Registry struct {
	reg *prometheus.Registry

	connectionsActive   prometheus.Gauge
	connectionsTotal    prometheus.Counter
	commandsTotal       *prometheus.CounterVec
	protocolErrorsTotal prometheus.Counter
	keys                prometheus.Gauge
	snapshotSavesTotal  prometheus.Counter
	snapshotLoadsTotal  prometheus.Counter
}

// NewRegistry creates and registers all metrics.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "miniredis_connections_active",
			Help: "Number of currently open client connections.",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miniredis_connections_total",
			Help: "Total number of accepted client connections.",
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "miniredis_commands_total",
			Help: "Total number of executed commands by command name.",
		}, []string{"command"}),
		protocolErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miniredis_protocol_errors_total",
			Help: "Total number of RESP protocol errors.",
		}),
		keys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "miniredis_keys",
			Help: "Number of keys in the keyspace.",
		}),
		snapshotSavesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miniredis_snapshot_saves_total",
			Help: "Total number of successful snapshot saves.",
		}),
		snapshotLoadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "miniredis_snapshot_loads_total",
			Help: "Total number of successful snapshot loads.",
		}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		r.connectionsActive,
		r.connectionsTotal,
		r.commandsTotal,
		r.protocolErrorsTotal,
		r.keys,
		r.snapshotSavesTotal,
		r.snapshotLoadsTotal,
	)
	return r
}

// Handler returns the /metrics HTTP handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ConnOpened records an accepted connection.
func (r *Registry) ConnOpened() {
	if r == nil {
		return
	}
	r.connectionsTotal.Inc()
	r.connectionsActive.Inc()
}

// ConnClosed records a closed connection.
func (r *Registry) ConnClosed() {
	if r == nil {
		return
	}
	r.connectionsActive.Dec()
}

// Command records one executed command.
func (r *Registry) Command(name string) {
	if r == nil {
		return
	}
	r.commandsTotal.WithLabelValues(name).Inc()
}

// ProtocolError records one RESP protocol error.
func (r *Registry) ProtocolError() {
	if r == nil {
		return
	}
	r.protocolErrorsTotal.Inc()
}

// SetKeys records the current keyspace size.
func (r *Registry) SetKeys(n int) {
	if r == nil {
		return
	}
	r.keys.Set(float64(n))
}

// SnapshotSaved records a successful SAVE.
func (r *Registry) SnapshotSaved() {
	if r == nil {
		return
	}
	r.snapshotSavesTotal.Inc()
}

// SnapshotLoaded records a successful LOAD.
func (r *Registry) SnapshotLoaded() {
	if r == nil {
		return
	}
	r.snapshotLoadsTotal.Inc()
}
