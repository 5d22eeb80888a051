package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "snakeview"

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	// Live channel metrics
	PollsTotal         prometheus.Counter
	SnapshotsTotal     prometheus.Counter
	ProtocolTimeouts   prometheus.Counter
	ProtocolViolations prometheus.Counter
	ConnectionLost     prometheus.Gauge
	Iteration          prometheus.Gauge
	Sections           prometheus.Gauge

	// Replay metrics
	ReplayTime     prometheus.Gauge
	SeekDuration   prometheus.Histogram
	ReplayRestarts prometheus.Counter

	// Relay metrics
	FramesRelayed *prometheus.CounterVec
	FramesDropped *prometheus.CounterVec
}

// NewRegistry creates a registry with all metrics registered, plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		PollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "live",
			Name:      "polls_total",
			Help:      "Shared region polls",
		}),
		SnapshotsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "live",
			Name:      "snapshots_total",
			Help:      "Snapshots copied from the shared region",
		}),
		ProtocolTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "live",
			Name:      "protocol_timeouts_total",
			Help:      "Waits for the turn token that timed out",
		}),
		ProtocolViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "live",
			Name:      "protocol_violations_total",
			Help:      "Snapshots rejected for violating the region layout",
		}),
		ConnectionLost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "live",
			Name:      "connection_lost",
			Help:      "1 while the writer heartbeat is considered lost",
		}),
		Iteration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "live",
			Name:      "iteration",
			Help:      "Iteration of the last copied snapshot",
		}),
		Sections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "live",
			Name:      "sections",
			Help:      "Section count of the last copied snapshot",
		}),

		ReplayTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "replay",
			Name:      "time_seconds",
			Help:      "Current playback time in simulation seconds",
		}),
		SeekDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "replay",
			Name:      "seek_duration_seconds",
			Help:      "Time spent seeking and interpolating one frame",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		ReplayRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "replay",
			Name:      "restarts_total",
			Help:      "Loop restarts of the playback clock",
		}),

		FramesRelayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "relay",
			Name:      "frames_total",
			Help:      "Frames delivered to a sink",
		}, []string{"sink"}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "relay",
			Name:      "frames_dropped_total",
			Help:      "Frames a sink failed to deliver or skipped",
		}, []string{"sink"}),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.PollsTotal,
		r.SnapshotsTotal,
		r.ProtocolTimeouts,
		r.ProtocolViolations,
		r.ConnectionLost,
		r.Iteration,
		r.Sections,
		r.ReplayTime,
		r.SeekDuration,
		r.ReplayRestarts,
		r.FramesRelayed,
		r.FramesDropped,
	)
	return r
}

// MustRegister registers additional collectors.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.reg.MustRegister(cs...)
}

// Gatherer returns the underlying gatherer.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler for the metrics endpoint.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// SetBool sets g to 1 or 0.
func SetBool(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}
