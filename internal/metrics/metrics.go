// Package metrics exposes Prometheus instrumentation for the collector
// and the transport.
package metrics

import (
	"time"

	"codeberg.org/mutker/sensoragent/internal/collector"
	"codeberg.org/mutker/sensoragent/internal/sensor"
	"codeberg.org/mutker/sensoragent/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sensoragent"

// Recorder implements collector.Recorder and transport.Recorder.
type Recorder struct {
	rawEvents      *prometheus.CounterVec
	accepted       *prometheus.CounterVec
	throttled      *prometheus.CounterVec
	collectorState prometheus.Gauge

	messagesSent   prometheus.Counter
	bytesSent      prometheus.Counter
	messagesDrop   prometheus.Counter
	transportState prometheus.Gauge

	sessions        *prometheus.CounterVec
	sessionDuration prometheus.Histogram
}

var (
	_ collector.Recorder = (*Recorder)(nil)
	_ transport.Recorder = (*Recorder)(nil)
)

// New registers the agent's collectors with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	r := &Recorder{
		rawEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensor_events_total",
			Help:      "Raw sensor events received from the platform.",
		}, []string{"sensor"}),
		accepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_accepted_total",
			Help:      "Samples that passed the throttle and were forwarded.",
		}, []string{"sensor"}),
		throttled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_throttled_total",
			Help:      "Samples discarded by the per-sensor throttle.",
		}, []string{"sensor"}),
		collectorState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collector_state",
			Help:      "Collector lifecycle state (0 idle, 1 listening, 2 draining, 3 stopped).",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_messages_sent_total",
			Help:      "Messages written to the connection.",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_bytes_sent_total",
			Help:      "Payload bytes written to the connection.",
		}),
		messagesDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_messages_dropped_total",
			Help:      "Messages dropped because the connection was not open.",
		}),
		transportState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "transport_state",
			Help:      "Connection state (0 disconnected, 1 connecting, 2 open, 3 closing, 4 closed, 5 error).",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Finished collection sessions by stop reason.",
		}, []string{"reason"}),
		sessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall time from collector start to stop.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	reg.MustRegister(
		r.rawEvents, r.accepted, r.throttled, r.collectorState,
		r.messagesSent, r.bytesSent, r.messagesDrop, r.transportState,
		r.sessions, r.sessionDuration,
	)
	return r
}

func (r *Recorder) RawEvent(t sensor.Type) {
	r.rawEvents.WithLabelValues(t.String()).Inc()
}

func (r *Recorder) Accepted(t sensor.Type) {
	r.accepted.WithLabelValues(t.String()).Inc()
}

func (r *Recorder) Throttled(t sensor.Type) {
	r.throttled.WithLabelValues(t.String()).Inc()
}

func (r *Recorder) CollectorState(s collector.State) {
	r.collectorState.Set(float64(s))
}

func (r *Recorder) MessageSent(bytes int) {
	r.messagesSent.Inc()
	r.bytesSent.Add(float64(bytes))
}

func (r *Recorder) MessageDropped() {
	r.messagesDrop.Inc()
}

func (r *Recorder) StateChanged(s transport.State) {
	r.transportState.Set(float64(s))
}

// SessionFinished records a completed collection session.
func (r *Recorder) SessionFinished(reason string, d time.Duration) {
	r.sessions.WithLabelValues(reason).Inc()
	r.sessionDuration.Observe(d.Seconds())
}
