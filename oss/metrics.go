// Prometheus instrumentation for the client, inactive unless a
// registry is supplied through WithMetrics.

package oss

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	ops      *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oss",
			Subsystem: "client",
			Name:      "ops_total",
			Help:      "Completed operations by name and result.",
		}, []string{"op", "result"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oss",
			Subsystem: "client",
			Name:      "bytes_total",
			Help:      "Payload bytes moved per operation and direction.",
		}, []string{"op", "direction"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oss",
			Subsystem: "client",
			Name:      "op_duration_seconds",
			Help:      "Operation latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	reg.MustRegister(m.ops, m.bytes, m.duration)
	return m
}

// Observe records one finished operation. A nil receiver is a no-op so
// an unregistered client pays nothing.
func (m *Metrics) Observe(op string, sent, received int64, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ops.WithLabelValues(op, result).Inc()
	if sent > 0 {
		m.bytes.WithLabelValues(op, "sent").Add(float64(sent))
	}
	if received > 0 {
		m.bytes.WithLabelValues(op, "received").Add(float64(received))
	}
	m.duration.WithLabelValues(op).Observe(d.Seconds())
}
