package ldap

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "directory"

// Metrics holds the collectors for sessions and directory operations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	SessionsOpen      prometheus.Gauge
	SessionOpens      *prometheus.CounterVec
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "open",
			Help:      "Number of currently tracked directory sessions",
		}),
		SessionOpens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "session",
			Name:      "opens_total",
			Help:      "Total session open attempts by result",
		}, []string{"result"}),
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "ops",
			Name:      "total",
			Help:      "Total directory operations by operation and result",
		}, []string{"operation", "result"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "ops",
			Name:      "duration_seconds",
			Help:      "Directory operation latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return string(GetErrorKind(err))
}

func (m *Metrics) observeOperation(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, resultLabel(err)).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) sessionOpened(err error) {
	if m == nil {
		return
	}
	m.SessionOpens.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		m.SessionsOpen.Inc()
	}
}

func (m *Metrics) sessionReleased() {
	if m == nil {
		return
	}
	m.SessionsOpen.Dec()
}
