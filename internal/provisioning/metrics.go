package provisioning

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects engine metrics in a private registry so a CLI run can
// dump them to a node_exporter textfile.
type Metrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	runsTotal         *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	resources         *prometheus.GaugeVec
}

// NewMetrics creates and registers the engine metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aries",
				Subsystem: "engine",
				Name:      "resource_operations_total",
				Help:      "Total number of resource operations by kind, action and result",
			},
			[]string{"kind", "action", "result"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "aries",
				Subsystem: "engine",
				Name:      "resource_operation_duration_seconds",
				Help:      "Duration of resource operations in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7min
			},
			[]string{"kind", "action"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aries",
				Subsystem: "engine",
				Name:      "runs_total",
				Help:      "Total number of engine runs by operation and result",
			},
			[]string{"stack", "operation", "result"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "aries",
				Subsystem: "engine",
				Name:      "run_duration_seconds",
				Help:      "Duration of engine runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
			},
			[]string{"stack", "operation"},
		),
		resources: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "aries",
				Subsystem: "stack",
				Name:      "resources",
				Help:      "Number of resources tracked in state after a run",
			},
			[]string{"stack"},
		),
	}
	m.registry.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.runsTotal,
		m.runDuration,
		m.resources,
	)
	return m
}

// Registry returns the registry holding the engine metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteToTextfile writes all metrics in the text exposition format. The
// file is written atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil {
		return errors.New("metrics are not enabled")
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// recordOperation records one resource operation. Safe on a nil receiver.
func (m *Metrics) recordOperation(kind string, action Action, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(kind, string(action), resultLabel(err)).Inc()
	m.operationDuration.WithLabelValues(kind, string(action)).Observe(time.Since(start).Seconds())
}

// recordRun records a finished apply, destroy or refresh.
func (m *Metrics) recordRun(stack, operation string, start time.Time, resources int, err error) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(stack, operation, resultLabel(err)).Inc()
	m.runDuration.WithLabelValues(stack, operation).Observe(time.Since(start).Seconds())
	m.resources.WithLabelValues(stack).Set(float64(resources))
}
