// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "trh"
	subsystem = "pipeline"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	deploymentsCreated  *prometheus.CounterVec
	deploymentsFinished *prometheus.CounterVec
	stageDuration       *prometheus.HistogramVec
	storageFailures     *prometheus.CounterVec
	stuckDeployments    prometheus.Gauge
	requestTotal        *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
}

// New builds the collectors and registers them with reg. Collectors that are
// already registered (for example by a second server in the same process) are reused.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		deploymentsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "deployments_created_total",
			Help:      "Number of deployments accepted",
		}, []string{"environment"}),
		deploymentsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "deployments_finished_total",
			Help:      "Number of deployments that reached a terminal status",
		}, []string{"environment", "status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stage_duration_seconds",
			Help:      "Time spent running a pipeline stage",
			Buckets:   histogramBuckets,
		}, []string{"stage", "outcome"}),
		storageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "storage_failures_total",
			Help:      "Transitions that could not be persisted",
		}, []string{"corrected"}),
		stuckDeployments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stuck_deployments",
			Help:      "Non-terminal deployments that have not progressed recently",
		}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg == nil {
		return m
	}

	m.deploymentsCreated = register(reg, m.deploymentsCreated)
	m.deploymentsFinished = register(reg, m.deploymentsFinished)
	m.stageDuration = register(reg, m.stageDuration)
	m.storageFailures = register(reg, m.storageFailures)
	m.stuckDeployments = register(reg, m.stuckDeployments)
	m.requestTotal = register(reg, m.requestTotal)
	m.requestDuration = register(reg, m.requestDuration)
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) C {
	if err := reg.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return collector
}

func (m *Metrics) DeploymentCreated(environment string) {
	if m == nil {
		return
	}
	m.deploymentsCreated.WithLabelValues(environment).Inc()
}

func (m *Metrics) DeploymentFinished(environment, status string) {
	if m == nil {
		return
	}
	m.deploymentsFinished.WithLabelValues(environment, status).Inc()
}

func (m *Metrics) StageObserved(stage string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.stageDuration.WithLabelValues(stage, outcome).Observe(duration.Seconds())
}

func (m *Metrics) StorageFailure(corrected bool) {
	if m == nil {
		return
	}
	m.storageFailures.WithLabelValues(strconv.FormatBool(corrected)).Inc()
}

func (m *Metrics) SetStuckDeployments(n int) {
	if m == nil {
		return
	}
	m.stuckDeployments.Set(float64(n))
}

func (m *Metrics) RequestObserved(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.requestTotal.With(labels).Inc()
	m.requestDuration.With(labels).Observe(duration.Seconds())
}
