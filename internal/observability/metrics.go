// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	ProfileRequests *prometheus.CounterVec
	ProfileDuration *prometheus.HistogramVec
	RowsComputed    *prometheus.CounterVec

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	PipelineDuration  prometheus.Histogram
	RowsStored        prometheus.Counter

	// Stream metrics
	StreamSessions prometheus.Gauge
	TicksReceived  prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pbv"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ProfileRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "requests_total",
			Help:      "Total number of profile computations by mode and status",
		}, []string{"mode", "status"}),
		ProfileDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "duration_seconds",
			Help:      "Profile computation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		RowsComputed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rows_computed_total",
			Help:      "Total number of output rows produced, including null rows",
		}, []string{"mode"}),

		PipelineRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of stored profile runs by status",
		}, []string{"status"}),
		PipelineDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "duration_seconds",
			Help:      "Stored profile run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),
		RowsStored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "rows_stored_total",
			Help:      "Total number of histogram rows written to storage",
		}),

		StreamSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "sessions",
			Help:      "Number of open websocket streaming sessions",
		}),
		TicksReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "ticks_received_total",
			Help:      "Total number of ticks received over websocket",
		}),

		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful stored run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordProfile records one engine computation.
func (m *Metrics) RecordProfile(mode string, rows int, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ProfileRequests.WithLabelValues(mode, status).Inc()
	m.ProfileDuration.WithLabelValues(mode).Observe(seconds)
	if err == nil {
		m.RowsComputed.WithLabelValues(mode).Add(float64(rows))
	}
}

// RecordPipelineRun records a stored run and its written row count.
func (m *Metrics) RecordPipelineRun(status string, rowsStored int, seconds float64, finishedUnix int64) {
	m.PipelineRunsTotal.WithLabelValues(status).Inc()
	m.PipelineDuration.Observe(seconds)
	m.RowsStored.Add(float64(rowsStored))
	if status == "done" {
		m.LastSuccessfulRun.Set(float64(finishedUnix))
	}
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// StreamOpened increments the open session gauge.
func (m *Metrics) StreamOpened() { m.StreamSessions.Inc() }

// StreamClosed decrements the open session gauge.
func (m *Metrics) StreamClosed() { m.StreamSessions.Dec() }

// RecordTick counts one streamed tick.
func (m *Metrics) RecordTick() { m.TicksReceived.Inc() }
