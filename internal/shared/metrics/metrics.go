package metrics

import (
	"database/sql"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "calls"

// Registry holds every collector this service exposes.
var Registry = prometheus.NewRegistry()

var (
	factory = promauto.With(Registry)

	analysisTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analysis_total",
			Help:      "Analyses by terminal or transitional status",
		},
		[]string{"status"},
	)

	recoveryPathTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovery_path_total",
			Help:      "Recovered analysis records by recovery path",
		},
		[]string{"path"},
	)

	analysisDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_ms",
			Help:      "Analysis duration in milliseconds",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
		},
	)

	workerJobsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "jobs_total",
			Help:      "Queue messages handled by the worker, by kind and result",
		},
		[]string{"kind", "result"},
	)

	httpErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "errors_total",
			Help:      "Error responses by status class and error code",
		},
		[]string{"class", "code"},
	)

	panicsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "panics_total",
			Help:      "Handler panics recovered by middleware",
		},
	)
)

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() {
	analysisTotal.WithLabelValues("started").Inc()
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() {
	analysisTotal.WithLabelValues("completed").Inc()
}

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed() {
	analysisTotal.WithLabelValues("failed").Inc()
}

// IncRecoveryPath counts a record recovered through path.
func IncRecoveryPath(path string) {
	recoveryPathTotal.WithLabelValues(path).Inc()
}

// IncWorkerJob counts a handled queue message.
func IncWorkerJob(kind, result string) {
	workerJobsTotal.WithLabelValues(kind, result).Inc()
}

// IncHTTPError counts an error response. Status is bucketed to 4xx or 5xx.
func IncHTTPError(status int, code string) {
	class := "4xx"
	if status >= 500 {
		class = "5xx"
	}
	httpErrorsTotal.WithLabelValues(class, code).Inc()
}

// IncPanic counts a recovered handler panic.
func IncPanic() {
	panicsTotal.Inc()
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// RegisterDBStats exposes connection pool stats for db. Registering the same name
// twice keeps the first collector.
func RegisterDBStats(db *sql.DB, name string) error {
	if db == nil {
		return nil
	}
	err := Registry.Register(collectors.NewDBStatsCollector(db, name))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// SinceMillis returns the milliseconds elapsed since start.
func SinceMillis(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
