package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcomes used as the "outcome" label.
const (
	OutcomeSuccess      = "success"
	OutcomeNoImage      = "no_image"
	OutcomeNoGPS        = "no_gps_metadata"
	OutcomeDuplicate    = "duplicate"
	OutcomeStorageFault = "storage_fault"
	OutcomePersistFault = "persistence_fault"
	OutcomeStagingFault = "staging_fault"
	OutcomeTooLarge     = "too_large"
	CompressionApplied  = "applied"
	CompressionFailed   = "failed"
)

// Metrics holds the Prometheus collectors for the submission pipeline.
type Metrics struct {
	Submissions    *prometheus.CounterVec   // labels: outcome
	StageDuration  *prometheus.HistogramVec // labels: stage
	Compression    *prometheus.CounterVec   // labels: result={applied,failed}
	BytesSaved     prometheus.Counter
	StagingSwept   prometheus.Counter
	OrphanedBlobs  prometheus.Counter
	TasksProcessed *prometheus.CounterVec // labels: type, result={ok,error}
}

// NewMetrics creates and registers all metrics with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.register(prometheus.DefaultRegisterer)
	return m
}

// NewMetricsForTesting registers on a private registry so repeated
// construction does not panic.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	m.register(prometheus.NewRegistry())
	return m
}

func newMetrics() *Metrics {
	return &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civicsnap",
			Name:      "submissions_total",
			Help:      "Complaint submissions by terminal outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "civicsnap",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Time spent in each submission pipeline stage.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"stage"}),
		Compression: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civicsnap",
			Name:      "compression_total",
			Help:      "Image recompression attempts by result.",
		}, []string{"result"}),
		BytesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "civicsnap",
			Name:      "compression_bytes_saved_total",
			Help:      "Bytes removed from uploads by recompression.",
		}),
		StagingSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "civicsnap",
			Name:      "staging_files_swept_total",
			Help:      "Stale staging files removed by the sweeper.",
		}),
		OrphanedBlobs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "civicsnap",
			Name:      "orphaned_blobs_total",
			Help:      "Uploaded blobs that could not be removed inline and were handed to the worker.",
		}),
		TasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "civicsnap",
			Name:      "worker_tasks_total",
			Help:      "Background tasks handled by the worker.",
		}, []string{"type", "result"}),
	}
}

func (m *Metrics) register(r prometheus.Registerer) {
	r.MustRegister(
		m.Submissions,
		m.StageDuration,
		m.Compression,
		m.BytesSaved,
		m.StagingSwept,
		m.OrphanedBlobs,
		m.TasksProcessed,
	)
}

func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
