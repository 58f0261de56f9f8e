package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcs_jobs_processed_total",
		Help: "Total number of capture jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vcs_job_processing_duration_seconds",
		Help:    "Duration of capture pipeline stages",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	CapturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcs_captures_total",
		Help: "Total still-frame captures, by result",
	}, []string{"result"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcs_capture_cache_hits_total",
		Help: "Captures served from the per-file timestamp cache",
	})

	EvasionRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcs_evasion_retries_total",
		Help: "Alternative-offset capture attempts after a failed or blank frame",
	})

	BlankFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcs_blank_frames_total",
		Help: "Frames rejected as likely solid black or white",
	})

	LengthProbesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcs_length_probes_total",
		Help: "Reachability probes issued by the safe length measurer",
	})

	QuirksEnabledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vcs_quirks_enabled_total",
		Help: "Files that required safe mode during reconciliation",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vcs_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vcs_retry_total",
		Help: "Total number of job retries",
	}, []string{"attempt"})
)
