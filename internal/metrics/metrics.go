package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciier_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asciier_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asciier_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Conversion metrics
var (
	ConversionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciier_conversions_total",
			Help: "Total number of conversions by kind and outcome",
		},
		[]string{"kind", "status"}, // kind: "image", "video"; status: "success", "error"
	)

	RenderDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asciier_render_duration_seconds",
			Help:    "Time to render a single image or frame as ASCII art",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	UploadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asciier_upload_bytes",
			Help:    "Size of accepted uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8),
		},
		[]string{"kind"},
	)

	UploadsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciier_uploads_rejected_total",
			Help: "Uploads rejected at the boundary",
		},
		[]string{"kind", "reason"}, // reason: "unsupported", "too_large", "missing"
	)
)

// Video pipeline metrics
var (
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asciier_pipeline_stage_duration_seconds",
			Help:    "Duration of each video pipeline stage",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"stage"},
	)

	PipelineFramesConverted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asciier_pipeline_frames_converted_total",
			Help: "Total number of video frames converted to ASCII",
		},
	)

	PipelineJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asciier_pipeline_job_duration_seconds",
			Help:    "End-to-end video job duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
	)

	PipelineJobsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asciier_pipeline_jobs_in_progress",
			Help: "Number of video jobs currently running",
		},
	)

	PipelineAudioMissing = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciier_pipeline_audio_missing_total",
			Help: "Video jobs that finished without an audio track",
		},
		[]string{"reason"}, // "no_stream", "extract_failed"
	)
)

// Job registry metrics
var (
	JobsTracked = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asciier_jobs",
			Help: "Jobs held in the in-memory registry by status",
		},
		[]string{"status"},
	)
)

// File lifecycle metrics
var (
	TrackedFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asciier_tracked_files",
			Help: "Number of artifacts currently tracked for expiry",
		},
	)

	SweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asciier_file_sweeps_total",
			Help: "Total number of expiry sweeps run",
		},
	)

	FilesDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciier_files_deleted_total",
			Help: "Tracked files removed, by reason",
		},
		[]string{"reason"}, // "expired", "session", "shutdown"
	)

	FileDeleteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asciier_file_delete_errors_total",
			Help: "Tracked files that could not be deleted",
		},
	)
)

// Session metrics
var (
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asciier_active_sessions",
			Help: "Number of live client sessions",
		},
	)

	SessionsExpired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciier_sessions_expired_total",
			Help: "Sessions discarded, by reason",
		},
		[]string{"reason"}, // "disconnect", "inactive", "shutdown"
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asciier_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation latency by volume and operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciier_filesystem_operation_errors_total",
			Help: "Filesystem operation errors by volume and operation",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciier_filesystem_retry_attempts_total",
			Help: "Retries issued after stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciier_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciier_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asciier_filesystem_retry_duration_seconds",
			Help:    "Total time spent in retrying filesystem operations",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asciier_filesystem_stale_errors_total",
			Help: "ESTALE errors observed",
		},
		[]string{"operation", "volume"},
	)
)

// Memory backpressure metrics
var (
	MemoryHeapBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asciier_memory_heap_bytes",
			Help: "Heap bytes in use at the last memory check",
		},
	)

	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asciier_memory_usage_ratio",
			Help: "Heap in use as a fraction of the memory limit, 0 when no limit is set",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asciier_memory_paused",
			Help: "1 while frame conversion is held back by memory pressure",
		},
	)

	MemoryPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asciier_memory_pauses_total",
			Help: "Times frame conversion was paused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "asciier_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}

// InitializeMetrics pre-populates the expected label combinations so that
// every series is exported from the first scrape.
func InitializeMetrics() {
	for _, kind := range []string{"image", "video"} {
		ConversionsTotal.WithLabelValues(kind, "success")
		ConversionsTotal.WithLabelValues(kind, "error")
		UploadBytes.WithLabelValues(kind)
		for _, reason := range []string{"unsupported", "too_large", "missing"} {
			UploadsRejected.WithLabelValues(kind, reason)
		}
	}

	for _, stage := range []string{"extracting-audio", "extracting-frames", "converting-frames", "muxing"} {
		PipelineStageDuration.WithLabelValues(stage)
	}
	PipelineAudioMissing.WithLabelValues("no_stream")
	PipelineAudioMissing.WithLabelValues("extract_failed")

	for _, status := range []string{"processing", "completed", "error"} {
		JobsTracked.WithLabelValues(status)
	}

	for _, reason := range []string{"expired", "session", "shutdown"} {
		FilesDeleted.WithLabelValues(reason)
	}
	for _, reason := range []string{"disconnect", "inactive", "shutdown"} {
		SessionsExpired.WithLabelValues(reason)
	}

	volumes := []string{"uploads", "outputs", "work", "unknown"}
	for _, vol := range volumes {
		for _, op := range []string{"stat", "remove", "readdir"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}
}
