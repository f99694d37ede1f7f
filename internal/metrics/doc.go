// Package metrics provides Prometheus instrumentation for the ASCIIer service.
//
// All metrics are registered with the default registry through promauto and
// prefixed with "asciier_".
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal: Counter of requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Conversion Metrics
//
//   - ConversionsTotal: Counter by kind (image/video) and status
//   - RenderDuration: Histogram of single image/frame render time
//   - UploadBytes: Histogram of accepted upload sizes
//   - UploadsRejected: Counter of uploads rejected at the boundary
//
// ## Pipeline Metrics
//
//   - PipelineStageDuration: Histogram per video stage
//   - PipelineFramesConverted: Counter of frames rendered
//   - PipelineJobDuration: Histogram of whole-job duration
//   - PipelineJobsInProgress: Gauge of running video jobs
//   - PipelineAudioMissing: Counter of jobs muxed without audio
//
// ## Registry Metrics
//
// Refreshed by the [Collector] from the job, file and session registries:
//
//   - JobsTracked, TrackedFiles, ActiveSessions
//
// Updated inline by the lifecycle and session managers:
//
//   - SweepsTotal, FilesDeleted, FileDeleteErrors, SessionsExpired
//
// # Usage
//
//	mux.Handle("/metrics", promhttp.Handler())
//
//	collector := metrics.NewCollector(metrics.StatsFunc(snapshot), time.Minute)
//	collector.Start()
//	defer collector.Stop()
//
// # Prometheus Queries
//
// Frame conversion throughput:
//
//	rate(asciier_pipeline_frames_converted_total[5m])
//
// Video failure ratio:
//
//	sum(rate(asciier_conversions_total{kind="video",status="error"}[1h])) /
//	sum(rate(asciier_conversions_total{kind="video"}[1h]))
package metrics
