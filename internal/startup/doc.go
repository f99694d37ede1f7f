// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// All configuration is loaded from environment variables via [LoadConfig]:
//
//   - DATA_DIR: Root for uploads/, outputs/ and work/ (default: ./data)
//   - PORT: HTTP server port (default: 5000)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable metrics server (default: true)
//   - IMAGE_COLUMNS / VIDEO_COLUMNS: Default grid widths (default: 120 / 150)
//   - MAX_IMAGE_UPLOAD / MAX_VIDEO_UPLOAD: Upload limits such as "10MB" (default: 10MB / 100MB)
//   - MIN_OUTPUT_WIDTH: Smallest rendered image width in pixels (default: 1920)
//   - ASCII_PALETTE: Glyphs ordered dark to light (default: "@#S%?*+;:,. ")
//   - FRAME_WORKERS: Concurrent frame renders per video job (default: GOMAXPROCS)
//   - FILE_TTL: Lifetime of uploads and outputs (default: 30m)
//   - SWEEP_INTERVAL: How often expired files and idle sessions are reaped (default: 1m)
//   - SESSION_GRACE: Time a disconnected session survives (default: 30s)
//   - SESSION_TIMEOUT: Inactivity before a session is discarded (default: 10m)
//   - FFMPEG_PATH / FFPROBE_PATH: Binaries used for video (default: from PATH)
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS: Logging controls
//
// Every data subdirectory is created if missing and must be writable.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
// [LogRendererInit], [LogTranscoderInit], [LogLifecycleInit],
// [LogHTTPRoutes], [LogServerStarted] and the LogShutdown* helpers print
// the sectioned startup and shutdown log.
package startup
