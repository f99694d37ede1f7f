// Package main provides the entry point for the ASCIIer server.
//
// ASCIIer converts uploaded images and videos into ASCII art. Images are
// rendered synchronously; videos are split into frames and an audio track
// with FFmpeg, every frame is rendered, and the result is muxed back into a
// web-playable MP4 in the background while clients poll for status.
//
// # Application Lifecycle
//
//  1. Configuration Loading: Reads environment variables, sets GOMEMLIMIT
//     from MEMORY_LIMIT and prepares the uploads, outputs and work
//     directories under DATA_DIR
//  2. Component Initialization:
//     - Renderer: glyph palette, image codec and optional libvips
//     - Transcoder and Pipeline: FFmpeg driven video conversion
//     - Job Tracker: in-memory job status
//     - File Lifecycle Manager: deletes outputs after FILE_TTL
//     - Session Manager: deletes a session's files after disconnect or inactivity
//     - Memory Monitor: holds frame workers back under memory pressure
//     - Metrics Collector: refreshes Prometheus gauges
//  3. HTTP Server Setup: routes, session, logging and compression middleware
//  4. Graceful Shutdown: handles SIGINT/SIGTERM
//
// # HTTP Server
//
//  1. Main Server (default port 5000):
//     - Image and video upload, status and download endpoints
//     - Rendered files under /outputs/
//     - Session presence websocket
//     - Health, liveness and readiness probes
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//
// # Graceful Shutdown
//
//  1. Stop accepting new HTTP requests
//  2. Stop the session manager and file sweeper
//  3. Cancel running video jobs and kill FFmpeg processes
//  4. Remove every tracked file
//  5. Stop the metrics collector, memory monitor and metrics server
//  6. Shut down libvips
//
// # Related Packages
//
//   - [asciier/internal/handlers]: HTTP request handlers
//   - [asciier/internal/pipeline]: video conversion pipeline
//   - [asciier/internal/render]: ASCII frame rendering
//   - [asciier/internal/lifecycle]: tracked file expiry
//   - [asciier/internal/memory]: memory limit and frame backpressure
//   - [asciier/internal/session]: client sessions
//   - [asciier/internal/startup]: configuration and initialization
package main
