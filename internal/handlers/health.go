package handlers

import (
	"net/http"
	"runtime"
	"time"

	"asciier/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// FFmpeg is false when video conversion is unavailable. Image
	// conversion still works, so the service reports degraded, not down.
	FFmpeg bool `json:"ffmpeg"`

	// Workload
	JobsProcessing int `json:"jobsProcessing"`
	JobsCompleted  int `json:"jobsCompleted"`
	JobsFailed     int `json:"jobsFailed"`
	TrackedFiles   int `json:"trackedFiles"`
	ActiveSessions int `json:"activeSessions"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	counts := h.jobs.Counts()

	response := HealthResponse{
		Status:         statusHealthy,
		Ready:          true,
		Version:        startup.Version,
		Uptime:         time.Since(h.startTime).Round(time.Second).String(),
		FFmpeg:         h.ffmpegOK,
		JobsProcessing: counts.Processing,
		JobsCompleted:  counts.Completed,
		JobsFailed:     counts.Failed,
		TrackedFiles:   h.files.Len(),
		ActiveSessions: h.sessions.Count(),
		GoVersion:      runtime.Version(),
		NumCPU:         runtime.NumCPU(),
		NumGoroutine:   runtime.NumGoroutine(),
	}
	if !h.ffmpegOK {
		response.Status = statusDegraded
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	writeJSON(w, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when every conversion path can run.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if h.ffmpegOK {
		w.WriteHeader(http.StatusOK)
		writeJSON(w, map[string]string{
			"status": "ready",
		})
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]string{
			"status": "not_ready",
			"reason": "ffmpeg unavailable",
		})
	}
}
