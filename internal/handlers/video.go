package handlers

import (
	"net/http"
	"path/filepath"

	"asciier/internal/jobs"
	"asciier/internal/mediatypes"
	"asciier/internal/middleware"
	"asciier/internal/pipeline"

	"github.com/gorilla/mux"
)

// VideoUploadResponse acknowledges an accepted video.
type VideoUploadResponse struct {
	Message  string `json:"message"`
	VideoID  string `json:"videoId"`
	Filename string `json:"filename"`
	Width    int    `json:"width"`
}

// VideoStatusResponse reports a video job. Fields are filled per status.
type VideoStatusResponse struct {
	Status    jobs.Status `json:"status"`
	Stage     jobs.Stage  `json:"stage,omitempty"`
	StartTime int64       `json:"startTime,omitempty"`
	VideoURL  string      `json:"videoUrl,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// UploadVideo accepts a video and starts converting it in the background.
func (h *Handlers) UploadVideo(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())

	up, err := h.receiveUpload(w, r, "video", mediatypes.FileTypeVideo, h.maxVideoUpload, h.videoColumns)
	if err != nil {
		writeError(w, err)
		return
	}
	h.files.Track(up.path, sessionID, h.fileTTL)

	h.jobs.Create(up.id, jobs.KindVideo)
	h.pipeline.Submit(h.jobCtx, pipeline.Request{
		JobID:      up.id,
		InputPath:  up.path,
		OutputPath: filepath.Join(h.outputDir, up.id+".mp4"),
		Columns:    up.columns,
		SessionID:  sessionID,
	}, h.jobs, h.files)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, VideoUploadResponse{
		Message:  "Video uploaded successfully",
		VideoID:  up.id,
		Filename: filepath.Base(up.path),
		Width:    up.columns,
	})
}

// VideoStatus reports the state of a video job. Unknown ids answer with
// status "unknown" rather than 404 so clients can keep polling.
func (h *Handlers) VideoStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	job, _ := h.jobs.Get(id)

	resp := VideoStatusResponse{Status: job.Status}
	switch job.Status {
	case jobs.StatusCompleted:
		resp.VideoURL = "/outputs/" + filepath.Base(job.OutputPath)
	case jobs.StatusError:
		resp.Error = job.Error
		if resp.Error == "" {
			resp.Error = "Processing failed"
		}
	case jobs.StatusProcessing:
		resp.Stage = job.Stage
		resp.StartTime = job.StartTime.UnixMilli()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, resp)
}

// DownloadVideo serves a finished video as an attachment.
func (h *Handlers) DownloadVideo(w http.ResponseWriter, r *http.Request) {
	h.serveDownload(w, r, mux.Vars(r)["id"], ".mp4", "Video")
}
