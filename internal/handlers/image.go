package handlers

import (
	"net/http"
	"path/filepath"

	"asciier/internal/jobs"
	"asciier/internal/logging"
	"asciier/internal/mediatypes"
	"asciier/internal/metrics"
	"asciier/internal/middleware"

	"github.com/gorilla/mux"
)

// ImageUploadResponse is returned after a successful image conversion.
type ImageUploadResponse struct {
	Message  string `json:"message"`
	ImageID  string `json:"imageId"`
	ImageURL string `json:"imageUrl"`
	TextURL  string `json:"textUrl,omitempty"`
	Columns  int    `json:"columns"`
	Rows     int    `json:"rows"`
}

// UploadImage converts an uploaded image synchronously.
func (h *Handlers) UploadImage(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())

	up, err := h.receiveUpload(w, r, "image", mediatypes.FileTypeImage, h.maxImageUpload, h.imageColumns)
	if err != nil {
		writeError(w, err)
		return
	}
	h.files.Track(up.path, sessionID, h.fileTTL)

	h.jobs.Create(up.id, jobs.KindImage)
	outputPath := filepath.Join(h.outputDir, up.id+".png")

	res, err := h.renderer.RenderFrame(r.Context(), up.path, outputPath, up.columns)
	if err != nil {
		h.jobs.Fail(up.id, err.Error())
		metrics.ConversionsTotal.WithLabelValues("image", "error").Inc()
		writeError(w, err)
		return
	}

	h.files.Track(res.ImagePath, sessionID, h.fileTTL)
	resp := ImageUploadResponse{
		Message:  "Image converted successfully",
		ImageID:  up.id,
		ImageURL: "/outputs/" + filepath.Base(res.ImagePath),
		Columns:  res.Columns,
		Rows:     res.Rows,
	}
	if res.TextPath != "" {
		h.files.Track(res.TextPath, sessionID, h.fileTTL)
		resp.TextURL = "/outputs/" + filepath.Base(res.TextPath)
	}

	h.jobs.Complete(up.id, res.ImagePath)
	metrics.ConversionsTotal.WithLabelValues("image", "success").Inc()
	logging.Job(up.id).Info("image converted at %dx%d", res.Columns, res.Rows)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, resp)
}

// DownloadImage serves a rendered image as an attachment.
func (h *Handlers) DownloadImage(w http.ResponseWriter, r *http.Request) {
	h.serveDownload(w, r, mux.Vars(r)["id"], ".png", "Image")
}
