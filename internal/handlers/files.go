package handlers

import (
	"net/http"

	"asciier/internal/lifecycle"
	"asciier/internal/middleware"
)

// FilesResponse lists tracked files and when they expire.
type FilesResponse struct {
	Count int                  `json:"count"`
	Files []lifecycle.FileInfo `json:"files"`
}

// ListFiles returns the tracked files, flagging those owned by the caller.
// With ?mine=true only the caller's session is listed. Owning session ids
// are never included.
func (h *Handlers) ListFiles(w http.ResponseWriter, r *http.Request) {
	files := h.files.Snapshot()
	sessionID := middleware.SessionID(r.Context())
	onlyMine := r.URL.Query().Get("mine") == "true"

	kept := files[:0]
	for _, f := range files {
		f.Mine = sessionID != "" && f.Session == sessionID
		if onlyMine && !f.Mine {
			continue
		}
		kept = append(kept, f)
	}
	files = kept
	if files == nil {
		files = []lifecycle.FileInfo{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	writeJSON(w, FilesResponse{Count: len(files), Files: files})
}
