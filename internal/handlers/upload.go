package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"asciier/internal/apperr"
	"asciier/internal/media"
	"asciier/internal/mediatypes"
	"asciier/internal/metrics"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

const (
	// multipartOverhead allows for form boundaries and small fields on top
	// of the file itself.
	multipartOverhead = 1 << 20

	// multipartMemory is how much of a form is held in memory before
	// spilling to temp files.
	multipartMemory = 8 << 20
)

// upload is a received file saved under the upload directory.
type upload struct {
	id      string
	path    string
	columns int
	size    int64
}

// receiveUpload validates the multipart file in field and saves it as
// <uploadDir>/<uuid><ext>. Nothing is written when validation fails.
func (h *Handlers) receiveUpload(w http.ResponseWriter, r *http.Request, field string, kind mediatypes.FileType, limit int64, defColumns int) (*upload, error) {
	label := string(kind)
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.UploadsRejected.WithLabelValues(label, "too_large").Inc()
			return nil, fmt.Errorf("%w: %s uploads are limited to %s", apperr.ErrResourceExhaustion, kind, humanize.Bytes(uint64(limit)))
		}
		metrics.UploadsRejected.WithLabelValues(label, "missing").Inc()
		return nil, badRequest("No " + label + " file uploaded")
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(field)
	if err != nil {
		metrics.UploadsRejected.WithLabelValues(label, "missing").Inc()
		return nil, badRequest("No " + label + " file uploaded")
	}
	defer file.Close()

	if header.Size > limit {
		metrics.UploadsRejected.WithLabelValues(label, "too_large").Inc()
		return nil, fmt.Errorf("%w: %s is %s, %s uploads are limited to %s", apperr.ErrResourceExhaustion,
			filepath.Base(header.Filename), humanize.Bytes(uint64(header.Size)), kind, humanize.Bytes(uint64(limit)))
	}

	if err := mediatypes.CheckUpload(kind, header.Filename, header.Header.Get("Content-Type")); err != nil {
		metrics.UploadsRejected.WithLabelValues(label, "unsupported").Inc()
		return nil, err
	}

	up := &upload{
		id:      uuid.NewString(),
		columns: parseColumns(r.FormValue("width"), defColumns),
		size:    header.Size,
	}
	up.path = filepath.Join(h.uploadDir, up.id+mediatypes.Ext(header.Filename))

	if err := media.WriteFileAtomic(up.path, func(f *os.File) error {
		_, err := io.Copy(f, file)
		return err
	}); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	metrics.UploadBytes.WithLabelValues(label).Observe(float64(up.size))
	return up, nil
}

// serveDownload sends <outputDir>/<id><ext> as an attachment named
// ascii_<id><ext>. Only UUID ids are accepted.
func (h *Handlers) serveDownload(w http.ResponseWriter, r *http.Request, id, ext, what string) {
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, notFound(what+" not found"))
		return
	}

	path := filepath.Join(h.outputDir, id+ext)
	if _, err := os.Stat(path); err != nil {
		writeError(w, notFound(what+" not found"))
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "ascii_"+id+ext))
	w.Header().Set("Content-Type", mediatypes.GetMimeType(ext))
	http.ServeFile(w, r, path)
}
