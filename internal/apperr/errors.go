// Package apperr defines the error taxonomy shared by the conversion
// pipeline and the HTTP boundary.
package apperr

import (
	"errors"
	"net/http"
)

// Sentinel errors for conversion and lookup failures.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUnsupportedFormat indicates the upload's extension or MIME type is
	// not on the allow-list. It is raised before any job is created.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrCodecFailure indicates the image codec failed to decode or encode.
	ErrCodecFailure = errors.New("image codec failure")

	// ErrTranscodeFailure indicates ffmpeg/ffprobe failed at some stage.
	ErrTranscodeFailure = errors.New("transcode failure")

	// ErrResourceExhaustion indicates an upload exceeded its size limit.
	ErrResourceExhaustion = errors.New("upload exceeds size limit")

	// ErrNotFound indicates the requested artifact or job does not exist.
	ErrNotFound = errors.New("not found")
)

// HTTPStatus maps an error from the taxonomy onto a response status code.
// Errors outside the taxonomy map to 500.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrResourceExhaustion):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
