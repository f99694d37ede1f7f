package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"asciier/internal/apperr"
	"asciier/internal/logging"
)

// MaxColumns bounds the grid width a client may request.
const MaxColumns = 500

// badRequest is a client mistake outside the conversion error taxonomy. Its
// text is sent to the client as is.
type badRequest string

func (e badRequest) Error() string { return string(e) }

// notFound is a missing artifact. It matches apperr.ErrNotFound while
// keeping a client-facing message.
type notFound string

func (e notFound) Error() string { return string(e) }

func (e notFound) Unwrap() error { return apperr.ErrNotFound }

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, map[string]string{"error": message})
}

// writeError maps err onto a status code and writes it as JSON.
func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	var br badRequest
	if errors.As(err, &br) {
		status = http.StatusBadRequest
	}
	if status >= http.StatusInternalServerError {
		logging.Error("request failed: %v", err)
	} else {
		logging.Debug("request rejected (%d): %v", status, err)
	}
	writeJSONError(w, err.Error(), status)
}

// parseColumns reads the requested grid width. Missing or invalid values
// use def; large values are capped at MaxColumns.
func parseColumns(value string, def int) int {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return def
	}
	return min(n, MaxColumns)
}
