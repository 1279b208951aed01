package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"media-ingest/internal/database"
	"media-ingest/internal/media"
	"media-ingest/internal/source"
)

// writeJSON encodes v as JSON with the given status code. Encoding errors
// are logged since the header is already sent.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeError maps err onto a status code. Server-side failures are logged
// and reported without detail.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("%v", err)
		writeJSONError(w, http.StatusText(status), status)
		return
	}
	writeJSONError(w, err.Error(), status)
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, media.ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrNotFound), errors.Is(err, source.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &maxBytes), errors.Is(err, source.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, source.ErrUnsupportedScheme):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
