package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"media-ingest/internal/database"
	"media-ingest/internal/ingest"
	"media-ingest/internal/mediatypes"
	"media-ingest/internal/middleware"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// upload is a parsed multipart request.
type upload struct {
	data        []byte
	ext         string
	contentType string
	title       string
	description string
	fields      *database.Metadata
}

// UploadStatusResponse is returned by GetUploadStatus.
type UploadStatusResponse struct {
	CorrelationID string          `json:"correlationId"`
	Status        database.Status `json:"status"`
}

// UploadAsset stores the uploaded bytes and ingests them as a new asset.
//
// Form fields: file (required), title, description and metadata, a JSON
// object of caller-supplied metadata fields.
func (h *Handlers) UploadAsset(w http.ResponseWriter, r *http.Request) {
	up, err := h.readUpload(w, r)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	ctx := r.Context()
	id := uuid.NewString()
	sourceURL, err := h.sources.Put(ctx, id+up.ext, up.data, up.contentType)
	if err != nil {
		writeError(w, fmt.Errorf("store upload: %w", err))
		return
	}

	asset, err := h.pipeline.Ingest(ctx, ingest.Request{
		ID:            id,
		Data:          up.data,
		SourceURL:     sourceURL,
		Title:         up.title,
		Description:   up.description,
		Fields:        up.fields,
		CorrelationID: middleware.CorrelationIDFrom(ctx),
	})
	if err != nil {
		h.discard(ctx, sourceURL)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

// ReplaceImage swaps the image of an existing asset. Content fields are
// re-derived from the new bytes; curated values keep their precedence. The
// previous bytes are removed once the record points at the new ones.
func (h *Handlers) ReplaceImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	existing, err := h.db.GetAsset(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}

	up, err := h.readUpload(w, r)
	if err != nil {
		writeUploadError(w, err)
		return
	}

	sourceURL, err := h.sources.Put(ctx, uuid.NewString()+up.ext, up.data, up.contentType)
	if err != nil {
		writeError(w, fmt.Errorf("store upload: %w", err))
		return
	}

	asset, err := h.pipeline.Replace(ctx, id, ingest.Request{
		Data:          up.data,
		SourceURL:     sourceURL,
		Title:         up.title,
		Description:   up.description,
		Fields:        up.fields,
		CorrelationID: middleware.CorrelationIDFrom(ctx),
	})
	if err != nil {
		h.discard(ctx, sourceURL)
		writeError(w, err)
		return
	}
	if existing.SourceURL != "" && existing.SourceURL != asset.SourceURL {
		h.discard(ctx, existing.SourceURL)
	}
	writeJSON(w, http.StatusOK, asset)
}

// GetUploadStatus reports the processing status recorded for a correlation
// id.
func (h *Handlers) GetUploadStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["correlationId"]
	status, ok, err := h.pipeline.StatusStore().Get(r.Context(), id)
	if err != nil {
		writeError(w, fmt.Errorf("read status %s: %w", id, err))
		return
	}
	if !ok {
		writeJSONError(w, "unknown correlation id", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, UploadStatusResponse{CorrelationID: id, Status: status})
}

// errBadUpload marks client mistakes in the multipart body.
var errBadUpload = errors.New("bad upload")

func writeUploadError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBadUpload) {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeError(w, err)
}

func (h *Handlers) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errBadUpload, err)
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			log.Warn("failed to remove multipart temp files: %v", err)
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: missing file field", errBadUpload)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", errBadUpload)
	}

	up := &upload{
		data:        data,
		title:       strings.TrimSpace(r.FormValue("title")),
		description: strings.TrimSpace(r.FormValue("description")),
	}
	up.ext = strings.ToLower(filepath.Ext(header.Filename))
	if _, ok := mediatypes.MimeTypes[up.ext]; !ok {
		up.ext = ""
	}
	up.contentType = mediatypes.GetMimeType(up.ext)

	if raw := strings.TrimSpace(r.FormValue("metadata")); raw != "" {
		var fields database.Metadata
		if err := json.Unmarshal([]byte(raw), &fields); err != nil {
			return nil, fmt.Errorf("%w: invalid metadata: %v", errBadUpload, err)
		}
		up.fields = &fields
	}
	return up, nil
}

// discard removes stored bytes on a best-effort basis.
func (h *Handlers) discard(ctx context.Context, sourceURL string) {
	if sourceURL == "" {
		return
	}
	if err := h.sources.Delete(context.WithoutCancel(ctx), sourceURL); err != nil {
		log.Warn("failed to remove %s: %v", sourceURL, err)
	}
}
