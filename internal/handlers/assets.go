package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"media-ingest/internal/database"
	"media-ingest/internal/exifmeta"

	"github.com/gorilla/mux"
)

const defaultPageSize = 50

// AssetPage is one keyset page of assets.
type AssetPage struct {
	Assets []database.Asset `json:"assets"`
	// Next is the cursor for the following page, empty on the last one.
	Next string `json:"next,omitempty"`
}

// GetAsset returns one asset.
func (h *Handlers) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.db.GetAsset(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

// ListAssets returns a page of assets ordered by id. Query parameters:
// after (cursor), limit (1-500) and contentHash, which restricts the page to
// exact duplicates of an image.
func (h *Handlers) ListAssets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultPageSize
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > database.MaxListLimit {
			writeJSONError(w, fmt.Sprintf("limit must be between 1 and %d", database.MaxListLimit), http.StatusBadRequest)
			return
		}
		limit = n
	}

	if hash := strings.TrimSpace(q.Get("contentHash")); hash != "" {
		h.listDuplicates(w, r, hash)
		return
	}

	assets, err := h.db.ListAssets(r.Context(), q.Get("after"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	page := AssetPage{Assets: assets}
	if page.Assets == nil {
		page.Assets = []database.Asset{}
	}
	if len(assets) == limit {
		page.Next = assets[len(assets)-1].ID
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) listDuplicates(w http.ResponseWriter, r *http.Request, hash string) {
	ids, err := h.db.FindByContentHash(r.Context(), hash)
	if err != nil {
		writeError(w, err)
		return
	}
	page := AssetPage{Assets: make([]database.Asset, 0, len(ids))}
	for _, id := range ids {
		a, err := h.db.GetAsset(r.Context(), id)
		if err != nil {
			// Deleted between the two queries.
			continue
		}
		page.Assets = append(page.Assets, *a)
	}
	writeJSON(w, http.StatusOK, page)
}

// EditAsset applies a human edit to curated fields. Present keys overwrite
// unconditionally, an empty string clears the field, absent keys are kept.
func (h *Handlers) EditAsset(w http.ResponseWriter, r *http.Request) {
	var edit database.Edit
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&edit); err != nil {
		writeJSONError(w, "invalid edit: "+err.Error(), http.StatusBadRequest)
		return
	}
	if edit.CaptureTime != nil && strings.TrimSpace(*edit.CaptureTime) != "" {
		canonical := exifmeta.FormatCaptureTime(*edit.CaptureTime)
		if canonical == "" {
			writeJSONError(w, "invalid captureTime", http.StatusBadRequest)
			return
		}
		edit.CaptureTime = &canonical
	}

	ctx := r.Context()
	asset, err := h.db.GetAsset(ctx, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	edit.Apply(asset)
	if err := h.db.UpdateAsset(ctx, asset); err != nil {
		writeError(w, err)
		return
	}
	log.Debug("asset %s edited", asset.ID)
	writeJSON(w, http.StatusOK, asset)
}

// DeleteAsset removes the record and then its stored bytes. Failing to
// remove the bytes is logged; the record is already gone.
func (h *Handlers) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	asset, err := h.db.GetAsset(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.db.DeleteAsset(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	h.discard(ctx, asset.SourceURL)
	w.WriteHeader(http.StatusNoContent)
}
