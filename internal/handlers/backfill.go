package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"media-ingest/internal/backfill"
	"media-ingest/internal/ingest"
)

// BackfillRequest optionally narrows a triggered run.
type BackfillRequest struct {
	Stages []string `json:"stages,omitempty"`
}

// BackfillStatus is returned by GetBackfill.
type BackfillStatus struct {
	Running  bool              `json:"running"`
	Progress backfill.Progress `json:"progress"`
	LastRun  string            `json:"lastRun,omitempty"`
	Last     *backfill.Summary `json:"lastSummary,omitempty"`
}

// TriggerBackfill starts a backfill run in the background. It answers 202
// when the run started and 409 when one is already in progress.
func (h *Handlers) TriggerBackfill(w http.ResponseWriter, r *http.Request) {
	var req BackfillRequest
	if r.ContentLength != 0 {
		err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req)
		if err != nil && !errors.Is(err, io.EOF) {
			writeJSONError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if v := r.URL.Query().Get("stages"); v != "" {
		req.Stages = append(req.Stages, strings.Split(v, ",")...)
	}

	stages := make([]ingest.Stage, 0, len(req.Stages))
	for _, s := range req.Stages {
		st, err := ingest.ParseStage(strings.TrimSpace(s))
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		stages = append(stages, st)
	}

	err := h.backfill.Trigger(backfill.Options{Stages: stages})
	if errors.Is(err, backfill.ErrAlreadyRunning) {
		writeJSONError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

// GetBackfill reports the running flag, current progress and the last
// completed run. After a restart the last run is read from the database.
func (h *Handlers) GetBackfill(w http.ResponseWriter, r *http.Request) {
	resp := BackfillStatus{
		Running:  h.backfill.IsRunning(),
		Progress: h.backfill.GetProgress(),
	}

	last, summary := h.backfill.LastRun()
	if summary == nil {
		ctx := r.Context()
		if t, err := h.db.GetLastBackfillRun(ctx); err != nil {
			log.Warn("failed to read last backfill run: %v", err)
		} else {
			last = t
		}
		if raw, err := h.db.GetLastBackfillSummary(ctx); err == nil && raw != "" {
			var s backfill.Summary
			if err := json.Unmarshal([]byte(raw), &s); err == nil {
				summary = &s
			}
		}
	}
	if !last.IsZero() {
		resp.LastRun = last.UTC().Format(time.RFC3339)
	}
	resp.Last = summary
	writeJSON(w, http.StatusOK, resp)
}
