package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"media-ingest/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

const healthTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	Database     string `json:"database"`
	StatusStore  string `json:"statusStore"`
	Backfilling  bool   `json:"backfilling"`
	LastBackfill string `json:"lastBackfill,omitempty"`

	// Assets counts records by processing status.
	Assets map[string]int `json:"assets,omitempty"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service and its
// dependencies. It answers 503 when any dependency is unreachable.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	response := HealthResponse{
		Status:       statusHealthy,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Database:     "ok",
		StatusStore:  "ok",
		Backfilling:  h.backfill.IsRunning(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if err := h.db.Ping(ctx); err != nil {
		log.Warn("health: database ping failed: %v", err)
		response.Database = "unavailable"
		response.Status = statusDegraded
	} else if counts, err := h.db.CountByStatus(ctx); err == nil {
		response.Assets = make(map[string]int, len(counts))
		for status, n := range counts {
			response.Assets[string(status)] = n
		}
	}
	if err := h.pingStatusStore(ctx); err != nil {
		log.Warn("health: status store ping failed: %v", err)
		response.StatusStore = "unavailable"
		response.Status = statusDegraded
	}
	if last, _ := h.backfill.LastRun(); !last.IsZero() {
		response.LastBackfill = last.UTC().Format(time.RFC3339)
	}

	code := http.StatusOK
	if response.Status != statusHealthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ReadinessCheck returns 200 only when the database and status store answer
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	if err := h.pingStatusStore(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *Handlers) pingStatusStore(ctx context.Context) error {
	if p, ok := h.pipeline.StatusStore().(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
