package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"media-ingest/internal/backfill"
	"media-ingest/internal/database"
	"media-ingest/internal/handlers"
	"media-ingest/internal/ingest"
	"media-ingest/internal/middleware"
	"media-ingest/internal/source"
	"media-ingest/internal/startup"
	"media-ingest/internal/testutil"

	"github.com/gorilla/mux"
)

func newTestRouter(t *testing.T) (http.Handler, *mux.Router) {
	t.Helper()
	db := testutil.NewDatabase(t)
	files, err := source.NewFileStore(filepath.Join(t.TempDir(), "storage"))
	if err != nil {
		t.Fatal(err)
	}
	sources := source.NewRouter(source.SchemeFile, files)
	pipeline := ingest.New(ingest.Config{Store: db, Status: ingest.NewMemoryStatusStore(0), Workers: 1})
	rep := backfill.New(db, sources, 10, 0)
	t.Cleanup(rep.Stop)

	router := setupRouter(handlers.New(db, pipeline, sources, rep, 0))
	handler := middleware.CorrelationID(middleware.Logger(middleware.DefaultLoggingConfig())(router))
	return handler, router
}

func TestSetupRouterRoutes(t *testing.T) {
	_, router := newTestRouter(t)

	routes, err := startup.GetRoutes(router)
	if err != nil {
		t.Fatalf("GetRoutes() error = %v", err)
	}
	registered := map[string]bool{}
	for _, r := range routes {
		registered[r.Method+" "+r.Path] = true
	}

	want := []string{
		"GET /health",
		"GET /healthz",
		"GET /livez",
		"HEAD /livez",
		"GET /readyz",
		"GET /version",
		"GET /metrics",
		"GET /api/assets",
		"POST /api/assets",
		"GET /api/assets/{id}",
		"PATCH /api/assets/{id}",
		"DELETE /api/assets/{id}",
		"PUT /api/assets/{id}/image",
		"GET /api/uploads/{correlationId}",
		"POST /api/backfill",
		"GET /api/backfill",
	}
	for _, w := range want {
		if !registered[w] {
			t.Errorf("route %q not registered; have %v", w, registered)
		}
	}
}

func TestRouterMethodAndPathMatching(t *testing.T) {
	handler, _ := newTestRouter(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/livez", http.StatusOK},
		{http.MethodHead, "/livez", http.StatusOK},
		{http.MethodGet, "/version", http.StatusOK},
		{http.MethodGet, "/api/assets", http.StatusOK},
		{http.MethodGet, "/api/assets/missing", http.StatusNotFound},
		{http.MethodPost, "/api/assets/missing", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/uploads/unknown", http.StatusNotFound},
		{http.MethodGet, "/api/backfill", http.StatusOK},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Header().Get(middleware.CorrelationHeader) == "" {
				t.Error("response has no correlation id")
			}
		})
	}
}

func TestUploadThroughRouter(t *testing.T) {
	handler, _ := newTestRouter(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("title", "Harbour"); err != nil {
		t.Fatal(err)
	}
	fw, err := mw.CreateFormFile("file", "harbour.jpg")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(testutil.MustJPEG(t, testutil.SonyA7IV(), 48, 32))
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/assets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.CorrelationHeader, "router-upload-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}

	var created database.Asset
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Title != "Harbour" || created.Width != 48 || created.Metadata.Camera == "" {
		t.Errorf("created asset = %+v", created)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/uploads/router-upload-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status lookup = %d, body %s", rec.Code, rec.Body.String())
	}
	var status handlers.UploadStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Status != database.StatusCompleted {
		t.Errorf("upload status = %q, want completed", status.Status)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assets/"+created.ID, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get asset = %d, want 200", rec.Code)
	}
}
