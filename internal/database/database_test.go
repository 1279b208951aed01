package database

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupTestDB(t testing.TB) (db *Database, dbPath string) {
	t.Helper()

	dbPath = filepath.Join(t.TempDir(), "test.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db, dbPath
}

func testAsset(id string) *Asset {
	return &Asset{
		ID:        id,
		Title:     "Harbour at dusk",
		SourceURL: "file:///storage/" + id,
		Width:     640,
		Height:    480,
		Metadata: Metadata{
			Camera:      "Sony A7IV",
			Aperture:    "f/1.8",
			ISO:         "400",
			Latitude:    Float(51.5),
			Longitude:   Float(-0.12),
			FileSize:    Int64(2048),
			ContentHash: strings.Repeat("ab", 32),
			Status:      StatusCompleted,
		},
	}
}

func TestInsertAndGetAsset(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	in := testAsset("a1")
	if err := db.InsertAsset(ctx, in); err != nil {
		t.Fatalf("InsertAsset() error = %v", err)
	}
	if in.CreatedAt.IsZero() || in.UpdatedAt.IsZero() {
		t.Error("InsertAsset() should set timestamps")
	}

	got, err := db.GetAsset(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAsset() error = %v", err)
	}
	if got.Title != in.Title || got.Width != 640 || got.Height != 480 {
		t.Errorf("GetAsset() = %+v, want title/dimensions of inserted asset", got)
	}
	if got.Metadata.Camera != "Sony A7IV" || got.Metadata.ISO != "400" {
		t.Errorf("Metadata = %+v, want camera and iso preserved", got.Metadata)
	}
	if got.Metadata.Latitude == nil || *got.Metadata.Latitude != 51.5 {
		t.Errorf("Latitude = %v, want 51.5", got.Metadata.Latitude)
	}
	if got.Metadata.FileSize == nil || *got.Metadata.FileSize != 2048 {
		t.Errorf("FileSize = %v, want 2048", got.Metadata.FileSize)
	}
}

func TestAbsentMetadataKeysStayAbsent(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if err := db.InsertAsset(ctx, &Asset{ID: "sparse", Width: 1, Height: 1}); err != nil {
		t.Fatalf("InsertAsset() error = %v", err)
	}

	var blob string
	if err := db.db.QueryRowContext(ctx, `SELECT metadata FROM assets WHERE id = ?`, "sparse").Scan(&blob); err != nil {
		t.Fatalf("query metadata: %v", err)
	}
	if blob != "{}" {
		t.Errorf("metadata blob = %s, want {}", blob)
	}

	got, err := db.GetAsset(ctx, "sparse")
	if err != nil {
		t.Fatalf("GetAsset() error = %v", err)
	}
	if got.Metadata.Latitude != nil || got.Metadata.Histogram != nil || got.Metadata.FileSize != nil {
		t.Errorf("optional fields should decode as nil, got %+v", got.Metadata)
	}
	out, err := json.Marshal(got.Metadata)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "{}" {
		t.Errorf("re-encoded metadata = %s, want {}", out)
	}
}

func TestFlattenedColumnsMatchMetadata(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	a := testAsset("flat")
	if err := db.InsertAsset(ctx, a); err != nil {
		t.Fatalf("InsertAsset() error = %v", err)
	}

	a.Metadata.Camera = "Canon EOS R5"
	a.Metadata.Latitude = nil
	if err := db.UpdateAsset(ctx, a); err != nil {
		t.Fatalf("UpdateAsset() error = %v", err)
	}

	var camera, status string
	var lat *float64
	err := db.db.QueryRowContext(ctx,
		`SELECT camera, latitude, status FROM assets WHERE id = ?`, "flat").Scan(&camera, &lat, &status)
	if err != nil {
		t.Fatalf("query columns: %v", err)
	}
	if camera != "Canon EOS R5" {
		t.Errorf("camera column = %q, want %q", camera, "Canon EOS R5")
	}
	if lat != nil {
		t.Errorf("latitude column = %v, want NULL", *lat)
	}
	if status != string(StatusCompleted) {
		t.Errorf("status column = %q, want %q", status, StatusCompleted)
	}
}

func TestUpdateAssetNotFound(t *testing.T) {
	db, _ := setupTestDB(t)

	err := db.UpdateAsset(context.Background(), testAsset("missing"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateAsset() error = %v, want ErrNotFound", err)
	}
}

func TestGetAssetNotFound(t *testing.T) {
	db, _ := setupTestDB(t)

	_, err := db.GetAsset(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAsset() error = %v, want ErrNotFound", err)
	}
}

func TestListAssetsPaginates(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "e", "b", "d"} {
		if err := db.InsertAsset(ctx, testAsset(id)); err != nil {
			t.Fatalf("InsertAsset(%s) error = %v", id, err)
		}
	}

	var seen []string
	after := ""
	for {
		page, err := db.ListAssets(ctx, after, 2)
		if err != nil {
			t.Fatalf("ListAssets() error = %v", err)
		}
		if len(page) == 0 {
			break
		}
		if len(page) > 2 {
			t.Fatalf("page size = %d, want <= 2", len(page))
		}
		for _, a := range page {
			seen = append(seen, a.ID)
		}
		after = page[len(page)-1].ID
	}

	if got := strings.Join(seen, ","); got != "a,b,c,d,e" {
		t.Errorf("ListAssets order = %s, want a,b,c,d,e", got)
	}
}

func TestDeleteAsset(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	if err := db.InsertAsset(ctx, testAsset("gone")); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteAsset(ctx, "gone"); err != nil {
		t.Fatalf("DeleteAsset() error = %v", err)
	}
	if _, err := db.GetAsset(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAsset() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteAsset(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteAsset() error = %v, want ErrNotFound", err)
	}
}

func TestFindByContentHash(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	first := testAsset("h1")
	second := testAsset("h2")
	other := testAsset("h3")
	other.Metadata.ContentHash = strings.Repeat("cd", 32)
	for _, a := range []*Asset{first, second, other} {
		if err := db.InsertAsset(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	ids, err := db.FindByContentHash(ctx, first.Metadata.ContentHash)
	if err != nil {
		t.Fatalf("FindByContentHash() error = %v", err)
	}
	if strings.Join(ids, ",") != "h1,h2" {
		t.Errorf("FindByContentHash() = %v, want [h1 h2]", ids)
	}
}

func TestCountByStatus(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	statuses := map[string]Status{"s1": StatusCompleted, "s2": StatusCompleted, "s3": StatusFailed}
	for id, status := range statuses {
		a := testAsset(id)
		a.Metadata.Status = status
		if err := db.InsertAsset(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := db.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if counts[StatusCompleted] != 2 || counts[StatusFailed] != 1 || counts[StatusProcessing] != 0 {
		t.Errorf("CountByStatus() = %v", counts)
	}
}

func TestReopenRunsMigrationsIdempotently(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		db, err := New(ctx, dbPath)
		if err != nil {
			t.Fatalf("New() attempt %d error = %v", i+1, err)
		}
		if err := db.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestBackfillRunMetadata(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	last, err := db.GetLastBackfillRun(ctx)
	if err != nil {
		t.Fatalf("GetLastBackfillRun() error = %v", err)
	}
	if !last.IsZero() {
		t.Errorf("GetLastBackfillRun() = %v, want zero time", last)
	}

	when := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := db.SetLastBackfillRun(ctx, when, `{"total":3}`); err != nil {
		t.Fatalf("SetLastBackfillRun() error = %v", err)
	}

	last, err = db.GetLastBackfillRun(ctx)
	if err != nil {
		t.Fatalf("GetLastBackfillRun() error = %v", err)
	}
	if !last.Equal(when) {
		t.Errorf("GetLastBackfillRun() = %v, want %v", last, when)
	}

	summary, err := db.GetLastBackfillSummary(ctx)
	if err != nil {
		t.Fatalf("GetLastBackfillSummary() error = %v", err)
	}
	if summary != `{"total":3}` {
		t.Errorf("GetLastBackfillSummary() = %q", summary)
	}
}

func TestEditApply(t *testing.T) {
	a := testAsset("edit")
	camera := "My Sony"
	empty := ""
	lat := 10.25

	Edit{Camera: &camera, Aperture: &empty, Latitude: &lat}.Apply(a)

	if a.Metadata.Camera != "My Sony" {
		t.Errorf("Camera = %q, want %q", a.Metadata.Camera, "My Sony")
	}
	if a.Metadata.Aperture != "" {
		t.Errorf("Aperture = %q, want cleared", a.Metadata.Aperture)
	}
	if a.Metadata.ISO != "400" {
		t.Errorf("ISO = %q, want untouched 400", a.Metadata.ISO)
	}
	if *a.Metadata.Latitude != 10.25 {
		t.Errorf("Latitude = %v, want 10.25", *a.Metadata.Latitude)
	}
}

func TestEditCoordinatesFromJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLat *float64
		wantLon *float64
		wantErr bool
	}{
		{"absent leaves both", `{"camera":"X"}`, Float(51.5), Float(-0.12), false},
		{"null clears latitude", `{"latitude":null}`, nil, Float(-0.12), false},
		{"null clears both", `{"latitude": null, "longitude" : null}`, nil, nil, false},
		{"value sets", `{"longitude":2.35}`, Float(51.5), Float(2.35), false},
		{"unknown field", `{"altitude":null}`, nil, nil, true},
		{"wrong type", `{"latitude":"north"}`, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Edit
			err := json.Unmarshal([]byte(tt.body), &e)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.body, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			a := testAsset("coords")
			a.Metadata.Latitude = Float(51.5)
			a.Metadata.Longitude = Float(-0.12)
			e.Apply(a)
			if !equalFloat(a.Metadata.Latitude, tt.wantLat) {
				t.Errorf("Latitude = %v, want %v", a.Metadata.Latitude, tt.wantLat)
			}
			if !equalFloat(a.Metadata.Longitude, tt.wantLon) {
				t.Errorf("Longitude = %v, want %v", a.Metadata.Longitude, tt.wantLon)
			}
		})
	}
}

func equalFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
