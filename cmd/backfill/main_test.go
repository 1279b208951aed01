package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"media-ingest/internal/backfill"
	"media-ingest/internal/database"
	"media-ingest/internal/ingest"
	"media-ingest/internal/source"
	"media-ingest/internal/startup"
	"media-ingest/internal/testutil"
)

func testConfig(t *testing.T) *startup.Config {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "db"), 0o755); err != nil {
		t.Fatal(err)
	}
	return &startup.Config{
		DatabaseDir:      filepath.Join(dir, "db"),
		StorageDir:       filepath.Join(dir, "storage"),
		FetchTimeout:     5 * time.Second,
		MaxUploadBytes:   10 << 20,
		BackfillPageSize: 2,
	}
}

// seed stores an original and inserts an asset pointing at it.
func seed(t *testing.T, cfg *startup.Config, id string, data []byte) {
	t.Helper()
	ctx := context.Background()

	files, err := source.NewFileStore(cfg.StorageDir)
	if err != nil {
		t.Fatal(err)
	}
	url, err := files.Put(ctx, id+".jpg", data, "image/jpeg")
	if err != nil {
		t.Fatal(err)
	}

	db, err := database.New(ctx, filepath.Join(cfg.DatabaseDir, "media.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = db.InsertAsset(ctx, &database.Asset{
		ID:        id,
		SourceURL: url,
		Width:     32,
		Height:    24,
		Metadata:  database.Metadata{Status: database.StatusCompleted},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func execute(t *testing.T, cfg *startup.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(cfg)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseStages(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    []ingest.Stage
		wantErr bool
	}{
		{"empty means all", nil, []ingest.Stage{}, false},
		{"single", []string{"exif"}, []ingest.Stage{ingest.StageExif}, false},
		{"several", []string{"fingerprint", "histogram"}, []ingest.Stage{ingest.StageFingerprint, ingest.StageHistogram}, false},
		{"unknown", []string{"exif", "thumbnail"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStages(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseStages() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseStages() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("stage %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRootCommandDefaults(t *testing.T) {
	cfg := testConfig(t)
	cfg.VipsEnabled = true
	cmd := newRootCmd(cfg)

	if cmd.Use != "backfill" || cmd.Short == "" {
		t.Errorf("command = %q/%q", cmd.Use, cmd.Short)
	}
	flags := []struct {
		name string
		want string
	}{
		{"page-size", "2"},
		{"database-dir", cfg.DatabaseDir},
		{"storage-dir", cfg.StorageDir},
		{"json", "false"},
		{"vips", "true"},
		{"stages", "[]"},
	}
	for _, f := range flags {
		t.Run(f.name, func(t *testing.T) {
			flag := cmd.Flags().Lookup(f.name)
			if flag == nil {
				t.Fatalf("flag --%s not registered", f.name)
			}
			if flag.DefValue != f.want {
				t.Errorf("--%s default = %q, want %q", f.name, flag.DefValue, f.want)
			}
		})
	}
}

func TestRunFillsMissingFields(t *testing.T) {
	cfg := testConfig(t)
	data := testutil.MustJPEG(t, testutil.SonyA7IV(), 32, 24)
	seed(t, cfg, "a1", data)
	seed(t, cfg, "a2", testutil.MustJPEG(t, testutil.SonyA7IV(), 40, 24))
	seed(t, cfg, "a3", testutil.MustJPEG(t, testutil.SonyA7IV(), 48, 24))

	out, err := execute(t, cfg, "--json", "--vips=false")
	if err != nil {
		t.Fatalf("Execute() error = %v\n%s", err, out)
	}

	var summary backfill.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("summary is not JSON: %v\n%s", err, out)
	}
	if summary != (backfill.Summary{Total: 3, Updated: 3}) {
		t.Errorf("summary = %+v, want 3 updated", summary)
	}

	reopened, err := database.New(context.Background(), filepath.Join(cfg.DatabaseDir, "media.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	a, err := reopened.GetAsset(context.Background(), "a1")
	if err != nil {
		t.Fatal(err)
	}
	if a.Metadata.Camera == "" || a.Metadata.Placeholder == "" || a.Metadata.ContentHash == "" {
		t.Errorf("metadata not filled: %+v", a.Metadata)
	}
}

func TestRunSingleStage(t *testing.T) {
	cfg := testConfig(t)
	seed(t, cfg, "a1", testutil.MustJPEG(t, testutil.SonyA7IV(), 32, 24))

	if out, err := execute(t, cfg, "--stages", "exif", "--vips=false"); err != nil {
		t.Fatalf("Execute() error = %v\n%s", err, out)
	}

	db, err := database.New(context.Background(), filepath.Join(cfg.DatabaseDir, "media.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	a, err := db.GetAsset(context.Background(), "a1")
	if err != nil {
		t.Fatal(err)
	}
	if a.Metadata.Camera == "" {
		t.Error("exif stage did not run")
	}
	if a.Metadata.Placeholder != "" || a.Metadata.Histogram != nil {
		t.Errorf("stages outside --stages ran: %+v", a.Metadata)
	}
}

func TestRunFailedRecordExitsNonZero(t *testing.T) {
	cfg := testConfig(t)
	seed(t, cfg, "bad", []byte("not an image"))

	out, err := execute(t, cfg, "--vips=false")
	if err == nil || !strings.Contains(err.Error(), "1 records failed") {
		t.Errorf("Execute() error = %v, want failed record error", err)
	}
	if !strings.Contains(out, "Failed:   1") {
		t.Errorf("output missing failure count:\n%s", out)
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown stage", []string{"--stages", "thumbnail"}},
		{"zero page size", []string{"--page-size", "0"}},
		{"page size over limit", []string{"--page-size", "501"}},
		{"positional args", []string{"extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, testConfig(t), append(tt.args, "--vips=false")...); err == nil {
				t.Error("Execute() error = nil, want error")
			}
		})
	}
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	s := backfill.Summary{Total: 4, Updated: 2, Skipped: 1, Failed: 1}
	if err := printSummary(&out, s, 1500*time.Millisecond, false); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"1.5s", "Total:    4", "Updated:  2", "Skipped:  1", "Failed:   1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("summary missing %q:\n%s", want, out.String())
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if isTerminal(&bytes.Buffer{}) {
		t.Error("isTerminal(buffer) = true")
	}
}
