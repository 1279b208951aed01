package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"media-ingest/internal/backfill"
	"media-ingest/internal/database"
	"media-ingest/internal/ingest"
	"media-ingest/internal/media"
	"media-ingest/internal/source"
	"media-ingest/internal/startup"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Default timeout for opening stores
const openTimeout = 30 * time.Second

type options struct {
	stages      []string
	pageSize    int
	databaseDir string
	storageDir  string
	jsonOutput  bool
	vips        bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(startup.ReadEnv()).ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *startup.Config) *cobra.Command {
	opts := &options{
		pageSize:    cfg.BackfillPageSize,
		databaseDir: cfg.DatabaseDir,
		storageDir:  cfg.StorageDir,
		vips:        cfg.VipsEnabled,
	}

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Fill missing derived metadata on stored assets",
		Long: `Walk every stored asset and compute the derived fields it is missing.

Each record is fetched from its source URL, only the absent derivations run,
and the merged result is written back. Explicit and previously stored values
are never overwritten. Interrupting the run stops it between records; work
already written is kept.

Stages: fingerprint, placeholder, histogram, exif.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stages, err := parseStages(opts.stages)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cfg, opts, stages)
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.stages, "stages", nil, "comma separated stages to run (default all)")
	f.IntVar(&opts.pageSize, "page-size", opts.pageSize, "records read per page")
	f.StringVar(&opts.databaseDir, "database-dir", opts.databaseDir, "directory holding media.db (env DATABASE_DIR)")
	f.StringVar(&opts.storageDir, "storage-dir", opts.storageDir, "local originals directory when S3 is not configured (env STORAGE_DIR)")
	f.BoolVar(&opts.jsonOutput, "json", false, "print the summary as JSON")
	f.BoolVar(&opts.vips, "vips", opts.vips, "decode with libvips when available")
	return cmd
}

func parseStages(names []string) ([]ingest.Stage, error) {
	stages := make([]ingest.Stage, 0, len(names))
	for _, name := range names {
		st, err := ingest.ParseStage(name)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stages, nil
}

func run(ctx context.Context, out io.Writer, cfg *startup.Config, opts *options, stages []ingest.Stage) error {
	if opts.pageSize <= 0 || opts.pageSize > database.MaxListLimit {
		return fmt.Errorf("page size must be between 1 and %d", database.MaxListLimit)
	}

	if opts.vips {
		media.InitVips()
		defer media.ShutdownVips()
	}

	db, err := database.New(ctx, filepath.Join(opts.databaseDir, "media.db"))
	if err != nil {
		return fmt.Errorf("open database in %s: %w", opts.databaseDir, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}()

	settings := cfg.SourceSettings()
	settings.StorageDir = opts.storageDir
	openCtx, cancel := context.WithTimeout(ctx, openTimeout)
	sources, _, err := source.Open(openCtx, settings)
	cancel()
	if err != nil {
		return fmt.Errorf("open source store: %w", err)
	}

	reprocessor := backfill.New(db, sources, opts.pageSize, 0)
	runOpts := backfill.Options{Stages: stages}
	progress := isTerminal(out)
	if progress {
		runOpts.OnRecord = func(_ string, _ backfill.Result, s backfill.Summary) {
			fmt.Fprintf(out, "\r  %d processed, %d updated, %d skipped, %d failed", s.Total, s.Updated, s.Skipped, s.Failed)
		}
	}

	start := time.Now()
	summary, runErr := reprocessor.Run(ctx, runOpts)
	if progress {
		fmt.Fprintln(out)
	}

	if err := printSummary(out, summary, time.Since(start), opts.jsonOutput); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("backfill stopped: %w", runErr)
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d records failed", summary.Failed)
	}
	return nil
}

func printSummary(out io.Writer, s backfill.Summary, d time.Duration, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Fprintf(out, "Backfill finished in %v\n", d.Round(time.Millisecond))
	fmt.Fprintf(out, "  Total:    %d\n", s.Total)
	fmt.Fprintf(out, "  Updated:  %d\n", s.Updated)
	fmt.Fprintf(out, "  Skipped:  %d\n", s.Skipped)
	fmt.Fprintf(out, "  Failed:   %d\n", s.Failed)
	return nil
}

// isTerminal reports whether out is an interactive terminal, in which case
// per-record progress is drawn on one line.
func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
