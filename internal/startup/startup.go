package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"media-ingest/internal/logging"
	"media-ingest/internal/memory"
	"media-ingest/internal/source"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Config holds all application configuration
type Config struct {
	Port        string
	DatabaseDir string
	StorageDir  string

	S3Endpoint  string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3UseSSL    bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StatusTTL     time.Duration

	ClassifierURL     string
	ClassifierTimeout time.Duration

	FetchTimeout     time.Duration
	MaxUploadBytes   int64
	IngestWorkers    int
	BackfillPageSize int
	BackfillInterval time.Duration

	VipsEnabled     bool
	LogHealthChecks bool

	// Derived paths
	DatabasePath string
}

// S3Enabled reports whether object storage replaces the local store.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}

// SourceSettings returns the source store configuration.
func (c *Config) SourceSettings() source.Settings {
	s := source.Settings{
		StorageDir:    c.StorageDir,
		FetchTimeout:  c.FetchTimeout,
		MaxFetchBytes: c.MaxUploadBytes,
	}
	if c.S3Enabled() {
		s.S3 = &source.S3Config{
			Endpoint:  c.S3Endpoint,
			Bucket:    c.S3Bucket,
			AccessKey: c.S3AccessKey,
			SecretKey: c.S3SecretKey,
			UseSSL:    c.S3UseSSL,
		}
	}
	return s
}

// ReadEnv returns the configuration from the environment and an optional
// .env file without the startup banner or directory checks. Command line
// tools use it.
func ReadEnv() *Config {
	_ = godotenv.Load()
	cfg := readEnv()
	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, "media.db")
	return cfg
}

// RedisEnabled reports whether upload status is kept in Redis.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

// LoadConfig loads and validates configuration from environment variables.
// A .env file in the working directory is read first; variables already set
// in the environment win.
func LoadConfig() (*Config, error) {
	envFileErr := godotenv.Load()

	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if envFileErr == nil {
		logging.Info("  Loaded .env file")
	} else if !os.IsNotExist(envFileErr) {
		logging.Warn("  Failed to read .env file: %v", envFileErr)
	}

	cfg := readEnv()

	logging.Info("  PORT:                %s", cfg.Port)
	logging.Info("  DATABASE_DIR:        %s", cfg.DatabaseDir)
	logging.Info("  STORAGE_DIR:         %s", cfg.StorageDir)
	logging.Info("  S3_ENDPOINT:         %s", displayValue(cfg.S3Endpoint))
	logging.Info("  S3_BUCKET:           %s", displayValue(cfg.S3Bucket))
	logging.Info("  S3_USE_SSL:          %v", cfg.S3UseSSL)
	logging.Info("  REDIS_ADDR:          %s", displayValue(cfg.RedisAddr))
	logging.Info("  REDIS_DB:            %d", cfg.RedisDB)
	logging.Info("  STATUS_TTL:          %v", cfg.StatusTTL)
	logging.Info("  CLASSIFIER_URL:      %s", displayValue(cfg.ClassifierURL))
	logging.Info("  CLASSIFIER_TIMEOUT:  %v", cfg.ClassifierTimeout)
	logging.Info("  FETCH_TIMEOUT:       %v", cfg.FetchTimeout)
	logging.Info("  MAX_UPLOAD_MB:       %d", cfg.MaxUploadBytes>>20)
	logging.Info("  INGEST_WORKERS:      %d", cfg.IngestWorkers)
	logging.Info("  BACKFILL_PAGE_SIZE:  %d", cfg.BackfillPageSize)
	logging.Info("  BACKFILL_INTERVAL:   %v", cfg.BackfillInterval)
	logging.Info("  VIPS_ENABLED:        %v", cfg.VipsEnabled)
	logging.Info("  LOG_HEALTH_CHECKS:   %v", cfg.LogHealthChecks)
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	var err error
	cfg.DatabaseDir, err = filepath.Abs(cfg.DatabaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database directory path: %w", err)
	}
	logging.Info("  Database directory (absolute): %s", cfg.DatabaseDir)
	cfg.DatabasePath = filepath.Join(cfg.DatabaseDir, "media.db")

	if err := ensureDirectory(cfg.DatabaseDir, "database"); err != nil {
		return nil, fmt.Errorf("database directory error: %w", err)
	}
	logging.Debug("  Testing database directory write access...")
	if err := testWriteAccess(cfg.DatabaseDir); err != nil {
		return nil, fmt.Errorf("database directory is not writable (required for database): %w", err)
	}
	logging.Info("  [OK] Database directory is writable")

	if cfg.S3Enabled() {
		logging.Info("  Original bytes stored in s3://%s", cfg.S3Bucket)
	} else {
		cfg.StorageDir, err = filepath.Abs(cfg.StorageDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve storage directory path: %w", err)
		}
		if err := ensureDirectory(cfg.StorageDir, "storage"); err != nil {
			return nil, fmt.Errorf("storage directory error: %w", err)
		}
		if err := testWriteAccess(cfg.StorageDir); err != nil {
			return nil, fmt.Errorf("storage directory is not writable: %w", err)
		}
		logging.Info("  [OK] Storage directory is writable: %s", cfg.StorageDir)
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:        ENABLED (required)")
	logging.Info("    Object storage:  %s", enabledString(cfg.S3Enabled()))
	logging.Info("    Redis status:    %s", enabledString(cfg.RedisEnabled()))
	logging.Info("    Classifier:      %s", enabledString(cfg.ClassifierURL != ""))
	logging.Info("    Periodic backfill: %s", enabledString(cfg.BackfillInterval > 0))

	return cfg, nil
}

// readEnv applies defaults to the environment. It does no I/O beyond
// reading variables.
func readEnv() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseDir:       getEnv("DATABASE_DIR", "/database"),
		StorageDir:        getEnv("STORAGE_DIR", "/storage"),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Bucket:          getEnv("S3_BUCKET", ""),
		S3AccessKey:       getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:       getEnv("S3_SECRET_KEY", ""),
		S3UseSSL:          getEnvBool("S3_USE_SSL", false),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		StatusTTL:         getEnvDuration("STATUS_TTL", 24*time.Hour),
		ClassifierURL:     getEnv("CLASSIFIER_URL", ""),
		ClassifierTimeout: getEnvDuration("CLASSIFIER_TIMEOUT", 10*time.Second),
		FetchTimeout:      getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_MB", 50)) << 20,
		IngestWorkers:     getEnvInt("INGEST_WORKERS", runtime.NumCPU()),
		BackfillPageSize:  getEnvInt("BACKFILL_PAGE_SIZE", 100),
		BackfillInterval:  getEnvDuration("BACKFILL_INTERVAL", 0),
		VipsEnabled:       getEnvBool("VIPS_ENABLED", true),
		LogHealthChecks:   getEnvBool("LOG_HEALTH_CHECKS", true),
	}
}

func displayValue(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogMemoryConfig logs how the Go soft memory limit was configured
func LogMemoryConfig(result memory.ConfigResult) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("MEMORY CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if !result.Configured {
		logging.Info("  GOMEMLIMIT: not configured (set MEMORY_LIMIT to enable)")
		return
	}
	logging.Info("  Source:          %s", result.Source)
	logging.Info("  GOMEMLIMIT:      %s", formatBytes(result.GoMemLimit))
	if result.ContainerLimit > 0 {
		logging.Info("  Container limit: %s (ratio %.2f)", formatBytes(result.ContainerLimit), result.Ratio)
	}
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogPipelineInit logs the ingestion components chosen at startup
func LogPipelineInit(storage, status string, workers int, classifier bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("PIPELINE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Source store:    %s", storage)
	logging.Info("  Status store:    %s", status)
	logging.Info("  Workers:         %d", workers)
	logging.Info("  Classifier:      %s", enabledString(classifier))
}

// LogBackfillInit logs backfill configuration
func LogBackfillInit(pageSize int, interval time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("BACKFILL INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Page size:       %d", pageSize)
	if interval > 0 {
		logging.Info("  Interval:        %v", interval)
	} else {
		logging.Info("  Interval:        DISABLED (trigger via POST /api/backfill)")
	}
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	if logHealthChecks {
		logging.Info("  Health check logging: ON")
	} else {
		logging.Info("  Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}
	return first
}

// LogServerStarted logs successful server start
func LogServerStarted(port string, startupDuration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", startupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    API:           http://0.0.0.0:%s/api", port)
	logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", port)
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
    __  ___         ___         ____                      __
   /  |/  /__  ____/ (_)___ _  /  _/___  ____ ____  _____/ /_
  / /|_/ / _ \/ __  / / __ '/  / // __ \/ __ '/ _ \/ ___/ __/
 / /  / /  __/ /_/ / / /_/ / _/ // / / / /_/ /  __(__  ) /_
/_/  /_/\___/\__,_/_/\__,_/ /___/_/ /_/\__, /\___/____/\__/
                                      /____/
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
