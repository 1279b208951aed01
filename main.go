package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-ingest/internal/backfill"
	"media-ingest/internal/classify"
	"media-ingest/internal/database"
	"media-ingest/internal/handlers"
	"media-ingest/internal/ingest"
	"media-ingest/internal/logging"
	"media-ingest/internal/media"
	"media-ingest/internal/memory"
	"media-ingest/internal/metrics"
	"media-ingest/internal/middleware"
	"media-ingest/internal/source"
	"media-ingest/internal/startup"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
)

const (
	statusKeyPrefix = "media-ingest:status:"
	shutdownTimeout = 30 * time.Second
)

// services are the long-running components stopped on shutdown.
type services struct {
	server    *http.Server
	backfill  *backfill.Reprocessor
	collector *metrics.Collector
	monitor   *memory.Monitor
	redis     *redis.Client
}

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	startup.LogMemoryConfig(memory.ConfigureFromEnv())
	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start()

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	if config.VipsEnabled {
		media.InitVips()
	}

	dbStart := time.Now()
	db, err := database.New(context.Background(), config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	sourceCtx, cancelSource := context.WithTimeout(context.Background(), 10*time.Second)
	sources, storageName, err := source.Open(sourceCtx, config.SourceSettings())
	cancelSource()
	if err != nil {
		startup.LogFatal("Failed to initialize source store: %v", err)
	}

	status, redisClient, statusName, err := newStatusStore(config)
	if err != nil {
		startup.LogFatal("Failed to initialize status store: %v", err)
	}

	pipelineConfig := ingest.Config{
		Store:   db,
		Status:  status,
		Workers: config.IngestWorkers,
		Memory:  monitor,
	}
	if config.ClassifierURL != "" {
		pipelineConfig.Classifier = classify.New(config.ClassifierURL, config.ClassifierTimeout)
	}
	pipeline := ingest.New(pipelineConfig)
	startup.LogPipelineInit(storageName, statusName, config.IngestWorkers, config.ClassifierURL != "")

	startup.LogBackfillInit(config.BackfillPageSize, config.BackfillInterval)
	reprocessor := backfill.New(db, sources, config.BackfillPageSize, config.BackfillInterval)
	reprocessor.SetMemoryGate(monitor)
	reprocessor.Start()

	collector := metrics.NewCollector(db, time.Minute)
	collector.Start()

	h := handlers.New(db, pipeline, sources, reprocessor, config.MaxUploadBytes)
	router := setupRouter(h)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.CorrelationID(middleware.Logger(loggingConfig)(router))

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go handleShutdown(services{
		server:    srv,
		backfill:  reprocessor,
		collector: collector,
		monitor:   monitor,
		redis:     redisClient,
	})

	startup.LogServerStarted(config.Port, time.Since(startTime))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))

	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	r.Handle("/metrics", h.MetricsHandler()).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/assets", h.ListAssets).Methods("GET")
	api.HandleFunc("/assets", h.UploadAsset).Methods("POST")
	api.HandleFunc("/assets/{id}", h.GetAsset).Methods("GET")
	api.HandleFunc("/assets/{id}", h.EditAsset).Methods("PATCH")
	api.HandleFunc("/assets/{id}", h.DeleteAsset).Methods("DELETE")
	api.HandleFunc("/assets/{id}/image", h.ReplaceImage).Methods("PUT")
	api.HandleFunc("/uploads/{correlationId}", h.GetUploadStatus).Methods("GET")
	api.HandleFunc("/backfill", h.TriggerBackfill).Methods("POST")
	api.HandleFunc("/backfill", h.GetBackfill).Methods("GET")

	return r
}

// newStatusStore returns a Redis-backed store when REDIS_ADDR is set and an
// in-process one otherwise.
func newStatusStore(config *startup.Config) (ingest.StatusStore, *redis.Client, string, error) {
	if !config.RedisEnabled() {
		return ingest.NewMemoryStatusStore(config.StatusTTL), nil, "memory", nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	store := ingest.NewRedisStatusStore(client, statusKeyPrefix, config.StatusTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, "", err
	}
	return store, client, "redis " + config.RedisAddr, nil
}

func handleShutdown(s services) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownStep("Stopping backfill")
	s.backfill.Stop()
	startup.LogShutdownStepComplete("Backfill stopped")

	startup.LogShutdownStep("Stopping metrics collector")
	s.collector.Stop()
	startup.LogShutdownStepComplete("Metrics collector stopped")

	s.monitor.Stop()

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logging.Warn("Redis close error: %v", err)
		}
	}

	media.ShutdownVips()
	startup.LogShutdownComplete()
}
