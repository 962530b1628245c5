package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"video-publisher/internal/catalog"
	"video-publisher/internal/credentials"
	"video-publisher/internal/database"
	"video-publisher/internal/fetch"
	"video-publisher/internal/ffmpeg"
	"video-publisher/internal/handlers"
	"video-publisher/internal/logging"
	"video-publisher/internal/memory"
	"video-publisher/internal/merge"
	"video-publisher/internal/metrics"
	"video-publisher/internal/middleware"
	"video-publisher/internal/pipeline"
	"video-publisher/internal/poster"
	"video-publisher/internal/repair"
	"video-publisher/internal/scratch"
	"video-publisher/internal/startup"
	"video-publisher/internal/upload"
)

func main() {
	startTime := time.Now()

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	memory.ConfigureFromEnv()

	metrics.InitializeMetrics()
	metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)

	dbStart := time.Now()
	db, err := database.New(config.DatabasePath)
	if err != nil {
		startup.LogFatal("Database error: %v", err)
	}
	startup.LogDatabaseInit(time.Since(dbStart))

	startup.LogTranscoderInit()

	scratchManager := scratch.NewManager(config.ScratchDir)
	runner := ffmpeg.NewRunner("ffmpeg", config.FFmpegTimeout)

	provider := credentials.NewHTTPProvider(config.AuthURL, config.HTTPTimeout)
	credCache := credentials.NewCache(provider, config.CredentialTTL, config.CredentialLeeway, nil)

	pipelineConfig := pipeline.Config{
		Credentials: credCache,
		Fetcher:     fetch.New(config.RedirectLimit),
		Merger:      merge.NewEngine(runner, scratchManager),
		Uploader:    upload.NewClient(),
		Repair:      repair.NewClient(config.RepairAPIURL, config.HTTPTimeout),
		Scratch:     scratchManager,
	}
	if config.ExplainersEnabled {
		pipelineConfig.Catalog = catalog.NewClient(config.CatalogURL, config.HTTPTimeout)
	}
	if config.PosterEnabled {
		pipelineConfig.Poster = poster.NewGenerator(runner, scratchManager)
	}

	handler := handlers.New(pipeline.New(pipelineConfig), db, scratchManager, config)

	router := mux.NewRouter()
	router.HandleFunc("/api/publish", handler.Publish).Methods(http.MethodPost)
	router.HandleFunc("/api/jobs", handler.ListJobs).Methods(http.MethodGet)
	router.HandleFunc("/api/jobs/{id}", handler.GetJob).Methods(http.MethodGet)
	router.HandleFunc("/health", handler.Health).Methods(http.MethodGet)
	router.HandleFunc("/healthz", handler.Health).Methods(http.MethodGet)
	router.HandleFunc("/livez", handler.Livez).Methods(http.MethodGet)
	router.HandleFunc("/readyz", handler.Readyz).Methods(http.MethodGet)
	router.HandleFunc("/version", handler.Version).Methods(http.MethodGet)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	var root http.Handler = router
	root = middleware.Metrics(middleware.DefaultMetricsConfig())(root)
	root = middleware.Logger(loggingConfig)(root)
	root = handler.RequireAPIKey(root)

	// Publishes stream large bodies and wait on transcodes, so the main
	// server carries no write timeout; the pipeline's own deadlines bound
	// each run.
	server := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var metricsServer *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              ":" + config.MetricsPort,
			Handler:           metricsMux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("metrics server error: %v", err)
			}
		}()
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			startup.LogFatal("Server error: %v", err)
		}
	}()

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	startup.LogShutdownInitiated(sig.String())

	// Let in-flight publishes finish their uploads before pulling the plug.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping HTTP server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error("HTTP server shutdown error: %v", err)
	}
	startup.LogShutdownStepComplete("HTTP server stopped")

	if metricsServer != nil {
		startup.LogShutdownStep("Stopping metrics server")
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logging.Error("metrics server shutdown error: %v", err)
		}
		startup.LogShutdownStepComplete("Metrics server stopped")
	}

	startup.LogShutdownStep("Closing database")
	if err := db.Close(); err != nil {
		logging.Error("database close error: %v", err)
	}
	startup.LogShutdownStepComplete("Database closed")

	startup.LogShutdownComplete()
}
