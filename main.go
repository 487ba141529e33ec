package main

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tabstat/tabstat-engine/pkg/config"
	"github.com/tabstat/tabstat-engine/pkg/database"
	"github.com/tabstat/tabstat-engine/pkg/handlers"
	"github.com/tabstat/tabstat-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// The store is owned here and handed to every engine by reference. There
	// is exactly one per process.
	store, err := database.Open(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to open analytic store: %v", err)
	}
	defer func() { _ = store.Close() }()

	logger.Info("Analytic store opened",
		zap.String("path", cfg.Store.Path),
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version))

	schemaService := services.NewSchemaService(store, logger)
	ingestionService := services.NewIngestionService(store, logger)
	distributionService := services.NewDistributionService(store, schemaService, logger)
	biasService := services.NewBiasService(store, schemaService, logger)
	driftService := services.NewDriftService(store, schemaService, logger)
	fairnessService := services.NewFairnessService(store, schemaService, logger)
	correlationService := services.NewCorrelationService(store, schemaService, logger)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	datasetHandler := handlers.NewDatasetHandler(cfg, store, ingestionService, schemaService, logger)
	datasetHandler.RegisterRoutes(mux)

	statisticsHandler := handlers.NewStatisticsHandler(
		cfg, distributionService, biasService, driftService, fairnessService, correlationService, logger)
	statisticsHandler.RegisterRoutes(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting tabstat-engine", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// newLogger picks the zap preset for the environment.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
