package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/seller-analytics/internal/analytics"
	"github.com/andresuchdata/seller-analytics/internal/cache"
	"github.com/andresuchdata/seller-analytics/internal/config"
	"github.com/andresuchdata/seller-analytics/internal/drive"
	"github.com/andresuchdata/seller-analytics/internal/ingest"
	"github.com/andresuchdata/seller-analytics/internal/repository/postgres"
	"github.com/andresuchdata/seller-analytics/internal/service"
	"github.com/andresuchdata/seller-analytics/internal/storage"
	"github.com/andresuchdata/seller-analytics/pkg/logger"
	"github.com/gorilla/mux"
)

func main() {
	cfg := config.Load()
	logger.Configure(cfg.LogLevel(), cfg.Log.Format)

	ctx := context.Background()

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	reportCache, err := cache.NewReportCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Report cache unavailable, imports will not invalidate it")
		reportCache = cache.NewNoopReportCache()
	}

	rounding, err := analytics.ParseBonusRounding(cfg.Analytics.BonusRounding)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid ANALYTICS_BONUS_ROUNDING")
	}
	salesService := service.NewSalesReportService(
		postgres.NewDatasetRepository(db),
		reportCache,
		service.ReportOptions{BonusRounding: rounding, TopProducts: cfg.Analytics.TopProducts},
	)

	var objectStorage storage.ObjectStorage
	if cfg.Storage.Endpoint != "" {
		client, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize object storage")
		}
		objectStorage = client
	} else {
		logger.Log.Info().Msg("STORAGE_ENDPOINT not set, storage imports disabled")
	}

	r := mux.NewRouter()

	var driveSource ingest.DriveSource
	if cfg.Drive.CredentialsJSON != "" {
		driveService, err := drive.NewService(ctx, cfg.Drive.CredentialsJSON)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize Google Drive service")
		}
		driveSource = driveService
		drive.NewHandler(driveService).RegisterRoutes(r)
	} else {
		logger.Log.Info().Msg("GOOGLE_DRIVE_CREDENTIALS_JSON not set, drive imports disabled")
	}

	ingestService := ingest.NewService(salesService, objectStorage, driveSource, cfg.Storage.Prefix)
	ingest.NewHandler(ingestService, cfg.Server.MaxBodyBytes).RegisterRoutes(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.IngestPort),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("addr", srv.Addr).Msg("Ingest server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start ingest server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Ingest server forced to shutdown")
	}
}
