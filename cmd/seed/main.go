package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/andresuchdata/seller-analytics/internal/analytics"
	"github.com/andresuchdata/seller-analytics/internal/cache"
	"github.com/andresuchdata/seller-analytics/internal/config"
	"github.com/andresuchdata/seller-analytics/internal/drive"
	"github.com/andresuchdata/seller-analytics/internal/ingest"
	"github.com/andresuchdata/seller-analytics/internal/loader"
	"github.com/andresuchdata/seller-analytics/internal/repository/postgres"
	"github.com/andresuchdata/seller-analytics/internal/service"
	"github.com/andresuchdata/seller-analytics/internal/storage"
	"github.com/andresuchdata/seller-analytics/pkg/logger"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func initDB(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.PingContext(c.Context); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, postgres.Wrap(db, "pgx"))
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	return c.Context.Value(dbKey).(*postgres.DB)
}

// newSalesService builds the import path without a report cache.
func newSalesService(c *cli.Context) (*service.SalesReportService, error) {
	cfg := config.Load()
	rounding, err := analytics.ParseBonusRounding(cfg.Analytics.BonusRounding)
	if err != nil {
		return nil, err
	}
	return service.NewSalesReportService(
		postgres.NewDatasetRepository(dbFrom(c)),
		cache.NewNoopReportCache(),
		service.ReportOptions{BonusRounding: rounding, TopProducts: cfg.Analytics.TopProducts},
	), nil
}

func main() {
	cfg := config.Load()
	logger.Configure(cfg.LogLevel(), cfg.Log.Format)

	app := &cli.App{
		Name:  "seed",
		Usage: "Load sales datasets into the database",
		Flags: []cli.Flag{
			newDBURLFlag(),
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create the dataset and report tables",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runMigrate,
			},
			{
				Name:  "dataset",
				Usage: "Import a JSON or XLSX dataset file",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Path to the dataset file (.json or .xlsx)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Dataset name, defaults to the file name",
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runImportFile,
			},
			{
				Name:  "sync",
				Usage: "Import every dataset object under a storage prefix",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "prefix",
						Usage:   "Object key prefix to scan",
						EnvVars: []string{"STORAGE_PREFIX"},
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runSync,
			},
			{
				Name:  "drive",
				Usage: "Download dataset files from a Google Drive folder and import them",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "folder-id",
						Usage:   "Google Drive folder id",
						EnvVars: []string{"GOOGLE_DRIVE_FOLDER_ID"},
					},
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Local directory for downloaded files",
						Value: "./data/downloads",
					},
				},
				Before: initDB,
				After:  closeDB,
				Action: runDriveImport,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("seed failed")
	}
}

func runMigrate(c *cli.Context) error {
	if err := dbFrom(c).Migrate(c.Context); err != nil {
		return err
	}
	logger.Log.Info().Msg("Migration completed")
	return nil
}

func runImportFile(c *cli.Context) error {
	svc, err := newSalesService(c)
	if err != nil {
		return err
	}
	return importFile(c.Context, svc, c.String("file"), c.String("name"))
}

func importFile(ctx context.Context, svc *service.SalesReportService, path, name string) error {
	dataset, err := loader.LoadFile(path)
	if err != nil {
		return err
	}

	if name == "" {
		base := filepath.Base(path)
		name = base[:len(base)-len(filepath.Ext(base))]
	}

	info, err := svc.ImportDataset(ctx, name, dataset)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}

	logger.Log.Info().
		Str("dataset_id", info.ID).
		Str("name", info.Name).
		Int("sellers", info.SellerCount).
		Int("receipts", info.ReceiptCount).
		Msg("Dataset imported")
	return nil
}

func runSync(c *cli.Context) error {
	cfg := config.Load()
	if cfg.Storage.Endpoint == "" {
		return fmt.Errorf("STORAGE_ENDPOINT is required for sync")
	}

	objectStorage, err := storage.NewMinioClient(cfg.Storage)
	if err != nil {
		return err
	}

	svc, err := newSalesService(c)
	if err != nil {
		return err
	}

	results, err := ingest.NewService(svc, objectStorage, nil, "").SyncPrefix(c.Context, c.String("prefix"))
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	logger.Log.Info().Int("imported", len(results)-failed).Int("failed", failed).Msg("Sync completed")
	if failed > 0 {
		return fmt.Errorf("%d of %d objects failed to import", failed, len(results))
	}
	return nil
}

func runDriveImport(c *cli.Context) error {
	cfg := config.Load()
	if cfg.Drive.CredentialsJSON == "" {
		return fmt.Errorf("GOOGLE_DRIVE_CREDENTIALS_JSON is required for drive imports")
	}
	if c.String("folder-id") == "" {
		return fmt.Errorf("--folder-id is required")
	}

	driveService, err := drive.NewService(c.Context, cfg.Drive.CredentialsJSON)
	if err != nil {
		return err
	}

	paths, err := drive.NewDownloader(driveService).DownloadDatasets(c.Context, drive.DownloadOptions{
		FolderID:    c.String("folder-id"),
		DownloadDir: c.String("dir"),
	})
	if err != nil {
		return err
	}

	svc, err := newSalesService(c)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := importFile(c.Context, svc, path, ""); err != nil {
			return err
		}
	}
	logger.Log.Info().Int("files", len(paths)).Msg("Drive import completed")
	return nil
}
