// internal/repository/dataset_repository.go
package repository

import (
	"context"
	"errors"

	"github.com/andresuchdata/seller-analytics/internal/analytics"
	"github.com/andresuchdata/seller-analytics/internal/domain"
)

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrReportNotFound  = errors.New("report snapshot not found")
)

type DatasetRepository interface {
	// SaveDataset stores every list of the dataset in input order.
	SaveDataset(ctx context.Context, id, name string, dataset *domain.Dataset) error
	GetDataset(ctx context.Context, id string) (*domain.Dataset, error)
	ListDatasets(ctx context.Context, limit int) ([]domain.DatasetInfo, error)

	// Report snapshots are keyed by dataset and options fingerprint.
	SaveReport(ctx context.Context, datasetID, fingerprint string, report *analytics.Report) error
	GetLatestReport(ctx context.Context, datasetID, fingerprint string) (*analytics.Report, error)
}
