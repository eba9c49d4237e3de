package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/seller-analytics/internal/analytics"
	"github.com/andresuchdata/seller-analytics/internal/cache"
	"github.com/andresuchdata/seller-analytics/internal/domain"
	"github.com/andresuchdata/seller-analytics/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const defaultListLimit = 50

// ReportOptions are the request-level knobs of a stored dataset report.
// Zero values fall back to the service defaults.
type ReportOptions struct {
	BonusRounding analytics.BonusRounding
	TopProducts   int
}

type SalesReportService struct {
	repo     repository.DatasetRepository
	cache    cache.ReportCache
	defaults ReportOptions
}

func NewSalesReportService(repo repository.DatasetRepository, cacheImpl cache.ReportCache, defaults ReportOptions) *SalesReportService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	return &SalesReportService{repo: repo, cache: cacheImpl, defaults: defaults}
}

// AnalyzeDataset runs the analysis on an inline dataset without touching storage.
func (s *SalesReportService) AnalyzeDataset(ctx context.Context, dataset *domain.Dataset, opts ReportOptions) (*analytics.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return analytics.Analyze(dataset, s.analyticsOptions(opts))
}

// ReportForDataset returns the report of a stored dataset, trying the cache
// and the latest snapshot before recomputing.
func (s *SalesReportService) ReportForDataset(ctx context.Context, datasetID string, opts ReportOptions) (*analytics.Report, error) {
	opts = s.resolve(opts)
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	fingerprint := cache.Fingerprint(opts.BonusRounding, opts.TopProducts)

	if report, ok, err := s.cache.GetReport(ctx, datasetID, fingerprint); err == nil && ok {
		return report, nil
	} else if err != nil {
		log.Warn().Err(err).Str("dataset_id", datasetID).Msg("sales report: cache get failed")
	}

	report, err := s.repo.GetLatestReport(ctx, datasetID, fingerprint)
	switch {
	case err == nil:
		s.store(ctx, datasetID, fingerprint, report)
		return report, nil
	case !errors.Is(err, repository.ErrReportNotFound):
		log.Warn().Err(err).Str("dataset_id", datasetID).Msg("sales report: snapshot lookup failed")
	}

	dataset, err := s.repo.GetDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	report, err = analytics.Analyze(dataset, s.analyticsOptions(opts))
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveReport(ctx, datasetID, fingerprint, report); err != nil {
		log.Warn().Err(err).Str("dataset_id", datasetID).Msg("sales report: snapshot save failed")
	}
	s.store(ctx, datasetID, fingerprint, report)

	log.Info().
		Str("dataset_id", datasetID).
		Int("sellers", len(report.Rows)).
		Int("anomalies", len(report.Anomalies)).
		Msg("sales report computed")

	return report, nil
}

// ImportDataset validates and persists a dataset under a fresh id.
func (s *SalesReportService) ImportDataset(ctx context.Context, name string, dataset *domain.Dataset) (*domain.DatasetInfo, error) {
	if err := analytics.ValidateDataset(dataset); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "dataset"
	}

	id := uuid.NewString()
	if err := s.repo.SaveDataset(ctx, id, name, dataset); err != nil {
		return nil, fmt.Errorf("failed to save dataset: %w", err)
	}

	if err := s.cache.InvalidateDataset(ctx, id); err != nil {
		log.Warn().Err(err).Str("dataset_id", id).Msg("sales report: cache invalidate failed")
	}

	log.Info().
		Str("dataset_id", id).
		Str("name", name).
		Int("sellers", len(dataset.Sellers)).
		Int("receipts", len(dataset.PurchaseRecords)).
		Msg("dataset imported")

	return &domain.DatasetInfo{
		ID:           id,
		Name:         name,
		SellerCount:  len(dataset.Sellers),
		ProductCount: len(dataset.Products),
		ReceiptCount: len(dataset.PurchaseRecords),
	}, nil
}

func (s *SalesReportService) ListDatasets(ctx context.Context, limit int) ([]domain.DatasetInfo, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.repo.ListDatasets(ctx, limit)
}

func (s *SalesReportService) store(ctx context.Context, datasetID, fingerprint string, report *analytics.Report) {
	if err := s.cache.SetReport(ctx, datasetID, fingerprint, report); err != nil {
		log.Warn().Err(err).Str("dataset_id", datasetID).Msg("sales report: cache set failed")
	}
}

func (s *SalesReportService) resolve(opts ReportOptions) ReportOptions {
	if opts.BonusRounding == "" {
		opts.BonusRounding = s.defaults.BonusRounding
	}
	if opts.TopProducts == 0 {
		opts.TopProducts = s.defaults.TopProducts
	}
	return opts
}

func (s *SalesReportService) analyticsOptions(opts ReportOptions) *analytics.Options {
	opts = s.resolve(opts)
	return &analytics.Options{
		TopProducts:   opts.TopProducts,
		BonusRounding: opts.BonusRounding,
	}
}

func validateOptions(opts ReportOptions) error {
	if opts.TopProducts < 0 {
		return fmt.Errorf("%w: top products must be positive, got %d", analytics.ErrInvalidOptions, opts.TopProducts)
	}
	if opts.BonusRounding != "" {
		if _, err := analytics.ParseBonusRounding(string(opts.BonusRounding)); err != nil {
			return err
		}
	}
	return nil
}
