package service

import (
	"context"
	"errors"
	"testing"

	"github.com/andresuchdata/seller-analytics/internal/analytics"
	"github.com/andresuchdata/seller-analytics/internal/cache"
	"github.com/andresuchdata/seller-analytics/internal/domain"
	"github.com/andresuchdata/seller-analytics/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	datasets     map[string]*domain.Dataset
	names        map[string]string
	reports      map[string]*analytics.Report
	getCalls     int
	snapshotErr  error
	saveReportFn func() error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		datasets: make(map[string]*domain.Dataset),
		names:    make(map[string]string),
		reports:  make(map[string]*analytics.Report),
	}
}

func (r *fakeRepo) SaveDataset(ctx context.Context, id, name string, dataset *domain.Dataset) error {
	r.datasets[id] = dataset
	r.names[id] = name
	return nil
}

func (r *fakeRepo) GetDataset(ctx context.Context, id string) (*domain.Dataset, error) {
	r.getCalls++
	ds, ok := r.datasets[id]
	if !ok {
		return nil, repository.ErrDatasetNotFound
	}
	return ds, nil
}

func (r *fakeRepo) ListDatasets(ctx context.Context, limit int) ([]domain.DatasetInfo, error) {
	infos := make([]domain.DatasetInfo, 0, len(r.datasets))
	for id := range r.datasets {
		infos = append(infos, domain.DatasetInfo{ID: id, Name: r.names[id]})
		if len(infos) == limit {
			break
		}
	}
	return infos, nil
}

func (r *fakeRepo) SaveReport(ctx context.Context, datasetID, fingerprint string, report *analytics.Report) error {
	if r.saveReportFn != nil {
		return r.saveReportFn()
	}
	r.reports[datasetID+"/"+fingerprint] = report
	return nil
}

func (r *fakeRepo) GetLatestReport(ctx context.Context, datasetID, fingerprint string) (*analytics.Report, error) {
	if r.snapshotErr != nil {
		return nil, r.snapshotErr
	}
	report, ok := r.reports[datasetID+"/"+fingerprint]
	if !ok {
		return nil, repository.ErrReportNotFound
	}
	return report, nil
}

type memoryCache struct {
	reports     map[string]*analytics.Report
	invalidated []string
	getErr      error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{reports: make(map[string]*analytics.Report)}
}

func (c *memoryCache) GetReport(ctx context.Context, datasetID, fingerprint string) (*analytics.Report, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	report, ok := c.reports[datasetID+"/"+fingerprint]
	return report, ok, nil
}

func (c *memoryCache) SetReport(ctx context.Context, datasetID, fingerprint string, report *analytics.Report) error {
	c.reports[datasetID+"/"+fingerprint] = report
	return nil
}

func (c *memoryCache) InvalidateDataset(ctx context.Context, datasetID string) error {
	c.invalidated = append(c.invalidated, datasetID)
	return nil
}

var _ cache.ReportCache = (*memoryCache)(nil)

func sampleDataset() *domain.Dataset {
	return &domain.Dataset{
		Products: []domain.Product{{SKU: "SKU_1", PurchasePrice: 100, SalePrice: 200}},
		Sellers: []domain.Seller{
			{ID: "s1", FirstName: "Anna", LastName: "Smirnova"},
			{ID: "s2", FirstName: "Oleg", LastName: "Ivanov"},
		},
		PurchaseRecords: []domain.PurchaseRecord{
			{ReceiptID: "r1", SellerID: "s1", Items: []domain.LineItem{{SKU: "SKU_1", Quantity: 2, SalePrice: 200}}},
			{ReceiptID: "r2", SellerID: "s2", Items: []domain.LineItem{{SKU: "SKU_1", Quantity: 1, SalePrice: 200, Discount: 10}}},
		},
	}
}

func defaultOptions() ReportOptions {
	return ReportOptions{BonusRounding: analytics.RoundCents, TopProducts: 10}
}

func TestImportDataset(t *testing.T) {
	repo := newFakeRepo()
	memCache := newMemoryCache()
	svc := NewSalesReportService(repo, memCache, defaultOptions())

	info, err := svc.ImportDataset(context.Background(), "  Q1 sales ", sampleDataset())
	require.NoError(t, err)

	assert.Len(t, info.ID, 36)
	assert.Equal(t, "Q1 sales", info.Name)
	assert.Equal(t, 2, info.SellerCount)
	assert.Equal(t, 2, info.ReceiptCount)
	assert.Contains(t, repo.datasets, info.ID)
	assert.Equal(t, []string{info.ID}, memCache.invalidated)
}

func TestImportDataset_RejectsInvalid(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSalesReportService(repo, nil, defaultOptions())

	_, err := svc.ImportDataset(context.Background(), "broken", &domain.Dataset{Sellers: []domain.Seller{{ID: "s1"}}})
	assert.ErrorIs(t, err, analytics.ErrInvalidDataset)
	assert.Empty(t, repo.datasets)
}

func TestReportForDataset_ComputesThenCaches(t *testing.T) {
	repo := newFakeRepo()
	memCache := newMemoryCache()
	svc := NewSalesReportService(repo, memCache, defaultOptions())
	ctx := context.Background()

	info, err := svc.ImportDataset(ctx, "q1", sampleDataset())
	require.NoError(t, err)

	report, err := svc.ReportForDataset(ctx, info.ID, ReportOptions{})
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "s1", report.Rows[0].SellerID)
	assert.Equal(t, 1, repo.getCalls)
	assert.Len(t, repo.reports, 1)

	again, err := svc.ReportForDataset(ctx, info.ID, defaultOptions())
	require.NoError(t, err)
	assert.Same(t, report, again)
	assert.Equal(t, 1, repo.getCalls, "second call is served from cache")
}

func TestReportForDataset_UsesSnapshotWhenCacheMisses(t *testing.T) {
	repo := newFakeRepo()
	memCache := newMemoryCache()
	svc := NewSalesReportService(repo, memCache, defaultOptions())
	ctx := context.Background()

	info, err := svc.ImportDataset(ctx, "q1", sampleDataset())
	require.NoError(t, err)
	_, err = svc.ReportForDataset(ctx, info.ID, ReportOptions{})
	require.NoError(t, err)

	memCache.reports = make(map[string]*analytics.Report)
	memCache.getErr = errors.New("redis down")

	_, err = svc.ReportForDataset(ctx, info.ID, ReportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.getCalls)
}

func TestReportForDataset_OptionsChangeFingerprint(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSalesReportService(repo, newMemoryCache(), defaultOptions())
	ctx := context.Background()

	info, err := svc.ImportDataset(ctx, "q1", sampleDataset())
	require.NoError(t, err)

	cents, err := svc.ReportForDataset(ctx, info.ID, ReportOptions{})
	require.NoError(t, err)
	whole, err := svc.ReportForDataset(ctx, info.ID, ReportOptions{BonusRounding: analytics.RoundWhole})
	require.NoError(t, err)

	assert.Equal(t, 2, repo.getCalls)
	assert.Equal(t, 30.0, cents.Rows[0].Bonus)
	assert.Equal(t, 8.0, whole.Rows[1].Bonus)
	assert.Equal(t, 8.0, cents.Rows[1].Bonus)
}

func TestReportForDataset_NotFound(t *testing.T) {
	svc := NewSalesReportService(newFakeRepo(), nil, defaultOptions())

	_, err := svc.ReportForDataset(context.Background(), "missing", ReportOptions{})
	assert.ErrorIs(t, err, repository.ErrDatasetNotFound)
}

func TestReportForDataset_InvalidOptions(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSalesReportService(repo, nil, defaultOptions())

	_, err := svc.ReportForDataset(context.Background(), "any", ReportOptions{TopProducts: -1})
	assert.ErrorIs(t, err, analytics.ErrInvalidOptions)

	_, err = svc.ReportForDataset(context.Background(), "any", ReportOptions{BonusRounding: "hundreds"})
	assert.ErrorIs(t, err, analytics.ErrInvalidOptions)
	assert.Zero(t, repo.getCalls)
}

func TestReportForDataset_SnapshotSaveFailureIsNotFatal(t *testing.T) {
	repo := newFakeRepo()
	repo.saveReportFn = func() error { return errors.New("disk full") }
	svc := NewSalesReportService(repo, nil, defaultOptions())
	ctx := context.Background()

	info, err := svc.ImportDataset(ctx, "q1", sampleDataset())
	require.NoError(t, err)

	report, err := svc.ReportForDataset(ctx, info.ID, ReportOptions{})
	require.NoError(t, err)
	assert.Len(t, report.Rows, 2)
}

func TestAnalyzeDataset_DoesNotPersist(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSalesReportService(repo, nil, defaultOptions())

	report, err := svc.AnalyzeDataset(context.Background(), sampleDataset(), ReportOptions{TopProducts: 1})
	require.NoError(t, err)
	assert.Len(t, report.Rows, 2)
	assert.Empty(t, repo.datasets)
	assert.Empty(t, repo.reports)
}

func TestListDatasets_DefaultLimit(t *testing.T) {
	repo := newFakeRepo()
	svc := NewSalesReportService(repo, nil, defaultOptions())
	ctx := context.Background()

	_, err := svc.ImportDataset(ctx, "a", sampleDataset())
	require.NoError(t, err)

	infos, err := svc.ListDatasets(ctx, 0)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "a", infos[0].Name)
}
