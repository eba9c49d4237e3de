// internal/analytics/analyzer.go
package analytics

import (
	"github.com/andresuchdata/seller-analytics/internal/domain"
	"github.com/andresuchdata/seller-analytics/pkg/logger"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// DefaultTopProducts is the length of the best-selling list per seller.
const DefaultTopProducts = 10

var (
	ErrInvalidDataset      = errors.New("invalid input dataset")
	ErrInvalidOptions      = errors.New("invalid analysis options")
	ErrStrategyMismatch    = errors.New("revenue and bonus strategies must be supplied together")
	ErrStrategyNotCallable = errors.New("strategy is not callable")
)

// Options configures a run. The zero value selects every default, but a nil
// *Options is rejected.
type Options struct {
	// Revenue and Bonus override the built-in strategies. Either both are set or neither.
	Revenue RevenueStrategy
	Bonus   BonusStrategy

	// TopProducts caps the best-selling list per seller. Zero means DefaultTopProducts.
	TopProducts int

	// BonusRounding controls the precision of ReportRow.Bonus. Empty means RoundCents.
	BonusRounding BonusRounding

	// Logger receives anomaly warnings. Nil means logger.Log.
	Logger *zerolog.Logger
}

// Summary aggregates the resolvable part of the dataset.
type Summary struct {
	TotalRevenue      float64 `json:"total_revenue"`
	TotalProfit       float64 `json:"total_profit"`
	Sellers           int     `json:"sellers"`
	ReceiptsProcessed int     `json:"receipts_processed"`
	ReceiptsSkipped   int     `json:"receipts_skipped"`
	ItemsProcessed    int     `json:"items_processed"`
	ItemsSkipped      int     `json:"items_skipped"`
}

// Report is the full result of Analyze.
type Report struct {
	Rows      []domain.ReportRow `json:"rows"`
	Summary   Summary            `json:"summary"`
	Anomalies []Anomaly          `json:"anomalies"`
}

type resolvedOptions struct {
	revenue       RevenueStrategy
	bonus         BonusStrategy
	topProducts   int
	bonusRounding BonusRounding
	log           zerolog.Logger
}

// AnalyzeSalesData ranks the sellers of dataset by profit and returns one row per seller.
func AnalyzeSalesData(dataset *domain.Dataset, opts *Options) ([]domain.ReportRow, error) {
	report, err := Analyze(dataset, opts)
	if err != nil {
		return nil, err
	}
	return report.Rows, nil
}

// Analyze validates the input, then indexes, aggregates, ranks and formats it.
// Validation failures return before any aggregation. Unresolvable receipts and
// line items are skipped and listed in Report.Anomalies.
func Analyze(dataset *domain.Dataset, opts *Options) (*Report, error) {
	if err := ValidateDataset(dataset); err != nil {
		return nil, err
	}

	resolved, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	diag := newDiagnostics(resolved.log)

	idx := buildIndexes(dataset.Sellers, dataset.Products, diag)
	totals := aggregate(dataset.PurchaseRecords, idx, resolved.revenue, diag)
	ranked := rankSellers(idx.stats, resolved.bonus, resolved.topProducts)
	rows := formatReport(ranked, resolved.bonusRounding)

	anomalies := diag.anomalies
	if anomalies == nil {
		anomalies = make([]Anomaly, 0)
	}

	return &Report{
		Rows: rows,
		Summary: Summary{
			TotalRevenue:      roundCents(totals.Revenue).InexactFloat64(),
			TotalProfit:       roundCents(totals.Profit).InexactFloat64(),
			Sellers:           len(rows),
			ReceiptsProcessed: totals.ReceiptsProcessed,
			ReceiptsSkipped:   totals.ReceiptsSkipped,
			ItemsProcessed:    totals.ItemsProcessed,
			ItemsSkipped:      totals.ItemsSkipped,
		},
		Anomalies: anomalies,
	}, nil
}

// ValidateDataset checks that the dataset carries non-empty sellers, products
// and purchase records. Customers are optional.
func ValidateDataset(dataset *domain.Dataset) error {
	if dataset == nil {
		return errors.Wrap(ErrInvalidDataset, "dataset is missing")
	}

	if err := checkList("sellers", dataset.Sellers == nil, len(dataset.Sellers)); err != nil {
		return err
	}
	if err := checkList("products", dataset.Products == nil, len(dataset.Products)); err != nil {
		return err
	}
	return checkList("purchase_records", dataset.PurchaseRecords == nil, len(dataset.PurchaseRecords))
}

func checkList(name string, missing bool, size int) error {
	if missing {
		return errors.Wrapf(ErrInvalidDataset, "%s is missing", name)
	}
	if size == 0 {
		return errors.Wrapf(ErrInvalidDataset, "%s is empty", name)
	}
	return nil
}

func resolveOptions(opts *Options) (resolvedOptions, error) {
	if opts == nil {
		return resolvedOptions{}, errors.Wrap(ErrInvalidOptions, "options are missing")
	}

	hasRevenue := opts.Revenue != nil
	hasBonus := opts.Bonus != nil
	if hasRevenue != hasBonus {
		return resolvedOptions{}, errors.WithStack(ErrStrategyMismatch)
	}

	resolved := resolvedOptions{
		revenue:       RevenueFunc(CalculateSimpleRevenue),
		bonus:         BonusFunc(CalculateBonusByProfit),
		topProducts:   DefaultTopProducts,
		bonusRounding: RoundCents,
		log:           logger.Log,
	}

	if hasRevenue {
		if !callable(opts.Revenue) {
			return resolvedOptions{}, errors.Wrap(ErrStrategyNotCallable, "revenue")
		}
		if !callable(opts.Bonus) {
			return resolvedOptions{}, errors.Wrap(ErrStrategyNotCallable, "bonus")
		}
		resolved.revenue = opts.Revenue
		resolved.bonus = opts.Bonus
	}

	switch {
	case opts.TopProducts < 0:
		return resolvedOptions{}, errors.Wrapf(ErrInvalidOptions, "top products must be positive, got %d", opts.TopProducts)
	case opts.TopProducts > 0:
		resolved.topProducts = opts.TopProducts
	}

	if opts.BonusRounding != "" {
		if !opts.BonusRounding.valid() {
			return resolvedOptions{}, errors.Wrapf(ErrInvalidOptions, "unknown bonus rounding %q", opts.BonusRounding)
		}
		resolved.bonusRounding = opts.BonusRounding
	}

	if opts.Logger != nil {
		resolved.log = *opts.Logger
	}

	return resolved, nil
}
