// internal/repository/postgres/dataset_repository.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/andresuchdata/seller-analytics/internal/analytics"
	"github.com/andresuchdata/seller-analytics/internal/domain"
	"github.com/andresuchdata/seller-analytics/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type datasetRepository struct {
	db *DB
}

func NewDatasetRepository(db *DB) repository.DatasetRepository {
	return &datasetRepository{db: db}
}

// itemRow is a line item together with the position of its receipt
type itemRow struct {
	ReceiptSeq int `db:"receipt_seq"`
	domain.LineItem
}

func (r *datasetRepository) SaveDataset(ctx context.Context, id, name string, dataset *domain.Dataset) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO datasets (id, name, created_at) VALUES ($1, $2, NOW())`, id, name); err != nil {
			return fmt.Errorf("failed to insert dataset: %w", err)
		}

		err := insertRows(ctx, tx, `
			INSERT INTO dataset_customers (dataset_id, seq, id, name, first_name, last_name, phone, workplace, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			len(dataset.Customers), func(i int) []any {
				c := dataset.Customers[i]
				return []any{id, i, c.ID, c.Name, c.FirstName, c.LastName, c.Phone, c.Workplace, c.Position}
			})
		if err != nil {
			return fmt.Errorf("failed to insert customers: %w", err)
		}

		err = insertRows(ctx, tx, `
			INSERT INTO dataset_products (dataset_id, seq, sku, name, category, purchase_price, sale_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			len(dataset.Products), func(i int) []any {
				p := dataset.Products[i]
				return []any{id, i, p.SKU, p.Name, p.Category, p.PurchasePrice, p.SalePrice}
			})
		if err != nil {
			return fmt.Errorf("failed to insert products: %w", err)
		}

		err = insertRows(ctx, tx, `
			INSERT INTO dataset_sellers (dataset_id, seq, id, first_name, last_name, start_date, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			len(dataset.Sellers), func(i int) []any {
				s := dataset.Sellers[i]
				return []any{id, i, s.ID, s.FirstName, s.LastName, s.StartDate, s.Position}
			})
		if err != nil {
			return fmt.Errorf("failed to insert sellers: %w", err)
		}

		err = insertRows(ctx, tx, `
			INSERT INTO dataset_receipts (dataset_id, seq, receipt_id, date, seller_id, customer_id)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			len(dataset.PurchaseRecords), func(i int) []any {
				rec := dataset.PurchaseRecords[i]
				return []any{id, i, rec.ReceiptID, rec.Date, rec.SellerID, rec.CustomerID}
			})
		if err != nil {
			return fmt.Errorf("failed to insert receipts: %w", err)
		}

		items := flattenItems(dataset.PurchaseRecords)
		err = insertRows(ctx, tx, `
			INSERT INTO dataset_items (dataset_id, receipt_seq, seq, sku, discount, quantity, sale_price)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			len(items), func(i int) []any {
				it := items[i]
				return []any{id, it.receiptSeq, it.seq, it.item.SKU, it.item.Discount, it.item.Quantity, it.item.SalePrice}
			})
		if err != nil {
			return fmt.Errorf("failed to insert items: %w", err)
		}

		return nil
	})
}

func (r *datasetRepository) GetDataset(ctx context.Context, id string) (*domain.Dataset, error) {
	// ids are uuids; anything else cannot name a stored dataset
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrDatasetNotFound
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM datasets WHERE id = $1)`, id); err != nil {
		return nil, fmt.Errorf("failed to look up dataset: %w", err)
	}
	if !exists {
		return nil, repository.ErrDatasetNotFound
	}

	var (
		ds    domain.Dataset
		items []itemRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.db.SelectContext(gctx, &ds.Customers, `
			SELECT id, name, first_name, last_name, phone, workplace, position
			FROM dataset_customers WHERE dataset_id = $1 ORDER BY seq`, id)
	})
	g.Go(func() error {
		return r.db.SelectContext(gctx, &ds.Products, `
			SELECT sku, name, category, purchase_price, sale_price
			FROM dataset_products WHERE dataset_id = $1 ORDER BY seq`, id)
	})
	g.Go(func() error {
		return r.db.SelectContext(gctx, &ds.Sellers, `
			SELECT id, first_name, last_name, start_date, position
			FROM dataset_sellers WHERE dataset_id = $1 ORDER BY seq`, id)
	})
	g.Go(func() error {
		return r.db.SelectContext(gctx, &ds.PurchaseRecords, `
			SELECT receipt_id, date, seller_id, customer_id
			FROM dataset_receipts WHERE dataset_id = $1 ORDER BY seq`, id)
	})
	g.Go(func() error {
		return r.db.SelectContext(gctx, &items, `
			SELECT receipt_seq, sku, discount, quantity, sale_price
			FROM dataset_items WHERE dataset_id = $1 ORDER BY receipt_seq, seq`, id)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load dataset %s: %w", id, err)
	}

	if err := attachItems(ds.PurchaseRecords, items); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", id, err)
	}
	fillEmpty(&ds)

	return &ds, nil
}

func (r *datasetRepository) ListDatasets(ctx context.Context, limit int) ([]domain.DatasetInfo, error) {
	query := `
		SELECT
			d.id::text AS id,
			d.name,
			d.created_at,
			(SELECT COUNT(*) FROM dataset_sellers s WHERE s.dataset_id = d.id) AS seller_count,
			(SELECT COUNT(*) FROM dataset_products p WHERE p.dataset_id = d.id) AS product_count,
			(SELECT COUNT(*) FROM dataset_receipts rc WHERE rc.dataset_id = d.id) AS receipt_count,
			(SELECT MAX(sr.created_at) FROM sales_reports sr WHERE sr.dataset_id = d.id) AS last_report_at
		FROM datasets d
		ORDER BY d.created_at DESC
		LIMIT $1
	`

	infos := make([]domain.DatasetInfo, 0)
	if err := r.db.SelectContext(ctx, &infos, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return infos, nil
}

func (r *datasetRepository) SaveReport(ctx context.Context, datasetID, fingerprint string, report *analytics.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sales_reports (dataset_id, fingerprint, report, created_at)
		VALUES ($1, $2, $3::jsonb, NOW())`, datasetID, fingerprint, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save report snapshot: %w", err)
	}
	return nil
}

func (r *datasetRepository) GetLatestReport(ctx context.Context, datasetID, fingerprint string) (*analytics.Report, error) {
	if _, err := uuid.Parse(datasetID); err != nil {
		return nil, repository.ErrReportNotFound
	}

	var payload []byte
	err := r.db.GetContext(ctx, &payload, `
		SELECT report FROM sales_reports
		WHERE dataset_id = $1 AND fingerprint = $2
		ORDER BY created_at DESC
		LIMIT 1`, datasetID, fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report snapshot: %w", err)
	}

	var report analytics.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report snapshot: %w", err)
	}
	return &report, nil
}

func insertRows(ctx context.Context, tx *sql.Tx, query string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

type flatItem struct {
	receiptSeq int
	seq        int
	item       domain.LineItem
}

func flattenItems(records []domain.PurchaseRecord) []flatItem {
	var items []flatItem
	for r, rec := range records {
		for i, item := range rec.Items {
			items = append(items, flatItem{receiptSeq: r, seq: i, item: item})
		}
	}
	return items
}

// attachItems puts items back on their receipts. items must be ordered by receipt and position.
func attachItems(records []domain.PurchaseRecord, items []itemRow) error {
	for _, it := range items {
		if it.ReceiptSeq < 0 || it.ReceiptSeq >= len(records) {
			return fmt.Errorf("line item references receipt position %d of %d", it.ReceiptSeq, len(records))
		}
		records[it.ReceiptSeq].Items = append(records[it.ReceiptSeq].Items, it.LineItem)
	}
	return nil
}

func fillEmpty(ds *domain.Dataset) {
	if ds.Customers == nil {
		ds.Customers = []domain.Customer{}
	}
	if ds.Products == nil {
		ds.Products = []domain.Product{}
	}
	if ds.Sellers == nil {
		ds.Sellers = []domain.Seller{}
	}
	if ds.PurchaseRecords == nil {
		ds.PurchaseRecords = []domain.PurchaseRecord{}
	}
	for i := range ds.PurchaseRecords {
		if ds.PurchaseRecords[i].Items == nil {
			ds.PurchaseRecords[i].Items = []domain.LineItem{}
		}
	}
}
