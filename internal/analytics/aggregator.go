package analytics

import (
	"github.com/andresuchdata/seller-analytics/internal/domain"
	"github.com/shopspring/decimal"
)

// Totals summarizes what a run could resolve.
type Totals struct {
	Revenue           decimal.Decimal
	Profit            decimal.Decimal
	ReceiptsProcessed int
	ReceiptsSkipped   int
	ItemsProcessed    int
	ItemsSkipped      int
}

// aggregate walks the receipts in order and mutates the indexed seller stats.
func aggregate(records []domain.PurchaseRecord, idx *indexes, revenue RevenueStrategy, diag *diagnostics) Totals {
	totals := Totals{Revenue: decimal.Zero, Profit: decimal.Zero}

	for _, record := range records {
		seller, ok := idx.sellers[record.SellerID]
		if !ok {
			diag.report(Anomaly{
				Kind:      AnomalyUnknownSeller,
				ReceiptID: record.ReceiptID,
				SellerID:  record.SellerID,
			})
			totals.ReceiptsSkipped++
			totals.ItemsSkipped += len(record.Items)
			continue
		}

		seller.SalesCount++
		totals.ReceiptsProcessed++

		for _, item := range record.Items {
			product, ok := idx.products[item.SKU]
			if !ok {
				diag.report(Anomaly{
					Kind:      AnomalyUnknownSKU,
					ReceiptID: record.ReceiptID,
					SellerID:  record.SellerID,
					SKU:       item.SKU,
				})
				totals.ItemsSkipped++
				continue
			}

			itemRevenue := revenue.Revenue(item, product)
			cost := decimal.NewFromFloat(product.PurchasePrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
			profit := itemRevenue.Sub(cost)

			seller.Revenue = seller.Revenue.Add(itemRevenue)
			seller.Profit = seller.Profit.Add(profit)
			seller.addSold(item.SKU, item.Quantity)

			totals.Revenue = totals.Revenue.Add(itemRevenue)
			totals.Profit = totals.Profit.Add(profit)
			totals.ItemsProcessed++
		}
	}

	return totals
}
