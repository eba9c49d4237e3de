package analytics_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/andresuchdata/seller-analytics/internal/analytics"
	"github.com/andresuchdata/seller-analytics/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietOptions() *analytics.Options {
	nop := zerolog.Nop()
	return &analytics.Options{Logger: &nop}
}

// hardwareDataset mirrors the reference dataset with three sellers and three products.
func hardwareDataset() *domain.Dataset {
	return &domain.Dataset{
		Customers: []domain.Customer{
			{ID: "customer_1", FirstName: "Andrey", LastName: "Alekseev", Phone: "+79296758019", Workplace: "SteelWorks", Position: "Worker"},
		},
		Products: []domain.Product{
			{SKU: "SKU_001", Name: "Cement #001", Category: "Materials", PurchasePrice: 460.34, SalePrice: 699.99},
			{SKU: "SKU_002", Name: "Paint #002", Category: "Paints", PurchasePrice: 120.50, SalePrice: 200.00},
			{SKU: "SKU_003", Name: "Hammer #003", Category: "Tools", PurchasePrice: 300.00, SalePrice: 450.00},
		},
		Sellers: []domain.Seller{
			{ID: "seller_1", FirstName: "Alexey", LastName: "Petrov", StartDate: "2024-07-17", Position: "Senior Seller"},
			{ID: "seller_2", FirstName: "Mikhail", LastName: "Nikolaev", StartDate: "2024-05-12", Position: "Senior Seller"},
			{ID: "seller_3", FirstName: "Ivan", LastName: "Petrov", StartDate: "2024-06-18", Position: "Seller"},
		},
		PurchaseRecords: []domain.PurchaseRecord{
			{ReceiptID: "receipt_1", Date: "2023-12-04", SellerID: "seller_1", CustomerID: "customer_1", Items: []domain.LineItem{
				{SKU: "SKU_001", Discount: 5, Quantity: 2, SalePrice: 699.99},
				{SKU: "SKU_002", Discount: 0, Quantity: 1, SalePrice: 200.00},
			}},
			{ReceiptID: "receipt_2", Date: "2023-12-05", SellerID: "seller_2", CustomerID: "customer_1", Items: []domain.LineItem{
				{SKU: "SKU_003", Discount: 10, Quantity: 1, SalePrice: 450.00},
			}},
			{ReceiptID: "receipt_3", Date: "2023-12-06", SellerID: "seller_3", CustomerID: "customer_1", Items: []domain.LineItem{
				{SKU: "SKU_001", Discount: 2.5, Quantity: 1, SalePrice: 699.99},
			}},
		},
	}
}

func singleSaleDataset() *domain.Dataset {
	return &domain.Dataset{
		Products: []domain.Product{{SKU: "SKU_1", PurchasePrice: 100, SalePrice: 200}},
		Sellers:  []domain.Seller{{ID: "s1", FirstName: "Anna", LastName: "Smirnova"}},
		PurchaseRecords: []domain.PurchaseRecord{
			{ReceiptID: "r1", SellerID: "s1", Items: []domain.LineItem{{SKU: "SKU_1", Quantity: 2, SalePrice: 200}}},
		},
	}
}

func TestAnalyzeSalesData_SingleSale(t *testing.T) {
	rows, err := analytics.AnalyzeSalesData(singleSaleDataset(), quietOptions())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, domain.ReportRow{
		SellerID:    "s1",
		Name:        "Anna Smirnova",
		Revenue:     400,
		Profit:      200,
		SalesCount:  1,
		TopProducts: []domain.TopProduct{{SKU: "SKU_1", Quantity: 2}},
		Bonus:       30,
	}, rows[0])
}

func TestAnalyzeSalesData_ReferenceDataset(t *testing.T) {
	rows, err := analytics.AnalyzeSalesData(hardwareDataset(), quietOptions())
	require.NoError(t, err)

	expected := []domain.ReportRow{
		{
			SellerID:   "seller_1",
			Name:       "Alexey Petrov",
			Revenue:    1529.98,
			Profit:     488.80,
			SalesCount: 1,
			TopProducts: []domain.TopProduct{
				{SKU: "SKU_001", Quantity: 2},
				{SKU: "SKU_002", Quantity: 1},
			},
			Bonus: 73.32,
		},
		{
			SellerID:    "seller_3",
			Name:        "Ivan Petrov",
			Revenue:     682.49,
			Profit:      222.15,
			SalesCount:  1,
			TopProducts: []domain.TopProduct{{SKU: "SKU_001", Quantity: 1}},
			Bonus:       22.22,
		},
		{
			SellerID:    "seller_2",
			Name:        "Mikhail Nikolaev",
			Revenue:     405,
			Profit:      105,
			SalesCount:  1,
			TopProducts: []domain.TopProduct{{SKU: "SKU_003", Quantity: 1}},
			Bonus:       10.50,
		},
	}
	assert.Equal(t, expected, rows)
}

func TestAnalyze_Summary(t *testing.T) {
	report, err := analytics.Analyze(hardwareDataset(), quietOptions())
	require.NoError(t, err)

	assert.Equal(t, analytics.Summary{
		TotalRevenue:      2617.47,
		TotalProfit:       815.95,
		Sellers:           3,
		ReceiptsProcessed: 3,
		ItemsProcessed:    4,
	}, report.Summary)
	assert.Empty(t, report.Anomalies)

	var sum float64
	for _, row := range report.Rows {
		sum += row.Revenue
	}
	assert.InDelta(t, report.Summary.TotalRevenue, sum, 1e-9)
}

func TestAnalyzeSalesData_SellersWithoutReceipts(t *testing.T) {
	ds := singleSaleDataset()
	ds.Sellers = append(ds.Sellers,
		domain.Seller{ID: "s2", FirstName: "Boris", LastName: "Orlov"},
		domain.Seller{ID: "s3", FirstName: "Vera", LastName: "Lis"},
	)

	rows, err := analytics.AnalyzeSalesData(ds, quietOptions())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "s1", rows[0].SellerID)
	for _, row := range rows[1:] {
		assert.Zero(t, row.Revenue)
		assert.Zero(t, row.Profit)
		assert.Zero(t, row.SalesCount)
		assert.NotNil(t, row.TopProducts)
		assert.Empty(t, row.TopProducts)
	}
	// s2 is rank 1 and gets 10% of zero, s3 is last
	assert.Equal(t, []string{"s2", "s3"}, []string{rows[1].SellerID, rows[2].SellerID})
}

func TestAnalyzeSalesData_UnknownSellerIsSkipped(t *testing.T) {
	ds := singleSaleDataset()
	ds.PurchaseRecords = append(ds.PurchaseRecords, domain.PurchaseRecord{
		ReceiptID: "r-ghost",
		SellerID:  "ghost",
		Items:     []domain.LineItem{{SKU: "SKU_1", Quantity: 50, SalePrice: 200}},
	})

	report, err := analytics.Analyze(ds, quietOptions())
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)

	assert.Equal(t, 400.0, report.Rows[0].Revenue)
	assert.Equal(t, 1, report.Rows[0].SalesCount)
	assert.Equal(t, 1, report.Summary.ReceiptsSkipped)
	assert.Equal(t, 1, report.Summary.ItemsSkipped)
	assert.Equal(t, []analytics.Anomaly{
		{Kind: analytics.AnomalyUnknownSeller, ReceiptID: "r-ghost", SellerID: "ghost"},
	}, report.Anomalies)
}

func TestAnalyzeSalesData_UnknownSKUSkipsOnlyTheItem(t *testing.T) {
	ds := singleSaleDataset()
	ds.PurchaseRecords[0].Items = append(ds.PurchaseRecords[0].Items,
		domain.LineItem{SKU: "NOPE", Quantity: 3, SalePrice: 10})

	report, err := analytics.Analyze(ds, quietOptions())
	require.NoError(t, err)

	row := report.Rows[0]
	assert.Equal(t, 1, row.SalesCount)
	assert.Equal(t, 400.0, row.Revenue)
	assert.Equal(t, []domain.TopProduct{{SKU: "SKU_1", Quantity: 2}}, row.TopProducts)
	require.Len(t, report.Anomalies, 1)
	assert.Equal(t, analytics.AnomalyUnknownSKU, report.Anomalies[0].Kind)
	assert.Equal(t, "NOPE", report.Anomalies[0].SKU)
}

func TestAnalyzeSalesData_DuplicateSKULastWins(t *testing.T) {
	ds := singleSaleDataset()
	ds.Products = append(ds.Products, domain.Product{SKU: "SKU_1", PurchasePrice: 150, SalePrice: 200})

	report, err := analytics.Analyze(ds, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, 100.0, report.Rows[0].Profit)
	assert.Equal(t, []analytics.Anomaly{{Kind: analytics.AnomalyDuplicateSKU, SKU: "SKU_1"}}, report.Anomalies)
}

func TestAnalyzeSalesData_DuplicateSellerKeepsOneRowPerInput(t *testing.T) {
	ds := singleSaleDataset()
	ds.Sellers = append(ds.Sellers, domain.Seller{ID: "s1", FirstName: "Anna", LastName: "Second"})

	report, err := analytics.Analyze(ds, quietOptions())
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)

	// receipts land on the later entry
	assert.Equal(t, "Anna Second", report.Rows[0].Name)
	assert.Equal(t, 200.0, report.Rows[0].Profit)
	assert.Equal(t, "Anna Smirnova", report.Rows[1].Name)
	assert.Zero(t, report.Rows[1].SalesCount)
}

func TestAnalyzeSalesData_TiesKeepSellerOrder(t *testing.T) {
	ds := &domain.Dataset{
		Products: []domain.Product{{SKU: "P", PurchasePrice: 0, SalePrice: 1000}},
		Sellers: []domain.Seller{
			{ID: "A", FirstName: "Seller", LastName: "A"},
			{ID: "B", FirstName: "Seller", LastName: "B"},
		},
		PurchaseRecords: []domain.PurchaseRecord{
			{ReceiptID: "r1", SellerID: "B", Items: []domain.LineItem{{SKU: "P", Quantity: 1, SalePrice: 1000}}},
			{ReceiptID: "r2", SellerID: "A", Items: []domain.LineItem{{SKU: "P", Quantity: 1, SalePrice: 1000}}},
		},
	}

	rows, err := analytics.AnalyzeSalesData(ds, quietOptions())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "A", rows[0].SellerID)
	assert.Equal(t, "B", rows[1].SellerID)
	assert.Equal(t, 1000.0, rows[0].Profit)
	assert.Equal(t, 1000.0, rows[1].Profit)
	assert.Equal(t, 150.0, rows[0].Bonus)
	// rank 1 is in the 10% tier even when it is also the last place
	assert.Equal(t, 100.0, rows[1].Bonus)
}

func TestAnalyzeSalesData_BonusTiers(t *testing.T) {
	ds := &domain.Dataset{
		Products: []domain.Product{{SKU: "P", PurchasePrice: 0, SalePrice: 100}},
	}
	// seller i sells (5-i)*10 units, so input order is already the ranking
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("s%d", i)
		ds.Sellers = append(ds.Sellers, domain.Seller{ID: id, FirstName: "Seller", LastName: id})
		ds.PurchaseRecords = append(ds.PurchaseRecords, domain.PurchaseRecord{
			ReceiptID: "r" + id,
			SellerID:  id,
			Items:     []domain.LineItem{{SKU: "P", Quantity: (5 - i) * 10, SalePrice: 100}},
		})
	}

	rows, err := analytics.AnalyzeSalesData(ds, quietOptions())
	require.NoError(t, err)

	profits := []float64{5000, 4000, 3000, 2000, 1000}
	bonuses := []float64{750, 400, 300, 100, 0}
	for i, row := range rows {
		assert.Equal(t, profits[i], row.Profit, "profit at rank %d", i)
		assert.Equal(t, bonuses[i], row.Bonus, "bonus at rank %d", i)
	}
}

func TestAnalyzeSalesData_TopProductsCappedAndSorted(t *testing.T) {
	ds := &domain.Dataset{
		Sellers: []domain.Seller{{ID: "s1", FirstName: "Top", LastName: "Seller"}},
	}
	record := domain.PurchaseRecord{ReceiptID: "r1", SellerID: "s1"}
	for i := 0; i < 12; i++ {
		sku := fmt.Sprintf("SKU_%02d", i)
		ds.Products = append(ds.Products, domain.Product{SKU: sku, PurchasePrice: 1, SalePrice: 2})
		// quantities 1,2,3,1,2,3,... so ties must keep first-sold order
		record.Items = append(record.Items, domain.LineItem{SKU: sku, Quantity: i%3 + 1, SalePrice: 2})
	}
	ds.PurchaseRecords = []domain.PurchaseRecord{record}

	rows, err := analytics.AnalyzeSalesData(ds, quietOptions())
	require.NoError(t, err)

	top := rows[0].TopProducts
	require.Len(t, top, analytics.DefaultTopProducts)
	assert.Equal(t, []domain.TopProduct{
		{SKU: "SKU_02", Quantity: 3},
		{SKU: "SKU_05", Quantity: 3},
		{SKU: "SKU_08", Quantity: 3},
		{SKU: "SKU_11", Quantity: 3},
		{SKU: "SKU_01", Quantity: 2},
		{SKU: "SKU_04", Quantity: 2},
		{SKU: "SKU_07", Quantity: 2},
		{SKU: "SKU_10", Quantity: 2},
		{SKU: "SKU_00", Quantity: 1},
		{SKU: "SKU_03", Quantity: 1},
	}, top)

	opts := quietOptions()
	opts.TopProducts = 3
	rows, err = analytics.AnalyzeSalesData(ds, opts)
	require.NoError(t, err)
	assert.Len(t, rows[0].TopProducts, 3)
}

func TestAnalyzeSalesData_QuantitiesAccumulateAcrossReceipts(t *testing.T) {
	ds := singleSaleDataset()
	ds.Products = append(ds.Products, domain.Product{SKU: "SKU_2", PurchasePrice: 1, SalePrice: 2})
	ds.PurchaseRecords = append(ds.PurchaseRecords,
		domain.PurchaseRecord{ReceiptID: "r2", SellerID: "s1", Items: []domain.LineItem{{SKU: "SKU_2", Quantity: 2, SalePrice: 2}}},
		domain.PurchaseRecord{ReceiptID: "r3", SellerID: "s1", Items: []domain.LineItem{{SKU: "SKU_2", Quantity: 1, SalePrice: 2}}},
	)

	rows, err := analytics.AnalyzeSalesData(ds, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, 3, rows[0].SalesCount)
	assert.Equal(t, []domain.TopProduct{
		{SKU: "SKU_2", Quantity: 3},
		{SKU: "SKU_1", Quantity: 2},
	}, rows[0].TopProducts)
}

func TestAnalyzeSalesData_BonusRoundingPolicy(t *testing.T) {
	opts := quietOptions()
	opts.BonusRounding = analytics.RoundWhole

	rows, err := analytics.AnalyzeSalesData(hardwareDataset(), opts)
	require.NoError(t, err)

	assert.Equal(t, 73.0, rows[0].Bonus)
	assert.Equal(t, 22.0, rows[1].Bonus)
	assert.Equal(t, 11.0, rows[2].Bonus)
	// revenue and profit keep cents regardless of the bonus policy
	assert.Equal(t, 488.80, rows[0].Profit)
}

func TestAnalyzeSalesData_CustomStrategies(t *testing.T) {
	var ranks []int
	opts := quietOptions()
	opts.Revenue = analytics.RevenueFunc(func(item domain.LineItem, product domain.Product) decimal.Decimal {
		// list price, ignoring the price on the receipt and the discount
		return decimal.NewFromFloat(product.SalePrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
	})
	opts.Bonus = analytics.BonusFunc(func(rank, total int, stat *analytics.SellerStat) decimal.Decimal {
		ranks = append(ranks, rank)
		return decimal.NewFromInt(int64(total - rank))
	})

	rows, err := analytics.AnalyzeSalesData(hardwareDataset(), opts)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1, 2}, ranks)
	assert.Equal(t, "seller_1", rows[0].SellerID)
	assert.Equal(t, 1599.98, rows[0].Revenue)
	assert.Equal(t, 3.0, rows[0].Bonus)
	assert.Equal(t, 1.0, rows[2].Bonus)
}

func TestAnalyzeSalesData_NegativeHalfCentProfitRoundsAwayFromZero(t *testing.T) {
	ds := &domain.Dataset{
		Products: []domain.Product{{SKU: "SKU_1", PurchasePrice: 10.005, SalePrice: 10}},
		Sellers:  []domain.Seller{{ID: "s1", FirstName: "Anna", LastName: "Smirnova"}},
		PurchaseRecords: []domain.PurchaseRecord{
			{ReceiptID: "r1", SellerID: "s1", Items: []domain.LineItem{{SKU: "SKU_1", Quantity: 1, SalePrice: 10}}},
		},
	}

	rows, err := analytics.AnalyzeSalesData(ds, quietOptions())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, 10.0, rows[0].Revenue)
	assert.Equal(t, -0.01, rows[0].Profit)
}

func TestAnalyzeSalesData_Idempotent(t *testing.T) {
	ds := hardwareDataset()

	first, err := analytics.Analyze(ds, quietOptions())
	require.NoError(t, err)
	second, err := analytics.Analyze(ds, quietOptions())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAnalyzeSalesData_LogsAnomalies(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	ds := singleSaleDataset()
	ds.PurchaseRecords = append(ds.PurchaseRecords, domain.PurchaseRecord{ReceiptID: "r9", SellerID: "nobody"})

	_, err := analytics.AnalyzeSalesData(ds, &analytics.Options{Logger: &log})
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), `"receipt_id":"r9"`)
	assert.Contains(t, buf.String(), `"kind":"unknown_seller"`)
}

type listPriceRevenue struct{}

func (*listPriceRevenue) Revenue(item domain.LineItem, product domain.Product) decimal.Decimal {
	return decimal.NewFromFloat(product.SalePrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
}

func TestAnalyzeSalesData_Validation(t *testing.T) {
	nop := zerolog.Nop()
	revenue := analytics.RevenueFunc(analytics.CalculateSimpleRevenue)
	bonus := analytics.BonusFunc(analytics.CalculateBonusByProfit)

	withDataset := func(mutate func(ds *domain.Dataset)) *domain.Dataset {
		ds := singleSaleDataset()
		mutate(ds)
		return ds
	}

	tests := []struct {
		name    string
		dataset *domain.Dataset
		opts    *analytics.Options
		wantErr error
	}{
		{"nil dataset", nil, &analytics.Options{Logger: &nop}, analytics.ErrInvalidDataset},
		{"missing sellers", withDataset(func(ds *domain.Dataset) { ds.Sellers = nil }), &analytics.Options{}, analytics.ErrInvalidDataset},
		{"empty sellers", withDataset(func(ds *domain.Dataset) { ds.Sellers = []domain.Seller{} }), &analytics.Options{}, analytics.ErrInvalidDataset},
		{"missing products", withDataset(func(ds *domain.Dataset) { ds.Products = nil }), &analytics.Options{}, analytics.ErrInvalidDataset},
		{"empty products", withDataset(func(ds *domain.Dataset) { ds.Products = []domain.Product{} }), &analytics.Options{}, analytics.ErrInvalidDataset},
		{"missing purchase records", withDataset(func(ds *domain.Dataset) { ds.PurchaseRecords = nil }), &analytics.Options{}, analytics.ErrInvalidDataset},
		{"empty purchase records", withDataset(func(ds *domain.Dataset) { ds.PurchaseRecords = []domain.PurchaseRecord{} }), &analytics.Options{}, analytics.ErrInvalidDataset},
		{"nil options", singleSaleDataset(), nil, analytics.ErrInvalidOptions},
		{"revenue only", singleSaleDataset(), &analytics.Options{Revenue: revenue}, analytics.ErrStrategyMismatch},
		{"bonus only", singleSaleDataset(), &analytics.Options{Bonus: bonus}, analytics.ErrStrategyMismatch},
		{"nil revenue func", singleSaleDataset(), &analytics.Options{Revenue: analytics.RevenueFunc(nil), Bonus: bonus}, analytics.ErrStrategyNotCallable},
		{"typed nil revenue strategy", singleSaleDataset(), &analytics.Options{Revenue: (*listPriceRevenue)(nil), Bonus: bonus}, analytics.ErrStrategyNotCallable},
		{"nil bonus func", singleSaleDataset(), &analytics.Options{Revenue: revenue, Bonus: analytics.BonusFunc(nil)}, analytics.ErrStrategyNotCallable},
		{"negative top products", singleSaleDataset(), &analytics.Options{TopProducts: -1}, analytics.ErrInvalidOptions},
		{"unknown bonus rounding", singleSaleDataset(), &analytics.Options{BonusRounding: "tenths"}, analytics.ErrInvalidOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := analytics.AnalyzeSalesData(tt.dataset, tt.opts)
			require.Error(t, err)
			assert.Nil(t, rows)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestAnalyzeSalesData_ValidationRunsBeforeStrategies(t *testing.T) {
	called := false
	opts := &analytics.Options{
		Revenue: analytics.RevenueFunc(func(domain.LineItem, domain.Product) decimal.Decimal {
			called = true
			return decimal.Zero
		}),
		Bonus: analytics.BonusFunc(func(int, int, *analytics.SellerStat) decimal.Decimal {
			called = true
			return decimal.Zero
		}),
	}

	_, err := analytics.AnalyzeSalesData(&domain.Dataset{Sellers: []domain.Seller{{ID: "s"}}}, opts)
	require.ErrorIs(t, err, analytics.ErrInvalidDataset)
	assert.False(t, called)
}

func TestParseBonusRounding(t *testing.T) {
	for in, want := range map[string]analytics.BonusRounding{
		"":       analytics.RoundCents,
		"cents":  analytics.RoundCents,
		"WHOLE":  analytics.RoundWhole,
		" whole": analytics.RoundWhole,
	} {
		got, err := analytics.ParseBonusRounding(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := analytics.ParseBonusRounding("thousands")
	assert.ErrorIs(t, err, analytics.ErrInvalidOptions)
}
