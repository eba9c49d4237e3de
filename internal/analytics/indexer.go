package analytics

import (
	"github.com/andresuchdata/seller-analytics/internal/domain"
	"github.com/shopspring/decimal"
)

// SellerStat accumulates the metrics of one seller during a run.
type SellerStat struct {
	ID         string
	Name       string
	Revenue    decimal.Decimal
	Profit     decimal.Decimal
	SalesCount int

	productsSold map[string]int
	soldOrder    []string
}

func newSellerStat(s domain.Seller) *SellerStat {
	return &SellerStat{
		ID:           s.ID,
		Name:         s.DisplayName(),
		Revenue:      decimal.Zero,
		Profit:       decimal.Zero,
		productsSold: make(map[string]int),
	}
}

func (s *SellerStat) addSold(sku string, quantity int) {
	if _, ok := s.productsSold[sku]; !ok {
		s.productsSold[sku] = 0
		s.soldOrder = append(s.soldOrder, sku)
	}
	s.productsSold[sku] += quantity
}

// QuantitySold returns the cumulative quantity of sku sold by the seller.
func (s *SellerStat) QuantitySold(sku string) int {
	return s.productsSold[sku]
}

// ProductsSold returns the sold quantities in the order products were first sold.
func (s *SellerStat) ProductsSold() []domain.TopProduct {
	out := make([]domain.TopProduct, 0, len(s.soldOrder))
	for _, sku := range s.soldOrder {
		out = append(out, domain.TopProduct{SKU: sku, Quantity: s.productsSold[sku]})
	}
	return out
}

// indexes holds the lookup structures of one run
type indexes struct {
	// stats keeps one accumulator per input seller, in input order
	stats    []*SellerStat
	sellers  map[string]*SellerStat
	products map[string]domain.Product
}

func buildIndexes(sellers []domain.Seller, products []domain.Product, diag *diagnostics) *indexes {
	idx := &indexes{
		stats:    make([]*SellerStat, 0, len(sellers)),
		sellers:  make(map[string]*SellerStat, len(sellers)),
		products: make(map[string]domain.Product, len(products)),
	}

	for _, seller := range sellers {
		stat := newSellerStat(seller)
		if _, dup := idx.sellers[seller.ID]; dup {
			diag.report(Anomaly{Kind: AnomalyDuplicateSeller, SellerID: seller.ID})
		}
		idx.stats = append(idx.stats, stat)
		idx.sellers[seller.ID] = stat
	}

	for _, product := range products {
		if _, dup := idx.products[product.SKU]; dup {
			diag.report(Anomaly{Kind: AnomalyDuplicateSKU, SKU: product.SKU})
		}
		idx.products[product.SKU] = product
	}

	return idx
}
