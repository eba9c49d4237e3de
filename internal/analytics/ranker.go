package analytics

import (
	"slices"

	"github.com/andresuchdata/seller-analytics/internal/domain"
	"github.com/shopspring/decimal"
)

// RankedSeller is a seller stat placed in the profit ranking.
type RankedSeller struct {
	Rank        int
	Stat        *SellerStat
	Bonus       decimal.Decimal
	TopProducts []domain.TopProduct
}

// rankSellers orders sellers by cent-rounded profit, highest first. The sort is
// stable so tied sellers keep their input order.
func rankSellers(stats []*SellerStat, bonus BonusStrategy, topN int) []RankedSeller {
	sorted := slices.Clone(stats)
	slices.SortStableFunc(sorted, func(a, b *SellerStat) int {
		return roundCents(b.Profit).Cmp(roundCents(a.Profit))
	})

	ranked := make([]RankedSeller, len(sorted))
	for i, stat := range sorted {
		ranked[i] = RankedSeller{
			Rank:        i,
			Stat:        stat,
			Bonus:       bonus.Bonus(i, len(sorted), stat),
			TopProducts: topProducts(stat, topN),
		}
	}

	return ranked
}

// topProducts returns at most n products by quantity, ties in first-sold order.
func topProducts(stat *SellerStat, n int) []domain.TopProduct {
	products := stat.ProductsSold()
	slices.SortStableFunc(products, func(a, b domain.TopProduct) int {
		return b.Quantity - a.Quantity
	})

	if len(products) > n {
		products = products[:n]
	}
	return products
}
