package analytics

import (
	"github.com/andresuchdata/seller-analytics/internal/domain"
)

// formatReport converts the ranking into immutable report rows.
func formatReport(ranked []RankedSeller, bonusRounding BonusRounding) []domain.ReportRow {
	rows := make([]domain.ReportRow, 0, len(ranked))
	for _, r := range ranked {
		top := make([]domain.TopProduct, len(r.TopProducts))
		copy(top, r.TopProducts)

		rows = append(rows, domain.ReportRow{
			SellerID:    r.Stat.ID,
			Name:        r.Stat.Name,
			Revenue:     roundCents(r.Stat.Revenue).InexactFloat64(),
			Profit:      roundCents(r.Stat.Profit).InexactFloat64(),
			SalesCount:  r.Stat.SalesCount,
			TopProducts: top,
			Bonus:       r.Bonus.Round(bonusRounding.places()).InexactFloat64(),
		})
	}
	return rows
}
