package analytics

import (
	"reflect"

	"github.com/andresuchdata/seller-analytics/internal/domain"
	"github.com/shopspring/decimal"
)

// RevenueStrategy computes the revenue of a single line item.
// Profit is always derived by the caller as revenue minus purchase cost.
type RevenueStrategy interface {
	Revenue(item domain.LineItem, product domain.Product) decimal.Decimal
}

// RevenueFunc adapts a plain function to RevenueStrategy.
type RevenueFunc func(item domain.LineItem, product domain.Product) decimal.Decimal

func (f RevenueFunc) Revenue(item domain.LineItem, product domain.Product) decimal.Decimal {
	return f(item, product)
}

// BonusStrategy computes the bonus of the seller placed at rank (zero based,
// most profitable first) out of total sellers. Implementations must not
// mutate stat.
type BonusStrategy interface {
	Bonus(rank, total int, stat *SellerStat) decimal.Decimal
}

// BonusFunc adapts a plain function to BonusStrategy.
type BonusFunc func(rank, total int, stat *SellerStat) decimal.Decimal

func (f BonusFunc) Bonus(rank, total int, stat *SellerStat) decimal.Decimal {
	return f(rank, total, stat)
}

// CalculateSimpleRevenue returns sale_price * quantity * (1 - discount/100)
// rounded to cents. The product card is not consulted.
func CalculateSimpleRevenue(item domain.LineItem, _ domain.Product) decimal.Decimal {
	discountFactor := decimal.NewFromFloat(item.Discount).Div(hundred)
	totalPrice := decimal.NewFromFloat(item.SalePrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
	return roundCents(totalPrice.Mul(one.Sub(discountFactor)))
}

var (
	bonusTop    = decimal.RequireFromString("0.15")
	bonusPodium = decimal.RequireFromString("0.10")
	bonusBase   = decimal.RequireFromString("0.05")
)

// CalculateBonusByProfit is the tiered bonus policy:
// first place 15%, second and third 10%, last place nothing, everyone else 5%.
// Rank 0 is checked before last place, so a lone seller still gets 15%.
func CalculateBonusByProfit(rank, total int, stat *SellerStat) decimal.Decimal {
	profit := roundCents(stat.Profit)

	var bonus decimal.Decimal
	switch {
	case rank == 0:
		bonus = profit.Mul(bonusTop)
	case rank == 1 || rank == 2:
		bonus = profit.Mul(bonusPodium)
	case rank == total-1:
		bonus = decimal.Zero
	default:
		bonus = profit.Mul(bonusBase)
	}

	return roundCents(bonus)
}

// callable reports whether a supplied strategy can actually be invoked.
// A typed nil such as (*myStrategy)(nil) is not.
func callable(strategy any) bool {
	if strategy == nil {
		return false
	}
	v := reflect.ValueOf(strategy)
	switch v.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Chan, reflect.Interface:
		return !v.IsNil()
	default:
		return true
	}
}
