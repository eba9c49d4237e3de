package analytics

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const centPlaces int32 = 2

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// roundCents rounds half away from zero at the cent.
func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(centPlaces)
}

// BonusRounding selects the granularity used when a bonus is written to a report row.
type BonusRounding string

const (
	RoundCents BonusRounding = "cents"
	RoundWhole BonusRounding = "whole"
)

// ParseBonusRounding accepts "cents", "whole" or an empty string (cents).
func ParseBonusRounding(s string) (BonusRounding, error) {
	switch BonusRounding(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoundCents:
		return RoundCents, nil
	case RoundWhole:
		return RoundWhole, nil
	default:
		return "", errors.Wrapf(ErrInvalidOptions, "unknown bonus rounding %q (expected %q or %q)", s, RoundCents, RoundWhole)
	}
}

func (r BonusRounding) places() int32 {
	if r == RoundWhole {
		return 0
	}
	return centPlaces
}

func (r BonusRounding) valid() bool {
	return r == RoundCents || r == RoundWhole
}
