package card

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidPrice is returned when a price field is not a finite decimal.
var ErrInvalidPrice = errors.New("invalid price")

// priceFor picks the USD price field matching finish. Unknown finishes use
// the regular price.
func priceFor(p Prices, finish string) *string {
	switch strings.ToLower(finish) {
	case FinishFoil:
		return p.USDFoil
	case FinishEtched:
		return p.USDEtched
	default:
		return p.USD
	}
}

// ConvertPrice converts the USD price for finish into minor units of the
// target currency. A missing or empty price converts to 0.
//
// Rounding happens twice: first to whole cents, then again after applying
// exchangeRate. Both steps round half away from zero. Existing catalog
// prices were computed this way, so it is kept even though a single rounding
// would be more precise.
func ConvertPrice(p Prices, finish string, exchangeRate float64) (int64, error) {
	raw := priceFor(p, finish)
	if raw == nil || *raw == "" {
		return 0, nil
	}

	usd, err := strconv.ParseFloat(strings.TrimSpace(*raw), 64)
	if err != nil || math.IsNaN(usd) || math.IsInf(usd, 0) {
		return 0, fmt.Errorf("%w: %q for finish %s", ErrInvalidPrice, *raw, finish)
	}

	cents := math.Round(usd * 100)
	return int64(math.Round(cents * exchangeRate)), nil
}
