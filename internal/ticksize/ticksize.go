// Package ticksize applies an exchange's minimum price increment.
package ticksize

import (
	"strings"

	"github.com/shopspring/decimal"
)

type bracket struct {
	below float64
	tick  decimal.Decimal
}

// Table is one exchange's tick schedule: brackets in ascending price order,
// then top for everything above the last bracket.
type Table struct {
	Name     string
	brackets []bracket
	top      decimal.Decimal
}

var (
	// KRX uses integer won ticks that widen with price.
	KRX = Table{
		Name: "KRX",
		brackets: []bracket{
			{2_000, decimal.NewFromInt(1)},
			{5_000, decimal.NewFromInt(5)},
			{20_000, decimal.NewFromInt(10)},
			{50_000, decimal.NewFromInt(50)},
			{200_000, decimal.NewFromInt(100)},
			{500_000, decimal.NewFromInt(500)},
		},
		top: decimal.NewFromInt(1_000),
	}

	// NSE equities trade in five-paise steps.
	NSE = Table{Name: "NSE", top: decimal.RequireFromString("0.05")}
)

var fallbackTick = decimal.RequireFromString("0.01")

// ForExchange picks the table for an exchange code. Indian venues share the
// NSE schedule.
func ForExchange(exchange string) Table {
	switch strings.ToUpper(strings.TrimSpace(exchange)) {
	case "KRX", "KOSPI", "KOSDAQ":
		return KRX
	default:
		return NSE
	}
}

func (t Table) tick(price float64) decimal.Decimal {
	for _, b := range t.brackets {
		if price < b.below {
			return b.tick
		}
	}
	if t.top.IsPositive() {
		return t.top
	}
	return fallbackTick
}

// Size returns the tick for price.
func (t Table) Size(price float64) float64 {
	return t.tick(price).InexactFloat64()
}

// Round snaps price to the nearest tick, halves away from zero.
func (t Table) Round(price float64) float64 {
	tick := t.tick(price)
	return decimal.NewFromFloat(price).Div(tick).Round(0).Mul(tick).InexactFloat64()
}

// Truncate snaps price down to the tick at or below it.
func (t Table) Truncate(price float64) float64 {
	if price <= 0 {
		return 0
	}
	tick := t.tick(price)
	return decimal.NewFromFloat(price).Div(tick).Floor().Mul(tick).InexactFloat64()
}

// Ceil snaps price up to the tick at or above it.
func (t Table) Ceil(price float64) float64 {
	if price <= 0 {
		return 0
	}
	tick := t.tick(price)
	return decimal.NewFromFloat(price).Div(tick).Ceil().Mul(tick).InexactFloat64()
}
