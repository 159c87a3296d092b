// internal/pricing/oracle.go
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradesim-ledger/internal/util"
)

// PriceOracle returns the current price for a symbol. Prices are not assumed
// stable across calls: an operation must look a price up once and reuse the
// captured value for all of its own math.
type PriceOracle interface {
	// Price returns the per-unit price for a supported symbol.
	Price(symbol string) (decimal.Decimal, error)
	// Symbols returns the supported symbol universe, sorted.
	Symbols() []string
}

// FixedOracle serves prices from a fixed table. It is the production oracle
// for the simulator and doubles as a deterministic stub in tests.
type FixedOracle struct {
	prices map[string]decimal.Decimal
}

// NewFixedOracle creates a FixedOracle over the given price table.
func NewFixedOracle(prices map[string]decimal.Decimal) *FixedOracle {
	table := make(map[string]decimal.Decimal, len(prices))
	for symbol, price := range prices {
		table[symbol] = price
	}
	return &FixedOracle{prices: table}
}

// DefaultOracle returns a FixedOracle over the simulator's stock universe.
func DefaultOracle() *FixedOracle {
	return NewFixedOracle(map[string]decimal.Decimal{
		"AAPL":  decimal.NewFromFloat(150.00),
		"TSLA":  decimal.NewFromFloat(200.00),
		"GOOGL": decimal.NewFromFloat(130.00),
	})
}

// Price implements PriceOracle.
func (o *FixedOracle) Price(symbol string) (decimal.Decimal, error) {
	price, ok := o.prices[symbol]
	if !ok {
		return decimal.Zero, &util.UnknownSymbolError{Symbol: symbol}
	}
	return price, nil
}

// Symbols implements PriceOracle.
func (o *FixedOracle) Symbols() []string {
	symbols := make([]string, 0, len(o.prices))
	for symbol := range o.prices {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
