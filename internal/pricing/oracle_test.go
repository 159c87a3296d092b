// internal/pricing/oracle_test.go
package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradesim-ledger/internal/util"
)

func TestFixedOraclePrice(t *testing.T) {
	oracle := DefaultOracle()

	price, err := oracle.Price("AAPL")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(150)))

	_, err = oracle.Price("DOGE")
	assert.ErrorIs(t, err, util.ErrUnknownSymbol)
	var symErr *util.UnknownSymbolError
	require.ErrorAs(t, err, &symErr)
	assert.Equal(t, "DOGE", symErr.Symbol)
}

func TestFixedOracleSymbolsSorted(t *testing.T) {
	oracle := DefaultOracle()
	assert.Equal(t, []string{"AAPL", "GOOGL", "TSLA"}, oracle.Symbols())
}

func TestFixedOracleCopiesTable(t *testing.T) {
	table := map[string]decimal.Decimal{"ABC": decimal.NewFromInt(10)}
	oracle := NewFixedOracle(table)
	table["ABC"] = decimal.NewFromInt(99)

	price, err := oracle.Price("ABC")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(10)))
}
