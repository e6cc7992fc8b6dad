package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeField(t *testing.T) {
	assert.Equal(t, "date_time", NormalizeField("Date/Time"))
	assert.Equal(t, "comm_fee", NormalizeField("Comm/Fee"))
	assert.Equal(t, "t._price", NormalizeField("T. Price"))
	assert.Equal(t, "realized_p_l", NormalizeField("Realized P/L"))
	assert.Equal(t, "cost_basis_in_cad", NormalizeField("  Cost Basis in CAD "))
	assert.Equal(t, "symbol", NormalizeField("Symbol"))
}

func TestParseDecimal(t *testing.T) {
	d := ParseDecimal("1,234.50")
	require.True(t, d.Valid)
	assert.Equal(t, "1234.5", d.Decimal.String())

	d = ParseDecimal("-1502.50")
	require.True(t, d.Valid)
	assert.Equal(t, "-1502.5", d.Decimal.String())

	assert.False(t, ParseDecimal("").Valid)
	assert.False(t, ParseDecimal("   ").Valid)
	assert.False(t, ParseDecimal("--").Valid)
	assert.False(t, ParseDecimal("N/A").Valid)
}

func TestIsSummaryRow(t *testing.T) {
	keywords := []string{"total", "subtotal"}

	assert.True(t, IsSummaryRow([]string{"Trades", "Data", "Total"}, keywords))
	assert.True(t, IsSummaryRow([]string{"Trades", "Data", "SubTotal"}, keywords))
	assert.True(t, IsSummaryRow([]string{"Trades", "Data", "Total in USD"}, keywords))
	assert.False(t, IsSummaryRow([]string{"Trades", "Data", "Order"}, keywords))
	assert.False(t, IsSummaryRow([]string{"Trades", "Data"}, keywords))
}
