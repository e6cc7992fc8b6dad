package parsers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slmyers/portfolio-tracker/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

const sampleStatement = `Statement,Header,Field Name,Field Value
Statement,Data,BrokerName,Interactive Brokers
Statement,Data,Title,Activity Statement
Statement,Data,Period,"January 1, 2024 - December 31, 2024"
Statement,Data,WhenGenerated,"2024-12-31, 23:59:59 EST"
Trades,Header,DataDiscriminator,Asset Category,Currency,Symbol,Date/Time,Quantity,T. Price,C. Price,Proceeds,Comm/Fee,Basis,Realized P/L,MTM P/L,Code
Trades,Data,Order,Stocks,USD,AAPL,"2024-03-15, 10:30:00",10,150.25,151,-1502.50,-1,1503.50,0,7.50,O
Trades,Data,Order,Stocks,USD,MSFT,"2024-04-02, 11:00:00",5,400,401.10,-2000,-1,2001,0,5.50,O
Trades,Data,Total,,,,,,,,-3502.50,-2,,,,
Dividends,Header,Currency,Date,Description,Amount
Dividends,Data,USD,2024-06-14,AAPL(US0378331005) Cash Dividend USD 0.25 per Share,2.50
Dividends,Data,USD,2024-09-13,MSFT(US5949181045) Cash Dividend USD 0.75 per Share,3.75
Dividends,Data,Total,,,6.25
Open Positions,Header,DataDiscriminator,Asset Category,Currency,Symbol,Quantity,Mult,Cost Price,Cost Basis,Close Price,Value,Unrealized P/L,Code
Open Positions,Data,Summary,Stocks,USD,AAPL,10,1,150.25,"1,502.50",185,1850,347.50,
Open Positions,Data,Total,,,,,,,"1,502.50",,1850,347.50,
Forex Balances,Header,Asset Category,Currency,Description,Quantity,Cost Price,Cost Basis in CAD,Close Price,Value in CAD,Unrealized P/L in CAD,Code
Forex Balances,Data,Forex,CAD,USD,5000,1.32,6600,1.35,6750,150,
Forex Balances,Data,Total,,,,,6600,,6750,150,
`

func writeStatement(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "statement.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseStatementSections(t *testing.T) {
	parser := NewStatementParser()
	require.NoError(t, parser.Parse(writeStatement(t, sampleStatement)))

	trades := parser.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, "AAPL", trades[0].Symbol)
	assert.Equal(t, "2024-03-15, 10:30:00", trades[0].DateTime)
	require.True(t, trades[0].Quantity.Valid)
	assert.Equal(t, "10", trades[0].Quantity.Decimal.String())
	require.True(t, trades[0].TradePrice.Valid)
	assert.Equal(t, "150.25", trades[0].TradePrice.Decimal.String())
	require.True(t, trades[0].Proceeds.Valid)
	assert.Equal(t, "-1502.5", trades[0].Proceeds.Decimal.String())
	require.True(t, trades[0].Commission.Valid)
	assert.Equal(t, "-1", trades[0].Commission.Decimal.String())
	assert.Equal(t, "MSFT", trades[1].Symbol)

	dividends := parser.Dividends()
	require.Len(t, dividends, 2)
	assert.Equal(t, "2024-06-14", dividends[0].Date)
	require.True(t, dividends[0].Amount.Valid)
	assert.Equal(t, "2.5", dividends[0].Amount.Decimal.String())

	positions := parser.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, "AAPL", positions[0].Symbol)
	require.True(t, positions[0].CostBasis.Valid)
	assert.Equal(t, "1502.5", positions[0].CostBasis.Decimal.String())

	forex := parser.ForexBalances()
	require.Len(t, forex, 1)
	assert.Equal(t, "USD", forex[0].Currency)
	assert.Equal(t, "CAD", forex[0].BaseCurrency)
	require.True(t, forex[0].Quantity.Valid)
	assert.Equal(t, "5000", forex[0].Quantity.Decimal.String())
	require.True(t, forex[0].CostBasisInBase.Valid)
	assert.Equal(t, "6600", forex[0].CostBasisInBase.Decimal.String())
	require.True(t, forex[0].ValueInBase.Valid)
	assert.Equal(t, "6750", forex[0].ValueInBase.Decimal.String())
}

func TestParseStatementSkipsSummaryRows(t *testing.T) {
	parser := NewStatementParser()
	require.NoError(t, parser.Parse(writeStatement(t, sampleStatement)))

	summarySkips := 0
	for _, d := range parser.Diagnostics() {
		if strings.HasPrefix(d.Message, "skipped summary row") {
			summarySkips++
		}
	}
	// One Total row each in Trades, Dividends, Open Positions, Forex Balances.
	assert.Equal(t, 4, summarySkips)
}

func TestStatementMetadata(t *testing.T) {
	parser := NewStatementParser()
	require.NoError(t, parser.Parse(writeStatement(t, sampleStatement)))

	meta := parser.Meta()
	assert.Equal(t, "Interactive Brokers", meta["BrokerName"])
	assert.Equal(t, "January 1, 2024 - December 31, 2024", meta["Period"])
	assert.Equal(t, "2024-01-01", meta[MetaPeriodStart])
	assert.Equal(t, "2024-12-31", meta[MetaPeriodEnd])
	assert.Equal(t, "2024-12-31", meta[MetaGeneratedAt])
}

func TestStatementMetadataFallbackToRawValue(t *testing.T) {
	const content = `Statement,Header,Field Name,Field Value
Statement,Data,Period,FY2024
Statement,Data,WhenGenerated,sometime last year
`
	parser := NewStatementParser()
	require.NoError(t, parser.Parse(writeStatement(t, content)))

	meta := parser.Meta()
	assert.Equal(t, "FY2024", meta[MetaPeriodStart])
	assert.Equal(t, "FY2024", meta[MetaPeriodEnd])
	assert.Equal(t, "sometime last year", meta[MetaGeneratedAt])
}

func TestUnknownSectionUsesGenericParser(t *testing.T) {
	const content = `Fees,Header,Currency,Date,Description,Amount
Fees,Data,USD,2024-02-01,Monthly minimum fee,-10
Trades,Header,DataDiscriminator,Asset Category,Currency,Symbol,Date/Time,Quantity,T. Price,C. Price,Proceeds,Comm/Fee,Basis,Realized P/L,MTM P/L,Code
Trades,Data,Order,Stocks,USD,AAPL,"2024-03-15, 10:30:00",10,150.25,151,-1502.50,-1,1503.50,0,7.50,O
`
	parser := NewStatementParser()
	require.NoError(t, parser.Parse(writeStatement(t, content)))

	// The unknown section is recorded as a diagnostic and does not disturb
	// the sections that follow it.
	require.Len(t, parser.Trades(), 1)
	found := false
	for _, d := range parser.Diagnostics() {
		if d.Section == "Fees" {
			found = true
		}
	}
	assert.True(t, found, "expected a diagnostic for the unknown Fees section")
}

func TestParseShapeMismatchRecordsDiagnostic(t *testing.T) {
	const content = `Dividends,Header,Currency,Date,Description,Amount
Dividends,Data,USD,2024-06-14,AAPL Cash Dividend,2.50,extra-cell
Dividends,Data,USD,2024-09-13,MSFT Cash Dividend,3.75
`
	parser := NewStatementParser()
	require.NoError(t, parser.Parse(writeStatement(t, content)))

	require.Len(t, parser.Dividends(), 1)
	assert.Equal(t, "MSFT Cash Dividend", parser.Dividends()[0].Description)
	require.NotEmpty(t, parser.Diagnostics())
	assert.Contains(t, parser.Diagnostics()[0].Message, "mismatch")
}

func TestStrictModeFailsOnDiagnostics(t *testing.T) {
	parser := NewStatementParser(WithStrict())
	err := parser.Parse(writeStatement(t, sampleStatement))
	require.Error(t, err)

	var failure *ParseFailure
	require.ErrorAs(t, err, &failure)
	assert.NotEmpty(t, failure.Diagnostics)

	// Records accumulated before the failure decision are still readable.
	assert.Len(t, parser.Trades(), 2)
}

func TestParseToleratesByteOrderMark(t *testing.T) {
	parser := NewStatementParser()
	require.NoError(t, parser.Parse(writeStatement(t, "\xEF\xBB\xBF"+sampleStatement)))

	assert.Len(t, parser.Trades(), 2)
	assert.Equal(t, "Interactive Brokers", parser.Meta()["BrokerName"])
}

func TestSectionStateDataRowBeforeHeader(t *testing.T) {
	state := &sectionState{section: SectionTrades, handler: &tradesHandler{}}
	var diags []Diagnostic
	state.processRow([]string{"Trades", "Data", "Order", "Stocks"}, &diags)

	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "before header")
}

func TestPrettyPrint(t *testing.T) {
	parser := NewStatementParser()
	require.NoError(t, parser.Parse(writeStatement(t, sampleStatement)))

	out := parser.PrettyPrint(nil)
	assert.Contains(t, out, "=== Trades ===")
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "=== Forex Balances ===")

	tradesOnly := parser.PrettyPrint([]string{"trades"})
	assert.Contains(t, tradesOnly, "AAPL")
	assert.NotContains(t, tradesOnly, "=== Dividends ===")
}
