package parsers

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/slmyers/portfolio-tracker/src/logger"
)

// Derived metadata keys added by post-processing. When the raw text cannot
// be parsed the original string is stored under the derived key instead;
// metadata derivation never fails a parse.
const (
	MetaPeriodStart = "PeriodStart"
	MetaPeriodEnd   = "PeriodEnd"
	MetaGeneratedAt = "GeneratedAt"
)

const (
	metaDateLayout   = "January 2, 2006"
	metaOutputLayout = "2006-01-02"
)

// ParseFailure is returned by Parse in strict mode when any diagnostic was
// recorded.
type ParseFailure struct {
	Diagnostics []Diagnostic
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("statement parsing recorded %d diagnostics, first: %s", len(e.Diagnostics), e.Diagnostics[0])
}

// StatementParser reads an IBKR Activity Statement CSV and accumulates
// typed records per section. Construct one per file; records are read via
// the accessors after Parse returns.
type StatementParser struct {
	strict bool

	trades    *tradesHandler
	dividends *dividendsHandler
	positions *positionsHandler
	forex     *forexBalancesHandler
	statement *statementHandler
	unknown   map[string]*genericHandler

	diagnostics []Diagnostic
}

// Option configures a StatementParser.
type Option func(*StatementParser)

// WithStrict makes Parse fail if any diagnostic is recorded. The default is
// lenient: diagnostics are exposed via Diagnostics() and parsing continues,
// because real broker exports routinely contain summary rows and unknown
// sections.
func WithStrict() Option {
	return func(p *StatementParser) { p.strict = true }
}

func NewStatementParser(opts ...Option) *StatementParser {
	p := &StatementParser{
		trades:    &tradesHandler{},
		dividends: &dividendsHandler{},
		positions: &positionsHandler{},
		forex:     &forexBalancesHandler{},
		statement: &statementHandler{},
		unknown:   make(map[string]*genericHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// stateFor returns the parsing strategy for a section block. Known sections
// get their registered summary keywords and handler; anything else falls
// back to the generic algorithm with no summary filtering.
func (p *StatementParser) stateFor(section string) blockState {
	switch section {
	case SectionTrades:
		return &sectionState{section: section, summaryKeywords: []string{"total", "subtotal"}, handler: p.trades}
	case SectionDividends:
		return &sectionState{section: section, summaryKeywords: []string{"total"}, handler: p.dividends}
	case SectionOpenPositions:
		return &sectionState{section: section, summaryKeywords: []string{"total", "subtotal"}, handler: p.positions}
	case SectionForexBalances:
		return &sectionState{section: section, summaryKeywords: []string{"total"}, handler: p.forex}
	case SectionStatement:
		return &statementState{handler: p.statement}
	default:
		p.diagnostics = append(p.diagnostics, Diagnostic{section, "unknown section, using generic parser"})
		h := p.unknown[section]
		if h == nil {
			h = &genericHandler{}
			p.unknown[section] = h
		}
		return &sectionState{section: section, handler: h}
	}
}

// Parse reads the file, slices the grid into per-section blocks at each
// section-header row, and feeds every block to its parsing state. In strict
// mode it returns a *ParseFailure if any diagnostic was recorded.
func (p *StatementParser) Parse(filePath string) error {
	grid, err := ReadGrid(filePath)
	if err != nil {
		return err
	}
	p.parseGrid(grid)
	if p.strict && len(p.diagnostics) > 0 {
		return &ParseFailure{Diagnostics: p.diagnostics}
	}
	return nil
}

func (p *StatementParser) parseGrid(grid [][]string) {
	// A row is a section-header row if its second cell equals "Header";
	// blocks never span one.
	var headerIndices []int
	for idx, row := range grid {
		if isSectionHeaderRow(row) {
			headerIndices = append(headerIndices, idx)
		}
	}
	headerIndices = append(headerIndices, len(grid)) // sentinel for last block

	for i := 0; i < len(headerIndices)-1; i++ {
		start, end := headerIndices[i], headerIndices[i+1]
		section := strings.TrimSpace(grid[start][0])
		state := p.stateFor(section)
		logger.L.Debug("Parsing section block", "section", section, "rows", end-start)
		for _, row := range grid[start:end] {
			state.processRow(row, &p.diagnostics)
		}
	}

	p.deriveMetadata()
	for _, d := range p.diagnostics {
		logger.L.Warn("Statement parse diagnostic", "section", d.Section, "message", d.Message)
	}
}

func isSectionHeaderRow(row []string) bool {
	return len(row) > 1 && strings.EqualFold(strings.TrimSpace(row[1]), rowTypeHeader)
}

// Trades returns the accumulated Trades records, empty if the section was
// absent.
func (p *StatementParser) Trades() []TradeRecord { return p.trades.trades }

// Dividends returns the accumulated Dividends records.
func (p *StatementParser) Dividends() []DividendRecord { return p.dividends.dividends }

// Positions returns the accumulated Open Positions records.
func (p *StatementParser) Positions() []PositionRecord { return p.positions.positions }

// ForexBalances returns the accumulated Forex Balances records.
func (p *StatementParser) ForexBalances() []ForexBalanceRecord { return p.forex.balances }

// Meta returns the Statement section's metadata, including the derived
// PeriodStart/PeriodEnd/GeneratedAt keys.
func (p *StatementParser) Meta() map[string]string {
	if p.statement.metadata == nil {
		return map[string]string{}
	}
	return p.statement.metadata
}

// Diagnostics returns every recoverable condition recorded during Parse.
func (p *StatementParser) Diagnostics() []Diagnostic { return p.diagnostics }

// deriveMetadata adds PeriodStart/PeriodEnd from the "Period" field and
// GeneratedAt from "WhenGenerated". Both degrade to storing the raw string
// when the text does not parse.
func (p *StatementParser) deriveMetadata() {
	meta := p.statement.metadata
	if meta == nil {
		return
	}
	if period, ok := meta["Period"]; ok {
		start, end, err := parsePeriod(period)
		if err != nil {
			logger.L.Debug("Could not parse statement period, keeping raw value", "period", period, "error", err)
			meta[MetaPeriodStart] = period
			meta[MetaPeriodEnd] = period
		} else {
			meta[MetaPeriodStart] = start.Format(metaOutputLayout)
			meta[MetaPeriodEnd] = end.Format(metaOutputLayout)
		}
	}
	if generated, ok := meta["WhenGenerated"]; ok {
		at, err := parseGeneratedDate(generated)
		if err != nil {
			logger.L.Debug("Could not parse generation date, keeping raw value", "whenGenerated", generated, "error", err)
			meta[MetaGeneratedAt] = generated
		} else {
			meta[MetaGeneratedAt] = at.Format(metaOutputLayout)
		}
	}
}

// parsePeriod splits `January 1, 2024 - December 31, 2024` into its two
// dates.
func parsePeriod(period string) (time.Time, time.Time, error) {
	s := strings.Trim(strings.TrimSpace(period), `"`)
	parts := strings.Split(s, " - ")
	if len(parts) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("period %q is not two dates separated by \" - \"", period)
	}
	start, err := time.Parse(metaDateLayout, strings.TrimSpace(parts[0]))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(metaDateLayout, strings.TrimSpace(parts[1]))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// parseGeneratedDate takes the date token of `2024-12-31, 23:59:59`.
func parseGeneratedDate(generated string) (time.Time, error) {
	s := strings.Trim(strings.TrimSpace(generated), `"`)
	datePart, _, _ := strings.Cut(s, ",")
	return time.Parse(metaOutputLayout, strings.TrimSpace(datePart))
}

// PrettyPrint formats a human-readable dump of the selected sections
// ("trades", "dividends", "positions", "forex_balances", "meta"); nil means
// all. Diagnostic aid only.
func (p *StatementParser) PrettyPrint(sections []string) string {
	if sections == nil {
		sections = []string{"trades", "dividends", "positions", "forex_balances", "meta"}
	}
	var b strings.Builder
	for _, section := range sections {
		switch section {
		case "trades":
			b.WriteString("=== Trades ===\n")
			if len(p.Trades()) == 0 {
				b.WriteString("No trades found.\n")
			}
			for _, t := range p.Trades() {
				fmt.Fprintf(&b, "%s %s %s @ %s %s | Proceeds: %s | Comm: %s | Realized P/L: %s\n",
					t.DateTime, t.Symbol, nullDecimalString(t.Quantity), nullDecimalString(t.TradePrice), t.Currency,
					nullDecimalString(t.Proceeds), nullDecimalString(t.Commission), nullDecimalString(t.RealizedPL))
			}
		case "dividends":
			b.WriteString("=== Dividends ===\n")
			if len(p.Dividends()) == 0 {
				b.WriteString("No dividends found.\n")
			}
			for _, d := range p.Dividends() {
				fmt.Fprintf(&b, "%s %s %s %s\n", d.Date, d.Description, nullDecimalString(d.Amount), d.Currency)
			}
		case "positions":
			b.WriteString("=== Open Positions ===\n")
			if len(p.Positions()) == 0 {
				b.WriteString("No open positions found.\n")
			}
			for _, pos := range p.Positions() {
				fmt.Fprintf(&b, "%s %s %s @ %s (Cost Basis: %s) | Close: %s | Value: %s | UPL: %s\n",
					pos.Symbol, nullDecimalString(pos.Quantity), pos.Currency, nullDecimalString(pos.CostPrice),
					nullDecimalString(pos.CostBasis), nullDecimalString(pos.ClosePrice), nullDecimalString(pos.Value),
					nullDecimalString(pos.UnrealizedPL))
			}
		case "forex_balances":
			b.WriteString("=== Forex Balances ===\n")
			if len(p.ForexBalances()) == 0 {
				b.WriteString("No forex balances found.\n")
			}
			for _, fb := range p.ForexBalances() {
				fmt.Fprintf(&b, "%s %s (base %s) | Value: %s | UPL: %s\n",
					fb.Currency, nullDecimalString(fb.Quantity), fb.BaseCurrency,
					nullDecimalString(fb.ValueInBase), nullDecimalString(fb.UnrealizedPLBase))
			}
		case "meta":
			b.WriteString("=== Statement ===\n")
			for key, value := range p.Meta() {
				fmt.Fprintf(&b, "%s: %s\n", key, value)
			}
		}
	}
	return b.String()
}

func nullDecimalString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "--"
	}
	return d.Decimal.String()
}
