package parsers

import (
	"fmt"
	"strings"

	"github.com/slmyers/portfolio-tracker/src/logger"
)

// Section names as they appear in the first cell of section-header rows.
const (
	SectionTrades        = "Trades"
	SectionDividends     = "Dividends"
	SectionOpenPositions = "Open Positions"
	SectionForexBalances = "Forex Balances"
	SectionStatement     = "Statement"
)

// Row-type discriminator values (second cell of every row).
const (
	rowTypeHeader = "Header"
	rowTypeData   = "Data"
)

// Diagnostic is a recoverable parse condition: unknown section, data row
// before a header, header/data shape mismatch, skipped summary row. Always
// recorded; in strict mode the presence of any diagnostic fails the parse.
type Diagnostic struct {
	Section string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s", d.Section, d.Message)
}

// parseState tracks progress through one section block.
type parseState int

const (
	awaitingHeader parseState = iota
	hasHeader
)

// sectionState applies the generic header/data algorithm to one contiguous
// block of rows. The first row of a block is always the section-header row;
// it supplies the column keys the data rows are zipped against. A state
// instance is used for exactly one block.
type sectionState struct {
	section string
	// summaryKeywords mark broker aggregate rows to exclude; nil disables
	// the summary filter (generic fallback sections).
	summaryKeywords []string
	handler         rowHandler

	state parseState
	keys  []string
}

func (s *sectionState) processRow(row []string, diags *[]Diagnostic) {
	if isBlankRow(row) {
		return
	}
	rowType := ""
	if len(row) > 1 {
		rowType = strings.TrimSpace(row[1])
	}
	switch {
	case strings.EqualFold(rowType, rowTypeHeader):
		s.captureHeader(row)
	case rowType == rowTypeData:
		s.processDataRow(row, diags)
	default:
		// Notes, totals-by-type and other row kinds carry no record data.
		logger.L.Debug("Ignoring row with unhandled row type", "section", s.section, "rowType", rowType)
	}
}

func (s *sectionState) captureHeader(row []string) {
	header := row[2:]
	s.keys = make([]string, len(header))
	for i, cell := range header {
		s.keys[i] = NormalizeField(cell)
	}
	s.state = hasHeader
	logger.L.Debug("Captured section header", "section", s.section, "columns", len(s.keys))
}

func (s *sectionState) processDataRow(row []string, diags *[]Diagnostic) {
	if s.state != hasHeader {
		*diags = append(*diags, Diagnostic{s.section, "data row encountered before header"})
		return
	}
	if s.summaryKeywords != nil && IsSummaryRow(row, s.summaryKeywords) {
		*diags = append(*diags, Diagnostic{s.section, fmt.Sprintf("skipped summary row %q", strings.TrimSpace(row[2]))})
		return
	}
	cells := row[2:]
	if len(cells) != len(s.keys) {
		*diags = append(*diags, Diagnostic{s.section, fmt.Sprintf("data/header length mismatch: %d cells vs %d columns", len(cells), len(s.keys))})
		return
	}
	data := make(map[string]string, len(s.keys))
	for i, key := range s.keys {
		data[key] = strings.TrimSpace(cells[i])
	}
	s.handler.handleRow(data)
}

// statementState overrides the generic algorithm entirely: the Statement
// section has no header/data pairing, its data rows are flat key/value
// pairs at fixed positions.
type statementState struct {
	handler rowHandler
}

func (s *statementState) processRow(row []string, diags *[]Diagnostic) {
	if len(row) >= 4 && strings.TrimSpace(row[1]) == rowTypeData {
		s.handler.handleRow(map[string]string{
			"field_name":  strings.TrimSpace(row[2]),
			"field_value": strings.TrimSpace(row[3]),
		})
	}
}

// blockState is one parsing strategy bound to one section block.
type blockState interface {
	processRow(row []string, diags *[]Diagnostic)
}
