package services

import (
	"time"
)

// FailedItem is one statement record that could not be imported: its kind,
// the original payload, and what went wrong. Processing continues past it.
type FailedItem struct {
	Kind  string `json:"kind"`
	Data  any    `json:"data"`
	Error string `json:"error"`
}

// ImportResult accumulates the outcome of one reconciliation call. It is
// mutated throughout the call and returned to the caller as the final
// snapshot. Success=false always comes with ErrorMessage and ErrorType
// set; a non-empty FailedItems list on a successful result means
// "partially imported", which callers must treat differently from a hard
// batch failure.
type ImportResult struct {
	Success      bool   `json:"success"`
	ImportSource string `json:"import_source"`
	PortfolioID  string `json:"portfolio_id"`

	TradesImported        int `json:"trades_imported"`
	DividendsImported     int `json:"dividends_imported"`
	PositionsImported     int `json:"positions_imported"`
	ForexBalancesImported int `json:"forex_balances_imported"`

	// Created-model counters are best-effort under concurrent writers: the
	// existence check and the create are separate statements.
	ActivityEntriesCreated int `json:"activity_entries_created"`
	EquityHoldingsCreated  int `json:"equity_holdings_created"`
	EquitiesCreated        int `json:"equities_created"`
	CashHoldingsCreated    int `json:"cash_holdings_created"`

	SkippedTrades        int `json:"skipped_trades"`
	SkippedDividends     int `json:"skipped_dividends"`
	SkippedPositions     int `json:"skipped_positions"`
	SkippedForexBalances int `json:"skipped_forex_balances"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	ErrorMessage string       `json:"error_message,omitempty"`
	ErrorType    string       `json:"error_type,omitempty"`
	FailedItems  []FailedItem `json:"failed_items"`
	Warnings     []string     `json:"warnings"`
}

func NewImportResult(source string, portfolioID string) *ImportResult {
	return &ImportResult{
		ImportSource: source,
		PortfolioID:  portfolioID,
		StartedAt:    time.Now(),
		FailedItems:  []FailedItem{},
		Warnings:     []string{},
	}
}

func (r *ImportResult) AddWarning(message string) {
	r.Warnings = append(r.Warnings, message)
}

func (r *ImportResult) AddFailedItem(kind string, data any, errText string) {
	r.FailedItems = append(r.FailedItems, FailedItem{Kind: kind, Data: data, Error: errText})
}

// MarkFailure marks the whole import as failed.
func (r *ImportResult) MarkFailure(message, errorType string) {
	r.Success = false
	r.ErrorMessage = message
	r.ErrorType = errorType
	r.stampCompleted()
}

// MarkSuccess marks the import as successful.
func (r *ImportResult) MarkSuccess() {
	r.Success = true
	r.stampCompleted()
}

func (r *ImportResult) stampCompleted() {
	if r.CompletedAt == nil {
		now := time.Now()
		r.CompletedAt = &now
	}
}

// TotalItemsProcessed is the number of successfully imported items.
func (r *ImportResult) TotalItemsProcessed() int {
	return r.TradesImported + r.DividendsImported + r.PositionsImported + r.ForexBalancesImported
}

// TotalItemsSkipped is the number of items skipped on expected conditions.
func (r *ImportResult) TotalItemsSkipped() int {
	return r.SkippedTrades + r.SkippedDividends + r.SkippedPositions + r.SkippedForexBalances
}

// TotalModelsCreated is the number of new rows the import created.
func (r *ImportResult) TotalModelsCreated() int {
	return r.ActivityEntriesCreated + r.EquityHoldingsCreated + r.EquitiesCreated + r.CashHoldingsCreated
}

// Duration reports how long the import ran, zero if still incomplete.
func (r *ImportResult) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
