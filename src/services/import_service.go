package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/slmyers/portfolio-tracker/src/logger"
	"github.com/slmyers/portfolio-tracker/src/models"
	"github.com/slmyers/portfolio-tracker/src/parsers"
	"github.com/slmyers/portfolio-tracker/src/repository"
	"github.com/slmyers/portfolio-tracker/src/utils"
)

const (
	importSourceIBKR = "IBKR_CSV"
	cashImportReason = "IBKR_FOREX_IMPORT"
)

type importServiceImpl struct {
	db              *sql.DB
	portfolios      *repository.PortfolioRepository
	equities        *repository.EquityRepository
	equityHoldings  *repository.EquityHoldingRepository
	cashHoldings    *repository.CashHoldingRepository
	activityEntries *repository.ActivityReportEntryRepository
	defaultExchange models.Exchange
}

// NewImportService creates the reconciliation service. defaultExchange is
// assigned to equities created during an import; statements do not carry
// the listing exchange.
func NewImportService(db *sql.DB, defaultExchange models.Exchange) ImportService {
	return &importServiceImpl{
		db:              db,
		portfolios:      repository.NewPortfolioRepository(),
		equities:        repository.NewEquityRepository(),
		equityHoldings:  repository.NewEquityHoldingRepository(),
		cashHoldings:    repository.NewCashHoldingRepository(),
		activityEntries: repository.NewActivityReportEntryRepository(),
		defaultExchange: defaultExchange,
	}
}

// ImportFromStatement reconciles parsed statement records against the
// portfolio. Item-level problems are recorded on the result (skips for
// expected conditions, failed items for unexpected ones) and never abort
// the batch; only a missing portfolio, a storage failure outside per-item
// handling, or a commit failure yields Success=false.
func (s *importServiceImpl) ImportFromStatement(
	ctx context.Context,
	portfolioID uuid.UUID,
	trades []parsers.TradeRecord,
	dividends []parsers.DividendRecord,
	positions []parsers.PositionRecord,
	forexBalances []parsers.ForexBalanceRecord,
	tx *sql.Tx,
) *ImportResult {
	result := NewImportResult(importSourceIBKR, portfolioID.String())
	startTime := time.Now()
	logger.L.Info("Statement import START", "portfolioID", portfolioID,
		"trades", len(trades), "dividends", len(dividends),
		"positions", len(positions), "forexBalances", len(forexBalances))

	// Last-resort safety net: a panic anywhere below becomes a batch
	// failure instead of taking the process down.
	defer func() {
		if rec := recover(); rec != nil {
			logger.L.Error("Statement import panicked", "portfolioID", portfolioID, "panic", rec)
			result.MarkFailure(fmt.Sprintf("unexpected error during import: %v", rec), ErrorTypeImportError)
		}
	}()

	if tx != nil {
		s.runImport(ctx, tx, portfolioID, trades, dividends, positions, forexBalances, result)
	} else {
		err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			s.runImport(ctx, tx, portfolioID, trades, dividends, positions, forexBalances, result)
			if !result.Success {
				// Roll back whatever the failed batch wrote.
				return errors.New(result.ErrorMessage)
			}
			return nil
		})
		if err != nil && result.Success {
			result.MarkFailure(fmt.Sprintf("committing import: %v", err), ErrorTypeImportError)
		}
	}

	logger.L.Info("Statement import END", "portfolioID", portfolioID,
		"success", result.Success, "imported", result.TotalItemsProcessed(),
		"skipped", result.TotalItemsSkipped(), "failed", len(result.FailedItems),
		"duration", time.Since(startTime))
	return result
}

func (s *importServiceImpl) runImport(
	ctx context.Context,
	tx *sql.Tx,
	portfolioID uuid.UUID,
	trades []parsers.TradeRecord,
	dividends []parsers.DividendRecord,
	positions []parsers.PositionRecord,
	forexBalances []parsers.ForexBalanceRecord,
	result *ImportResult,
) {
	portfolio, err := s.portfolios.Get(ctx, tx, portfolioID)
	if err != nil {
		result.MarkFailure(fmt.Sprintf("loading portfolio %s: %v", portfolioID, err), ErrorTypeImportError)
		return
	}
	if portfolio == nil {
		result.MarkFailure(fmt.Sprintf("Portfolio with ID %s not found", portfolioID), ErrorTypePortfolioNotFound)
		return
	}

	s.importTrades(ctx, tx, portfolioID, trades, result)
	s.importDividends(ctx, tx, portfolioID, dividends, result)
	s.importPositions(ctx, tx, portfolioID, positions, result)
	s.importForexBalances(ctx, tx, portfolioID, forexBalances, result)

	portfolio.MarkImported(importSourceIBKR, result.ActivityEntriesCreated)
	if err := s.portfolios.Save(ctx, tx, portfolio); err != nil {
		result.MarkFailure(fmt.Sprintf("saving portfolio after import: %v", err), ErrorTypeImportError)
		return
	}
	result.MarkSuccess()
}

func (s *importServiceImpl) importTrades(ctx context.Context, tx *sql.Tx, portfolioID uuid.UUID, trades []parsers.TradeRecord, result *ImportResult) {
	for _, trade := range trades {
		if trade.Symbol == "" || trade.DateTime == "" {
			result.AddWarning(fmt.Sprintf("Skipping trade missing symbol or datetime: symbol=%q datetime=%q", trade.Symbol, trade.DateTime))
			result.SkippedTrades++
			continue
		}
		if err := s.importTrade(ctx, tx, portfolioID, trade, result); err != nil {
			result.AddFailedItem("trade", trade, err.Error())
		}
	}
}

func (s *importServiceImpl) importTrade(ctx context.Context, tx *sql.Tx, portfolioID uuid.UUID, trade parsers.TradeRecord, result *ImportResult) error {
	tradeTime, err := utils.ParseTradeTimestamp(trade.DateTime)
	if err != nil {
		return err
	}
	equity, _, err := s.equities.FindOrCreate(ctx, tx, trade.Symbol, s.defaultExchange)
	if err != nil {
		return err
	}

	amount := decimal.Zero
	if trade.Proceeds.Valid {
		amount = trade.Proceeds.Decimal
	}
	raw, _ := json.Marshal(trade)
	entry := &models.ActivityReportEntry{
		ID:        uuid.New(),
		Portfolio: portfolioID,
		EquityID:  &equity.ID,
		Type:      models.ActivityTrade,
		Amount:    amount,
		Currency:  resolveCurrency(trade.Currency),
		Date:      tradeTime,
		RawData:   string(raw),
	}
	if err := s.activityEntries.Create(ctx, tx, entry); err != nil {
		return err
	}
	result.TradesImported++
	result.ActivityEntriesCreated++
	return nil
}

func (s *importServiceImpl) importDividends(ctx context.Context, tx *sql.Tx, portfolioID uuid.UUID, dividends []parsers.DividendRecord, result *ImportResult) {
	for _, dividend := range dividends {
		if dividend.Description == "" || dividend.Date == "" {
			result.AddWarning(fmt.Sprintf("Skipping dividend missing description or date: description=%q date=%q", dividend.Description, dividend.Date))
			result.SkippedDividends++
			continue
		}
		if err := s.importDividend(ctx, tx, portfolioID, dividend, result); err != nil {
			result.AddFailedItem("dividend", dividend, err.Error())
		}
	}
}

func (s *importServiceImpl) importDividend(ctx context.Context, tx *sql.Tx, portfolioID uuid.UUID, dividend parsers.DividendRecord, result *ImportResult) error {
	dividendDate, err := utils.ParseStatementDate(dividend.Date)
	if err != nil {
		return err
	}
	amount := decimal.Zero
	if dividend.Amount.Valid {
		amount = dividend.Amount.Decimal
	}
	raw, _ := json.Marshal(dividend)
	entry := &models.ActivityReportEntry{
		ID:        uuid.New(),
		Portfolio: portfolioID,
		Type:      models.ActivityDividend,
		Amount:    amount,
		Currency:  resolveCurrency(dividend.Currency),
		Date:      dividendDate,
		RawData:   string(raw),
	}
	if err := s.activityEntries.Create(ctx, tx, entry); err != nil {
		return err
	}
	result.DividendsImported++
	result.ActivityEntriesCreated++
	return nil
}

func (s *importServiceImpl) importPositions(ctx context.Context, tx *sql.Tx, portfolioID uuid.UUID, positions []parsers.PositionRecord, result *ImportResult) {
	for _, position := range positions {
		if position.Symbol == "" || !position.Quantity.Valid {
			result.AddWarning(fmt.Sprintf("Skipping position missing symbol or quantity: symbol=%q", position.Symbol))
			result.SkippedPositions++
			continue
		}
		// An unparsable cost basis signals malformed broker data rather
		// than an expected absence.
		if !position.CostBasis.Valid {
			result.AddFailedItem("position", position, "invalid numeric value for cost basis")
			continue
		}
		err := s.importPosition(ctx, tx, portfolioID, position, result)
		switch {
		case errors.Is(err, repository.ErrDuplicateHolding):
			// Repeated imports of the same statement must not crash.
			result.AddWarning(fmt.Sprintf("Duplicate holding for %s - skipping", position.Symbol))
			result.SkippedPositions++
		case err != nil:
			result.AddFailedItem("position", position, err.Error())
		}
	}
}

func (s *importServiceImpl) importPosition(ctx context.Context, tx *sql.Tx, portfolioID uuid.UUID, position parsers.PositionRecord, result *ImportResult) error {
	equity, equityCreated, err := s.equities.FindOrCreate(ctx, tx, position.Symbol, s.defaultExchange)
	if err != nil {
		return err
	}
	holding := &models.EquityHolding{
		ID:        uuid.New(),
		Portfolio: portfolioID,
		EquityID:  equity.ID,
		Quantity:  position.Quantity.Decimal,
		CostBasis: position.CostBasis.Decimal,
	}
	if err := s.equityHoldings.Create(ctx, tx, holding); err != nil {
		return err
	}
	result.PositionsImported++
	result.EquityHoldingsCreated++
	if equityCreated {
		result.EquitiesCreated++
	}
	return nil
}

func (s *importServiceImpl) importForexBalances(ctx context.Context, tx *sql.Tx, portfolioID uuid.UUID, forexBalances []parsers.ForexBalanceRecord, result *ImportResult) {
	for _, balance := range forexBalances {
		if balance.Currency == "" || !balance.Quantity.Valid {
			result.AddWarning(fmt.Sprintf("Skipping forex balance missing currency or quantity: currency=%q", balance.Currency))
			result.SkippedForexBalances++
			continue
		}
		currency, ok := models.ParseCurrency(balance.Currency)
		if !ok {
			result.AddWarning(fmt.Sprintf("Unsupported currency '%s' in forex balance - skipping", balance.Currency))
			result.SkippedForexBalances++
			continue
		}
		if err := s.importForexBalance(ctx, tx, portfolioID, balance, currency, result); err != nil {
			result.AddFailedItem("forex_balance", balance, err.Error())
		}
	}
}

// importForexBalance upserts the cash holding keyed by (portfolio,
// currency): create when absent, otherwise replace the balance with the
// statement's, tagged as an import-sourced adjustment.
func (s *importServiceImpl) importForexBalance(ctx context.Context, tx *sql.Tx, portfolioID uuid.UUID, balance parsers.ForexBalanceRecord, currency models.Currency, result *ImportResult) error {
	existing, err := s.cashHoldings.FindByPortfolioAndCurrency(ctx, tx, portfolioID, currency)
	if err != nil {
		return err
	}
	if existing == nil {
		holding := &models.CashHolding{
			ID:            uuid.New(),
			Portfolio:     portfolioID,
			Currency:      currency,
			Balance:       balance.Quantity.Decimal,
			BalanceReason: cashImportReason,
		}
		if err := s.cashHoldings.Create(ctx, tx, holding); err != nil {
			return err
		}
		result.CashHoldingsCreated++
	} else {
		existing.UpdateBalance(balance.Quantity.Decimal, cashImportReason)
		if err := s.cashHoldings.Save(ctx, tx, existing); err != nil {
			return err
		}
	}
	result.ForexBalancesImported++
	return nil
}

// resolveCurrency falls back to USD when the statement's currency code is
// missing or outside the supported set.
func resolveCurrency(code string) models.Currency {
	if currency, ok := models.ParseCurrency(code); ok {
		return currency
	}
	return models.CurrencyUSD
}
