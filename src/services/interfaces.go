package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/slmyers/portfolio-tracker/src/parsers"
)

var (
	ErrParsingFailed = errors.New("statement parsing failed")
	ErrQuoteNotFound = errors.New("no quote available for symbol")
)

// Error type labels carried on batch-level ImportResult failures.
const (
	ErrorTypePortfolioNotFound = "PortfolioNotFoundError"
	ErrorTypeImportError       = "ImportError"
)

// ImportService reconciles parsed statement records into a portfolio's
// holdings and activity history. When tx is nil the service scopes its own
// transaction around the whole call; when supplied, every read and write
// issued during the call uses that handle, so commit/rollback stays with
// the caller.
type ImportService interface {
	ImportFromStatement(
		ctx context.Context,
		portfolioID uuid.UUID,
		trades []parsers.TradeRecord,
		dividends []parsers.DividendRecord,
		positions []parsers.PositionRecord,
		forexBalances []parsers.ForexBalanceRecord,
		tx *sql.Tx,
	) *ImportResult
}

// Quote is a current price for one symbol.
type Quote struct {
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
	AsOf     time.Time       `json:"as_of"`
}

// PriceService looks up current quotes. Implementations cache aggressively;
// a failed lookup degrades to an absent quote, never an error surfaced to
// portfolio reads.
type PriceService interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
}
