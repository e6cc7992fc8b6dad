package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/slmyers/portfolio-tracker/src/models"
)

type EquityHoldingRepository struct{}

func NewEquityHoldingRepository() *EquityHoldingRepository {
	return &EquityHoldingRepository{}
}

// FindByPortfolioAndEquity returns the holding or nil when absent.
func (r *EquityHoldingRepository) FindByPortfolioAndEquity(ctx context.Context, tx *sql.Tx, portfolioID, equityID uuid.UUID) (*models.EquityHolding, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, portfolio_id, equity_id, quantity, cost_basis, created_at, updated_at FROM equity_holdings WHERE portfolio_id = ? AND equity_id = ?`,
		portfolioID.String(), equityID.String())
	return scanEquityHolding(row)
}

// Create inserts the holding; a second holding for the same
// (portfolio, equity) pair yields ErrDuplicateHolding.
func (r *EquityHoldingRepository) Create(ctx context.Context, tx *sql.Tx, h *models.EquityHolding) error {
	now := time.Now()
	h.CreatedAt = now
	h.UpdatedAt = now
	_, err := tx.ExecContext(ctx,
		`INSERT INTO equity_holdings (id, portfolio_id, equity_id, quantity, cost_basis, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID.String(), h.Portfolio.String(), h.EquityID.String(),
		h.Quantity.String(), h.CostBasis.String(),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if isUniqueViolation(err) {
		return fmt.Errorf("equity holding for portfolio %s, equity %s: %w", h.Portfolio, h.EquityID, ErrDuplicateHolding)
	}
	if err != nil {
		return fmt.Errorf("inserting equity holding: %w", err)
	}
	return nil
}

// ListByPortfolio returns the portfolio's equity holdings joined with their
// equity symbol and exchange.
func (r *EquityHoldingRepository) ListByPortfolio(ctx context.Context, tx *sql.Tx, portfolioID uuid.UUID) ([]models.HoldingWithEquity, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT h.id, h.portfolio_id, h.equity_id, h.quantity, h.cost_basis, h.created_at, h.updated_at, e.symbol, e.exchange
		 FROM equity_holdings h JOIN equities e ON e.id = h.equity_id
		 WHERE h.portfolio_id = ? ORDER BY e.symbol`, portfolioID.String())
	if err != nil {
		return nil, fmt.Errorf("querying holdings for portfolio %s: %w", portfolioID, err)
	}
	defer rows.Close()

	var holdings []models.HoldingWithEquity
	for rows.Next() {
		var h models.HoldingWithEquity
		var idStr, pidStr, eidStr, qty, basis, createdAt, updatedAt string
		if err := rows.Scan(&idStr, &pidStr, &eidStr, &qty, &basis, &createdAt, &updatedAt, &h.Symbol, &h.Exchange); err != nil {
			return nil, fmt.Errorf("scanning holding row: %w", err)
		}
		if h.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("scanning holding id: %w", err)
		}
		h.Portfolio, _ = uuid.Parse(pidStr)
		h.EquityID, _ = uuid.Parse(eidStr)
		if h.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("scanning holding quantity %q: %w", qty, err)
		}
		if h.CostBasis, err = decimal.NewFromString(basis); err != nil {
			return nil, fmt.Errorf("scanning holding cost basis %q: %w", basis, err)
		}
		h.CreatedAt = parseStoredTime(createdAt)
		h.UpdatedAt = parseStoredTime(updatedAt)
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func scanEquityHolding(row *sql.Row) (*models.EquityHolding, error) {
	var h models.EquityHolding
	var idStr, pidStr, eidStr, qty, basis, createdAt, updatedAt string
	err := row.Scan(&idStr, &pidStr, &eidStr, &qty, &basis, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying equity holding: %w", err)
	}
	if h.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("scanning equity holding id: %w", err)
	}
	h.Portfolio, _ = uuid.Parse(pidStr)
	h.EquityID, _ = uuid.Parse(eidStr)
	if h.Quantity, err = decimal.NewFromString(qty); err != nil {
		return nil, fmt.Errorf("scanning equity holding quantity %q: %w", qty, err)
	}
	if h.CostBasis, err = decimal.NewFromString(basis); err != nil {
		return nil, fmt.Errorf("scanning equity holding cost basis %q: %w", basis, err)
	}
	h.CreatedAt = parseStoredTime(createdAt)
	h.UpdatedAt = parseStoredTime(updatedAt)
	return &h, nil
}

type CashHoldingRepository struct{}

func NewCashHoldingRepository() *CashHoldingRepository {
	return &CashHoldingRepository{}
}

// FindByPortfolioAndCurrency returns the cash holding or nil when absent.
func (r *CashHoldingRepository) FindByPortfolioAndCurrency(ctx context.Context, tx *sql.Tx, portfolioID uuid.UUID, currency models.Currency) (*models.CashHolding, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, portfolio_id, currency, balance, balance_reason, created_at, updated_at FROM cash_holdings WHERE portfolio_id = ? AND currency = ?`,
		portfolioID.String(), string(currency))

	var c models.CashHolding
	var idStr, pidStr, balance, createdAt, updatedAt string
	var reason sql.NullString
	err := row.Scan(&idStr, &pidStr, &c.Currency, &balance, &reason, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying cash holding: %w", err)
	}
	if c.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("scanning cash holding id: %w", err)
	}
	c.Portfolio, _ = uuid.Parse(pidStr)
	if c.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("scanning cash balance %q: %w", balance, err)
	}
	c.BalanceReason = reason.String
	c.CreatedAt = parseStoredTime(createdAt)
	c.UpdatedAt = parseStoredTime(updatedAt)
	return &c, nil
}

func (r *CashHoldingRepository) Create(ctx context.Context, tx *sql.Tx, c *models.CashHolding) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := tx.ExecContext(ctx,
		`INSERT INTO cash_holdings (id, portfolio_id, currency, balance, balance_reason, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.Portfolio.String(), string(c.Currency),
		c.Balance.String(), c.BalanceReason,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if isUniqueViolation(err) {
		return fmt.Errorf("cash holding for portfolio %s, currency %s: %w", c.Portfolio, c.Currency, ErrDuplicateHolding)
	}
	if err != nil {
		return fmt.Errorf("inserting cash holding: %w", err)
	}
	return nil
}

// Save persists a balance update.
func (r *CashHoldingRepository) Save(ctx context.Context, tx *sql.Tx, c *models.CashHolding) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE cash_holdings SET balance = ?, balance_reason = ?, updated_at = ? WHERE id = ?`,
		c.Balance.String(), c.BalanceReason, time.Now().Format(time.RFC3339), c.ID.String())
	if err != nil {
		return fmt.Errorf("updating cash holding %s: %w", c.ID, err)
	}
	return nil
}

// ListByPortfolio returns the portfolio's cash holdings.
func (r *CashHoldingRepository) ListByPortfolio(ctx context.Context, tx *sql.Tx, portfolioID uuid.UUID) ([]models.CashHolding, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, portfolio_id, currency, balance, balance_reason, created_at, updated_at FROM cash_holdings WHERE portfolio_id = ? ORDER BY currency`,
		portfolioID.String())
	if err != nil {
		return nil, fmt.Errorf("querying cash holdings for portfolio %s: %w", portfolioID, err)
	}
	defer rows.Close()

	var holdings []models.CashHolding
	for rows.Next() {
		var c models.CashHolding
		var idStr, pidStr, balance, createdAt, updatedAt string
		var reason sql.NullString
		if err := rows.Scan(&idStr, &pidStr, &c.Currency, &balance, &reason, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning cash holding row: %w", err)
		}
		if c.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("scanning cash holding id: %w", err)
		}
		c.Portfolio, _ = uuid.Parse(pidStr)
		if c.Balance, err = decimal.NewFromString(balance); err != nil {
			return nil, fmt.Errorf("scanning cash balance %q: %w", balance, err)
		}
		c.BalanceReason = reason.String
		c.CreatedAt = parseStoredTime(createdAt)
		c.UpdatedAt = parseStoredTime(updatedAt)
		holdings = append(holdings, c)
	}
	return holdings, rows.Err()
}
