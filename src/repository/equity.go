package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/slmyers/portfolio-tracker/src/models"
)

type EquityRepository struct{}

func NewEquityRepository() *EquityRepository {
	return &EquityRepository{}
}

// FindBySymbol returns the equity identified by (symbol, exchange), or nil
// when absent.
func (r *EquityRepository) FindBySymbol(ctx context.Context, tx *sql.Tx, symbol string, exchange models.Exchange) (*models.Equity, error) {
	row := tx.QueryRowContext(ctx, `SELECT id, symbol, exchange, name FROM equities WHERE symbol = ? AND exchange = ?`, symbol, string(exchange))

	var e models.Equity
	var idStr string
	var name sql.NullString
	err := row.Scan(&idStr, &e.Symbol, &e.Exchange, &name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying equity %s/%s: %w", symbol, exchange, err)
	}
	e.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("scanning equity id: %w", err)
	}
	e.Name = name.String
	return &e, nil
}

func (r *EquityRepository) Create(ctx context.Context, tx *sql.Tx, e *models.Equity) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO equities (id, symbol, exchange, name) VALUES (?, ?, ?, ?)`,
		e.ID.String(), e.Symbol, string(e.Exchange), e.Name)
	if err != nil {
		return fmt.Errorf("inserting equity %s: %w", e.Symbol, err)
	}
	return nil
}

// FindOrCreate returns the equity for (symbol, exchange), creating it when
// missing. The second return value reports whether a create happened;
// best-effort under concurrent writers.
func (r *EquityRepository) FindOrCreate(ctx context.Context, tx *sql.Tx, symbol string, exchange models.Exchange) (*models.Equity, bool, error) {
	existing, err := r.FindBySymbol(ctx, tx, symbol, exchange)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	e := &models.Equity{ID: uuid.New(), Symbol: symbol, Exchange: exchange}
	if err := r.Create(ctx, tx, e); err != nil {
		// A concurrent writer may have created it between the lookup and
		// the insert; re-read before giving up.
		if isUniqueViolation(err) {
			existing, ferr := r.FindBySymbol(ctx, tx, symbol, exchange)
			if ferr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	return e, true, nil
}
