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

type ActivityReportEntryRepository struct{}

func NewActivityReportEntryRepository() *ActivityReportEntryRepository {
	return &ActivityReportEntryRepository{}
}

func (r *ActivityReportEntryRepository) Create(ctx context.Context, tx *sql.Tx, e *models.ActivityReportEntry) error {
	e.CreatedAt = time.Now()
	var equityID any
	if e.EquityID != nil {
		equityID = e.EquityID.String()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO activity_report_entries (id, portfolio_id, equity_id, activity_type, amount, currency, date, raw_data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Portfolio.String(), equityID, string(e.Type),
		e.Amount.String(), string(e.Currency), e.Date.Format(time.RFC3339),
		e.RawData, e.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting activity entry: %w", err)
	}
	return nil
}

// ListByPortfolio returns the portfolio's activity entries in date order.
func (r *ActivityReportEntryRepository) ListByPortfolio(ctx context.Context, tx *sql.Tx, portfolioID uuid.UUID) ([]models.ActivityReportEntry, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, portfolio_id, equity_id, activity_type, amount, currency, date, raw_data, created_at FROM activity_report_entries WHERE portfolio_id = ? ORDER BY date ASC, created_at ASC`,
		portfolioID.String())
	if err != nil {
		return nil, fmt.Errorf("querying activity entries for portfolio %s: %w", portfolioID, err)
	}
	defer rows.Close()

	var entries []models.ActivityReportEntry
	for rows.Next() {
		var e models.ActivityReportEntry
		var idStr, pidStr, amount, date, createdAt string
		var equityID, rawData sql.NullString
		if err := rows.Scan(&idStr, &pidStr, &equityID, &e.Type, &amount, &e.Currency, &date, &rawData, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning activity entry row: %w", err)
		}
		if e.ID, err = uuid.Parse(idStr); err != nil {
			return nil, fmt.Errorf("scanning activity entry id: %w", err)
		}
		e.Portfolio, _ = uuid.Parse(pidStr)
		if equityID.Valid {
			if eid, err := uuid.Parse(equityID.String); err == nil {
				e.EquityID = &eid
			}
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("scanning activity amount %q: %w", amount, err)
		}
		if e.Date, err = time.Parse(time.RFC3339, date); err != nil {
			return nil, fmt.Errorf("scanning activity date %q: %w", date, err)
		}
		e.RawData = rawData.String
		e.CreatedAt = parseStoredTime(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountByPortfolio reports how many activity entries a portfolio has.
func (r *ActivityReportEntryRepository) CountByPortfolio(ctx context.Context, tx *sql.Tx, portfolioID uuid.UUID) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activity_report_entries WHERE portfolio_id = ?`, portfolioID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting activity entries for portfolio %s: %w", portfolioID, err)
	}
	return count, nil
}
