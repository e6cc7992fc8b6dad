package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slmyers/portfolio-tracker/src/models"
)

type PortfolioRepository struct{}

func NewPortfolioRepository() *PortfolioRepository {
	return &PortfolioRepository{}
}

// Get returns the portfolio or nil when absent.
func (r *PortfolioRepository) Get(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.Portfolio, error) {
	row := tx.QueryRowContext(ctx, `SELECT id, name, currency, last_import_source, last_import_at, last_import_entries, created_at, updated_at FROM portfolios WHERE id = ?`, id.String())

	var p models.Portfolio
	var idStr, createdAt, updatedAt string
	var importSource, importAt sql.NullString
	err := row.Scan(&idStr, &p.Name, &p.Currency, &importSource, &importAt, &p.LastImportEntries, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying portfolio %s: %w", id, err)
	}
	p.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("scanning portfolio id: %w", err)
	}
	p.LastImportSource = importSource.String
	if importAt.Valid {
		if t, err := time.Parse(time.RFC3339, importAt.String); err == nil {
			p.LastImportAt = &t
		}
	}
	p.CreatedAt = parseStoredTime(createdAt)
	p.UpdatedAt = parseStoredTime(updatedAt)
	return &p, nil
}

func (r *PortfolioRepository) Create(ctx context.Context, tx *sql.Tx, p *models.Portfolio) error {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := tx.ExecContext(ctx,
		`INSERT INTO portfolios (id, name, currency, last_import_entries, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.Name, string(p.Currency), p.LastImportEntries,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("inserting portfolio %s: %w", p.ID, err)
	}
	return nil
}

// Save persists the mutable fields of an existing portfolio.
func (r *PortfolioRepository) Save(ctx context.Context, tx *sql.Tx, p *models.Portfolio) error {
	var importAt any
	if p.LastImportAt != nil {
		importAt = p.LastImportAt.Format(time.RFC3339)
	}
	_, err := tx.ExecContext(ctx,
		`UPDATE portfolios SET name = ?, currency = ?, last_import_source = ?, last_import_at = ?, last_import_entries = ?, updated_at = ? WHERE id = ?`,
		p.Name, string(p.Currency), p.LastImportSource, importAt, p.LastImportEntries,
		time.Now().Format(time.RFC3339), p.ID.String())
	if err != nil {
		return fmt.Errorf("updating portfolio %s: %w", p.ID, err)
	}
	return nil
}

// parseStoredTime accepts both our RFC3339 writes and SQLite's
// CURRENT_TIMESTAMP default format.
func parseStoredTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
