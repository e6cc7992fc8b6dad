package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Portfolio is the aggregate every import targets.
type Portfolio struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Currency Currency  `json:"currency"`

	// Import bookkeeping, updated once per completed import.
	LastImportSource  string     `json:"last_import_source,omitempty"`
	LastImportAt      *time.Time `json:"last_import_at,omitempty"`
	LastImportEntries int        `json:"last_import_entries"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarkImported records that the portfolio was populated from an external
// source, with the number of activity entries that import created.
func (p *Portfolio) MarkImported(source string, entriesCreated int) {
	now := time.Now()
	p.LastImportSource = source
	p.LastImportAt = &now
	p.LastImportEntries = entriesCreated
	p.UpdatedAt = now
}

// Equity identity is (symbol, exchange); imports find-or-create by that pair.
type Equity struct {
	ID       uuid.UUID `json:"id"`
	Symbol   string    `json:"symbol"`
	Exchange Exchange  `json:"exchange"`
	Name     string    `json:"name,omitempty"`
}

// EquityHolding is unique per (portfolio, equity).
type EquityHolding struct {
	ID        uuid.UUID       `json:"id"`
	Portfolio uuid.UUID       `json:"portfolio_id"`
	EquityID  uuid.UUID       `json:"equity_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	CostBasis decimal.Decimal `json:"cost_basis"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CashHolding is unique per (portfolio, currency).
type CashHolding struct {
	ID            uuid.UUID       `json:"id"`
	Portfolio     uuid.UUID       `json:"portfolio_id"`
	Currency      Currency        `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	BalanceReason string          `json:"balance_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// UpdateBalance replaces the balance, tagging why it changed.
func (c *CashHolding) UpdateBalance(newBalance decimal.Decimal, reason string) {
	c.Balance = newBalance
	c.BalanceReason = reason
	c.UpdatedAt = time.Now()
}

// HoldingWithEquity is an equity holding joined with the identity of its
// equity, the shape read endpoints return.
type HoldingWithEquity struct {
	EquityHolding
	Symbol   string   `json:"symbol"`
	Exchange Exchange `json:"exchange"`
}

// ActivityReportEntry is one recorded financial event (trade or dividend)
// attached to a portfolio and, optionally, an equity.
type ActivityReportEntry struct {
	ID        uuid.UUID       `json:"id"`
	Portfolio uuid.UUID       `json:"portfolio_id"`
	EquityID  *uuid.UUID      `json:"equity_id,omitempty"`
	Type      ActivityType    `json:"activity_type"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  Currency        `json:"currency"`
	Date      time.Time       `json:"date"`
	RawData   string          `json:"raw_data,omitempty"` // original statement row, JSON-encoded
	CreatedAt time.Time       `json:"created_at"`
}
