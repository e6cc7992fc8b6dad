package database

import (
	"database/sql"
	"fmt"
	stdlog "log"

	"github.com/slmyers/portfolio-tracker/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// schema holds the portfolio aggregate and everything an import touches.
// The UNIQUE constraints are load-bearing: they are what makes repeated
// imports of the same statement safe (duplicate holdings surface as
// constraint violations, reported as skips rather than created twice).
const schema = `
CREATE TABLE IF NOT EXISTS portfolios (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	currency TEXT NOT NULL DEFAULT 'USD',
	last_import_source TEXT,
	last_import_at TIMESTAMP,
	last_import_entries INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS equities (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	exchange TEXT NOT NULL,
	name TEXT,
	UNIQUE(symbol, exchange)
);

CREATE TABLE IF NOT EXISTS equity_holdings (
	id TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL,
	equity_id TEXT NOT NULL,
	quantity TEXT NOT NULL,
	cost_basis TEXT NOT NULL,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(portfolio_id) REFERENCES portfolios(id),
	FOREIGN KEY(equity_id) REFERENCES equities(id),
	UNIQUE(portfolio_id, equity_id)
);

CREATE TABLE IF NOT EXISTS cash_holdings (
	id TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL,
	currency TEXT NOT NULL,
	balance TEXT NOT NULL,
	balance_reason TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(portfolio_id) REFERENCES portfolios(id),
	UNIQUE(portfolio_id, currency)
);

CREATE TABLE IF NOT EXISTS activity_report_entries (
	id TEXT PRIMARY KEY,
	portfolio_id TEXT NOT NULL,
	equity_id TEXT,
	activity_type TEXT NOT NULL,
	amount TEXT NOT NULL,
	currency TEXT NOT NULL,
	date TIMESTAMP NOT NULL,
	raw_data TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY(portfolio_id) REFERENCES portfolios(id),
	FOREIGN KEY(equity_id) REFERENCES equities(id)
);

CREATE INDEX IF NOT EXISTS idx_activity_entries_portfolio ON activity_report_entries(portfolio_id, date);
CREATE INDEX IF NOT EXISTS idx_equity_holdings_portfolio ON equity_holdings(portfolio_id);
`

// Open opens (or creates) the database at path and ensures the schema
// exists. Used by InitDB and directly by tests that need an isolated
// database file.
func Open(databasePath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", databasePath, err)
	}
	// modernc sqlite serializes writers; a single connection avoids
	// SQLITE_BUSY between the import transaction and read queries.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}
	return db, nil
}

// InitDB opens the application database and stores it in the package
// global. Call once at startup, after the logger is initialized.
func InitDB(databasePath string) {
	db, err := Open(databasePath)
	if err != nil {
		stdlog.Fatalf("failed to initialize database: %v", err)
	}
	DB = db
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.", "databasePath", databasePath)
	} else {
		stdlog.Println("Database tables ensured/created:", databasePath)
	}
}
