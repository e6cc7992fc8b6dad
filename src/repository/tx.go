// Package repository persists the portfolio aggregate and everything an
// import mutates. Every read/write method takes an explicit *sql.Tx so a
// whole import runs on one transactional handle; WithTx scopes a
// transaction for callers that do not bring their own.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateHolding reports an attempt to create a second holding for the
// same (portfolio, equity) or (portfolio, currency) pair. An expected,
// recoverable condition on repeated imports, not a crash.
var ErrDuplicateHolding = errors.New("holding already exists for portfolio")

// WithTx runs fn inside a transaction on db, committing when fn returns nil
// and rolling back otherwise. The transaction is released on every exit
// path, including panics.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
