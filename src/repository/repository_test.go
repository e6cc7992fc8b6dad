package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slmyers/portfolio-tracker/src/database"
	"github.com/slmyers/portfolio-tracker/src/logger"
	"github.com/slmyers/portfolio-tracker/src/models"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	repo := NewPortfolioRepository()
	portfolioID := uuid.New()

	sentinel := errors.New("boom")
	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		require.NoError(t, repo.Create(context.Background(), tx, &models.Portfolio{
			ID: portfolioID, Name: "doomed", Currency: models.CurrencyUSD,
		}))
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		p, err := repo.Get(context.Background(), tx, portfolioID)
		require.NoError(t, err)
		assert.Nil(t, p)
		return nil
	})
	require.NoError(t, err)
}

func TestPortfolioGetAbsentReturnsNil(t *testing.T) {
	db := newTestDB(t)
	repo := NewPortfolioRepository()

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		p, err := repo.Get(context.Background(), tx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, p)
		return nil
	})
	require.NoError(t, err)
}

func TestEquityFindOrCreate(t *testing.T) {
	db := newTestDB(t)
	repo := NewEquityRepository()

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		first, created, err := repo.FindOrCreate(context.Background(), tx, "AAPL", models.ExchangeNASDAQ)
		require.NoError(t, err)
		assert.True(t, created)

		second, created, err := repo.FindOrCreate(context.Background(), tx, "AAPL", models.ExchangeNASDAQ)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, second.ID)

		// Same symbol on another exchange is a distinct equity.
		other, created, err := repo.FindOrCreate(context.Background(), tx, "AAPL", models.ExchangeLSE)
		require.NoError(t, err)
		assert.True(t, created)
		assert.NotEqual(t, first.ID, other.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestEquityHoldingDuplicateYieldsSentinel(t *testing.T) {
	db := newTestDB(t)
	portfolios := NewPortfolioRepository()
	equities := NewEquityRepository()
	holdings := NewEquityHoldingRepository()

	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		portfolio := &models.Portfolio{ID: uuid.New(), Name: "p", Currency: models.CurrencyUSD}
		require.NoError(t, portfolios.Create(context.Background(), tx, portfolio))
		equity, _, err := equities.FindOrCreate(context.Background(), tx, "AAPL", models.ExchangeNASDAQ)
		require.NoError(t, err)

		holding := &models.EquityHolding{
			ID: uuid.New(), Portfolio: portfolio.ID, EquityID: equity.ID,
			Quantity: decimal.NewFromInt(10), CostBasis: decimal.RequireFromString("1502.50"),
		}
		require.NoError(t, holdings.Create(context.Background(), tx, holding))

		dup := &models.EquityHolding{
			ID: uuid.New(), Portfolio: portfolio.ID, EquityID: equity.ID,
			Quantity: decimal.NewFromInt(5), CostBasis: decimal.NewFromInt(100),
		}
		err = holdings.Create(context.Background(), tx, dup)
		require.ErrorIs(t, err, ErrDuplicateHolding)
		return nil
	})
	require.NoError(t, err)
}

func TestCashHoldingRoundTrip(t *testing.T) {
	db := newTestDB(t)
	portfolios := NewPortfolioRepository()
	cash := NewCashHoldingRepository()

	portfolio := &models.Portfolio{ID: uuid.New(), Name: "p", Currency: models.CurrencyUSD}
	err := WithTx(context.Background(), db, func(tx *sql.Tx) error {
		require.NoError(t, portfolios.Create(context.Background(), tx, portfolio))
		return cash.Create(context.Background(), tx, &models.CashHolding{
			ID: uuid.New(), Portfolio: portfolio.ID, Currency: models.CurrencyCAD,
			Balance: decimal.RequireFromString("5000.25"), BalanceReason: "initial",
		})
	})
	require.NoError(t, err)

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		holding, err := cash.FindByPortfolioAndCurrency(context.Background(), tx, portfolio.ID, models.CurrencyCAD)
		require.NoError(t, err)
		require.NotNil(t, holding)
		assert.Equal(t, "5000.25", holding.Balance.String())
		assert.Equal(t, "initial", holding.BalanceReason)

		holding.UpdateBalance(decimal.RequireFromString("6200"), "adjustment")
		return cash.Save(context.Background(), tx, holding)
	})
	require.NoError(t, err)

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		holding, err := cash.FindByPortfolioAndCurrency(context.Background(), tx, portfolio.ID, models.CurrencyCAD)
		require.NoError(t, err)
		require.NotNil(t, holding)
		assert.Equal(t, "6200", holding.Balance.String())
		assert.Equal(t, "adjustment", holding.BalanceReason)
		return nil
	})
	require.NoError(t, err)
}
