package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slmyers/portfolio-tracker/src/config"
	"github.com/slmyers/portfolio-tracker/src/models"
	"github.com/slmyers/portfolio-tracker/src/repository"
	"github.com/slmyers/portfolio-tracker/src/services"
)

// newPortfolioMux routes the portfolio endpoints the way main does, so path
// parameters resolve in tests.
func newPortfolioMux(handler *PortfolioHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/portfolios", handler.HandleCreatePortfolio)
	mux.HandleFunc("GET /api/portfolios/{id}", handler.HandleGetPortfolio)
	mux.HandleFunc("GET /api/portfolios/{id}/holdings", handler.HandleGetHoldings)
	mux.HandleFunc("GET /api/portfolios/{id}/activity", handler.HandleGetActivity)
	return mux
}

func TestHandleCreateAndGetPortfolio(t *testing.T) {
	db := newTestDB(t)
	mux := newPortfolioMux(NewPortfolioHandler(db, nil))

	body := bytes.NewBufferString(`{"name":"Retirement","currency":"CAD"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/portfolios", body)
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusCreated, recorder.Code, recorder.Body.String())
	var created models.Portfolio
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&created))
	assert.Equal(t, "Retirement", created.Name)
	assert.Equal(t, models.CurrencyCAD, created.Currency)
	require.NotEqual(t, uuid.Nil, created.ID)

	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/portfolios/"+created.ID.String(), nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	var fetched models.Portfolio
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&fetched))
	assert.Equal(t, created.ID, fetched.ID)
}

func TestHandleCreatePortfolioRejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	mux := newPortfolioMux(NewPortfolioHandler(db, nil))

	for _, body := range []string{
		`{"currency":"USD"}`,
		`{"name":"x","currency":"DOGE"}`,
		`not json`,
	} {
		recorder := httptest.NewRecorder()
		mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodPost, "/api/portfolios", bytes.NewBufferString(body)))
		assert.Equal(t, http.StatusBadRequest, recorder.Code, "body: %s", body)
	}
}

func TestHandleGetHoldings(t *testing.T) {
	db := newTestDB(t)
	portfolioID := createTestPortfolio(t, db)

	// Seed one equity holding and one cash balance.
	err := repository.WithTx(context.Background(), db, func(tx *sql.Tx) error {
		equity, _, err := repository.NewEquityRepository().FindOrCreate(context.Background(), tx, "AAPL", models.ExchangeNASDAQ)
		require.NoError(t, err)
		require.NoError(t, repository.NewEquityHoldingRepository().Create(context.Background(), tx, &models.EquityHolding{
			ID: uuid.New(), Portfolio: portfolioID, EquityID: equity.ID,
			Quantity: decimal.NewFromInt(10), CostBasis: decimal.RequireFromString("1502.50"),
		}))
		return repository.NewCashHoldingRepository().Create(context.Background(), tx, &models.CashHolding{
			ID: uuid.New(), Portfolio: portfolioID, Currency: models.CurrencyUSD,
			Balance: decimal.NewFromInt(5000),
		})
	})
	require.NoError(t, err)

	mux := newPortfolioMux(NewPortfolioHandler(db, nil))
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/portfolios/"+portfolioID.String()+"/holdings", nil))

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	var response struct {
		PortfolioID  uuid.UUID `json:"portfolio_id"`
		Equities     []struct {
			Symbol      string           `json:"symbol"`
			Quantity    decimal.Decimal  `json:"quantity"`
			MarketValue *decimal.Decimal `json:"market_value"`
		} `json:"equities"`
		CashBalances []models.CashHolding `json:"cash_balances"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, portfolioID, response.PortfolioID)
	require.Len(t, response.Equities, 1)
	assert.Equal(t, "AAPL", response.Equities[0].Symbol)
	assert.Nil(t, response.Equities[0].MarketValue)
	require.Len(t, response.CashBalances, 1)
	assert.Equal(t, models.CurrencyUSD, response.CashBalances[0].Currency)
}

func TestHandleGetHoldingsWithQuotes(t *testing.T) {
	db := newTestDB(t)
	portfolioID := createTestPortfolio(t, db)

	err := repository.WithTx(context.Background(), db, func(tx *sql.Tx) error {
		equity, _, err := repository.NewEquityRepository().FindOrCreate(context.Background(), tx, "AAPL", models.ExchangeNASDAQ)
		require.NoError(t, err)
		return repository.NewEquityHoldingRepository().Create(context.Background(), tx, &models.EquityHolding{
			ID: uuid.New(), Portfolio: portfolioID, EquityID: equity.ID,
			Quantity: decimal.NewFromInt(10), CostBasis: decimal.RequireFromString("1502.50"),
		})
	})
	require.NoError(t, err)

	quoteAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		fmt.Fprintf(w, `{"Global Quote":{"01. symbol":%q,"05. price":"185.00","07. latest trading day":"2024-12-31"}}`,
			r.URL.Query().Get("symbol"))
	}))
	t.Cleanup(quoteAPI.Close)

	cfg := *config.Cfg
	cfg.PriceAPIBaseURL = quoteAPI.URL
	priceService := services.NewPriceService(&cfg)

	mux := newPortfolioMux(NewPortfolioHandler(db, priceService))
	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/portfolios/"+portfolioID.String()+"/holdings?quotes=true", nil))

	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	var response struct {
		Equities []struct {
			Symbol      string `json:"symbol"`
			Quote       *services.Quote  `json:"quote"`
			MarketValue *decimal.Decimal `json:"market_value"`
		} `json:"equities"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	require.Len(t, response.Equities, 1)
	require.NotNil(t, response.Equities[0].Quote)
	assert.Equal(t, "185", response.Equities[0].Quote.Price.String())
	require.NotNil(t, response.Equities[0].MarketValue)
	assert.Equal(t, "1850", response.Equities[0].MarketValue.String())
}

func TestHandleGetActivity(t *testing.T) {
	db := newTestDB(t)
	portfolioID := createTestPortfolio(t, db)
	handler := NewImportHandler(services.NewImportService(db, models.ExchangeNASDAQ))

	recorder := httptest.NewRecorder()
	handler.HandleImport(recorder, importRequest(t, portfolioID.String(), sampleStatement))
	require.Equal(t, http.StatusOK, recorder.Code)

	mux := newPortfolioMux(NewPortfolioHandler(db, nil))
	recorder = httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/portfolios/"+portfolioID.String()+"/activity", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	var entries []models.ActivityReportEntry
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&entries))
	require.Len(t, entries, 3)
	assert.Equal(t, models.ActivityTrade, entries[0].Type)
}

func TestHandleGetHoldingsUnknownPortfolio(t *testing.T) {
	db := newTestDB(t)
	mux := newPortfolioMux(NewPortfolioHandler(db, nil))

	recorder := httptest.NewRecorder()
	mux.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/api/portfolios/"+uuid.NewString()+"/holdings", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)
}
