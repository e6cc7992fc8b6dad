package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/slmyers/portfolio-tracker/src/logger"
	"github.com/slmyers/portfolio-tracker/src/models"
	"github.com/slmyers/portfolio-tracker/src/repository"
	"github.com/slmyers/portfolio-tracker/src/services"
	"github.com/slmyers/portfolio-tracker/src/utils"
)

type PortfolioHandler struct {
	db           *sql.DB
	priceService services.PriceService

	portfolios      *repository.PortfolioRepository
	equityHoldings  *repository.EquityHoldingRepository
	cashHoldings    *repository.CashHoldingRepository
	activityEntries *repository.ActivityReportEntryRepository
}

func NewPortfolioHandler(db *sql.DB, priceService services.PriceService) *PortfolioHandler {
	return &PortfolioHandler{
		db:              db,
		priceService:    priceService,
		portfolios:      repository.NewPortfolioRepository(),
		equityHoldings:  repository.NewEquityHoldingRepository(),
		cashHoldings:    repository.NewCashHoldingRepository(),
		activityEntries: repository.NewActivityReportEntryRepository(),
	}
}

type createPortfolioRequest struct {
	Name     string `json:"name"`
	Currency string `json:"currency"`
}

// holdingResponse is an equity holding optionally enriched with a live
// quote. MarketValue is quantity times the quoted price; both stay nil
// when no quote is available.
type holdingResponse struct {
	models.HoldingWithEquity
	Quote       *services.Quote  `json:"quote,omitempty"`
	MarketValue *decimal.Decimal `json:"market_value,omitempty"`
}

type holdingsResponse struct {
	PortfolioID  uuid.UUID            `json:"portfolio_id"`
	Equities     []holdingResponse    `json:"equities"`
	CashBalances []models.CashHolding `json:"cash_balances"`
}

func (h *PortfolioHandler) HandleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req createPortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid JSON request body.", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		utils.SendJSONError(w, "Portfolio 'name' is required.", http.StatusBadRequest)
		return
	}
	currency, ok := models.ParseCurrency(req.Currency)
	if !ok {
		utils.SendJSONError(w, "Unsupported portfolio 'currency'.", http.StatusBadRequest)
		return
	}

	now := time.Now()
	portfolio := &models.Portfolio{
		ID:        uuid.New(),
		Name:      req.Name,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := repository.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		return h.portfolios.Create(r.Context(), tx, portfolio)
	})
	if err != nil {
		logger.L.Error("Error creating portfolio", "name", req.Name, "error", err)
		utils.SendJSONError(w, "An internal error occurred while creating the portfolio.", http.StatusInternalServerError)
		return
	}

	logger.L.Info("Portfolio created", "portfolioID", portfolio.ID, "name", portfolio.Name)
	utils.SendJSON(w, portfolio, http.StatusCreated)
}

func (h *PortfolioHandler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := h.portfolioIDFromPath(w, r)
	if !ok {
		return
	}

	var portfolio *models.Portfolio
	err := repository.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		var err error
		portfolio, err = h.portfolios.Get(r.Context(), tx, portfolioID)
		return err
	})
	if err != nil {
		logger.L.Error("Error loading portfolio", "portfolioID", portfolioID, "error", err)
		utils.SendJSONError(w, "An internal error occurred while loading the portfolio.", http.StatusInternalServerError)
		return
	}
	if portfolio == nil {
		utils.SendJSONError(w, "Portfolio not found.", http.StatusNotFound)
		return
	}
	utils.SendJSON(w, portfolio, http.StatusOK)
}

// HandleGetHoldings returns the portfolio's equity and cash holdings.
// With ?quotes=true each equity holding is enriched with a current quote;
// failed lookups leave the holding unpriced rather than failing the read.
func (h *PortfolioHandler) HandleGetHoldings(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := h.portfolioIDFromPath(w, r)
	if !ok {
		return
	}

	var (
		equities []models.HoldingWithEquity
		cash     []models.CashHolding
	)
	err := repository.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		portfolio, err := h.portfolios.Get(r.Context(), tx, portfolioID)
		if err != nil {
			return err
		}
		if portfolio == nil {
			return sql.ErrNoRows
		}
		if equities, err = h.equityHoldings.ListByPortfolio(r.Context(), tx, portfolioID); err != nil {
			return err
		}
		cash, err = h.cashHoldings.ListByPortfolio(r.Context(), tx, portfolioID)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		utils.SendJSONError(w, "Portfolio not found.", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.L.Error("Error loading holdings", "portfolioID", portfolioID, "error", err)
		utils.SendJSONError(w, "An internal error occurred while loading holdings.", http.StatusInternalServerError)
		return
	}

	withQuotes := r.URL.Query().Get("quotes") == "true"
	response := holdingsResponse{
		PortfolioID:  portfolioID,
		Equities:     make([]holdingResponse, 0, len(equities)),
		CashBalances: cash,
	}
	if response.CashBalances == nil {
		response.CashBalances = []models.CashHolding{}
	}
	for _, holding := range equities {
		entry := holdingResponse{HoldingWithEquity: holding}
		if withQuotes {
			entry.Quote, entry.MarketValue = h.priceHolding(r.Context(), holding)
		}
		response.Equities = append(response.Equities, entry)
	}
	utils.SendJSON(w, response, http.StatusOK)
}

func (h *PortfolioHandler) priceHolding(ctx context.Context, holding models.HoldingWithEquity) (*services.Quote, *decimal.Decimal) {
	quote, err := h.priceService.GetQuote(ctx, holding.Symbol)
	if err != nil {
		logger.L.Warn("Could not price holding", "symbol", holding.Symbol, "error", err)
		return nil, nil
	}
	marketValue := holding.Quantity.Mul(quote.Price)
	return quote, &marketValue
}

func (h *PortfolioHandler) HandleGetActivity(w http.ResponseWriter, r *http.Request) {
	portfolioID, ok := h.portfolioIDFromPath(w, r)
	if !ok {
		return
	}

	var entries []models.ActivityReportEntry
	err := repository.WithTx(r.Context(), h.db, func(tx *sql.Tx) error {
		portfolio, err := h.portfolios.Get(r.Context(), tx, portfolioID)
		if err != nil {
			return err
		}
		if portfolio == nil {
			return sql.ErrNoRows
		}
		entries, err = h.activityEntries.ListByPortfolio(r.Context(), tx, portfolioID)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		utils.SendJSONError(w, "Portfolio not found.", http.StatusNotFound)
		return
	}
	if err != nil {
		logger.L.Error("Error loading activity entries", "portfolioID", portfolioID, "error", err)
		utils.SendJSONError(w, "An internal error occurred while loading activity.", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []models.ActivityReportEntry{}
	}
	utils.SendJSON(w, entries, http.StatusOK)
}

func (h *PortfolioHandler) portfolioIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	portfolioID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		utils.SendJSONError(w, "Invalid portfolio id in path.", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return portfolioID, true
}
