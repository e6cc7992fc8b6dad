package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/slmyers/portfolio-tracker/src/config"
	"github.com/slmyers/portfolio-tracker/src/logger"
)

// globalQuoteResponse mirrors the provider's GLOBAL_QUOTE payload. Numeric
// fields arrive as strings.
type globalQuoteResponse struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Price         string `json:"05. price"`
		LatestTrading string `json:"07. latest trading day"`
	} `json:"Global Quote"`
	Note         string `json:"Note,omitempty"`
	ErrorMessage string `json:"Error Message,omitempty"`
}

type priceServiceImpl struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	quoteCache *cache.Cache
	limiter    *rate.Limiter
}

// NewPriceService creates a quote lookup backed by the configured provider,
// with an in-memory cache and a client-side rate limit (free API tiers
// throttle hard).
func NewPriceService(cfg *config.AppConfig) PriceService {
	return &priceServiceImpl{
		httpClient: &http.Client{Timeout: cfg.PriceAPITimeout},
		baseURL:    cfg.PriceAPIBaseURL,
		apiKey:     cfg.PriceAPIKey,
		quoteCache: cache.New(cfg.PriceCacheExpiry, 2*cfg.PriceCacheExpiry),
		limiter:    rate.NewLimiter(rate.Every(12*time.Second), 5),
	}
}

func (s *priceServiceImpl) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	if cached, found := s.quoteCache.Get(symbol); found {
		return cached.(*Quote), nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for quote rate limit: %w", err)
	}

	quote, err := s.fetchQuote(ctx, symbol)
	if err != nil {
		logger.L.Warn("Quote lookup failed", "symbol", symbol, "error", err)
		return nil, err
	}

	s.quoteCache.Set(symbol, quote, cache.DefaultExpiration)
	return quote, nil
}

func (s *priceServiceImpl) fetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	query := url.Values{}
	query.Set("function", "GLOBAL_QUOTE")
	query.Set("symbol", symbol)
	query.Set("apikey", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling quote API for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("quote API returned status %d for %s: %s", resp.StatusCode, symbol, string(bodyBytes))
	}

	var quoteData globalQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quoteData); err != nil {
		return nil, fmt.Errorf("decoding quote response for %s: %w", symbol, err)
	}
	if quoteData.ErrorMessage != "" {
		return nil, fmt.Errorf("quote API error for %s: %s", symbol, quoteData.ErrorMessage)
	}
	if quoteData.Note != "" {
		return nil, fmt.Errorf("quote API throttled request for %s: %s", symbol, quoteData.Note)
	}
	if quoteData.GlobalQuote.Symbol == "" || quoteData.GlobalQuote.Price == "" {
		return nil, fmt.Errorf("%w: %s", ErrQuoteNotFound, symbol)
	}

	price, err := decimal.NewFromString(quoteData.GlobalQuote.Price)
	if err != nil {
		return nil, fmt.Errorf("parsing quote price %q for %s: %w", quoteData.GlobalQuote.Price, symbol, err)
	}

	asOf := time.Now()
	if quoteData.GlobalQuote.LatestTrading != "" {
		if tradingDay, err := time.Parse("2006-01-02", quoteData.GlobalQuote.LatestTrading); err == nil {
			asOf = tradingDay
		}
	}

	return &Quote{
		Symbol:   quoteData.GlobalQuote.Symbol,
		Price:    price,
		Currency: "USD",
		AsOf:     asOf,
	}, nil
}
