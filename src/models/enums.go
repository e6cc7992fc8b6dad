package models

// Currency is the set of currencies cash holdings and activity entries may
// be denominated in. Statement amounts are stored in their stated currency,
// never converted.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyCAD Currency = "CAD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
	CurrencyAUD Currency = "AUD"
)

var supportedCurrencies = map[Currency]bool{
	CurrencyUSD: true,
	CurrencyCAD: true,
	CurrencyEUR: true,
	CurrencyGBP: true,
	CurrencyJPY: true,
	CurrencyAUD: true,
}

// ParseCurrency validates a currency code against the supported set.
func ParseCurrency(code string) (Currency, bool) {
	c := Currency(code)
	return c, supportedCurrencies[c]
}

// Exchange identifies the listing exchange of an equity.
type Exchange string

const (
	ExchangeNYSE     Exchange = "NYSE"
	ExchangeNASDAQ   Exchange = "NASDAQ"
	ExchangeLSE      Exchange = "LSE"
	ExchangeHKEX     Exchange = "HKEX"
	ExchangeEuronext Exchange = "EURONEXT"
	ExchangeASX      Exchange = "ASX"
	ExchangeJPX      Exchange = "JPX"
)

// ActivityType classifies an activity report entry.
type ActivityType string

const (
	ActivityTrade    ActivityType = "TRADE"
	ActivityDividend ActivityType = "DIVIDEND"
)
