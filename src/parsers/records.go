package parsers

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TradeRecord is one accepted data row from the Trades section. Numeric
// fields are optional decimals: blank, "--" and unparsable cells carry no
// value. DateTime keeps the statement's own text; the import pipeline
// decides how to interpret it.
type TradeRecord struct {
	DataDiscriminator string              `json:"data_discriminator"`
	AssetCategory     string              `json:"asset_category"`
	Currency          string              `json:"currency"`
	Symbol            string              `json:"symbol"`
	DateTime          string              `json:"datetime"`
	Quantity          decimal.NullDecimal `json:"quantity"`
	TradePrice        decimal.NullDecimal `json:"t_price"`
	ClosePrice        decimal.NullDecimal `json:"c_price"`
	Proceeds          decimal.NullDecimal `json:"proceeds"`
	Commission        decimal.NullDecimal `json:"commission"`
	Basis             decimal.NullDecimal `json:"basis"`
	RealizedPL        decimal.NullDecimal `json:"realized_pl"`
	MTMPL             decimal.NullDecimal `json:"mtm_pl"`
	Code              string              `json:"code"`
}

// DividendRecord is one accepted data row from the Dividends section.
type DividendRecord struct {
	Currency    string              `json:"currency"`
	Date        string              `json:"date"`
	Description string              `json:"description"`
	Amount      decimal.NullDecimal `json:"amount"`
}

// PositionRecord is one accepted data row from the Open Positions section.
type PositionRecord struct {
	DataDiscriminator string              `json:"data_discriminator"`
	AssetCategory     string              `json:"asset_category"`
	Currency          string              `json:"currency"`
	Symbol            string              `json:"symbol"`
	Quantity          decimal.NullDecimal `json:"quantity"`
	Multiplier        decimal.NullDecimal `json:"mult"`
	CostPrice         decimal.NullDecimal `json:"cost_price"`
	CostBasis         decimal.NullDecimal `json:"cost_basis"`
	ClosePrice        decimal.NullDecimal `json:"close_price"`
	Value             decimal.NullDecimal `json:"value"`
	UnrealizedPL      decimal.NullDecimal `json:"unrealized_pl"`
	Code              string              `json:"code"`
}

// ForexBalanceRecord is one accepted data row from the Forex Balances
// section. The section's nominal "Currency" column holds the account's
// base/reporting currency; the actual currency of the balance is in the
// description column. Cost basis, value and unrealized P/L are reported in
// the base currency, under headers suffixed with it ("Value in CAD").
type ForexBalanceRecord struct {
	Currency         string              `json:"currency"`
	BaseCurrency     string              `json:"base_currency"`
	Quantity         decimal.NullDecimal `json:"quantity"`
	CostPrice        decimal.NullDecimal `json:"cost_price"`
	CostBasisInBase  decimal.NullDecimal `json:"cost_basis_in_base"`
	ClosePrice       decimal.NullDecimal `json:"close_price"`
	ValueInBase      decimal.NullDecimal `json:"value_in_base"`
	UnrealizedPLBase decimal.NullDecimal `json:"unrealized_pl_in_base"`
	Code             string              `json:"code"`
}

// rowHandler receives the field->value mapping of each accepted data row.
// Each section strategy owns exactly one handler, and each handler owns its
// record slice; the orchestrator exposes read-only views after parsing.
type rowHandler interface {
	handleRow(row map[string]string)
}

type tradesHandler struct {
	trades []TradeRecord
}

func (h *tradesHandler) handleRow(row map[string]string) {
	// Rows without a symbol or timestamp are structural leftovers, not
	// trades.
	if row["symbol"] == "" || row["date_time"] == "" {
		return
	}
	commission := ParseDecimal(row["comm_fee"])
	if !commission.Valid {
		commission = ParseDecimal(row["comm_in_cad"])
	}
	mtm := ParseDecimal(row["mtm_p_l"])
	if !mtm.Valid {
		mtm = ParseDecimal(row["mtm_in_cad"])
	}
	h.trades = append(h.trades, TradeRecord{
		DataDiscriminator: row["datadiscriminator"],
		AssetCategory:     row["asset_category"],
		Currency:          row["currency"],
		Symbol:            row["symbol"],
		DateTime:          row["date_time"],
		Quantity:          ParseDecimal(row["quantity"]),
		TradePrice:        ParseDecimal(row["t._price"]),
		ClosePrice:        ParseDecimal(row["c._price"]),
		Proceeds:          ParseDecimal(row["proceeds"]),
		Commission:        commission,
		Basis:             ParseDecimal(row["basis"]),
		RealizedPL:        ParseDecimal(row["realized_p_l"]),
		MTMPL:             mtm,
		Code:              row["code"],
	})
}

type dividendsHandler struct {
	dividends []DividendRecord
}

func (h *dividendsHandler) handleRow(row map[string]string) {
	if row["date"] == "" || row["description"] == "" {
		return
	}
	h.dividends = append(h.dividends, DividendRecord{
		Currency:    row["currency"],
		Date:        row["date"],
		Description: row["description"],
		Amount:      ParseDecimal(row["amount"]),
	})
}

type positionsHandler struct {
	positions []PositionRecord
}

func (h *positionsHandler) handleRow(row map[string]string) {
	if row["symbol"] == "" || row["quantity"] == "" {
		return
	}
	h.positions = append(h.positions, PositionRecord{
		DataDiscriminator: row["datadiscriminator"],
		AssetCategory:     row["asset_category"],
		Currency:          row["currency"],
		Symbol:            row["symbol"],
		Quantity:          ParseDecimal(row["quantity"]),
		Multiplier:        ParseDecimal(row["mult"]),
		CostPrice:         ParseDecimal(row["cost_price"]),
		CostBasis:         ParseDecimal(row["cost_basis"]),
		ClosePrice:        ParseDecimal(row["close_price"]),
		Value:             ParseDecimal(row["value"]),
		UnrealizedPL:      ParseDecimal(row["unrealized_p_l"]),
		Code:              row["code"],
	})
}

type forexBalancesHandler struct {
	balances []ForexBalanceRecord
}

func (h *forexBalancesHandler) handleRow(row map[string]string) {
	if row["description"] == "" || row["quantity"] == "" {
		return
	}
	h.balances = append(h.balances, ForexBalanceRecord{
		Currency:         row["description"],
		BaseCurrency:     row["currency"],
		Quantity:         ParseDecimal(row["quantity"]),
		CostPrice:        ParseDecimal(row["cost_price"]),
		CostBasisInBase:  ParseDecimal(lookupPrefixed(row, "cost_basis_in_")),
		ClosePrice:       ParseDecimal(row["close_price"]),
		ValueInBase:      ParseDecimal(lookupPrefixed(row, "value_in_")),
		UnrealizedPLBase: ParseDecimal(lookupPrefixed(row, "unrealized_p_l_in_")),
		Code:             row["code"],
	})
}

// lookupPrefixed finds the value of the single column whose normalized key
// starts with prefix. Base-currency columns embed the account currency in
// the header ("cost_basis_in_cad"), so the exact key varies per account.
func lookupPrefixed(row map[string]string, prefix string) string {
	for key, value := range row {
		if strings.HasPrefix(key, prefix) {
			return value
		}
	}
	return ""
}

// statementHandler collects the Statement section's flat key/value pairs.
// Keys are kept exactly as they appear in the source; they double as lookup
// keys for the derived metadata fields.
type statementHandler struct {
	metadata map[string]string
}

func (h *statementHandler) handleRow(row map[string]string) {
	if h.metadata == nil {
		h.metadata = make(map[string]string)
	}
	h.metadata[row["field_name"]] = row["field_value"]
}

// genericHandler keeps rows from sections the parser has no dedicated
// strategy for, so unexpected sections degrade gracefully instead of being
// lost.
type genericHandler struct {
	rows []map[string]string
}

func (h *genericHandler) handleRow(row map[string]string) {
	h.rows = append(h.rows, row)
}
