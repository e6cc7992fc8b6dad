package parsers

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeField turns a header cell into a stable lookup key: trimmed,
// lowercased, spaces and slashes replaced with underscores. "Date/Time"
// becomes "date_time", "Comm/Fee" becomes "comm_fee".
func NormalizeField(field string) string {
	f := strings.ToLower(strings.TrimSpace(field))
	f = strings.ReplaceAll(f, " ", "_")
	f = strings.ReplaceAll(f, "/", "_")
	return f
}

// IsSummaryRow reports whether a data row is a broker-inserted aggregate
// row. The marker is the third cell by convention (the first data column
// after section name and row type).
func IsSummaryRow(row []string, keywords []string) bool {
	if len(row) <= 2 {
		return false
	}
	marker := strings.ToLower(strings.TrimSpace(row[2]))
	for _, kw := range keywords {
		if strings.HasPrefix(marker, kw) {
			return true
		}
	}
	return false
}

// ParseDecimal coerces locale-formatted numeric text into an optional
// decimal. Empty text and the "--" placeholder yield no value, as does any
// unparsable input; this never returns an error because absent numbers are
// an expected shape of broker data, not a defect.
func ParseDecimal(text string) decimal.NullDecimal {
	s := strings.TrimSpace(text)
	if s == "" || s == "--" {
		return decimal.NullDecimal{}
	}
	// Strip thousands separators: "1,234.50" -> "1234.50".
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
