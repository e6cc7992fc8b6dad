package utils

import (
	"fmt"
	"strings"
	"time"
)

// Statement timestamps come in a few shapes depending on section and
// export settings; ISO forms are tried first, then the broker's
// "<date>, <time>" form.
var tradeTimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02, 15:04:05",
	"2006-01-02",
}

// ParseTradeTimestamp parses a trade event timestamp.
func ParseTradeTimestamp(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	for _, layout := range tradeTimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse timestamp %q", value)
}

// ParseStatementDate parses a plain statement date (dividends), trying an
// ISO datetime before the bare date form.
func ParseStatementDate(value string) (time.Time, error) {
	s := strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("could not parse date %q", value)
}
