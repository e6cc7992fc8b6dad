package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTradeTimestamp(t *testing.T) {
	ts, err := ParseTradeTimestamp("2024-03-15, 10:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), ts)

	ts, err = ParseTradeTimestamp("2024-03-15T10:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC), ts)

	ts, err = ParseTradeTimestamp("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), ts)

	_, err = ParseTradeTimestamp("15/03/2024")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not parse timestamp")
}

func TestParseStatementDate(t *testing.T) {
	d, err := ParseStatementDate("2024-06-14")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseStatementDate("June 14, 2024")
	require.Error(t, err)
}
