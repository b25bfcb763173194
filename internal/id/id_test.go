package id

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFeeID(t *testing.T) {
	tests := []struct {
		year, month int
		want        string
	}{
		{2025, 1, "FEES-2025-01"},
		{2025, 12, "FEES-2025-12"},
		{999, 3, "FEES-0999-03"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFeeID(tt.year, tt.month))
	}
}

func TestParseFeeID(t *testing.T) {
	year, month, err := ParseFeeID("FEES-2025-03")
	require.NoError(t, err)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 3, month)
}

func TestParseFeeID_Invalid(t *testing.T) {
	tests := []string{
		"",
		"2025-03",
		"FEES-2025",
		"FEES-abcd-03",
		"FEES-2025-xx",
		"FEES-2025-13",
	}
	for _, input := range tests {
		_, _, err := ParseFeeID(input)
		assert.Error(t, err, "ParseFeeID(%q) should fail", input)
	}
}

func TestIsFeeID(t *testing.T) {
	assert.True(t, IsFeeID("FEES-2025-03"))
	assert.False(t, IsFeeID("AB12CD"))
}

func TestMonthKey(t *testing.T) {
	assert.Equal(t, "2025-03", MonthKey(time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, "FEES-2025-03", FeeIDForMonthKey("2025-03"))
}

func TestCardPurchaseID(t *testing.T) {
	got := CardPurchaseID("Java House", "5/3/25", "1:15 PM")
	assert.Equal(t, "card_JAVAHOUSE_5325_115PM", got)

	// Same inputs, same ID.
	assert.Equal(t, got, CardPurchaseID("Java House", "5/3/25", "1:15 PM"))
	// Different time, different ID.
	assert.NotEqual(t, got, CardPurchaseID("Java House", "5/3/25", "1:16 PM"))
}
