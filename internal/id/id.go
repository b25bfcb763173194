package id

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const feePrefix = "FEES-"

// FormatFeeID returns a monthly fee transaction ID like "FEES-2025-03".
func FormatFeeID(year, month int) string {
	return fmt.Sprintf("%s%04d-%02d", feePrefix, year, month)
}

// ParseFeeID parses "FEES-2025-03" into year and month.
func ParseFeeID(id string) (year, month int, err error) {
	if !strings.HasPrefix(id, feePrefix) {
		return 0, 0, fmt.Errorf("invalid fee ID format: %q", id)
	}

	parts := strings.SplitN(strings.TrimPrefix(id, feePrefix), "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid fee ID format: %q", id)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year in fee ID %q: %w", id, err)
	}

	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month in fee ID %q: %w", id, err)
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("month out of range in fee ID %q", id)
	}

	return year, month, nil
}

// IsFeeID reports whether id names a monthly fee transaction.
func IsFeeID(id string) bool {
	_, _, err := ParseFeeID(id)
	return err == nil
}

// MonthKey returns the "YYYY-MM" key of t in its own location.
func MonthKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month()))
}

// FeeIDForMonthKey converts "2025-03" into "FEES-2025-03".
func FeeIDForMonthKey(key string) string {
	return feePrefix + key
}

// CardPurchaseID builds a stable ID for card purchases that carry no
// confirmation code, e.g. card_JAVAHOUSE_50325_115PM.
// Identical merchant, date and time strings always produce the same ID.
func CardPurchaseID(merchant, date, clock string) string {
	return fmt.Sprintf("card_%s_%s_%s", alnum(strings.ToUpper(merchant)), alnum(date), alnum(strings.ToUpper(clock)))
}

func alnum(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
