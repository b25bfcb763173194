package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// ValidationError describes one problem with a transaction.
type ValidationError struct {
	TxnID       string
	Field       string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.TxnID, e.Field, e.Description)
}

// CategoryChecker tests whether a category ID exists in the chart.
type CategoryChecker interface {
	Exists(id string) bool
}

var hundred = decimal.NewFromInt(100)

// Validate checks a single transaction: it needs an ID, a positive amount
// with at most two decimal places, and a known direction.
func Validate(txn model.Transaction) []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{TxnID: txn.ID, Field: field, Description: fmt.Sprintf(format, args...)})
	}

	if txn.ID == "" {
		add("id", "must not be empty")
	}
	if !txn.Amount.IsPositive() {
		add("amount", "%s must be positive", txn.Amount)
	}
	if !exact(txn.Amount) {
		add("amount", "%s has more than 2 decimal places", txn.Amount)
	}
	if txn.FeeCharged.IsNegative() {
		add("fee_charged", "%s must not be negative", txn.FeeCharged)
	}
	if txn.AccessFee.IsNegative() {
		add("access_fee", "%s must not be negative", txn.AccessFee)
	}
	if !txn.Direction.Valid() {
		add("direction", "unknown direction %q", txn.Direction)
	}
	if txn.OccurredAt.IsZero() {
		add("occurred_at", "must be set")
	}
	return errs
}

// ValidateAll validates every transaction and also reports duplicate IDs and
// category references missing from the chart.
func ValidateAll(txns []model.Transaction, cats CategoryChecker) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool, len(txns))
	for _, txn := range txns {
		errs = append(errs, Validate(txn)...)
		if seen[txn.ID] {
			errs = append(errs, ValidationError{TxnID: txn.ID, Field: "id", Description: "duplicate id"})
		}
		seen[txn.ID] = true
		if txn.CategoryID != "" && cats != nil && !cats.Exists(txn.CategoryID) {
			errs = append(errs, ValidationError{
				TxnID:       txn.ID,
				Field:       "category_id",
				Description: fmt.Sprintf("unknown category %q", txn.CategoryID),
			})
		}
	}
	return errs
}

func exact(d decimal.Decimal) bool {
	scaled := d.Mul(hundred)
	return scaled.Equal(scaled.Floor())
}
