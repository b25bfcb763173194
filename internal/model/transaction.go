package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the flow of money relative to the account holder.
type Direction string

const (
	DirectionSent     Direction = "SENT"
	DirectionReceived Direction = "RECEIVED"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionSent || d == DirectionReceived
}

// RuleType returns the automation rule type that applies to d.
// SENT -> EXPENSE, RECEIVED -> INCOME.
func (d Direction) RuleType() RuleType {
	if d == DirectionReceived {
		return RuleTypeIncome
	}
	return RuleTypeExpense
}

// TransactionKind distinguishes ordinary ledger entries from credit records
// and synthetic fee rows.
type TransactionKind string

const (
	KindStandard        TransactionKind = "standard"
	KindCreditDrawdown  TransactionKind = "credit_drawdown"
	KindCreditRepayment TransactionKind = "credit_repayment"
	KindOverdraftFees   TransactionKind = "overdraft_fees"
)

// IsCredit reports whether k is a drawdown or repayment record.
func (k TransactionKind) IsCredit() bool {
	return k == KindCreditDrawdown || k == KindCreditRepayment
}

// Transaction is one ledger entry. ID is the primary key; writing a
// Transaction with an existing ID replaces the stored row.
type Transaction struct {
	ID               string
	Kind             TransactionKind
	Channel          Channel
	Amount           decimal.Decimal
	Direction        Direction
	CounterpartyID   string
	CounterpartyName string
	OccurredAt       time.Time
	PostBalance      decimal.Decimal
	FeeCharged       decimal.Decimal
	CategoryID       string // empty = uncategorized
	Description      string // raw message body, if any

	// Credit facility fields, set for credit records only.
	AccessFee        decimal.Decimal
	OutstandingAfter *decimal.Decimal
	DueDate          time.Time
}

// Categorized reports whether a category has been assigned.
func (t Transaction) Categorized() bool {
	return t.CategoryID != ""
}

// Event converts a credit record back into the event it was created from.
// It returns Unrecognized for any other kind.
func (t Transaction) Event() Event {
	switch t.Kind {
	case KindCreditDrawdown:
		return CreditDrawdown{
			ConfirmationCode: t.ID,
			Amount:           t.Amount,
			AccessFee:        t.AccessFee,
			OutstandingAfter: t.OutstandingAfter,
			DueDate:          t.DueDate,
			OccurredAt:       t.OccurredAt,
		}
	case KindCreditRepayment:
		r := CreditRepayment{
			ConfirmationCode: t.ID,
			Amount:           t.Amount,
			OutstandingAfter: t.OutstandingAfter,
			OccurredAt:       t.OccurredAt,
		}
		r.FullyPaid = r.OutstandingAfter != nil && r.OutstandingAfter.IsZero()
		return r
	default:
		return Unrecognized{}
	}
}
