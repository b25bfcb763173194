// Package ledger converts transactions to and from CSV and checks them
// before they are persisted or exported.
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

// Header is the CSV header for ledger exports.
const Header = "id,kind,channel,occurred_at,direction,amount,counterparty_id,counterparty_name,post_balance,fee_charged,category_id,access_fee,outstanding_after,due_date,description"

const (
	numFields      = 15
	dateFormat     = "2006-01-02"
	colID          = 0
	colKind        = 1
	colChannel     = 2
	colOccurred    = 3
	colDirection   = 4
	colAmount      = 5
	colCpartyID    = 6
	colCpartyName  = 7
	colPostBalance = 8
	colFee         = 9
	colCategory    = 10
	colAccessFee   = 11
	colOutstanding = 12
	colDueDate     = 13
	colDesc        = 14
)

// ReadTransactions reads a ledger CSV including its header.
func ReadTransactions(r io.Reader) ([]model.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading ledger CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var txns []model.Transaction
	for i, rec := range records[1:] {
		txn, err := UnmarshalTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// WriteTransactions writes txns with a header.
func WriteTransactions(w io.Writer, txns []model.Transaction) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, txn := range txns {
		if err := cw.Write(MarshalTransaction(txn)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalTransaction converts a Transaction to a CSV row.
func MarshalTransaction(txn model.Transaction) []string {
	row := make([]string, numFields)
	row[colID] = txn.ID
	row[colKind] = string(txn.Kind)
	row[colChannel] = string(txn.Channel)
	row[colOccurred] = txn.OccurredAt.Format(time.RFC3339)
	row[colDirection] = string(txn.Direction)
	row[colAmount] = txn.Amount.StringFixed(2)
	row[colCpartyID] = txn.CounterpartyID
	row[colCpartyName] = txn.CounterpartyName

	if !txn.PostBalance.IsZero() {
		row[colPostBalance] = txn.PostBalance.StringFixed(2)
	}
	if !txn.FeeCharged.IsZero() {
		row[colFee] = txn.FeeCharged.StringFixed(2)
	}
	row[colCategory] = txn.CategoryID
	if !txn.AccessFee.IsZero() {
		row[colAccessFee] = txn.AccessFee.StringFixed(2)
	}
	if txn.OutstandingAfter != nil {
		row[colOutstanding] = txn.OutstandingAfter.StringFixed(2)
	}
	if !txn.DueDate.IsZero() {
		row[colDueDate] = txn.DueDate.Format(dateFormat)
	}
	row[colDesc] = txn.Description
	return row
}

// UnmarshalTransaction converts a CSV row to a Transaction.
func UnmarshalTransaction(record []string) (model.Transaction, error) {
	if len(record) != numFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	occurred, err := time.Parse(time.RFC3339, record[colOccurred])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing occurred_at %q: %w", record[colOccurred], err)
	}

	amount, err := decimal.NewFromString(record[colAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", record[colAmount], err)
	}

	txn := model.Transaction{
		ID:               record[colID],
		Kind:             model.TransactionKind(record[colKind]),
		Channel:          model.Channel(record[colChannel]),
		OccurredAt:       occurred,
		Direction:        model.Direction(record[colDirection]),
		Amount:           amount,
		CounterpartyID:   record[colCpartyID],
		CounterpartyName: record[colCpartyName],
		CategoryID:       record[colCategory],
		Description:      record[colDesc],
	}

	for _, f := range []struct {
		name string
		col  int
		dst  *decimal.Decimal
	}{
		{"post_balance", colPostBalance, &txn.PostBalance},
		{"fee_charged", colFee, &txn.FeeCharged},
		{"access_fee", colAccessFee, &txn.AccessFee},
	} {
		if record[f.col] == "" {
			continue
		}
		if *f.dst, err = decimal.NewFromString(record[f.col]); err != nil {
			return model.Transaction{}, fmt.Errorf("parsing %s %q: %w", f.name, record[f.col], err)
		}
	}

	if record[colOutstanding] != "" {
		out, err := decimal.NewFromString(record[colOutstanding])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing outstanding_after %q: %w", record[colOutstanding], err)
		}
		txn.OutstandingAfter = &out
	}

	if record[colDueDate] != "" {
		txn.DueDate, err = time.Parse(dateFormat, record[colDueDate])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing due_date %q: %w", record[colDueDate], err)
		}
	}
	return txn, nil
}
