package ledger

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
)

var eat = time.FixedZone("EAT", 3*60*60)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sample() []model.Transaction {
	out := dec("244.15")
	return []model.Transaction{
		{
			ID:               "AB12CD",
			Kind:             model.KindStandard,
			Channel:          model.ChannelSent,
			Amount:           dec("1200.00"),
			Direction:        model.DirectionSent,
			CounterpartyID:   "JOHN DOE",
			CounterpartyName: "JOHN DOE",
			OccurredAt:       time.Date(2025, 3, 5, 10, 0, 0, 0, eat),
			PostBalance:      dec("500.00"),
			FeeCharged:       dec("15.00"),
			CategoryID:       "family",
			Description:      "AB12CD Confirmed. Ksh1,200.00 sent to JOHN DOE, on 5/3/25",
		},
		{
			ID:               "FZ10AB6",
			Kind:             model.KindCreditDrawdown,
			Channel:          model.ChannelCredit,
			Amount:           dec("70.00"),
			Direction:        model.DirectionReceived,
			CounterpartyID:   model.CreditFacilityID,
			CounterpartyName: model.CreditFacilityName,
			OccurredAt:       time.Date(2025, 3, 6, 9, 30, 0, 0, eat),
			FeeCharged:       dec("0.70"),
			AccessFee:        dec("0.70"),
			OutstandingAfter: &out,
			DueDate:          time.Date(2025, 4, 5, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestRoundTrip(t *testing.T) {
	txns := sample()

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, txns))

	got, err := ReadTransactions(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	for i := range txns {
		want := txns[i]
		assert.Equal(t, want.ID, got[i].ID)
		assert.Equal(t, want.Kind, got[i].Kind)
		assert.Equal(t, want.Channel, got[i].Channel)
		assert.Equal(t, want.Direction, got[i].Direction)
		assert.True(t, want.Amount.Equal(got[i].Amount))
		assert.True(t, want.PostBalance.Equal(got[i].PostBalance))
		assert.True(t, want.FeeCharged.Equal(got[i].FeeCharged))
		assert.True(t, want.AccessFee.Equal(got[i].AccessFee))
		assert.True(t, want.OccurredAt.Equal(got[i].OccurredAt))
		assert.True(t, want.DueDate.Equal(got[i].DueDate))
		assert.Equal(t, want.CategoryID, got[i].CategoryID)
		assert.Equal(t, want.Description, got[i].Description)
	}
	assert.Nil(t, got[0].OutstandingAfter)
	require.NotNil(t, got[1].OutstandingAfter)
	assert.Equal(t, "244.15", got[1].OutstandingAfter.StringFixed(2))
}

func TestMarshal_EmptyOptionalColumns(t *testing.T) {
	row := MarshalTransaction(model.Transaction{
		ID:         "X",
		Amount:     dec("5"),
		Direction:  model.DirectionSent,
		OccurredAt: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, "5.00", row[colAmount])
	assert.Empty(t, row[colPostBalance])
	assert.Empty(t, row[colFee])
	assert.Empty(t, row[colOutstanding])
	assert.Empty(t, row[colDueDate])
	assert.Equal(t, "2025-03-05T00:00:00Z", row[colOccurred])
}

func TestMarshal_ZeroOutstandingIsKept(t *testing.T) {
	zero := decimal.Zero
	row := MarshalTransaction(model.Transaction{ID: "X", OutstandingAfter: &zero})
	assert.Equal(t, "0.00", row[colOutstanding])
}

func TestReadTransactions_Errors(t *testing.T) {
	header := Header + "\n"
	base := sample()[0]

	tests := []struct {
		name   string
		mutate func(row []string)
	}{
		{"bad date", func(row []string) { row[colOccurred] = "5/3/25" }},
		{"bad amount", func(row []string) { row[colAmount] = "1,200" }},
		{"bad fee", func(row []string) { row[colFee] = "abc" }},
		{"bad outstanding", func(row []string) { row[colOutstanding] = "abc" }},
		{"bad due date", func(row []string) { row[colDueDate] = "tomorrow" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := MarshalTransaction(base)
			tt.mutate(row)
			var buf bytes.Buffer
			buf.WriteString(header)
			buf.WriteString(csvLine(row))
			_, err := ReadTransactions(&buf)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "row 2")
		})
	}
}

func TestReadTransactions_WrongFieldCount(t *testing.T) {
	_, err := ReadTransactions(strings.NewReader(Header + "\nA,B\n"))
	assert.Error(t, err)
}

func TestReadTransactions_Empty(t *testing.T) {
	got, err := ReadTransactions(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func csvLine(row []string) string {
	quoted := make([]string, len(row))
	for i, f := range row {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",") + "\n"
}
