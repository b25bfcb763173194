package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "tally.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGet_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	out := decimal.RequireFromString("244.15")
	original := model.Transaction{
		ID:               "FZ10AB6",
		Kind:             model.KindCreditDrawdown,
		Channel:          model.ChannelCredit,
		Amount:           decimal.RequireFromString("70.00"),
		Direction:        model.DirectionReceived,
		CounterpartyID:   model.CreditFacilityID,
		CounterpartyName: model.CreditFacilityName,
		OccurredAt:       time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
		FeeCharged:       decimal.RequireFromString("0.70"),
		Description:      "raw body",
		AccessFee:        decimal.RequireFromString("0.70"),
		OutstandingAfter: &out,
		DueDate:          time.Date(2025, 4, 4, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.UpsertTransaction(ctx, original))

	got, err := s.GetTransaction(ctx, "FZ10AB6")
	require.NoError(t, err)
	assert.Equal(t, original.Kind, got.Kind)
	assert.Equal(t, original.Channel, got.Channel)
	assert.Equal(t, original.Direction, got.Direction)
	assert.True(t, original.Amount.Equal(got.Amount))
	assert.True(t, original.AccessFee.Equal(got.AccessFee))
	assert.True(t, original.OccurredAt.Equal(got.OccurredAt))
	assert.True(t, original.DueDate.Equal(got.DueDate))
	require.NotNil(t, got.OutstandingAfter)
	assert.True(t, out.Equal(*got.OutstandingAfter))
	assert.Equal(t, "raw body", got.Description)
}

func TestUpsert_ReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	txn := model.Transaction{ID: "AB12CD", Kind: model.KindStandard, Amount: decimal.NewFromInt(1), Direction: model.DirectionSent}
	require.NoError(t, s.UpsertTransaction(ctx, txn))
	txn.CategoryID = "food"
	require.NoError(t, s.UpsertTransaction(ctx, txn))

	all, err := s.ListTransactionsSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "food", all[0].CategoryID)
	assert.Nil(t, all[0].OutstandingAfter)
	assert.True(t, all[0].DueDate.IsZero())
}

func TestGetTransaction_NotFound(t *testing.T) {
	_, err := openTemp(t).GetTransaction(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	require.NoError(t, s.UpsertTransaction(ctx, model.Transaction{
		ID: "FEES-2025-02", Kind: model.KindOverdraftFees, Amount: decimal.NewFromInt(84), Direction: model.DirectionSent,
	}))
	require.NoError(t, s.DeleteTransaction(ctx, "FEES-2025-02"))

	_, err := s.GetTransaction(ctx, "FEES-2025-02")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, s.DeleteTransaction(ctx, "FEES-2025-02"), "deleting a missing row is a no-op")
}

func TestListTransactionsSince(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, code := range []string{"A", "B", "C"} {
		require.NoError(t, s.UpsertTransaction(ctx, model.Transaction{
			ID: code, Kind: model.KindStandard, Direction: model.DirectionSent,
			OccurredAt: base.AddDate(0, 0, i),
		}))
	}

	got, err := s.ListTransactionsSince(ctx, base.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].ID)
	assert.Equal(t, "C", got[1].ID)
}

func TestListUncategorized(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	require.NoError(t, s.UpsertTransaction(ctx, model.Transaction{ID: "1", Kind: model.KindStandard, CounterpartyID: "X", Direction: model.DirectionSent}))
	require.NoError(t, s.UpsertTransaction(ctx, model.Transaction{ID: "2", Kind: model.KindStandard, CounterpartyID: "X", Direction: model.DirectionSent, CategoryID: "food"}))

	got, err := s.ListUncategorized(ctx, "X", model.DirectionSent)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
}

func TestProcessedMessages(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	ok, err := s.IsMessageProcessed(ctx, "sms-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.MarkMessageProcessed(ctx, "sms-1"))
	require.NoError(t, s.MarkMessageProcessed(ctx, "sms-1"), "marking twice is harmless")

	ok, err = s.IsMessageProcessed(ctx, "sms-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCategoryMemory(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	seen := time.Date(2025, 3, 5, 12, 0, 0, 0, time.UTC)

	_, err := s.GetCategoryForCounterparty(ctx, "254712345678", model.DirectionSent)
	assert.ErrorIs(t, err, store.ErrNotFound)

	m := model.CategoryMapping{CounterpartyID: "254712345678", Direction: model.DirectionSent, CategoryID: "family", LastSeenAt: seen}
	require.NoError(t, s.SaveCategoryForCounterparty(ctx, m))
	m.CategoryID = "rent"
	require.NoError(t, s.SaveCategoryForCounterparty(ctx, m))

	got, err := s.GetCategoryForCounterparty(ctx, "254712345678", model.DirectionSent)
	require.NoError(t, err)
	assert.Equal(t, "rent", got.CategoryID)
	assert.True(t, seen.Equal(got.LastSeenAt))
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tally.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.MarkMessageProcessed(ctx, "sms-9"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	ok, err := s.IsMessageProcessed(ctx, "sms-9")
	require.NoError(t, err)
	assert.True(t, ok)
}
