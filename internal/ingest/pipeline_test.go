package ingest

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/extract"
	"github.com/cleared-dev/tally/internal/logger"
	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/source"
	"github.com/cleared-dev/tally/internal/store"
	"github.com/cleared-dev/tally/internal/store/memstore"
)

var eat = time.FixedZone("EAT", 3*60*60)

const (
	sentMsg     = "AB12CD Confirmed. Ksh1,200.00 sent to JOHN DOE on 5/3/25 at 10:00 AM. New M-PESA balance is Ksh500.00. Transaction cost, Ksh15.00."
	buygoodsMsg = "BG11ZZ2 Confirmed. Ksh250.00 paid to NAIVAS SUPERMARKET. on 8/3/25 at 1:45 PM.New M-PESA balance is Ksh750.00. Transaction cost, Ksh0.00."
	bankXferMsg = "Dear Customer, Your transfer of KES 2,000.00 from account ****1234 to JOHN DOE 0712345678 on 10/3/25 at 4:20 PM was successful. Ref: BT88RR4. Transaction fee KES 30.00. Available balance KES 10,000.00"
	drawdownMsg = "FZ10AB6 Confirmed. Fuliza M-Pesa amount is Ksh 70.00. Access Fee charged Ksh 0.70. Total Fuliza M-Pesa outstanding amount is Ksh244.15 due on 04/04/25. To check daily charges, Dial *334#OK Select Fuliza M-Pesa to Query Charges."
	repayMsg    = "FZ20CD7 Confirmed. Ksh 244.15 from your M-PESA has been used to fully pay your outstanding Fuliza M-PESA. Available Fuliza M-PESA limit is Ksh 500.00."
	malformed   = "AB99ZZ Confirmed. Ksh1.200.00 sent to JOHN DOE on 5/3/25 at 10:00 AM. New M-PESA balance is Ksh500.00. Transaction cost, Ksh15.00."
)

var asOf = time.Date(2025, 3, 10, 18, 0, 0, 0, eat)

func msg(id, body string, at time.Time) model.RawMessage {
	return model.RawMessage{ExternalID: id, Sender: "MPESA", Body: body, Timestamp: at}
}

func day(d, hour int) time.Time {
	return time.Date(2025, 3, d, hour, 0, 0, 0, eat)
}

func newPipeline(s *memstore.Store, opts ...Option) *Pipeline {
	opts = append([]Option{WithClock(func() time.Time { return asOf })}, opts...)
	return New(s, eat, opts...)
}

func testdataMessages(t *testing.T) []model.RawMessage {
	t.Helper()
	f, err := os.Open("../../testdata/messages.csv")
	require.NoError(t, err)
	defer f.Close()
	msgs, err := source.ReadMessages(f)
	require.NoError(t, err)
	return msgs
}

type staticRules []model.AutomationRule

func (r staticRules) ListRules() ([]model.AutomationRule, error) { return r, nil }

func TestRun_Testdata(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	res, err := newPipeline(s, WithFeeCategory("fees")).Run(ctx, testdataMessages(t))
	require.NoError(t, err)
	assert.Equal(t, 6, res.Scanned)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 1, res.Unrecognized)
	assert.Equal(t, 5, res.NewTransactions)
	assert.Equal(t, 2, res.CreditEvents)
	assert.Equal(t, 1, res.FeeMonths)
	assert.True(t, res.Latest.Equal(time.Date(2025, 3, 9, 9, 0, 0, 0, eat)))

	sent, err := s.GetTransaction(ctx, "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, model.DirectionSent, sent.Direction)
	assert.Equal(t, "1200.00", sent.Amount.StringFixed(2))
	assert.Equal(t, "JOHN DOE", sent.CounterpartyName)

	draw, err := s.GetTransaction(ctx, "FZ10AB6")
	require.NoError(t, err)
	assert.Equal(t, model.KindCreditDrawdown, draw.Kind)
	assert.True(t, draw.OccurredAt.Equal(day(6, 12)), "credit records take the message time")

	// Drawdown on the 6th leaves 244.15 outstanding: 0.70 access fee plus
	// 3.00 a day for the 6th, 7th and 8th. Fully repaid on the 9th.
	fees, err := s.GetTransaction(ctx, "FEES-2025-03")
	require.NoError(t, err)
	assert.Equal(t, "9.70", fees.Amount.StringFixed(2))
	assert.Equal(t, model.KindOverdraftFees, fees.Kind)
	assert.Equal(t, "fees", fees.CategoryID)
	assert.True(t, fees.OccurredAt.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, eat)))

	for _, id := range []string{"sms-001", "sms-005", "sms-006"} {
		ok, err := s.IsMessageProcessed(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok, id)
	}
}

func TestRun_Idempotent(t *testing.T) {
	ctx := context.Background()
	msgs := testdataMessages(t)

	once := memstore.New()
	_, err := newPipeline(once).Run(ctx, msgs)
	require.NoError(t, err)

	twice := memstore.New()
	p := newPipeline(twice)
	_, err = p.Run(ctx, msgs)
	require.NoError(t, err)
	res, err := p.Run(ctx, msgs)
	require.NoError(t, err)
	assert.Equal(t, len(msgs), res.Skipped)
	assert.Zero(t, res.NewTransactions)

	a, err := once.ListTransactionsSince(ctx, time.Time{})
	require.NoError(t, err)
	b, err := twice.ListTransactionsSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRun_UnrecognizedIsMarked(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	res, err := newPipeline(s).Run(ctx, []model.RawMessage{
		msg("m1", "Your data bundle expires today.", day(5, 9)),
		msg("m2", malformed, day(5, 10)),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Unrecognized)

	for _, id := range []string{"m1", "m2"} {
		ok, err := s.IsMessageProcessed(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok, id)
	}
	all, err := s.ListTransactionsSince(ctx, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRun_MemoryThenRules(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.SaveCategoryForCounterparty(ctx, model.CategoryMapping{
		CounterpartyID: "JOHN DOE", Direction: model.DirectionSent, CategoryID: "family",
	}))
	everything := staticRules{{
		ID: "r1", Name: "big spend", AppliesTo: model.RuleTypeExpense, Enabled: true,
		Conditions:       []model.Condition{{Field: model.FieldAmount, Operator: model.OpGreaterThan, Value: "0"}},
		TargetCategoryID: "shopping",
	}}

	_, err := newPipeline(s, WithRules(everything)).Run(ctx, []model.RawMessage{
		msg("m1", sentMsg, day(5, 10)),
		msg("m2", buygoodsMsg, day(8, 13)),
	})
	require.NoError(t, err)

	john, err := s.GetTransaction(ctx, "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, "family", john.CategoryID, "memory wins over rules")

	naivas, err := s.GetTransaction(ctx, "BG11ZZ2")
	require.NoError(t, err)
	assert.Equal(t, "shopping", naivas.CategoryID, "rules apply when memory is empty")
}

func TestRun_LeavesUnknownUncategorized(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	_, err := newPipeline(s).Run(ctx, []model.RawMessage{msg("m1", sentMsg, day(5, 10))})
	require.NoError(t, err)

	got, err := s.ListUncategorized(ctx, "JOHN DOE", model.DirectionSent)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "AB12CD", got[0].ID)
}

func TestRun_KeepsHumanCategory(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	require.NoError(t, s.UpsertTransaction(ctx, model.Transaction{
		ID: "AB12CD", Kind: model.KindStandard, Direction: model.DirectionSent, CategoryID: "rent",
	}))
	require.NoError(t, s.SaveCategoryForCounterparty(ctx, model.CategoryMapping{
		CounterpartyID: "JOHN DOE", Direction: model.DirectionSent, CategoryID: "family",
	}))

	res, err := newPipeline(s).Run(ctx, []model.RawMessage{msg("m1", sentMsg, day(5, 10))})
	require.NoError(t, err)
	assert.Zero(t, res.NewTransactions)
	assert.Equal(t, 1, res.Updated)

	got, err := s.GetTransaction(ctx, "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, "rent", got.CategoryID)
	assert.Equal(t, "1200.00", got.Amount.StringFixed(2), "other fields are refreshed")
}

func TestRun_DuplicateBankNotifications(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	res, err := newPipeline(s).Run(ctx, []model.RawMessage{
		msg("bank-1", bankXferMsg, day(10, 16)),
		msg("bank-2", bankXferMsg, day(10, 16)),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewTransactions)
	assert.Equal(t, 1, res.Updated)

	all, err := s.ListTransactionsSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "BT88RR4", all[0].ID)
}

func TestRun_FeeCategoryIsPreserved(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	p := newPipeline(s, WithFeeCategory("fees"))

	_, err := p.Run(ctx, []model.RawMessage{msg("m1", drawdownMsg, day(6, 12))})
	require.NoError(t, err)

	fees, err := s.GetTransaction(ctx, "FEES-2025-03")
	require.NoError(t, err)
	fees.CategoryID = "bank-charges"
	require.NoError(t, s.UpsertTransaction(ctx, fees))

	_, err = p.Run(ctx, []model.RawMessage{msg("m2", repayMsg, day(9, 9))})
	require.NoError(t, err)

	all, err := s.ListTransactionsSince(ctx, time.Time{})
	require.NoError(t, err)
	var feeRows []model.Transaction
	for _, txn := range all {
		if txn.Kind == model.KindOverdraftFees {
			feeRows = append(feeRows, txn)
		}
	}
	require.Len(t, feeRows, 1, "fee rows are replaced, not duplicated")
	assert.Equal(t, "bank-charges", feeRows[0].CategoryID)
	assert.Equal(t, "9.70", feeRows[0].Amount.StringFixed(2))
}

func TestRun_NoCreditsNoFees(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	res, err := newPipeline(s).Run(ctx, []model.RawMessage{msg("m1", sentMsg, day(5, 10))})
	require.NoError(t, err)
	assert.Zero(t, res.FeeMonths)

	_, err = s.GetTransaction(ctx, "FEES-2025-03")
	assert.Error(t, err)
}

func TestRun_LateRepaymentRemovesStaleFeeMonths(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	drawdownAt := time.Date(2025, 1, 20, 12, 0, 0, 0, eat)

	res, err := newPipeline(s).Run(ctx, []model.RawMessage{msg("m1", drawdownMsg, drawdownAt)})
	require.NoError(t, err)
	assert.Equal(t, 3, res.FeeMonths)

	// 244.15 outstanding sits in the 3/day band from January 20 to March 10.
	for feeID, want := range map[string]string{
		"FEES-2025-01": "36.70",
		"FEES-2025-02": "84.00",
		"FEES-2025-03": "30.00",
	} {
		txn, err := s.GetTransaction(ctx, feeID)
		require.NoError(t, err, feeID)
		assert.Equal(t, want, txn.Amount.StringFixed(2), feeID)
	}

	// The repayment export arrives after the fees were booked.
	res, err = newPipeline(s).Run(ctx, []model.RawMessage{
		msg("m1", drawdownMsg, drawdownAt),
		msg("m2", repayMsg, time.Date(2025, 1, 21, 9, 0, 0, 0, eat)),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.FeeMonths)

	jan, err := s.GetTransaction(ctx, "FEES-2025-01")
	require.NoError(t, err)
	assert.Equal(t, "3.70", jan.Amount.StringFixed(2))
	for _, feeID := range []string{"FEES-2025-02", "FEES-2025-03"} {
		_, err := s.GetTransaction(ctx, feeID)
		assert.ErrorIs(t, err, store.ErrNotFound, feeID)
	}
}

// failingStore fails writes of one transaction ID.
type failingStore struct {
	*memstore.Store
	failID string
}

var errDiskFull = errors.New("disk full")

func (f *failingStore) UpsertTransaction(ctx context.Context, txn model.Transaction) error {
	if txn.ID == f.failID {
		return errDiskFull
	}
	return f.Store.UpsertTransaction(ctx, txn)
}

func TestRun_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	s := &failingStore{Store: memstore.New(), failID: "BG11ZZ2"}

	msgs := []model.RawMessage{
		msg("m1", drawdownMsg, day(6, 12)),
		msg("m2", buygoodsMsg, day(8, 13)),
		msg("m3", sentMsg, day(8, 14)),
	}
	res, err := New(s, eat, WithClock(func() time.Time { return asOf })).Run(ctx, msgs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, 2, res.Scanned, "stops at the failing message")

	marked := map[string]bool{}
	for _, id := range []string{"m1", "m2", "m3"} {
		ok, err := s.IsMessageProcessed(ctx, id)
		require.NoError(t, err)
		marked[id] = ok
	}
	assert.Equal(t, map[string]bool{"m1": true, "m2": false, "m3": false}, marked)

	_, err = s.GetTransaction(ctx, "FEES-2025-03")
	assert.NoError(t, err, "fees are refreshed for credits stored before the failure")

	// The next run retries the failed message.
	s.failID = ""
	res, err = New(s, eat, WithClock(func() time.Time { return asOf })).Run(ctx, msgs)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.NewTransactions)
}

func TestRun_LogsSummary(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))

	_, err := newPipeline(memstore.New()).Run(ctx, []model.RawMessage{msg("m1", malformed, day(5, 10))})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "ingest finished")
	assert.Contains(t, buf.String(), "malformed amount")
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newPipeline(memstore.New()).Run(ctx, []model.RawMessage{msg("m1", sentMsg, day(5, 10))})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Scanned)
}

func TestPreview(t *testing.T) {
	got := newPipeline(memstore.New()).Preview([]model.RawMessage{
		msg("m1", sentMsg, day(5, 10)),
		msg("m2", drawdownMsg, day(6, 12)),
		msg("m3", malformed, day(6, 13)),
	})
	require.Len(t, got, 3)
	assert.Equal(t, "standard", got[0].Kind)
	assert.Equal(t, "AB12CD", got[0].TxnID)
	assert.Equal(t, "1200.00", got[0].Amount)
	assert.Equal(t, "credit_drawdown", got[1].Kind)
	assert.Equal(t, "unrecognized", got[2].Kind)
	assert.Error(t, got[2].Reason)
}

func TestPreviewMessages_NoStore(t *testing.T) {
	got := PreviewMessages(extract.Default(eat), []model.RawMessage{
		msg("m1", repayMsg, day(7, 9)),
		msg("m2", "hello", day(7, 10)),
	})
	require.Len(t, got, 2)
	assert.Equal(t, "credit_repayment", got[0].Kind)
	assert.Equal(t, "FZ20CD7", got[0].TxnID)
	assert.Equal(t, "244.15", got[0].Amount)
	assert.Equal(t, "unrecognized", got[1].Kind)
	assert.Empty(t, got[1].TxnID)
}
