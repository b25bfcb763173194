package ingest

import (
	"github.com/cleared-dev/tally/internal/extract"
	"github.com/cleared-dev/tally/internal/model"
)

// Preview describes what Run would do with one message, without touching
// the store.
type Preview struct {
	ExternalID string
	Kind       string // standard, credit_drawdown, credit_repayment or unrecognized
	TxnID      string
	Amount     string
	Direction  model.Direction
	Reason     error // why an extraction failed, if it did
}

// Preview extracts every message with the pipeline's extractor.
func (p *Pipeline) Preview(msgs []model.RawMessage) []Preview {
	return PreviewMessages(p.extractor, msgs)
}

// PreviewMessages extracts every message and reports the outcome. It needs
// no store, so a dry run can call it without opening one.
func PreviewMessages(ex *extract.Extractor, msgs []model.RawMessage) []Preview {
	out := make([]Preview, 0, len(msgs))
	for _, msg := range msgs {
		ev, reason := ex.Parse(msg.Body)
		pv := Preview{ExternalID: msg.ExternalID, Kind: "unrecognized", Reason: reason}

		var txn model.Transaction
		switch e := ev.(type) {
		case model.StandardTransaction:
			txn = e.Transaction(msg.Body)
		case model.CreditDrawdown:
			txn = e.Transaction(msg.Body)
		case model.CreditRepayment:
			txn = e.Transaction(msg.Body)
		default:
			out = append(out, pv)
			continue
		}
		pv.Kind = string(txn.Kind)
		pv.TxnID = txn.ID
		pv.Amount = txn.Amount.StringFixed(2)
		pv.Direction = txn.Direction
		out = append(out, pv)
	}
	return out
}
