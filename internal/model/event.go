package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Channel names the message grammar family a standard transaction came from.
type Channel string

const (
	ChannelSent         Channel = "sent"
	ChannelReceived     Channel = "received"
	ChannelPayBill      Channel = "paybill"
	ChannelBuyGoods     Channel = "buygoods"
	ChannelWithdrawal   Channel = "withdrawal"
	ChannelBankTransfer Channel = "bank_transfer"
	ChannelBankReceipt  Channel = "bank_receipt"
	ChannelCardPurchase Channel = "card_purchase"
	ChannelCredit       Channel = "credit"
	ChannelFees         Channel = "fees"
)

// Event is the result of extracting one message body. It is one of
// StandardTransaction, CreditDrawdown, CreditRepayment or Unrecognized.
type Event interface {
	isEvent()
}

// StandardTransaction is a money movement to or from a counterparty.
type StandardTransaction struct {
	ConfirmationCode string
	Channel          Channel
	Amount           decimal.Decimal
	Direction        Direction
	CounterpartyID   string
	CounterpartyName string
	OccurredAt       time.Time
	PostBalance      decimal.Decimal
	FeeCharged       decimal.Decimal
}

// CreditDrawdown is a draw on the overdraft facility.
// OutstandingAfter is authoritative when non-nil.
type CreditDrawdown struct {
	ConfirmationCode string
	Amount           decimal.Decimal
	AccessFee        decimal.Decimal
	OutstandingAfter *decimal.Decimal
	DueDate          time.Time
	OccurredAt       time.Time
}

// CreditRepayment pays down the overdraft facility. A message stating the
// facility is fully paid sets FullyPaid and OutstandingAfter to zero.
type CreditRepayment struct {
	ConfirmationCode string
	Amount           decimal.Decimal
	OutstandingAfter *decimal.Decimal
	FullyPaid        bool
	OccurredAt       time.Time
}

// Unrecognized marks a message that matched no grammar.
type Unrecognized struct{}

func (StandardTransaction) isEvent() {}
func (CreditDrawdown) isEvent()      {}
func (CreditRepayment) isEvent()     {}
func (Unrecognized) isEvent()        {}

// Transaction converts the event into a ledger entry.
func (e StandardTransaction) Transaction(body string) Transaction {
	return Transaction{
		ID:               e.ConfirmationCode,
		Kind:             KindStandard,
		Channel:          e.Channel,
		Amount:           e.Amount,
		Direction:        e.Direction,
		CounterpartyID:   e.CounterpartyID,
		CounterpartyName: e.CounterpartyName,
		OccurredAt:       e.OccurredAt,
		PostBalance:      e.PostBalance,
		FeeCharged:       e.FeeCharged,
		Description:      body,
	}
}

// Transaction converts the drawdown into a credit record. Drawn funds land
// in the wallet, so the record is RECEIVED.
func (e CreditDrawdown) Transaction(body string) Transaction {
	return Transaction{
		ID:               e.ConfirmationCode,
		Kind:             KindCreditDrawdown,
		Channel:          ChannelCredit,
		Amount:           e.Amount,
		Direction:        DirectionReceived,
		CounterpartyID:   CreditFacilityID,
		CounterpartyName: CreditFacilityName,
		OccurredAt:       e.OccurredAt,
		FeeCharged:       e.AccessFee,
		Description:      body,
		AccessFee:        e.AccessFee,
		OutstandingAfter: e.OutstandingAfter,
		DueDate:          e.DueDate,
	}
}

// Transaction converts the repayment into a credit record.
func (e CreditRepayment) Transaction(body string) Transaction {
	return Transaction{
		ID:               e.ConfirmationCode,
		Kind:             KindCreditRepayment,
		Channel:          ChannelCredit,
		Amount:           e.Amount,
		Direction:        DirectionSent,
		CounterpartyID:   CreditFacilityID,
		CounterpartyName: CreditFacilityName,
		OccurredAt:       e.OccurredAt,
		Description:      body,
		OutstandingAfter: e.OutstandingAfter,
	}
}

// Counterparty used for credit records and fee rows.
const (
	CreditFacilityID   = "FULIZA"
	CreditFacilityName = "Fuliza M-PESA"
)
