package extract

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
)

// Pattern fragments shared by the grammars. Bodies are whitespace-normalized
// before matching, so a single space stands for any run of whitespace.
const (
	codePart  = `(?P<code>[A-Z0-9]{6,12})`
	phonePart = `(?:\+?254|0)\d{9}`
	whenPart  = `(?P<date>\d{1,2}/\d{1,2}/\d{2}) at (?P<time>\d{1,2}:\d{2} ?[AP]M)`
	mpesa     = `M-?PESA`
)

// money matches a currency marker followed by an amount captured as name.
// The capture is deliberately loose ("1.200.00") so a bad amount is reported
// as malformed instead of silently falling through to the next grammar.
func money(name string) string {
	return `(?:Ksh|KES)\.? ?(?P<` + name + `>[\d,]+(?:\.\d+)*)`
}

func walletTail() string {
	return `\.? ?New ` + mpesa + ` balance is ` + money("balance") +
		`\.?(?: ?Transaction cost,? ` + money("fee") + `)?`
}

func mustCompile(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + pattern)
}

type grammar struct {
	name  string
	re    *regexp.Regexp
	build func(f fields) (model.Event, error)
}

func (g *grammar) Name() string { return g.name }

func (g *grammar) Match(text string) (model.Event, error) {
	f := capture(g.re, text)
	if f == nil {
		return nil, nil
	}
	ev, err := g.build(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.name, err)
	}
	return ev, nil
}

// builtinGrammars returns the grammars in priority order. Pay-bill comes
// before sent because "sent to X for account N" also satisfies the sent
// pattern.
func builtinGrammars(loc *time.Location) []Grammar {
	return []Grammar{
		&grammar{
			name: "mpesa-paybill",
			re: mustCompile(`^` + codePart + ` Confirmed\.? ?` + money("amount") +
				` sent to (?P<name>.+?) for account (?P<account>\S+?) on ` + whenPart + walletTail()),
			build: standard(model.ChannelPayBill, model.DirectionSent, loc),
		},
		&grammar{
			name: "mpesa-buygoods",
			re: mustCompile(`^` + codePart + ` Confirmed\.? ?` + money("amount") +
				` paid to (?P<name>.+?)\.? on ` + whenPart + walletTail()),
			build: standard(model.ChannelBuyGoods, model.DirectionSent, loc),
		},
		&grammar{
			name: "mpesa-sent",
			re: mustCompile(`^` + codePart + ` Confirmed\.? ?` + money("amount") +
				` sent to (?P<name>.+?)(?: (?P<party>` + phonePart + `))? on ` + whenPart + walletTail()),
			build: standard(model.ChannelSent, model.DirectionSent, loc),
		},
		&grammar{
			name: "mpesa-received",
			re: mustCompile(`^` + codePart + ` Confirmed\.? ?You have received ` + money("amount") +
				` from (?P<name>.+?)(?: (?P<party>` + phonePart + `))? on ` + whenPart +
				`\.? ?New ` + mpesa + ` balance is ` + money("balance")),
			build: standard(model.ChannelReceived, model.DirectionReceived, loc),
		},
		&grammar{
			name: "mpesa-withdrawal",
			re: mustCompile(`^` + codePart + ` Confirmed\.? ?on ` + whenPart + ` ?Withdraw ` + money("amount") +
				` from (?P<party>\d+) - (?P<name>.+?)` + walletTail()),
			build: standard(model.ChannelWithdrawal, model.DirectionSent, loc),
		},
		&grammar{
			name: "bank-transfer",
			re: mustCompile(`^(?:Dear Customer,? )?Your transfer of ` + money("amount") +
				` from (?:account|A/C) (?P<account>\S+) to (?P<name>.+?)(?: (?P<party>` + phonePart + `))? on ` + whenPart +
				` was successful\.? ?Ref:? (?P<code>[A-Z0-9]+)\.?` +
				`(?: ?Transaction fee:? ` + money("fee") + `\.?)?` +
				`(?: ?Available balance:? ` + money("balance") + `)?`),
			build: standard(model.ChannelBankTransfer, model.DirectionSent, loc),
		},
		&grammar{
			name: "bank-receipt",
			re: mustCompile(`^(?:Dear Customer,? )?Your account (?P<account>\S+) has been credited with ` + money("amount") +
				` from (?P<name>.+?)(?: (?P<party>` + phonePart + `))? on ` + whenPart +
				`\.? ?Ref:? (?P<code>[A-Z0-9]+)\.?` +
				`(?: ?Available balance:? ` + money("balance") + `)?`),
			build: standard(model.ChannelBankReceipt, model.DirectionReceived, loc),
		},
		&grammar{
			name: "bank-card-purchase",
			re: mustCompile(`^Your (?:\w+ )?card (?P<account>\S+) (?:was|has been) used for ` + money("amount") +
				` at (?P<name>.+?) on ` + whenPart +
				`\.?(?: ?Available balance:? ` + money("balance") + `)?`),
			build: standard(model.ChannelCardPurchase, model.DirectionSent, loc),
		},
		&grammar{
			name: "fuliza-drawdown",
			re: mustCompile(`^` + codePart + ` Confirmed\.? ?Fuliza ` + mpesa + ` amount is ` + money("amount") +
				`\.? ?Access Fee charged ` + money("access") +
				`(?:\.? ?Total Fuliza ` + mpesa + ` outstanding amount is ` + money("outstanding") +
				`(?: due on (?P<due>\d{1,2}/\d{1,2}/\d{2,4}))?)?`),
			build: drawdown(loc),
		},
		&grammar{
			name: "fuliza-repayment",
			re: mustCompile(`^` + codePart + ` Confirmed\.? ?` + money("amount") +
				` from your ` + mpesa + ` has been used to (?P<extent>fully|partially) pay your outstanding Fuliza ` + mpesa + `\.?` +
				`(?: ?Available Fuliza ` + mpesa + ` limit is ` + money("limit") + `\.?)?` +
				`(?: ?(?:Your )?(?:Total )?(?:Fuliza ` + mpesa + ` )?outstanding (?:amount|balance) is ` + money("outstanding") + `)?`),
			build: repayment(),
		},
	}
}

func standard(channel model.Channel, dir model.Direction, loc *time.Location) func(fields) (model.Event, error) {
	return func(f fields) (model.Event, error) {
		amount, err := f.money("amount")
		if err != nil {
			return nil, err
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("%w: %q is not positive", ErrMalformedAmount, f["amount"])
		}
		balance, err := f.optionalMoney("balance")
		if err != nil {
			return nil, err
		}
		fee, err := f.optionalMoney("fee")
		if err != nil {
			return nil, err
		}
		occurred, err := parseDateTime(f["date"], f["time"], loc)
		if err != nil {
			return nil, err
		}

		code := strings.ToUpper(f["code"])
		if code == "" {
			code = id.CardPurchaseID(f["name"], f["date"], f["time"])
		}

		return model.StandardTransaction{
			ConfirmationCode: code,
			Channel:          channel,
			Amount:           amount,
			Direction:        dir,
			CounterpartyID:   counterpartyID(f["party"], f["name"]),
			CounterpartyName: f["name"],
			OccurredAt:       occurred,
			PostBalance:      balance,
			FeeCharged:       fee,
		}, nil
	}
}

// Credit messages carry no timestamp in their text; OccurredAt is left zero
// for the caller to fill from the message receive time.
func drawdown(loc *time.Location) func(fields) (model.Event, error) {
	return func(f fields) (model.Event, error) {
		amount, err := f.money("amount")
		if err != nil {
			return nil, err
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("%w: %q is not positive", ErrMalformedAmount, f["amount"])
		}
		access, err := f.optionalMoney("access")
		if err != nil {
			return nil, err
		}
		outstanding, err := f.optionalMoneyPtr("outstanding")
		if err != nil {
			return nil, err
		}
		due, err := parseDueDate(f["due"], loc)
		if err != nil {
			return nil, err
		}
		return model.CreditDrawdown{
			ConfirmationCode: strings.ToUpper(f["code"]),
			Amount:           amount,
			AccessFee:        access,
			OutstandingAfter: outstanding,
			DueDate:          due,
		}, nil
	}
}

func repayment() func(fields) (model.Event, error) {
	return func(f fields) (model.Event, error) {
		amount, err := f.money("amount")
		if err != nil {
			return nil, err
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("%w: %q is not positive", ErrMalformedAmount, f["amount"])
		}
		outstanding, err := f.optionalMoneyPtr("outstanding")
		if err != nil {
			return nil, err
		}
		r := model.CreditRepayment{
			ConfirmationCode: strings.ToUpper(f["code"]),
			Amount:           amount,
			OutstandingAfter: outstanding,
		}
		if strings.EqualFold(f["extent"], "fully") {
			zero := decimal.Zero
			r.OutstandingAfter = &zero
			r.FullyPaid = true
		}
		return r, nil
	}
}
