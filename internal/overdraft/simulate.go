package overdraft

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/id"
	"github.com/cleared-dev/tally/internal/model"
)

// ErrEventAfterAsOf is reported (never returned) for credit events that
// occur after the simulation horizon. Such events are skipped.
var ErrEventAfterAsOf = errors.New("credit event after as-of time")

// Day is the simulated state at the end of one calendar day.
type Day struct {
	Date           time.Time
	Balance        decimal.Decimal
	AccessFee      decimal.Decimal
	MaintenanceFee decimal.Decimal
}

// Cost is the total fee attributed to the day.
func (d Day) Cost() decimal.Decimal {
	return d.AccessFee.Add(d.MaintenanceFee)
}

// Result holds the output of a replay.
type Result struct {
	Fees     map[string]decimal.Decimal // "YYYY-MM" -> access + maintenance fees
	Days     []Day
	Balance  decimal.Decimal // outstanding balance at the end of the last day
	Warnings []error
}

// Months returns the month keys with fees, oldest first.
func (r Result) Months() []string {
	keys := make([]string, 0, len(r.Fees))
	for k := range r.Fees {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Total returns the fees across all months.
func (r Result) Total() decimal.Decimal {
	total := decimal.Zero
	for _, v := range r.Fees {
		total = total.Add(v)
	}
	return total
}

type step struct {
	at        time.Time
	accessFee decimal.Decimal
	apply     func(balance decimal.Decimal) decimal.Decimal
}

// Simulate replays credit events one calendar day at a time, from the day of
// the earliest event through asOf, in asOf's location. Events other than
// CreditDrawdown and CreditRepayment are ignored. The input slice is not
// modified.
//
// An outstanding balance stated in a message always replaces the computed
// balance.
func Simulate(events []model.Event, asOf time.Time) Result {
	loc := asOf.Location()
	res := Result{Fees: make(map[string]decimal.Decimal), Balance: decimal.Zero}

	var steps []step
	for _, e := range events {
		s, code, ok := toStep(e)
		if !ok {
			continue
		}
		if s.at.After(asOf) {
			res.Warnings = append(res.Warnings, fmt.Errorf("%w: %s at %s", ErrEventAfterAsOf, code, s.at.Format(time.RFC3339)))
			continue
		}
		steps = append(steps, s)
	}
	if len(steps) == 0 {
		return res
	}

	sort.SliceStable(steps, func(i, j int) bool { return steps[i].at.Before(steps[j].at) })

	balance := decimal.Zero
	last := startOfDay(asOf, loc)
	next := 0
	for day := startOfDay(steps[0].at, loc); !day.After(last); day = day.AddDate(0, 0, 1) {
		end := day.AddDate(0, 0, 1)
		d := Day{Date: day, AccessFee: decimal.Zero}

		for next < len(steps) && steps[next].at.Before(end) {
			s := steps[next]
			balance = s.apply(balance)
			if s.accessFee.IsPositive() {
				d.AccessFee = d.AccessFee.Add(s.accessFee)
			}
			next++
		}

		d.Balance = balance
		d.MaintenanceFee = MaintenanceFee(balance)

		if cost := d.Cost(); !cost.IsZero() {
			key := id.MonthKey(day)
			res.Fees[key] = res.Fees[key].Add(cost)
		}
		res.Days = append(res.Days, d)
	}

	res.Balance = balance
	return res
}

func toStep(e model.Event) (step, string, bool) {
	switch ev := e.(type) {
	case model.CreditDrawdown:
		return step{
			at:        ev.OccurredAt,
			accessFee: ev.AccessFee,
			apply: func(balance decimal.Decimal) decimal.Decimal {
				if ev.OutstandingAfter != nil {
					return *ev.OutstandingAfter
				}
				return balance.Add(ev.Amount).Add(ev.AccessFee)
			},
		}, ev.ConfirmationCode, true
	case model.CreditRepayment:
		return step{
			at:        ev.OccurredAt,
			accessFee: decimal.Zero,
			apply: func(balance decimal.Decimal) decimal.Decimal {
				if ev.OutstandingAfter != nil {
					return *ev.OutstandingAfter
				}
				if ev.FullyPaid {
					return decimal.Zero
				}
				return decimal.Max(decimal.Zero, balance.Sub(ev.Amount))
			},
		}, ev.ConfirmationCode, true
	default:
		return step{}, "", false
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// FeeTransactions turns the monthly totals into synthetic SENT ledger entries
// with IDs "FEES-YYYY-MM", dated on the first day of the month in loc.
func FeeTransactions(res Result, loc *time.Location) ([]model.Transaction, error) {
	txns := make([]model.Transaction, 0, len(res.Fees))
	for _, key := range res.Months() {
		feeID := id.FeeIDForMonthKey(key)
		year, month, err := id.ParseFeeID(feeID)
		if err != nil {
			return nil, fmt.Errorf("building fee transaction for %s: %w", key, err)
		}
		txns = append(txns, model.Transaction{
			ID:               feeID,
			Kind:             model.KindOverdraftFees,
			Channel:          model.ChannelFees,
			Amount:           res.Fees[key].Round(2),
			Direction:        model.DirectionSent,
			CounterpartyID:   model.CreditFacilityID,
			CounterpartyName: model.CreditFacilityName + " fees",
			OccurredAt:       time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc),
			Description:      fmt.Sprintf("Overdraft access and maintenance fees for %s", key),
		})
	}
	return txns, nil
}
