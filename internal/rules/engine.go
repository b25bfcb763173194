// Package rules evaluates user-defined automation rules against
// transactions and persists the rule list.
package rules

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
	"github.com/cleared-dev/tally/internal/store"
)

// Engine evaluates rules. TIME conditions read the hour of OccurredAt in
// Location; a nil Location uses the time's own location.
type Engine struct {
	Location *time.Location
}

// NewEngine returns an Engine that reads hours in loc.
func NewEngine(loc *time.Location) *Engine {
	return &Engine{Location: loc}
}

// Apply is Engine.Apply with a nil Location.
func Apply(rules []model.AutomationRule, txn model.Transaction) (string, bool) {
	return (&Engine{}).Apply(rules, txn)
}

// Apply returns the target category of the first enabled rule of the
// transaction's type whose conditions all hold.
func (e *Engine) Apply(rules []model.AutomationRule, txn model.Transaction) (string, bool) {
	typ := txn.Direction.RuleType()
	for _, r := range rules {
		if !r.Enabled || r.AppliesTo != typ {
			continue
		}
		if e.Matches(r, txn) {
			return r.TargetCategoryID, true
		}
	}
	return "", false
}

// Matches reports whether every condition of r holds for txn. The rule's
// type and enabled flag are not checked. A rule without conditions never
// matches.
func (e *Engine) Matches(r model.AutomationRule, txn model.Transaction) bool {
	if len(r.Conditions) == 0 {
		return false
	}
	for _, c := range r.Conditions {
		if !e.holds(c, txn) {
			return false
		}
	}
	return true
}

// ApplyToExisting re-evaluates r against every standard transaction of its
// type and overwrites the category of each match, including ones already
// categorized. It returns the number of rows updated.
func (e *Engine) ApplyToExisting(ctx context.Context, s store.TransactionStore, r model.AutomationRule) (int, error) {
	txns, err := s.ListTransactionsSince(ctx, time.Time{})
	if err != nil {
		return 0, fmt.Errorf("listing transactions: %w", err)
	}

	updated := 0
	for _, txn := range txns {
		if txn.Kind != model.KindStandard || txn.Direction.RuleType() != r.AppliesTo {
			continue
		}
		if !e.Matches(r, txn) {
			continue
		}
		txn.CategoryID = r.TargetCategoryID
		if err := s.UpsertTransaction(ctx, txn); err != nil {
			return updated, fmt.Errorf("updating %s: %w", txn.ID, err)
		}
		updated++
	}
	return updated, nil
}

func (e *Engine) holds(c model.Condition, txn model.Transaction) bool {
	switch c.Field {
	case model.FieldTime:
		return e.holdsTime(c, txn.OccurredAt)
	case model.FieldAmount:
		return holdsAmount(c, txn.Amount)
	case model.FieldDescription:
		return holdsDescription(c, txn)
	}
	return false
}

func (e *Engine) holdsTime(c model.Condition, at time.Time) bool {
	if e.Location != nil {
		at = at.In(e.Location)
	}
	hour := at.Hour()

	start, ok := parseHour(c.Value)
	if !ok {
		return false
	}
	switch c.Operator {
	case model.OpBetween:
		end, ok := parseHour(c.UpperValue)
		if !ok {
			return false
		}
		if start <= end {
			return hour >= start && hour <= end
		}
		return hour >= start || hour <= end
	case model.OpEquals:
		return hour == start
	case model.OpGreaterThan:
		return hour > start
	case model.OpLessThan:
		return hour < start
	}
	return false
}

func holdsAmount(c model.Condition, amount decimal.Decimal) bool {
	v, err := decimal.NewFromString(strings.TrimSpace(c.Value))
	if err != nil {
		return false
	}
	switch c.Operator {
	case model.OpGreaterThan:
		return amount.GreaterThan(v)
	case model.OpLessThan:
		return amount.LessThan(v)
	case model.OpEquals:
		return amount.Equal(v)
	case model.OpBetween:
		upper, err := decimal.NewFromString(strings.TrimSpace(c.UpperValue))
		if err != nil {
			return false
		}
		return amount.GreaterThanOrEqual(v) && amount.LessThanOrEqual(upper)
	}
	return false
}

func holdsDescription(c model.Condition, txn model.Transaction) bool {
	text := txn.CounterpartyName
	if strings.TrimSpace(text) == "" {
		text = txn.Description
	}
	text = strings.ToLower(text)
	want := strings.ToLower(strings.TrimSpace(c.Value))
	if want == "" {
		return false
	}

	switch c.Operator {
	case model.OpContains:
		return strings.Contains(text, want)
	case model.OpEquals:
		return strings.TrimSpace(text) == want
	}
	return false
}

func parseHour(s string) (int, bool) {
	h, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}
