package rules

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/tally/internal/model"
)

var allowedOperators = map[model.ConditionField][]model.ConditionOperator{
	model.FieldTime:        {model.OpBetween, model.OpEquals, model.OpGreaterThan, model.OpLessThan},
	model.FieldAmount:      {model.OpBetween, model.OpEquals, model.OpGreaterThan, model.OpLessThan},
	model.FieldDescription: {model.OpContains, model.OpEquals},
}

// Validate checks that a rule can be evaluated. All problems are joined
// into the returned error.
func Validate(r model.AutomationRule) error {
	var errs []error
	if r.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if r.TargetCategoryID == "" {
		errs = append(errs, errors.New("target category is required"))
	}
	if r.AppliesTo != model.RuleTypeExpense && r.AppliesTo != model.RuleTypeIncome {
		errs = append(errs, fmt.Errorf("applies_to must be %s or %s, got %q", model.RuleTypeExpense, model.RuleTypeIncome, r.AppliesTo))
	}
	if len(r.Conditions) == 0 {
		errs = append(errs, errors.New("at least one condition is required"))
	}
	for i, c := range r.Conditions {
		if err := validateCondition(c); err != nil {
			errs = append(errs, fmt.Errorf("condition %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

func validateCondition(c model.Condition) error {
	ops, ok := allowedOperators[c.Field]
	if !ok {
		return fmt.Errorf("unknown field %q", c.Field)
	}
	legal := false
	for _, op := range ops {
		if op == c.Operator {
			legal = true
			break
		}
	}
	if !legal {
		return fmt.Errorf("operator %s not allowed for %s", c.Operator, c.Field)
	}

	switch c.Field {
	case model.FieldTime:
		if _, ok := parseHour(c.Value); !ok {
			return fmt.Errorf("hour %q must be 0-23", c.Value)
		}
		if c.Operator == model.OpBetween {
			if _, ok := parseHour(c.UpperValue); !ok {
				return fmt.Errorf("hour %q must be 0-23", c.UpperValue)
			}
		}
	case model.FieldAmount:
		lo, err := decimal.NewFromString(c.Value)
		if err != nil {
			return fmt.Errorf("amount %q: %w", c.Value, err)
		}
		if c.Operator == model.OpBetween {
			hi, err := decimal.NewFromString(c.UpperValue)
			if err != nil {
				return fmt.Errorf("amount %q: %w", c.UpperValue, err)
			}
			if hi.LessThan(lo) {
				return fmt.Errorf("amount range %s..%s is empty", lo, hi)
			}
		}
	case model.FieldDescription:
		if c.Value == "" {
			return errors.New("description text is required")
		}
	}
	return nil
}
