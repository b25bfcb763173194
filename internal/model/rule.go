package model

// RuleType selects which transactions an automation rule applies to.
type RuleType string

const (
	RuleTypeExpense RuleType = "EXPENSE"
	RuleTypeIncome  RuleType = "INCOME"
)

// ConditionField is the transaction attribute a condition inspects.
type ConditionField string

const (
	FieldTime        ConditionField = "TIME"
	FieldAmount      ConditionField = "AMOUNT"
	FieldDescription ConditionField = "DESCRIPTION"
)

// ConditionOperator compares a field against the condition value(s).
type ConditionOperator string

const (
	OpBetween     ConditionOperator = "BETWEEN"
	OpGreaterThan ConditionOperator = "GREATER_THAN"
	OpLessThan    ConditionOperator = "LESS_THAN"
	OpEquals      ConditionOperator = "EQUALS"
	OpContains    ConditionOperator = "CONTAINS"
)

// Condition is one predicate of a rule. UpperValue is only used by BETWEEN.
type Condition struct {
	Field      ConditionField    `yaml:"field"`
	Operator   ConditionOperator `yaml:"operator"`
	Value      string            `yaml:"value"`
	UpperValue string            `yaml:"upper_value,omitempty"`
}

// AutomationRule assigns TargetCategoryID when all Conditions hold.
type AutomationRule struct {
	ID               string      `yaml:"id"`
	Name             string      `yaml:"name"`
	AppliesTo        RuleType    `yaml:"applies_to"`
	Conditions       []Condition `yaml:"conditions"`
	TargetCategoryID string      `yaml:"target_category_id"`
	Enabled          bool        `yaml:"enabled"`
}
