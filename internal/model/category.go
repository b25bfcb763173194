package model

// CategoryType classifies categories by the side of the ledger they collect.
type CategoryType string

const (
	CategoryTypeExpense CategoryType = "expense"
	CategoryTypeIncome  CategoryType = "income"
)

// Category represents a row in categories.csv.
type Category struct {
	ID          string
	Name        string
	Type        CategoryType
	Description string
}
