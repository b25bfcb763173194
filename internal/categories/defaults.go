package categories

import "github.com/cleared-dev/tally/internal/model"

// FeesCategoryID is the category assigned to monthly overdraft fee rows.
const FeesCategoryID = "fees"

// DefaultChart returns the category chart written by `tally init`.
func DefaultChart() []model.Category {
	return []model.Category{
		{ID: "food", Name: "Food & Groceries", Type: model.CategoryTypeExpense},
		{ID: "transport", Name: "Transport", Type: model.CategoryTypeExpense, Description: "Matatu, fuel, ride hailing"},
		{ID: "utilities", Name: "Utilities", Type: model.CategoryTypeExpense, Description: "Power, water, internet"},
		{ID: "airtime", Name: "Airtime & Data", Type: model.CategoryTypeExpense},
		{ID: "rent", Name: "Rent", Type: model.CategoryTypeExpense},
		{ID: "shopping", Name: "Shopping", Type: model.CategoryTypeExpense},
		{ID: "cash", Name: "Cash Withdrawal", Type: model.CategoryTypeExpense},
		{ID: "family", Name: "Family & Friends", Type: model.CategoryTypeExpense},
		{ID: "transfers", Name: "Transfers Out", Type: model.CategoryTypeExpense, Description: "Moves between own accounts"},
		{ID: FeesCategoryID, Name: "Overdraft Fees", Type: model.CategoryTypeExpense, Description: "Fuliza access and maintenance fees"},
		{ID: "salary", Name: "Salary", Type: model.CategoryTypeIncome},
		{ID: "business", Name: "Business Income", Type: model.CategoryTypeIncome},
		{ID: "gifts", Name: "Gifts", Type: model.CategoryTypeIncome},
		{ID: "transfers-in", Name: "Transfers In", Type: model.CategoryTypeIncome, Description: "Moves between own accounts"},
	}
}
