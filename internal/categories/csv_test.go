package categories

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/tally/internal/model"
)

func TestRoundTrip(t *testing.T) {
	cats := []model.Category{
		{ID: "food", Name: "Food & Groceries", Type: model.CategoryTypeExpense},
		{ID: "transport", Name: "Transport", Type: model.CategoryTypeExpense, Description: "Matatu, fuel, ride hailing"},
		{ID: "salary", Name: "Salary", Type: model.CategoryTypeIncome},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCategories(&buf, cats))

	got, err := ReadCategories(&buf)
	require.NoError(t, err)
	assert.Equal(t, cats, got)
}

func TestReadCategories_Empty(t *testing.T) {
	got, err := ReadCategories(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUnmarshalCategory_Errors(t *testing.T) {
	tests := []struct {
		name   string
		record []string
	}{
		{"short row", []string{"food", "Food"}},
		{"empty id", []string{"", "Food", "expense", ""}},
		{"bad type", []string{"food", "Food", "asset", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalCategory(tt.record)
			assert.Error(t, err)
		})
	}
}

func TestReadCategories_ReportsRow(t *testing.T) {
	in := "category_id,name,type,description\nfood,Food,expense,\nrent,Rent,liability,\n"
	_, err := ReadCategories(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
}

func TestDefaultChart(t *testing.T) {
	chart := DefaultChart()
	require.NotEmpty(t, chart)

	ids := make(map[string]bool)
	for _, c := range chart {
		assert.False(t, ids[c.ID], "duplicate category %s", c.ID)
		ids[c.ID] = true
		assert.NotEmpty(t, c.Name, "category %s missing name", c.ID)
		assert.NotEmpty(t, c.Type, "category %s missing type", c.ID)
	}
	assert.True(t, ids[FeesCategoryID], "fees category must be present")
	assert.True(t, ids["salary"])
}
