package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/tally/internal/model"
)

func TestValidate(t *testing.T) {
	valid := rule("late", "food", cond(model.FieldTime, model.OpBetween, "22", "4"))

	tests := []struct {
		name    string
		mutate  func(r *model.AutomationRule)
		wantErr string
	}{
		{"valid", func(r *model.AutomationRule) {}, ""},
		{"no name", func(r *model.AutomationRule) { r.Name = "" }, "name is required"},
		{"no target", func(r *model.AutomationRule) { r.TargetCategoryID = "" }, "target category"},
		{"bad type", func(r *model.AutomationRule) { r.AppliesTo = "TRANSFER" }, "applies_to"},
		{"no conditions", func(r *model.AutomationRule) { r.Conditions = nil }, "at least one condition"},
		{"unknown field", func(r *model.AutomationRule) {
			r.Conditions = []model.Condition{cond("WEEKDAY", model.OpEquals, "1")}
		}, "unknown field"},
		{"contains on amount", func(r *model.AutomationRule) {
			r.Conditions = []model.Condition{cond(model.FieldAmount, model.OpContains, "1")}
		}, "not allowed"},
		{"hour out of range", func(r *model.AutomationRule) {
			r.Conditions = []model.Condition{cond(model.FieldTime, model.OpBetween, "22", "24")}
		}, "0-23"},
		{"bad amount", func(r *model.AutomationRule) {
			r.Conditions = []model.Condition{cond(model.FieldAmount, model.OpGreaterThan, "abc")}
		}, "amount"},
		{"empty amount range", func(r *model.AutomationRule) {
			r.Conditions = []model.Condition{cond(model.FieldAmount, model.OpBetween, "10", "5")}
		}, "empty"},
		{"empty description", func(r *model.AutomationRule) {
			r.Conditions = []model.Condition{cond(model.FieldDescription, model.OpContains, "")}
		}, "description text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			r.Conditions = append([]model.Condition(nil), valid.Conditions...)
			tt.mutate(&r)
			err := Validate(r)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
