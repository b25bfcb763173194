package overdraft

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMaintenanceFee(t *testing.T) {
	tests := []struct {
		balance string
		want    string
	}{
		{"-5", "0"},
		{"0", "0"},
		{"100", "0"},
		{"100.01", "3"},
		{"244.15", "3"},
		{"500", "3"},
		{"500.01", "6"},
		{"1000", "6"},
		{"1000.01", "18"},
		{"1500", "18"},
		{"2500", "20"},
		{"2500.01", "25"},
		{"70000", "25"},
		{"70000.01", "30"},
		{"1000000", "30"},
	}
	for _, tt := range tests {
		got := MaintenanceFee(decimal.RequireFromString(tt.balance))
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "MaintenanceFee(%s) = %s, want %s", tt.balance, got, tt.want)
	}
}
