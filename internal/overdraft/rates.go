package overdraft

import "github.com/shopspring/decimal"

type band struct {
	upTo decimal.Decimal // inclusive upper bound
	fee  decimal.Decimal
}

// maintenanceBands is the daily maintenance fee tariff, ordered by bound.
var maintenanceBands = []band{
	{decimal.NewFromInt(100), decimal.Zero},
	{decimal.NewFromInt(500), decimal.NewFromInt(3)},
	{decimal.NewFromInt(1000), decimal.NewFromInt(6)},
	{decimal.NewFromInt(1500), decimal.NewFromInt(18)},
	{decimal.NewFromInt(2500), decimal.NewFromInt(20)},
	{decimal.NewFromInt(70000), decimal.NewFromInt(25)},
}

var maxMaintenanceFee = decimal.NewFromInt(30)

// MaintenanceFee returns the daily maintenance fee for an end-of-day
// outstanding balance.
func MaintenanceFee(balance decimal.Decimal) decimal.Decimal {
	for _, b := range maintenanceBands {
		if balance.LessThanOrEqual(b.upTo) {
			return b.fee
		}
	}
	return maxMaintenanceFee
}
