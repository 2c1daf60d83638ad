package utils

import "github.com/shopspring/decimal"

// Money helpers.  All prices and totals flow through decimal.Decimal; the
// database columns are DECIMAL(10,2) and every amount handed back to a
// client is rounded to two places with Round2.

// LineSubtotal returns unit price multiplied by quantity.  The unit price
// is the snapshot taken at order time, not the live product price.
func LineSubtotal(unitPrice decimal.Decimal, quantity uint32) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Round2 rounds an amount to two decimal places (half away from zero, the
// usual money rounding).
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// SumSubtotals adds the given line subtotals and rounds the result to two
// decimal places.  The created order's total must equal this sum exactly.
func SumSubtotals(subtotals []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, s := range subtotals {
		total = total.Add(s)
	}
	return Round2(total)
}
