package utils

import "github.com/shopspring/decimal"

// Round2 rounds d half away from zero to 2 decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// HasAtMostTwoPlaces reports whether d fits a numeric(12,2) column without rounding.
func HasAtMostTwoPlaces(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

// FitsMoneyColumn reports whether d fits numeric(12,2).
func FitsMoneyColumn(d decimal.Decimal) bool {
	return HasAtMostTwoPlaces(d) && d.Abs().LessThan(decimal.New(1, 10))
}
