package models

import "github.com/shopspring/decimal"

// Dollars builds a decimal USD amount from a float
func Dollars(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// ToFloat64 safely converts decimal to float64
func ToFloat64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
