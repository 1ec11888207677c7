package domain

import "github.com/shopspring/decimal"

// FormatCents renders a minor-unit USD amount as "$12.34".
func FormatCents(cents int64) string {
	d := decimal.New(cents, -2)
	if d.IsNegative() {
		return "-$" + d.Neg().StringFixed(2)
	}
	return "$" + d.StringFixed(2)
}
