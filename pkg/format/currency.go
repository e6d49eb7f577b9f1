// Package format renders numbers for display with the fixed precision used
// across tables, reports and the API.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Currency returns an amount with two decimals and thousands separators
// (e.g. "5,250.00", "-1,234.56").
func Currency(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	return sign + groupThousands(d.StringFixed(2))
}

// NumericCurrency returns an amount with two decimals and no separators, for
// machine-readable output (e.g. "5250.00").
func NumericCurrency(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// Percent returns a percentage with two decimals and a percent sign
// (e.g. "15.00%").
func Percent(value float64) string {
	return decimal.NewFromFloat(value).StringFixed(2) + "%"
}

// Factor returns a growth multiplier with three decimals (e.g. "1.050").
func Factor(value float64) string {
	return decimal.NewFromFloat(value).StringFixed(3)
}

// Ratio returns a unitless weight with two decimals (e.g. "0.50").
func Ratio(value float64) string {
	return decimal.NewFromFloat(value).StringFixed(2)
}

func groupThousands(formatted string) string {
	parts := strings.SplitN(formatted, ".", 2)
	intPart := parts[0]
	decPart := "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	if len(intPart) > 3 {
		var builder strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				builder.WriteByte(',')
			}
			builder.WriteRune(digit)
		}
		intPart = builder.String()
	}

	return intPart + "." + decPart
}
