package format

import "testing"

func TestCurrency(t *testing.T) {
	tests := []struct {
		name     string
		amount   float64
		expected string
	}{
		{"Reference tax base", 5250, "5,250.00"},
		{"Float noise rounds", 787.4999999999999, "787.50"},
		{"Small value", 7.5, "7.50"},
		{"Millions", 1234567.891, "1,234,567.89"},
		{"Negative delta", -1437.5, "-1,437.50"},
		{"Zero", 0, "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Currency(tt.amount); got != tt.expected {
				t.Errorf("Currency(%v) = %q, expected %q", tt.amount, got, tt.expected)
			}
		})
	}
}

func TestNumericFormats(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"NumericCurrency", NumericCurrency(6250), "6250.00"},
		{"NumericCurrency rounding", NumericCurrency(937.4999999999999), "937.50"},
		{"Percent", Percent(15), "15.00%"},
		{"Percent fractional", Percent(3.25), "3.25%"},
		{"Factor", Factor(1.05), "1.050"},
		{"Factor rounding", Factor(1.1576250000000001), "1.158"},
		{"Ratio", Ratio(0.5), "0.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("%s = %q, expected %q", tt.name, tt.got, tt.expected)
			}
		})
	}
}
