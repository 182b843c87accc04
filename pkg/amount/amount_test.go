package amount

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		locale   Locale
		expected string
	}{
		{"german grouping", "1.234,56", German, "1234.56"},
		{"german negative", "-12,50", German, "-12.5"},
		{"english grouping", "1,234.56", English, "1234.56"},
		{"plain", "1234.56", Plain, "1234.56"},
		{"swiss apostrophe", "1'234.50", Plain, "1234.5"},
		{"space grouping", "-1 234,50", Comma, "-1234.5"},
		{"explicit plus", "+15", Plain, "15"},
		{"trailing minus", "99.90-", Plain, "-99.9"},
		{"quantity with comma", "1,000", English, "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNumber(tt.input, tt.locale)
			if err != nil {
				t.Fatalf("ParseNumber(%q) error = %v", tt.input, err)
			}
			if Canonical(got) != tt.expected {
				t.Errorf("ParseNumber(%q) = %s, expected %s", tt.input, Canonical(got), tt.expected)
			}
		})
	}
}

func TestParseNumberOrZero(t *testing.T) {
	for _, input := range []string{"", "abc", "n/a", "12,34,56.x"} {
		t.Run(input, func(t *testing.T) {
			got := ParseNumberOrZero(input, German)
			if !got.IsZero() {
				t.Errorf("ParseNumberOrZero(%q) = %s, expected 0", input, got)
			}
		})
	}
	if _, err := ParseNumber("", Plain); err == nil {
		t.Error("ParseNumber(\"\") expected an error")
	}
}

func TestAmountArithmetic(t *testing.T) {
	a := New(decimal.RequireFromString("10.10"), "CHF")
	b := New(decimal.RequireFromString("0.20"), "CHF")

	if got := a.Add(b); !got.Equal(New(decimal.RequireFromString("10.3"), "CHF")) {
		t.Errorf("Add() = %s", got)
	}
	if got := a.Sub(b).Neg(); got.String() != "-9.9 CHF" {
		t.Errorf("Sub().Neg() = %s", got)
	}
	if got := Zero("").Add(b); got.Currency != "CHF" {
		t.Errorf("empty currency should be weak, got %q", got.Currency)
	}

	defer func() {
		if recover() == nil {
			t.Error("Add() with mismatched currencies should panic")
		}
	}()
	a.Add(New(decimal.NewFromInt(1), "EUR"))
}

func TestRound(t *testing.T) {
	tests := []struct {
		input    Amount
		expected string
	}{
		{New(decimal.RequireFromString("12.345"), "CHF"), "12.35 CHF"},
		{New(decimal.RequireFromString("1234.5"), "JPY"), "1235 JPY"},
		{New(decimal.RequireFromString("1.23456"), "AAPL"), "1.23456 AAPL"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.input.Round().String(); got != tt.expected {
				t.Errorf("Round() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestValidCurrency(t *testing.T) {
	if !ValidCurrency("chf") || !ValidCurrency("CZK") {
		t.Error("expected CHF and CZK to be valid")
	}
	if ValidCurrency("XYZ1") {
		t.Error("expected XYZ1 to be invalid")
	}
}
