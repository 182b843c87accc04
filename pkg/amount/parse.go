package amount

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Locale describes how a statement writes numbers.
type Locale struct {
	Thousands string `yaml:"thousands"`
	Decimal   string `yaml:"decimal"`
}

var (
	// Plain is "1234.56" with no grouping.
	Plain = Locale{Decimal: "."}
	// English is "1,234.56".
	English = Locale{Thousands: ",", Decimal: "."}
	// German is "1.234,56".
	German = Locale{Thousands: ".", Decimal: ","}
	// Comma is "1234,56" with no grouping (spaces are always dropped).
	Comma = Locale{Decimal: ","}
)

var errEmptyNumber = errors.New("empty number")

// ParseNumber converts a locale formatted number into an exact decimal.
// Spaces, non-breaking spaces and apostrophes are treated as grouping and dropped.
// A trailing minus ("12.50-") is accepted.
func ParseNumber(s string, loc Locale) (decimal.Decimal, error) {
	norm := normalize(s, loc)
	if norm == "" {
		return decimal.Zero, errEmptyNumber
	}
	d, err := decimal.NewFromString(norm)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return d, nil
}

// ParseNumberOrZero is ParseNumber that maps malformed or empty input to zero.
func ParseNumberOrZero(s string, loc Locale) decimal.Decimal {
	d, err := ParseNumber(s, loc)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func normalize(s string, loc Locale) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', ' ', ' ', '\'', '’':
			return -1
		case '−': // unicode minus sign
			return '-'
		}
		return r
	}, s)
	if loc.Thousands != "" && loc.Thousands != loc.Decimal {
		s = strings.ReplaceAll(s, loc.Thousands, "")
	}
	if loc.Decimal != "" && loc.Decimal != "." {
		s = strings.ReplaceAll(s, loc.Decimal, ".")
	}
	s = strings.TrimPrefix(s, "+")
	if len(s) > 1 && strings.HasSuffix(s, "-") && !strings.HasPrefix(s, "-") {
		s = "-" + strings.TrimSuffix(s, "-")
	}
	return s
}
