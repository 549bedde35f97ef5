package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// JSONNumber renders d as an unquoted JSON number. Domain types marshal
// their amounts through it; decoding accepts both numbers and strings.
func JSONNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

// ParseAmount parses a user supplied monetary value. Currency symbols, spaces
// and thousand separators are ignored; both "1,234.50" and "1.234,50" parse as
// 1234.5. An empty string yields zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return decimal.Zero, nil
	}

	var b strings.Builder
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',', r == '-', r == '+', r == 'e', r == 'E':
			b.WriteRune(r)
		case unicode.IsSpace(r), r == '\'', r == '_':
			// grouping
		case unicode.Is(unicode.Sc, r):
			// currency symbol
		default:
			return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
		}
	}
	cleaned := normalizeSeparators(b.String())
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// normalizeSeparators decides which of '.' and ',' is the decimal mark: the
// one appearing last wins when both are present, a lone comma followed by
// exactly three digits is a thousands separator.
func normalizeSeparators(s string) string {
	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		if comma > dot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		if strings.Count(s, ",") > 1 || len(s)-comma-1 == 3 {
			return strings.ReplaceAll(s, ",", "")
		}
		return strings.Replace(s, ",", ".", 1)
	default:
		if strings.Count(s, ".") > 1 {
			return strings.ReplaceAll(s, ".", "")
		}
		return s
	}
}

// Money formats d with two decimals for display and CSV output.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
