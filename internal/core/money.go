// Package core provides the domain model shared by the engine, the write
// path, and the storage and sync adapters.
//
// This file contains decimal amount parsing. Amounts are persisted as
// decimal strings; the write path validates them strictly, while the
// aggregation path reads them leniently so a single malformed record can
// never break a projection.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmountStrict parses a decimal amount string. It accepts both dot
// (12.34) and comma (12,34) decimal separators. Returns ErrInvalidAmount
// for anything that is not a plain decimal number.
func ParseAmountStrict(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseAmount parses a stored decimal amount string, treating anything
// malformed as zero. Aggregations use this so that bad stored data
// degrades to zero instead of failing the whole computation.
func ParseAmount(s string) decimal.Decimal {
	d, err := ParseAmountStrict(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatAmount renders a decimal with two fractional digits, the
// canonical stored representation.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
