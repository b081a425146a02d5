package model

import (
	"fmt"
	"strconv"
)

// Token amounts cross JSON and storage boundaries as decimal strings so the
// full uint64 range survives encoders that coerce numbers to float64.

// FormatAmount renders an amount as a decimal string.
func FormatAmount(amount uint64) string {
	return strconv.FormatUint(amount, 10)
}

// ParseAmount parses a decimal amount string. The empty string is zero;
// negative or non-numeric input is rejected.
func ParseAmount(value string) (uint64, error) {
	if value == "" {
		return 0, nil
	}
	amount, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return amount, nil
}
