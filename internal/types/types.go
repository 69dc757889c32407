package types

import "strings"

// CurrencyInfo describes one supported currency.
type CurrencyInfo struct {
	Description string `json:"description"`
	Code        string `json:"code"`
}

// Symbols maps uppercase currency codes to their metadata. A snapshot is
// never modified after it has been built.
type Symbols map[string]CurrencyInfo

// Supports reports whether code, compared case-insensitively, is in the set.
func (s Symbols) Supports(code string) bool {
	_, ok := s[strings.ToUpper(code)]
	return ok
}

type ConversionResult struct {
	Result float64 `json:"result"`
}
