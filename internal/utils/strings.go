package utils

import "strings"

// ParseSymbols splits a comma-separated ticker list, trimming blanks and
// upper-casing each ticker. Returns nil for empty/whitespace-only input.
func ParseSymbols(s string) []string {
	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.ToUpper(strings.TrimSpace(v))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil
	}

	return result
}
