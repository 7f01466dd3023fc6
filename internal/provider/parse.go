package provider

import (
	"strconv"
	"strings"
)

// CleanField normalizes a provider string field. OMDb uses the literal "N/A"
// for absent values; other providers use empty strings. Both map to "".
func CleanField(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "n/a") {
		return ""
	}
	return s
}

// ParseRuntime extracts minutes from strings like "142 min", "142", "1 h".
// Returns nil if no leading number is present.
func ParseRuntime(s string) *int {
	s = CleanField(s)
	if s == "" {
		return nil
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return nil
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// ParseRating extracts a 0–10 numeric rating. Out-of-range or non-numeric
// values return nil.
func ParseRating(s string) *float64 {
	s = CleanField(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f > 10 {
		return nil
	}
	return &f
}

// ParseYearLoose extracts the leading 4-digit year from strings like "1994",
// "1994–1998" (series ranges), or "1994-". Returns nil when no 4-digit
// prefix exists.
func ParseYearLoose(s string) *int {
	s = CleanField(s)
	if len(s) < 4 {
		return nil
	}
	n, err := strconv.Atoi(s[:4])
	if err != nil {
		return nil
	}
	return &n
}

// SplitList splits a comma-separated provider list like "USA, UK" into
// trimmed non-empty parts.
func SplitList(s string) []string {
	s = CleanField(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
