package utils

import (
	"strings"
	"unicode/utf8"
)

// SplitArgs splits a comma separated argument string into trimmed parts.
// The result always has at least n entries so callers can index positionally;
// missing arguments are returned as empty strings.
func SplitArgs(target string, n int) []string {
	parts := strings.Split(target, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	for len(parts) < n {
		parts = append(parts, "")
	}

	return parts
}

// SplitCommand separates the first whitespace delimited token from the rest of the text.
func SplitCommand(content string) (string, string) {
	content = strings.TrimLeft(content, " \t\n")
	idx := strings.IndexAny(content, " \t\n")
	if idx == -1 {
		return content, ""
	}

	return content[:idx], strings.TrimSpace(content[idx+1:])
}

// Truncate shortens s to at most limit runes, marking the cut with an ellipsis.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)
	if limit <= 3 {
		return string(runes[:limit])
	}

	return string(runes[:limit-3]) + "..."
}

// OrDefault returns fallback when s is blank.
func OrDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
