package textutil

import "strings"

// CollapseSpaces rewrites runs of whitespace, newlines included, as a
// single space so multi-line snippets fit on one diagnostic line.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate shortens a string to maxLen, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
