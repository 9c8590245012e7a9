// Package placeholder detects interpolation placeholders in extracted
// messages so catalog entries can carry the matching gettext format flags.
package placeholder

import (
	"regexp"
	"strings"
)

// patterns for printf-style placeholders: %s, %d, %(name)s, %.2f, %%.
var printfPattern = regexp.MustCompile(`%(\([a-zA-Z_][a-zA-Z0-9_]*\))?[-+ #0]*[0-9]*(\.[0-9]+)?[diouxXeEfFgGrsc%]`)

// patterns for str.format-style placeholders: {}, {0}, {name}, {name!r:>10}.
var bracePattern = regexp.MustCompile(`\{[a-zA-Z0-9_.\[\]]*(![rsa])?(:[^{}]*)?\}`)

// Flags returns the gettext format flags implied by the given message texts.
// The order is stable: python-format before python-brace-format.
func Flags(texts ...string) []string {
	var flags []string
	if anyMatch(printfFormat, texts) {
		flags = append(flags, "python-format")
	}
	if anyMatch(braceFormat, texts) {
		flags = append(flags, "python-brace-format")
	}
	return flags
}

func anyMatch(match func(string) bool, texts []string) bool {
	for _, text := range texts {
		if match(text) {
			return true
		}
	}
	return false
}

// printfFormat reports whether the text holds a printf-style placeholder.
// A literal %% escape alone does not make a message a format string.
func printfFormat(text string) bool {
	for _, loc := range printfPattern.FindAllString(text, -1) {
		if loc != "%%" {
			return true
		}
	}
	return false
}

// braceFormat reports whether the text holds a str.format placeholder.
// Doubled braces are the escape for literal braces and are ignored.
func braceFormat(text string) bool {
	stripped := strings.ReplaceAll(strings.ReplaceAll(text, "{{", ""), "}}", "")
	return bracePattern.MatchString(stripped)
}
