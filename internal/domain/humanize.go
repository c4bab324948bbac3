package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// HumanizeField turns a camelCase, snake_case or kebab-case field name into
// space-separated words with a leading capital, e.g. emergencyContactPhone
// becomes "Emergency Contact Phone" and passportID becomes "Passport ID".
func HumanizeField(name string) string {
	runes := []rune(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(runes) + 4)

	for i, r := range runes {
		if r == '_' || r == '-' {
			b.WriteRune(' ')
			continue
		}
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextIsLower) {
				b.WriteRune(' ')
			}
		}
		b.WriteRune(r)
	}

	words := strings.Fields(b.String())
	// Casers keep state between calls and must not be shared across goroutines.
	return cases.Title(language.Und, cases.NoLower).String(strings.Join(words, " "))
}
