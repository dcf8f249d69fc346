package placeholder

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var jsonEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
	"\b", `\b`,
	"\f", `\f`,
)

// EscapeJSON makes s safe to embed between the quotes of a JSON string
// literal. The seven short escapes are applied with backslash first, then the
// remaining control characters are stripped.
func EscapeJSON(s string) string {
	return stripControl(jsonEscaper.Replace(s))
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// CleanText removes control characters from a free-text value before it is
// merged, keeping newlines and tabs.
func CleanText(s string) string {
	return strings.Map(func(r rune) rune {
		if r != '\n' && r != '\t' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// isZeroWidth covers the invisible formatting runes that survive copy/paste
// from rich text editors.
func isZeroWidth(r rune) bool {
	switch r {
	case '\u200b', '\u200c', '\u200d', '\u2060', '\ufeff', '\u00ad':
		return true
	}
	return false
}

// SanitizeDisplay prepares a value that is re-embedded as plain text after
// parsing: NFC normalized, control and zero-width characters removed,
// whitespace collapsed to single spaces and trimmed. Newlines and tabs count
// as whitespace. No JSON escaping is applied.
func SanitizeDisplay(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsControl(r), isZeroWidth(r):
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DisplayName sanitizes s and then drops characters outside the workflow
// name alphabet: letters, digits, spaces and - _ . , ( ). Spaces left behind
// by dropped punctuation are kept as they are.
func DisplayName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ':
			return r
		case strings.ContainsRune("-_.,()", r):
			return r
		}
		return -1
	}, SanitizeDisplay(s))
}

// Defuse breaks every well-formed token inside a free-text value, so user
// input can never be mistaken for a placeholder once it is merged.
func Defuse(s string) string {
	if !strings.Contains(s, Open) {
		return s
	}
	return tokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		return "<< <" + tok[len(Open):]
	})
}
