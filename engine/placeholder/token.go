// Package placeholder implements the literal token grammar used by workflow
// templates: tokens are ASCII identifiers wrapped in triple angle brackets,
// e.g. <<<BUSINESS_NAME>>>.
package placeholder

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	Open  = "<<<"
	Close = ">>>"

	// LabelPrefix marks tokens produced from mailbox label names.
	LabelPrefix = "LABEL_"
)

var (
	identPattern = regexp.MustCompile(`^[A-Z0-9_]+$`)
	tokenPattern = regexp.MustCompile(`<<<[A-Z0-9_]+>>>`)
)

// Token wraps ident in the placeholder delimiters. ident must already be a
// valid identifier; use LabelToken for free-text label names.
func Token(ident string) string {
	return Open + ident + Close
}

// ValidIdent reports whether ident may appear between the delimiters.
func ValidIdent(ident string) bool {
	return identPattern.MatchString(ident)
}

// ValidToken reports whether s is exactly one well-formed token.
func ValidToken(s string) bool {
	if !strings.HasPrefix(s, Open) || !strings.HasSuffix(s, Close) {
		return false
	}
	return ValidIdent(s[len(Open) : len(s)-len(Close)])
}

// Ident strips the delimiters from a token.
func Ident(token string) string {
	return strings.TrimSuffix(strings.TrimPrefix(token, Open), Close)
}

// IsPlaceholder reports whether s contains any token. Values that still carry
// tokens are never concrete.
func IsPlaceholder(s string) bool {
	return tokenPattern.MatchString(s)
}

// Find returns the distinct tokens present in s in order of first appearance.
func Find(s string) []string {
	matches := tokenPattern.FindAllString(s, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// IsLabelToken reports whether token belongs to the label routing family.
func IsLabelToken(token string) bool {
	return strings.HasPrefix(Ident(token), LabelPrefix)
}

func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// CanonicalLabel derives the identifier for a label name: upper-cased, with
// whitespace and path separators turned into underscores. Other characters
// outside the token alphabet are dropped after accents are folded, and
// underscore runs collapse.
func CanonicalLabel(name string) string {
	folded, _, err := transform.String(foldAccents(), name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToUpper(strings.TrimSpace(folded)) {
		switch {
		case unicode.IsSpace(r), r == '/', r == '\\', r == '_', r == '-':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case r < unicode.MaxASCII && (unicode.IsUpper(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastUnderscore = false
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// LabelToken returns the placeholder token for a label name, e.g.
// "Sales/New Leads" -> <<<LABEL_SALES_NEW_LEADS>>>.
func LabelToken(name string) (string, error) {
	canon := CanonicalLabel(name)
	if canon == "" {
		return "", fmt.Errorf("label name %q has no token characters", name)
	}
	return Token(LabelPrefix + canon), nil
}
