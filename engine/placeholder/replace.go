package placeholder

import "strings"

// Replace substitutes every whole token of m found in text, in a single left
// to right pass. Replacement values are copied verbatim and never rescanned,
// so the result does not depend on the order of m. Tokens absent from m are
// left untouched. It returns the rewritten text and the tokens that matched.
func Replace(text string, m *Map) (string, []string) {
	if m == nil || m.Len() == 0 || !strings.Contains(text, Open) {
		return text, nil
	}
	var b strings.Builder
	b.Grow(len(text))
	seen := make(map[string]struct{})
	var applied []string
	i := 0
	for {
		start := strings.Index(text[i:], Open)
		if start < 0 {
			b.WriteString(text[i:])
			break
		}
		start += i
		token, ok := scanToken(text, start)
		if !ok {
			b.WriteString(text[i : start+1])
			i = start + 1
			continue
		}
		b.WriteString(text[i:start])
		if value, found := m.Get(token); found {
			b.WriteString(value)
			if _, dup := seen[token]; !dup {
				seen[token] = struct{}{}
				applied = append(applied, token)
			}
		} else {
			b.WriteString(token)
		}
		i = start + len(token)
	}
	return b.String(), applied
}

// scanToken reads a well-formed token starting at text[start].
func scanToken(text string, start int) (string, bool) {
	j := start + len(Open)
	for j < len(text) {
		c := text[j]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			j++
			continue
		}
		break
	}
	if j == start+len(Open) || !strings.HasPrefix(text[j:], Close) {
		return "", false
	}
	return text[start : j+len(Close)], true
}
