package inject

import (
	"slices"

	"github.com/inboxflow/inboxflow/engine/placeholder"
)

// InjectLabelIDs replaces the label routing tokens of a serialized workflow
// with provider label ids. Each label name maps to <<<LABEL_{CANON}>>>; the
// id is JSON-escaped since it lands inside a string literal. Names are
// visited in sorted order and the first name claiming a canonical token wins.
// Tokens with no matching label stay in place for the validator. It returns
// the rewritten text and the tokens that were applied.
func InjectLabelIDs(text string, labels map[string]string) (string, []string) {
	if len(labels) == 0 {
		return text, nil
	}
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	slices.Sort(names)
	m := placeholder.NewMap()
	for _, name := range names {
		token, err := placeholder.LabelToken(name)
		if err != nil {
			continue
		}
		if _, taken := m.Get(token); taken {
			continue
		}
		_ = m.SetToken(token, placeholder.EscapeJSON(placeholder.Defuse(labels[name])))
	}
	return placeholder.Replace(text, m)
}
