// Package validate checks an injected workflow before deployment. It is a
// soft gate: problems are reported, never raised.
package validate

import (
	"fmt"
	"strings"

	"github.com/inboxflow/inboxflow/engine/placeholder"
	"github.com/inboxflow/inboxflow/engine/workflow"
)

// Issue messages.
const (
	IssueMissingName        = "Missing workflow name"
	IssueNoNodes            = "Workflow has no nodes"
	IssueNoConnections      = "Workflow has no connections"
	IssueMissingTrigger     = "Missing trigger node"
	IssueMissingClassifier  = "Missing classifier node"
	IssueMissingRouter      = "Missing router node"
	issueUnresolvedPrefix   = "Unresolved placeholders: "
	warningLabelsPrefix     = "Label routing incomplete: "
	issueUnknownNodePattern = "Connection references unknown node %q"
)

// Score penalties. The checks sum to 95; incomplete label routing costs the
// remaining 5.
const (
	PenaltyName        = 10
	PenaltyNodes       = 20
	PenaltyConnections = 15
	PenaltyTrigger     = 15
	PenaltyClassifier  = 15
	PenaltyRouter      = 10
	PenaltyUnresolved  = 10
	PenaltyLabels      = 5
)

// Report is the outcome of a validation.
type Report struct {
	Valid            bool     `json:"valid"`
	Score            int      `json:"score"`
	Issues           []string `json:"issues"`
	Warnings         []string `json:"warnings"`
	Unresolved       []string `json:"unresolved,omitempty"`
	UnresolvedLabels []string `json:"unresolved_labels,omitempty"`
}

type check struct {
	failed   func(*workflow.Workflow) bool
	issue    string
	penalty  int
	required bool
}

var checks = []check{
	{func(w *workflow.Workflow) bool { return strings.TrimSpace(w.Name) == "" }, IssueMissingName, PenaltyName, false},
	{func(w *workflow.Workflow) bool { return len(w.Nodes) == 0 }, IssueNoNodes, PenaltyNodes, false},
	{func(w *workflow.Workflow) bool { return w.ConnectionCount() == 0 }, IssueNoConnections, PenaltyConnections, false},
	{func(w *workflow.Workflow) bool { return !w.HasCategory(workflow.CategoryTrigger) }, IssueMissingTrigger, PenaltyTrigger, true},
	{func(w *workflow.Workflow) bool { return !w.HasCategory(workflow.CategoryClassifier) }, IssueMissingClassifier, PenaltyClassifier, true},
	{func(w *workflow.Workflow) bool { return !w.HasCategory(workflow.CategoryRouter) }, IssueMissingRouter, PenaltyRouter, true},
}

// Validate scores wf. Unresolved label tokens are warnings; any other
// unresolved token, a missing required node category or a connection to an
// unknown node is an issue and makes the report invalid. A missing required
// node is reported once: connections left pointing at it are folded into the
// category issue.
func Validate(wf *workflow.Workflow) Report {
	report := Report{Score: 100, Issues: []string{}, Warnings: []string{}}
	if wf == nil {
		wf = &workflow.Workflow{}
	}
	missingRequired := false
	for _, c := range checks {
		if c.failed(wf) {
			report.Issues = append(report.Issues, c.issue)
			report.Score -= c.penalty
			missingRequired = missingRequired || c.required
		}
	}
	if !missingRequired {
		for _, name := range wf.DanglingConnections() {
			report.Issues = append(report.Issues, fmt.Sprintf(issueUnknownNodePattern, name))
		}
	}

	tokens, err := unresolvedTokens(wf)
	if err != nil {
		report.Issues = append(report.Issues, fmt.Sprintf("Workflow cannot be serialized: %v", err))
	}
	for _, tok := range tokens {
		if placeholder.IsLabelToken(tok) {
			report.UnresolvedLabels = append(report.UnresolvedLabels, tok)
		} else {
			report.Unresolved = append(report.Unresolved, tok)
		}
	}
	if len(report.Unresolved) > 0 {
		report.Issues = append(report.Issues, issueUnresolvedPrefix+strings.Join(report.Unresolved, ", "))
		report.Score -= PenaltyUnresolved
	}
	if len(report.UnresolvedLabels) > 0 {
		report.Warnings = append(report.Warnings, warningLabelsPrefix+strings.Join(report.UnresolvedLabels, ", "))
		report.Score -= PenaltyLabels
	}
	report.Score = max(report.Score, 0)
	report.Valid = len(report.Issues) == 0
	return report
}

func unresolvedTokens(wf *workflow.Workflow) ([]string, error) {
	data, err := workflow.Marshal(wf)
	if err != nil {
		return nil, err
	}
	return placeholder.Find(string(data)), nil
}
