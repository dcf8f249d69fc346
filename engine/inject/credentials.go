package inject

import (
	"fmt"
	"strings"

	"github.com/inboxflow/inboxflow/engine/business"
	"github.com/inboxflow/inboxflow/engine/placeholder"
	"github.com/inboxflow/inboxflow/engine/workflow"
)

// DefaultCredentialNames are the display names attached to bound credentials.
var DefaultCredentialNames = map[workflow.CredentialKind]string{
	workflow.CredentialGmail:   "Gmail account",
	workflow.CredentialOutlook: "Outlook account",
	workflow.CredentialOpenAI:  "OpenAI account",
}

// BoundNode records a credential attached to a node.
type BoundNode struct {
	Node       string                  `json:"node"`
	Credential workflow.CredentialKind `json:"credential"`
	ID         string                  `json:"id"`
}

// Binding is the outcome of credential binding.
type Binding struct {
	Bound []BoundNode `json:"bound,omitempty"`
	// Pending lists nodes left without a credential; the deployment side
	// binds them once OAuth completes.
	Pending []string `json:"pending,omitempty"`
	// Provider is the email provider that actually received a credential,
	// or "" when none did.
	Provider workflow.Provider `json:"provider,omitempty"`
}

// Binder attaches credentials to nodes according to their Kind.
type Binder struct {
	Names map[workflow.CredentialKind]string
}

// BindCredentials binds cfg's credentials onto wf with the default names.
func BindCredentials(wf *workflow.Workflow, cfg *business.Config) Binding {
	return Binder{Names: DefaultCredentialNames}.Bind(wf, cfg)
}

// Concrete reports whether id can be bound: non-blank and free of tokens.
func Concrete(id string) bool {
	return strings.TrimSpace(id) != "" && !placeholder.IsPlaceholder(id)
}

func credentialID(kind workflow.CredentialKind, cfg *business.Config) string {
	switch kind {
	case workflow.CredentialGmail:
		return cfg.CredentialID(workflow.ProviderGmail)
	case workflow.CredentialOutlook:
		return cfg.CredentialID(workflow.ProviderOutlook)
	case workflow.CredentialOpenAI:
		return cfg.AICredentialID
	default:
		return ""
	}
}

// Bind walks every node of wf. Nodes whose kind carries a credential get
// {id, name} when cfg holds a concrete id; otherwise any template credential
// of that kind is removed and the node is reported as pending. The workflow
// name is rewritten to match the provider that was actually bound.
func (b Binder) Bind(wf *workflow.Workflow, cfg *business.Config) Binding {
	var binding Binding
	for i := range wf.Nodes {
		node := &wf.Nodes[i]
		kind := workflow.KindOf(node.Type).Credential()
		if kind == workflow.CredentialNone {
			continue
		}
		id := strings.TrimSpace(credentialID(kind, cfg))
		if !Concrete(id) {
			delete(node.Credentials, string(kind))
			if len(node.Credentials) == 0 {
				node.Credentials = nil
			}
			binding.Pending = append(binding.Pending, node.Name)
			continue
		}
		if node.Credentials == nil {
			node.Credentials = make(map[string]workflow.CredentialRef, 1)
		}
		node.Credentials[string(kind)] = workflow.CredentialRef{ID: id, Name: b.name(kind)}
		binding.Bound = append(binding.Bound, BoundNode{Node: node.Name, Credential: kind, ID: id})
	}
	binding.Provider = boundProvider(cfg)
	wf.Name = WorkflowName(cfg.Business.Name, binding.Provider)
	return binding
}

func (b Binder) name(kind workflow.CredentialKind) string {
	if name := b.Names[kind]; name != "" {
		return name
	}
	return DefaultCredentialNames[kind]
}

// boundProvider picks the configured provider when it has a concrete
// credential, then any other provider that does.
func boundProvider(cfg *business.Config) workflow.Provider {
	if Concrete(cfg.CredentialID(cfg.Provider)) {
		return cfg.Provider
	}
	for _, p := range workflow.Providers() {
		if p != cfg.Provider && Concrete(cfg.CredentialID(p)) {
			return p
		}
	}
	return ""
}

// WorkflowName renders "<display name> - <Provider> AI Email Automation", or
// "<display name> - AI Email Automation" when no provider is bound.
func WorkflowName(businessName string, provider workflow.Provider) string {
	display := placeholder.DisplayName(businessName)
	if provider == "" {
		return fmt.Sprintf("%s - AI Email Automation", display)
	}
	return fmt.Sprintf("%s - %s AI Email Automation", display, provider.Title())
}
