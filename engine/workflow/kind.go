package workflow

// Provider identifies a supported email provider.
type Provider string

const (
	ProviderGmail   Provider = "gmail"
	ProviderOutlook Provider = "outlook"
)

// Providers lists the supported providers in a stable order.
func Providers() []Provider {
	return []Provider{ProviderGmail, ProviderOutlook}
}

// Valid reports whether p is one of the supported providers.
func (p Provider) Valid() bool {
	return p == ProviderGmail || p == ProviderOutlook
}

// Title is the human facing provider name.
func (p Provider) Title() string {
	switch p {
	case ProviderGmail:
		return "Gmail"
	case ProviderOutlook:
		return "Outlook"
	default:
		return string(p)
	}
}

// CredentialKind is the credential type key a node expects.
type CredentialKind string

const (
	CredentialNone    CredentialKind = ""
	CredentialGmail   CredentialKind = "gmailOAuth2"
	CredentialOutlook CredentialKind = "microsoftOutlookOAuth2Api"
	CredentialOpenAI  CredentialKind = "openAiApi"
)

// Category groups node kinds for structural validation.
type Category int

const (
	CategoryOther Category = iota
	CategoryTrigger
	CategoryAction
	CategoryClassifier
	CategoryRouter
)

func (c Category) String() string {
	switch c {
	case CategoryTrigger:
		return "trigger"
	case CategoryAction:
		return "action"
	case CategoryClassifier:
		return "classifier"
	case CategoryRouter:
		return "router"
	default:
		return "other"
	}
}

// Kind is the closed set of node kinds the injector understands.
type Kind int

const (
	KindOther Kind = iota
	KindGmailTrigger
	KindGmailAction
	KindOutlookTrigger
	KindOutlookAction
	KindChatModel
	KindAgent
	KindTextClassifier
	KindSwitch
	KindIf
)

type kindSpec struct {
	typeTag    string
	category   Category
	provider   Provider
	credential CredentialKind
}

var kindSpecs = map[Kind]kindSpec{
	KindGmailTrigger:   {"n8n-nodes-base.gmailTrigger", CategoryTrigger, ProviderGmail, CredentialGmail},
	KindGmailAction:    {"n8n-nodes-base.gmail", CategoryAction, ProviderGmail, CredentialGmail},
	KindOutlookTrigger: {"n8n-nodes-base.microsoftOutlookTrigger", CategoryTrigger, ProviderOutlook, CredentialOutlook},
	KindOutlookAction:  {"n8n-nodes-base.microsoftOutlook", CategoryAction, ProviderOutlook, CredentialOutlook},
	KindChatModel:      {"@n8n/n8n-nodes-langchain.lmChatOpenAi", CategoryClassifier, "", CredentialOpenAI},
	KindAgent:          {"@n8n/n8n-nodes-langchain.agent", CategoryClassifier, "", CredentialNone},
	KindTextClassifier: {"@n8n/n8n-nodes-langchain.textClassifier", CategoryClassifier, "", CredentialNone},
	KindSwitch:         {"n8n-nodes-base.switch", CategoryRouter, "", CredentialNone},
	KindIf:             {"n8n-nodes-base.if", CategoryRouter, "", CredentialNone},
}

var kindsByTag = func() map[string]Kind {
	m := make(map[string]Kind, len(kindSpecs))
	for k, spec := range kindSpecs {
		m[spec.typeTag] = k
	}
	return m
}()

// KindOf maps a node type tag onto the closed Kind enumeration.
func KindOf(typeTag string) Kind {
	if k, ok := kindsByTag[typeTag]; ok {
		return k
	}
	return KindOther
}

// TypeTag returns the engine type string for k.
func (k Kind) TypeTag() string {
	return kindSpecs[k].typeTag
}

func (k Kind) Category() Category {
	return kindSpecs[k].category
}

// Provider returns the email provider the node talks to, or "" for
// provider-neutral nodes.
func (k Kind) Provider() Provider {
	return kindSpecs[k].provider
}

// Credential returns the credential kind the node must be bound to.
func (k Kind) Credential() CredentialKind {
	return kindSpecs[k].credential
}
