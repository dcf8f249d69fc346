// Package layer turns a business configuration into the three prompt layers
// merged into a workflow: classification, behavior and label routing.
package layer

import (
	"context"
	"embed"
	"fmt"

	"github.com/inboxflow/inboxflow/engine/business"
	"github.com/inboxflow/inboxflow/pkg/tplengine"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// Name identifies a layer.
type Name string

const (
	Classification Name = "classification"
	Behavior       Name = "behavior"
	Labels         Name = "labels"
)

// Placeholder identifiers produced by each layer.
const (
	KeyKeywords      = "AI_KEYWORDS"
	KeySystemMessage = "AI_SYSTEM_MESSAGE"
	KeyTone          = "BEHAVIOR_TONE"
	KeyReplyPrompt   = "BEHAVIOR_REPLY_PROMPT"
	KeyGuardrails    = "BEHAVIOR_GUARDRAILS"
	KeyLabelNames    = "ROUTING_CATEGORIES"
	KeyLabelRouting  = "ROUTING_TABLE"
)

// Keys lists the identifiers a layer must produce.
func Keys(name Name) []string {
	switch name {
	case Classification:
		return []string{KeyKeywords, KeySystemMessage}
	case Behavior:
		return []string{KeyTone, KeyReplyPrompt, KeyGuardrails}
	case Labels:
		return []string{KeyLabelNames, KeyLabelRouting}
	default:
		return nil
	}
}

// Extractor produces one layer as an identifier -> text map.
type Extractor interface {
	Name() Name
	Extract(ctx context.Context, cfg *business.Config) (map[string]string, error)
}

// Set groups the three extractors used by an injection.
type Set struct {
	Classification Extractor
	Behavior       Extractor
	Labels         Extractor
}

// All returns the extractors in merge order.
func (s Set) All() []Extractor {
	return []Extractor{s.Classification, s.Behavior, s.Labels}
}

// NewPromptEngine loads the embedded prompt templates.
func NewPromptEngine() (*tplengine.TemplateEngine, error) {
	engine := tplengine.NewEngine()
	if err := engine.AddTemplatesFS(promptFS, "prompts/*.tmpl"); err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}
	if err := engine.Require("classification", "reply", "guardrails"); err != nil {
		return nil, err
	}
	return engine, nil
}

// DefaultSet returns the built-in extractors rendering the embedded prompts.
func DefaultSet() (Set, error) {
	engine, err := NewPromptEngine()
	if err != nil {
		return Set{}, err
	}
	return Set{
		Classification: NewClassificationExtractor(engine),
		Behavior:       NewBehaviorExtractor(engine),
		Labels:         &LabelExtractor{},
	}, nil
}

// Fallback is the minimal literal output for a layer, built from the
// business name only.
func Fallback(name Name, businessName string) map[string]string {
	switch name {
	case Classification:
		return map[string]string{
			KeyKeywords: businessName,
			KeySystemMessage: fmt.Sprintf(
				"You triage incoming email for %s. Classify each message as Urgent, Sales, Support, Supplier or Other and reply with the category only.",
				businessName,
			),
		}
	case Behavior:
		return map[string]string{
			KeyTone:        business.DefaultTone,
			KeyReplyPrompt: fmt.Sprintf("Write a short, polite reply on behalf of %s and offer to follow up by phone.", businessName),
			KeyGuardrails:  fmt.Sprintf("- Never make commitments, quotes or promises on behalf of %s.", businessName),
		}
	case Labels:
		return map[string]string{
			KeyLabelNames:   "Other",
			KeyLabelRouting: "No label routing configured",
		}
	default:
		return map[string]string{}
	}
}
