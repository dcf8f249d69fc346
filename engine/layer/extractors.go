package layer

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/inboxflow/inboxflow/engine/business"
	"github.com/inboxflow/inboxflow/pkg/tplengine"
)

// BaseCategories are the classifier categories every business gets.
var BaseCategories = []string{"Urgent", "Sales", "Support", "Supplier", "Manager", "Other"}

// ClassificationExtractor renders the classifier system message and keywords.
type ClassificationExtractor struct {
	engine *tplengine.TemplateEngine
}

func NewClassificationExtractor(engine *tplengine.TemplateEngine) *ClassificationExtractor {
	return &ClassificationExtractor{engine: engine}
}

func (e *ClassificationExtractor) Name() Name { return Classification }

func (e *ClassificationExtractor) Extract(_ context.Context, cfg *business.Config) (map[string]string, error) {
	keywords := Keywords(cfg)
	msg, err := e.engine.Render("classification", map[string]any{
		"name":            cfg.Business.Name,
		"category":        cfg.Business.Category,
		"area":            cfg.Business.ServiceArea,
		"categories":      Categories(cfg),
		"catalog":         cfg.ServiceCatalog(),
		"keywords":        strings.Join(keywords, ", "),
		"supplierDomains": cfg.SupplierDomains(),
		"managers":        cfg.Managers(),
		"outOfScope":      strings.Join(cfg.Rules.OutOfScope, ", "),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render classification prompt: %w", err)
	}
	return map[string]string{
		KeyKeywords:      strings.Join(keywords, ", "),
		KeySystemMessage: msg,
	}, nil
}

// Categories returns the classifier categories: the base set followed by
// any label group not already covered.
func Categories(cfg *business.Config) []string {
	out := slices.Clone(BaseCategories)
	for _, name := range cfg.LabelNames() {
		group := labelGroup(name)
		if !slices.ContainsFunc(out, func(c string) bool { return strings.EqualFold(c, group) }) {
			out = append(out, group)
		}
	}
	return out
}

// Keywords derives lower-case keywords from the category and service names.
func Keywords(cfg *business.Config) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(text string) {
		for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			if len([]rune(word)) < 3 || stopWords[word] {
				continue
			}
			if _, ok := seen[word]; ok {
				continue
			}
			seen[word] = struct{}{}
			out = append(out, word)
		}
	}
	add(cfg.Business.Category)
	for _, svc := range cfg.Services {
		add(svc.Name)
	}
	if len(out) == 0 {
		add(cfg.Business.Name)
	}
	return out
}

var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "our": true, "services": true, "general": true,
}

// BehaviorExtractor renders the reply prompt, tone and guardrails. A usable
// voice profile overrides the configured tone.
type BehaviorExtractor struct {
	engine *tplengine.TemplateEngine
}

func NewBehaviorExtractor(engine *tplengine.TemplateEngine) *BehaviorExtractor {
	return &BehaviorExtractor{engine: engine}
}

func (e *BehaviorExtractor) Name() Name { return Behavior }

func (e *BehaviorExtractor) Extract(_ context.Context, cfg *business.Config) (map[string]string, error) {
	tone := cfg.Rules.Tone
	var phrases []string
	if cfg.Voice.Usable() {
		tone = VoiceTone(cfg.Voice)
		phrases = cfg.Voice.Phrases
	}
	reply, err := e.engine.Render("reply", map[string]any{
		"name":      cfg.Business.Name,
		"tone":      tone,
		"hours":     cfg.Rules.BusinessHours,
		"sla":       cfg.Rules.ResponseSLA,
		"pricing":   cfg.PricingPolicy(),
		"phrases":   phrases,
		"signature": cfg.Signature(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render reply prompt: %w", err)
	}
	guardrails, err := e.engine.Render("guardrails", map[string]any{"rules": Guardrails(cfg)})
	if err != nil {
		return nil, fmt.Errorf("failed to render guardrails: %w", err)
	}
	return map[string]string{
		KeyTone:        tone,
		KeyReplyPrompt: reply,
		KeyGuardrails:  guardrails,
	}, nil
}

// VoiceTone describes a learned voice profile in words.
func VoiceTone(v *business.VoiceProfile) string {
	pick := func(score float64, low, mid, high string) string {
		switch {
		case score >= 0.67:
			return high
		case score >= 0.34:
			return mid
		default:
			return low
		}
	}
	return strings.Join([]string{
		pick(v.Formality, "casual", "conversational", "formal"),
		pick(v.Warmth, "reserved", "friendly", "warm"),
		pick(v.Directness, "gentle", "clear", "direct"),
	}, ", ")
}

// Guardrails lists the rules every reply must follow.
func Guardrails(cfg *business.Config) []string {
	rules := []string{
		"Never invent prices, availability or appointment times.",
		"Never share internal notes, supplier details or other customers' information.",
		cfg.Escalation(),
	}
	if !cfg.Rules.DisclosePricing {
		rules = append(rules, "Do not quote prices by email.")
	}
	for _, topic := range cfg.Rules.OutOfScope {
		if t := strings.TrimSpace(topic); t != "" {
			rules = append(rules, fmt.Sprintf("Politely decline requests about %s.", t))
		}
	}
	return rules
}

// LabelExtractor renders the routing table of provider label ids grouped by
// category.
type LabelExtractor struct{}

func (e *LabelExtractor) Name() Name { return Labels }

func (e *LabelExtractor) Extract(_ context.Context, cfg *business.Config) (map[string]string, error) {
	names := cfg.LabelNames()
	if len(names) == 0 {
		return Fallback(Labels, cfg.Business.Name), nil
	}
	groups := make(map[string][]string)
	var order []string
	for _, name := range names {
		group := labelGroup(name)
		if _, ok := groups[group]; !ok {
			order = append(order, group)
		}
		groups[group] = append(groups[group], fmt.Sprintf("%s -> %s", name, cfg.Labels[name]))
	}
	var b strings.Builder
	for i, group := range order {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(group + ":")
		for _, entry := range groups[group] {
			b.WriteString("\n- " + entry)
		}
	}
	return map[string]string{
		KeyLabelNames:   strings.Join(names, ", "),
		KeyLabelRouting: b.String(),
	}, nil
}

// labelGroup is the top-level segment of a nested label name.
func labelGroup(name string) string {
	if i := strings.IndexAny(name, `/\`); i > 0 {
		return strings.TrimSpace(name[:i])
	}
	return strings.TrimSpace(name)
}
