// Package inject merges a business configuration into a provider workflow
// template, binds credentials and checks the result still parses.
package inject

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inboxflow/inboxflow/engine/business"
	"github.com/inboxflow/inboxflow/engine/core"
	"github.com/inboxflow/inboxflow/engine/infra/monitoring"
	"github.com/inboxflow/inboxflow/engine/layer"
	"github.com/inboxflow/inboxflow/engine/placeholder"
	"github.com/inboxflow/inboxflow/engine/workflow"
	"github.com/inboxflow/inboxflow/pkg/logger"
)

// Result is one injected workflow.
type Result struct {
	Workflow *workflow.Workflow
	// Document is the canonical serialized form of Workflow.
	Document      []byte
	Applied       []string
	AppliedLabels []string
	Binding       Binding
	// Degraded lists layers replaced by their fallback text.
	Degraded []layer.Name
}

// Option configures an Engine.
type Option func(*Engine)

// WithAICredential sets the AI credential used when the business has none.
func WithAICredential(id, name string) Option {
	return func(e *Engine) {
		e.aiCredentialID = id
		if name != "" {
			e.binder.Names[workflow.CredentialOpenAI] = name
		}
	}
}

// WithMetrics records injection outcomes and layer fallbacks.
func WithMetrics(m *monitoring.EngineMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine runs the injection pipeline. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	layers         layer.Set
	binder         Binder
	aiCredentialID string
	metrics        *monitoring.EngineMetrics
}

func New(layers layer.Set, opts ...Option) *Engine {
	names := make(map[workflow.CredentialKind]string, len(DefaultCredentialNames))
	for k, v := range DefaultCredentialNames {
		names[k] = v
	}
	e := &Engine{layers: layers, binder: Binder{Names: names}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Inject personalizes tpl for cfg. tpl is never modified. The steps run in
// order: business values are substituted into every string leaf of a copy of
// the template, label ids are substituted into its serialized form, the text
// is parsed back strictly and checked to round-trip, then credentials are
// bound. A parse failure is a *core.SubstitutionParseError.
func (e *Engine) Inject(ctx context.Context, tpl *workflow.Workflow, cfg *business.Config) (*Result, error) {
	if cfg == nil {
		return nil, core.NewConfigurationError("", "business configuration is required", nil)
	}
	start := time.Now()
	log := logger.FromContext(ctx).With("provider", cfg.Provider, "business", cfg.Business.Name)
	res, err := e.inject(ctx, tpl, cfg)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	e.metrics.RecordInjection(ctx, string(cfg.Provider), outcome, time.Since(start))
	if err != nil {
		log.Error("Workflow injection failed", "error", err)
		return nil, err
	}
	log.Info("Workflow injected",
		"nodes", len(res.Workflow.Nodes),
		"tokens", len(res.Applied),
		"labels", len(res.AppliedLabels),
		"pending_credentials", len(res.Binding.Pending),
		"degraded_layers", len(res.Degraded),
	)
	return res, nil
}

func (e *Engine) inject(ctx context.Context, tpl *workflow.Workflow, cfg *business.Config) (*Result, error) {
	if tpl == nil {
		return nil, core.NewConfigurationError("template", "is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg, err := e.prepare(cfg)
	if err != nil {
		return nil, err
	}

	values, degraded, err := e.values(ctx, cfg)
	if err != nil {
		return nil, err
	}
	wf := tpl.Clone()
	wf.EnsureNodeIDs(string(cfg.Provider))
	sub := newSubstituter(values)
	if err := sub.workflow(wf); err != nil {
		return nil, err
	}

	data, err := workflow.Marshal(wf)
	if err != nil {
		return nil, err
	}
	text, appliedLabels := InjectLabelIDs(string(data), cfg.Labels)

	parsed, err := workflow.ParseStrict([]byte(text))
	if err != nil {
		return nil, err
	}
	if err := checkRoundTrip(wf, parsed); err != nil {
		return nil, err
	}

	binding := e.binder.Bind(parsed, cfg)
	doc, err := workflow.Marshal(parsed)
	if err != nil {
		return nil, err
	}
	return &Result{
		Workflow:      parsed,
		Document:      doc,
		Applied:       sub.applied,
		AppliedLabels: appliedLabels,
		Binding:       binding,
		Degraded:      degraded,
	}, nil
}

// prepare returns a private copy of cfg with defaults applied, the business
// name display-sanitized and the fallback AI credential filled in.
func (e *Engine) prepare(cfg *business.Config) (*business.Config, error) {
	out, err := cfg.ApplyDefaults()
	if err != nil {
		return nil, err
	}
	out.Business.Name = placeholder.SanitizeDisplay(out.Business.Name)
	if out.AICredentialID == "" {
		out.AICredentialID = e.aiCredentialID
	}
	return out, nil
}

// mergeable prepares a free-text value for the token map.
func mergeable(v string) string {
	return placeholder.Defuse(placeholder.CleanText(v))
}

// values builds the token map from the business fields and the three layers.
func (e *Engine) values(ctx context.Context, cfg *business.Config) (*placeholder.Map, []layer.Name, error) {
	m := placeholder.NewMap()
	for _, ent := range businessValues(cfg) {
		if err := m.Set(ent.ident, mergeable(ent.value)); err != nil {
			return nil, nil, fmt.Errorf("failed to map %s: %w", ent.ident, err)
		}
	}
	var degraded []layer.Name
	for _, name := range []layer.Name{layer.Classification, layer.Behavior, layer.Labels} {
		out, ok := e.extract(ctx, name, cfg)
		if !ok {
			degraded = append(degraded, name)
		}
		fallback := layer.Fallback(name, cfg.Business.Name)
		for _, key := range layer.Keys(name) {
			value, present := out[key]
			if !present {
				value = fallback[key]
			}
			if err := m.Set(key, mergeable(value)); err != nil {
				return nil, nil, fmt.Errorf("failed to map %s: %w", key, err)
			}
		}
	}
	return m, degraded, nil
}

func (e *Engine) extractor(name layer.Name) layer.Extractor {
	switch name {
	case layer.Classification:
		return e.layers.Classification
	case layer.Behavior:
		return e.layers.Behavior
	default:
		return e.layers.Labels
	}
}

// extract runs one extractor. A failure, including a panic, is logged as a
// *core.LayerExtractionError and reported as not ok; the caller then uses the
// fallback text.
func (e *Engine) extract(ctx context.Context, name layer.Name, cfg *business.Config) (out map[string]string, ok bool) {
	ext := e.extractor(name)
	if ext == nil {
		e.degrade(ctx, name, errors.New("no extractor configured"))
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			e.degrade(ctx, name, fmt.Errorf("extractor panicked: %v", r))
			out, ok = nil, false
		}
	}()
	out, err := ext.Extract(ctx, cfg)
	if err != nil {
		e.degrade(ctx, name, err)
		return nil, false
	}
	return out, true
}

func (e *Engine) degrade(ctx context.Context, name layer.Name, err error) {
	lerr := &core.LayerExtractionError{Layer: string(name), Err: err}
	logger.FromContext(ctx).Warn("Layer extraction failed, using fallback", "layer", name, "error", lerr)
	e.metrics.RecordLayerFallback(ctx, string(name))
}

// checkRoundTrip confirms the parsed document has the shape of the tree it
// was serialized from and re-serializes to identical bytes.
func checkRoundTrip(before, parsed *workflow.Workflow) error {
	if len(before.Nodes) != len(parsed.Nodes) ||
		before.ConnectionCount() != parsed.ConnectionCount() ||
		len(before.Settings) != len(parsed.Settings) {
		return roundTripError("document structure changed during substitution")
	}
	first, err := workflow.Marshal(parsed)
	if err != nil {
		return err
	}
	again, err := workflow.Parse(first)
	if err != nil {
		return err
	}
	second, err := workflow.Marshal(again)
	if err != nil {
		return err
	}
	if !bytes.Equal(first, second) {
		offset := mismatchOffset(first, second)
		return &core.SubstitutionParseError{
			Offset:  int64(offset),
			Excerpt: workflow.Excerpt(first, int64(offset)),
			Err:     errors.New("round-trip mismatch"),
		}
	}
	return nil
}

func roundTripError(reason string) error {
	return &core.SubstitutionParseError{Offset: -1, Err: fmt.Errorf("round-trip mismatch: %s", reason)}
}

func mismatchOffset(a, b []byte) int {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
