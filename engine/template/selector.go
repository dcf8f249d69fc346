// Package template selects and caches the base workflow document for an
// email provider.
package template

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/inboxflow/inboxflow/engine/core"
	"github.com/inboxflow/inboxflow/engine/infra/monitoring"
	"github.com/inboxflow/inboxflow/engine/workflow"
	"github.com/inboxflow/inboxflow/pkg/logger"
	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

// RetryPolicy bounds the exponential backoff applied to template fetches.
type RetryPolicy struct {
	Attempts  uint64
	BaseDelay time.Duration
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.BaseDelay
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	return retry.WithMaxRetries(p.Attempts, retry.NewExponential(base))
}

// Option configures a Selector.
type Option func(*Selector)

// WithRetry overrides the default retry policy.
func WithRetry(policy RetryPolicy) Option {
	return func(s *Selector) { s.retry = policy }
}

// WithMetrics records cache hits, misses and fallbacks.
func WithMetrics(m *monitoring.EngineMetrics) Option {
	return func(s *Selector) { s.metrics = m }
}

// Selector loads provider templates from a Source and caches them. The cache
// is populated once per provider and read many times; every caller gets its
// own deep copy.
type Selector struct {
	source  Source
	cache   Cache
	group   singleflight.Group
	gen     atomic.Uint64
	retry   RetryPolicy
	metrics *monitoring.EngineMetrics
}

func NewSelector(source Source, cache Cache, opts ...Option) *Selector {
	s := &Selector{
		source: source,
		cache:  cache,
		retry:  RetryPolicy{Attempts: 2, BaseDelay: 100 * time.Millisecond},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadTemplate returns a private copy of the provider's template. An unknown
// provider is a *core.ConfigurationError. A template that cannot be fetched
// or parsed is logged and replaced by an uncached fallback.
func (s *Selector) LoadTemplate(ctx context.Context, provider workflow.Provider) (*workflow.Workflow, error) {
	if !provider.Valid() {
		return nil, core.NewConfigurationError("provider", fmt.Sprintf("unsupported provider %q", provider), nil)
	}
	if cached, ok := s.cache.Get(provider); ok {
		s.metrics.RecordTemplateLookup(ctx, string(provider), monitoring.CacheHit)
		return cached.Clone(), nil
	}
	s.metrics.RecordTemplateLookup(ctx, string(provider), monitoring.CacheMiss)
	// The flight is shared, so one caller's cancellation must not fail the
	// others. A load that straddles InvalidateCache is returned but not cached.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(string(provider), func() (any, error) {
		if cached, ok := s.cache.Get(provider); ok {
			return cached, nil
		}
		gen := s.gen.Load()
		wf, err := s.load(flightCtx, provider)
		if err != nil {
			return nil, err
		}
		if s.gen.Load() == gen {
			s.cache.Add(provider, wf)
		}
		return wf, nil
	})
	if err != nil {
		loadErr := &core.TemplateLoadError{Provider: string(provider), Err: err}
		logger.FromContext(ctx).Warn("Template unavailable, using fallback",
			"provider", provider, "source", s.source.Name(), "error", loadErr)
		s.metrics.RecordTemplateLookup(ctx, string(provider), monitoring.CacheFallback)
		return workflow.NewFallback(provider), nil
	}
	wf, ok := v.(*workflow.Workflow)
	if !ok {
		return nil, fmt.Errorf("unexpected cached template type %T", v)
	}
	return wf.Clone(), nil
}

func (s *Selector) load(ctx context.Context, provider workflow.Provider) (*workflow.Workflow, error) {
	log := logger.FromContext(ctx)
	var data []byte
	err := retry.Do(ctx, s.retry.backoff(), func(ctx context.Context) error {
		var err error
		data, err = s.source.Fetch(ctx, provider)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotFound) || errors.Is(err, gobreaker.ErrOpenState) {
			return err
		}
		log.Debug("Template fetch failed, retrying", "provider", provider, "error", err)
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}
	wf, err := workflow.ParseStrict(data)
	if err != nil {
		return nil, fmt.Errorf("invalid %s template: %w", provider, err)
	}
	log.Info("Template loaded", "provider", provider, "source", s.source.Name(), "nodes", len(wf.Nodes))
	return wf, nil
}

// InvalidateCache drops every cached template. Copies already handed out are
// unaffected.
func (s *Selector) InvalidateCache(ctx context.Context) {
	s.gen.Add(1)
	s.cache.Purge()
	logger.FromContext(ctx).Info("Template cache invalidated")
}
