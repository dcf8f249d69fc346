package template

import (
	"fmt"

	"github.com/inboxflow/inboxflow/engine/infra/monitoring"
	"github.com/inboxflow/inboxflow/pkg/config"
)

// NewSourceFromConfig builds the Source named by the templates section.
func NewSourceFromConfig(cfg *config.TemplatesConfig) (Source, error) {
	switch cfg.Source {
	case "", "embedded":
		return NewEmbeddedSource(), nil
	case "http":
		return NewHTTPSource(cfg.URL, cfg.FetchTimeout, BreakerSettings{
			MaxFailures: cfg.BreakerMaxFailures,
			Cooldown:    cfg.BreakerCooldown,
		}), nil
	case "dir":
		return NewDirSource(nil, cfg.Dir), nil
	default:
		return nil, fmt.Errorf("unknown template source %q", cfg.Source)
	}
}

// NewSelectorFromConfig wires a Selector from configuration.
func NewSelectorFromConfig(cfg *config.TemplatesConfig, metrics *monitoring.EngineMetrics) (*Selector, error) {
	source, err := NewSourceFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	cache, err := NewLRUCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	return NewSelector(source, cache,
		WithRetry(RetryPolicy{Attempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBaseDelay}),
		WithMetrics(metrics),
	), nil
}
