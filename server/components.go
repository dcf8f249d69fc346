package server

import (
	"context"
	"fmt"

	"github.com/inboxflow/inboxflow/engine/deploy"
	"github.com/inboxflow/inboxflow/engine/deploy/n8n"
	"github.com/inboxflow/inboxflow/engine/infra/monitoring"
	"github.com/inboxflow/inboxflow/engine/inject"
	"github.com/inboxflow/inboxflow/engine/layer"
	"github.com/inboxflow/inboxflow/engine/template"
	"github.com/inboxflow/inboxflow/pkg/config"
	"github.com/inboxflow/inboxflow/pkg/logger"
)

// Components holds the long-lived pieces shared by the HTTP server and the
// CLI commands.
type Components struct {
	Monitoring *monitoring.Service
	Templates  *template.Selector
	Engine     *inject.Engine
	Deployer   *deploy.Service
}

// NewComponents wires the pipeline from cfg. A missing n8n API key leaves
// the deployer in preview-only mode.
func NewComponents(ctx context.Context, cfg *config.Config) (*Components, error) {
	log := logger.FromContext(ctx)
	mon := monitoring.NewWithFallback(ctx, &monitoring.Config{
		Enabled: cfg.Monitoring.Enabled,
		Path:    cfg.Monitoring.Path,
	})
	metrics := mon.Engine()

	selector, err := template.NewSelectorFromConfig(&cfg.Templates, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to build template selector: %w", err)
	}
	layers, err := layer.DefaultSet()
	if err != nil {
		return nil, err
	}
	engine := inject.New(layers,
		inject.WithAICredential(cfg.AI.CredentialID, cfg.AI.CredentialName),
		inject.WithMetrics(metrics),
	)

	var client deploy.Client
	if n8nClient, err := n8n.NewFromConfig(&cfg.N8N); err != nil {
		log.Warn("Workflow engine client disabled, deployments will fail", "reason", err)
	} else {
		client = n8nClient
	}
	return &Components{
		Monitoring: mon,
		Templates:  selector,
		Engine:     engine,
		Deployer:   deploy.NewService(selector, engine, client, deploy.WithMetrics(metrics)),
	}, nil
}

// Stop releases the metrics provider.
func (c *Components) Stop(ctx context.Context) error {
	if c == nil || c.Monitoring == nil {
		return nil
	}
	return c.Monitoring.Shutdown(ctx)
}
