// Package deploy runs the full pipeline for one business: load the provider
// template, inject, validate and push the result to the workflow engine.
package deploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/gosimple/slug"
	"github.com/inboxflow/inboxflow/engine/business"
	"github.com/inboxflow/inboxflow/engine/core"
	"github.com/inboxflow/inboxflow/engine/infra/monitoring"
	"github.com/inboxflow/inboxflow/engine/inject"
	"github.com/inboxflow/inboxflow/engine/layer"
	"github.com/inboxflow/inboxflow/engine/validate"
	"github.com/inboxflow/inboxflow/engine/workflow"
	"github.com/inboxflow/inboxflow/pkg/logger"
	"github.com/segmentio/ksuid"
)

// ErrRejected is returned when a workflow fails validation and the request
// does not allow invalid deployments.
var ErrRejected = errors.New("workflow rejected by validation")

// RejectedError carries the report that blocked a deployment.
type RejectedError struct {
	AttemptID string
	Report    validate.Report
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("workflow rejected by validation (score %d): %v", e.Report.Score, e.Report.Issues)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// Client is the workflow engine API used for deployment.
type Client interface {
	Create(ctx context.Context, wf *workflow.Workflow) (string, error)
	Update(ctx context.Context, id string, wf *workflow.Workflow) error
	Activate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// TemplateLoader returns a private copy of a provider template.
type TemplateLoader interface {
	LoadTemplate(ctx context.Context, provider workflow.Provider) (*workflow.Workflow, error)
}

// Request describes one deployment attempt.
type Request struct {
	// Provider overrides the provider of Business when set.
	Provider workflow.Provider `json:"provider,omitempty"`
	Business *business.Config  `json:"business"`
	// WorkflowID updates an existing workflow instead of creating one.
	WorkflowID   string `json:"workflow_id,omitempty"`
	Activate     bool   `json:"activate,omitempty"`
	AllowInvalid bool   `json:"allow_invalid,omitempty"`
}

// Result is the outcome of Preview or Deploy.
type Result struct {
	AttemptID          string             `json:"attempt_id"`
	WorkflowID         string             `json:"workflow_id,omitempty"`
	Workflow           *workflow.Workflow `json:"workflow"`
	Report             validate.Report    `json:"report"`
	PendingCredentials []string           `json:"pending_credentials"`
	DegradedLayers     []layer.Name       `json:"degraded_layers,omitempty"`
	Deployed           bool               `json:"deployed"`
	Activated          bool               `json:"activated"`
}

// Option configures a Service.
type Option func(*Service)

func WithMetrics(m *monitoring.EngineMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service wires the selector, the injection engine and the engine client.
type Service struct {
	templates TemplateLoader
	engine    *inject.Engine
	client    Client
	metrics   *monitoring.EngineMetrics
}

// NewService builds a Service. client may be nil, in which case only Preview
// is usable.
func NewService(templates TemplateLoader, engine *inject.Engine, client Client, opts ...Option) *Service {
	s := &Service{templates: templates, engine: engine, client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preview runs the pipeline without calling the workflow engine.
func (s *Service) Preview(ctx context.Context, req Request) (*Result, error) {
	return s.prepare(ctx, req, ksuid.New().String())
}

// Deploy runs the pipeline and creates or updates the workflow. A workflow
// that fails validation is rejected with a *RejectedError unless
// req.AllowInvalid is set.
func (s *Service) Deploy(ctx context.Context, req Request) (*Result, error) {
	attempt := ksuid.New().String()
	if s.client == nil {
		return nil, errors.New("no workflow engine client configured")
	}
	res, err := s.prepare(ctx, req, attempt)
	if err != nil {
		s.metrics.RecordDeployment(ctx, string(req.provider()), "error")
		return nil, err
	}
	provider := string(req.provider())
	log := logger.FromContext(ctx).With("attempt_id", attempt, "provider", provider)

	if !res.Report.Valid && !req.AllowInvalid {
		s.metrics.RecordDeployment(ctx, provider, "rejected")
		log.Warn("Deployment rejected by validation", "score", res.Report.Score, "issues", res.Report.Issues)
		return nil, &RejectedError{AttemptID: attempt, Report: res.Report}
	}
	if !res.Report.Valid {
		log.Warn("Deploying workflow that failed validation", "score", res.Report.Score, "issues", res.Report.Issues)
	}

	outcome := "created"
	if req.WorkflowID != "" {
		if err := s.client.Update(ctx, req.WorkflowID, res.Workflow); err != nil {
			s.metrics.RecordDeployment(ctx, provider, "error")
			return nil, err
		}
		res.WorkflowID = req.WorkflowID
		outcome = "updated"
	} else {
		id, err := s.client.Create(ctx, res.Workflow)
		if err != nil {
			s.metrics.RecordDeployment(ctx, provider, "error")
			return nil, err
		}
		res.WorkflowID = id
	}
	res.Deployed = true

	if req.Activate {
		if err := s.client.Activate(ctx, res.WorkflowID); err != nil {
			s.metrics.RecordDeployment(ctx, provider, "error")
			if req.WorkflowID != "" {
				return nil, fmt.Errorf("workflow %s stored but not activated: %w", res.WorkflowID, err)
			}
			return nil, s.rollback(ctx, log, res.WorkflowID, err)
		}
		res.Activated = true
		res.Workflow.Active = true
	}
	s.metrics.RecordDeployment(ctx, provider, outcome)
	log.Info("Workflow deployed",
		"workflow_id", res.WorkflowID,
		"outcome", outcome,
		"activated", res.Activated,
		"pending_credentials", len(res.PendingCredentials),
	)
	return res, nil
}

// rollback removes a workflow created by a deployment whose activation
// failed, so a retried deployment does not leave a duplicate behind.
func (s *Service) rollback(ctx context.Context, log logger.Logger, id string, cause error) error {
	err := fmt.Errorf("workflow %s created but not activated: %w", id, cause)
	if delErr := s.client.Delete(context.WithoutCancel(ctx), id); delErr != nil {
		log.Error("Failed to remove inactive workflow", "workflow_id", id, "error", delErr)
		return errors.Join(err, delErr)
	}
	log.Info("Removed inactive workflow", "workflow_id", id)
	return err
}

func (r Request) provider() workflow.Provider {
	if r.Provider != "" {
		return r.Provider
	}
	if r.Business != nil {
		return r.Business.Provider
	}
	return ""
}

func (s *Service) prepare(ctx context.Context, req Request, attempt string) (*Result, error) {
	if req.Business == nil {
		return nil, core.NewConfigurationError("business", "is required", nil)
	}
	cfg := *req.Business
	cfg.Provider = req.provider()
	if !cfg.Provider.Valid() {
		return nil, core.NewConfigurationError("provider", fmt.Sprintf("unsupported provider %q", cfg.Provider), nil)
	}
	ctx = logger.ContextWithLogger(ctx, logger.FromContext(ctx).With("attempt_id", attempt))

	tpl, err := s.templates.LoadTemplate(ctx, cfg.Provider)
	if err != nil {
		return nil, err
	}
	injected, err := s.engine.Inject(ctx, tpl, &cfg)
	if err != nil {
		return nil, err
	}
	wf := injected.Workflow
	if tag := slug.Make(cfg.Business.Name); tag != "" {
		wf.Tags = []workflow.Tag{{Name: tag}}
	}
	report := validate.Validate(wf)
	s.metrics.RecordValidationScore(ctx, string(cfg.Provider), report.Score)

	pending := injected.Binding.Pending
	if pending == nil {
		pending = []string{}
	}
	return &Result{
		AttemptID:          attempt,
		Workflow:           wf,
		Report:             report,
		PendingCredentials: pending,
		DegradedLayers:     injected.Degraded,
	}, nil
}
