// Package n8n talks to the public REST API of an n8n instance.
package n8n

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/inboxflow/inboxflow/engine/workflow"
	"github.com/inboxflow/inboxflow/pkg/config"
	"github.com/inboxflow/inboxflow/pkg/logger"
	"github.com/tidwall/gjson"
)

const (
	apiPrefix    = "/api/v1"
	apiKeyHeader = "X-N8N-API-KEY"
)

// APIError is a non-2xx answer from n8n.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("n8n API error (status %d): %s", e.Status, e.Message)
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
	RetryWait  time.Duration
}

// Client implements workflow create, update and activation against n8n.
type Client struct {
	http *resty.Client
}

func New(opts Options) *Client {
	wait := opts.RetryWait
	if wait <= 0 {
		wait = 100 * time.Millisecond
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")+apiPrefix).
		SetTimeout(opts.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader(apiKeyHeader, opts.APIKey).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(2 * time.Second)
	client.AddRetryCondition(retryCondition)
	return &Client{http: client}
}

// NewFromConfig builds a Client from the n8n configuration section.
func NewFromConfig(cfg *config.N8NConfig) (*Client, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("n8n url is required")
	}
	if cfg.APIKey.Value() == "" {
		return nil, errors.New("n8n api key is required (set INBOXFLOW_N8N_API_KEY)")
	}
	return New(Options{
		BaseURL:    cfg.URL,
		APIKey:     cfg.APIKey.Value(),
		Timeout:    cfg.Timeout,
		RetryCount: cfg.RetryCount,
	}), nil
}

// retryCondition retries network failures, server errors and throttling.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests
}

// payload keeps the fields the n8n API accepts on write; it rejects the
// read-only ones such as meta, tags and active.
func payload(wf *workflow.Workflow) map[string]any {
	settings := wf.Settings
	if settings == nil {
		settings = workflow.Settings{}
	}
	body := map[string]any{
		"name":        wf.Name,
		"nodes":       wf.Nodes,
		"connections": wf.Connections,
		"settings":    settings,
	}
	if len(wf.StaticData) > 0 {
		body["staticData"] = wf.StaticData
	}
	return body
}

// Create stores wf as a new workflow and returns its id.
func (c *Client) Create(ctx context.Context, wf *workflow.Workflow) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload(wf)).
		Post("/workflows")
	if err != nil {
		return "", fmt.Errorf("failed to create workflow: %w", err)
	}
	if err := checkResponse(resp); err != nil {
		return "", fmt.Errorf("failed to create workflow: %w", err)
	}
	id := gjson.GetBytes(resp.Body(), "id").String()
	if id == "" {
		return "", errors.New("failed to create workflow: response carries no id")
	}
	logger.FromContext(ctx).Debug("n8n workflow created", "workflow_id", id)
	return id, nil
}

// Update replaces the workflow stored under id.
func (c *Client) Update(ctx context.Context, id string, wf *workflow.Workflow) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetBody(payload(wf)).
		Put("/workflows/{id}")
	if err != nil {
		return fmt.Errorf("failed to update workflow %s: %w", id, err)
	}
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("failed to update workflow %s: %w", id, err)
	}
	return nil
}

func (c *Client) Activate(ctx context.Context, id string) error {
	return c.post(ctx, id, "activate")
}

// Delete removes the workflow stored under id.
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Delete("/workflows/{id}")
	if err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, id, action string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetPathParam("action", action).
		Post("/workflows/{id}/{action}")
	if err != nil {
		return fmt.Errorf("failed to %s workflow %s: %w", action, id, err)
	}
	if err := checkResponse(resp); err != nil {
		return fmt.Errorf("failed to %s workflow %s: %w", action, id, err)
	}
	return nil
}

func checkResponse(resp *resty.Response) error {
	if resp.StatusCode() < 400 {
		return nil
	}
	msg := gjson.GetBytes(resp.Body(), "message").String()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}
	return &APIError{Status: resp.StatusCode(), Message: msg}
}
