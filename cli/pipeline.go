package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/inboxflow/inboxflow/engine/business"
	"github.com/inboxflow/inboxflow/engine/deploy"
	"github.com/inboxflow/inboxflow/engine/mailbox"
	"github.com/inboxflow/inboxflow/engine/workflow"
	"github.com/inboxflow/inboxflow/pkg/config"
	"github.com/inboxflow/inboxflow/pkg/logger"
	"github.com/inboxflow/inboxflow/server"
	"github.com/spf13/cobra"
)

// errInvalidWorkflow makes the validate command exit non-zero.
var errInvalidWorkflow = errors.New("workflow failed validation")

func addBusinessFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", "Email provider (gmail, outlook); defaults to the business file")
	addLabelFlags(cmd)
}

// buildRequest loads the business file and fills its labels from the
// mailbox when the file has none.
func buildRequest(cmd *cobra.Command, path string) (deploy.Request, error) {
	ctx := cmd.Context()
	cfg, err := business.LoadFile(path)
	if err != nil {
		return deploy.Request{}, err
	}
	req := deploy.Request{Business: cfg}
	if p, _ := cmd.Flags().GetString("provider"); p != "" {
		req.Provider = workflow.Provider(p)
	}
	provider := req.Provider
	if provider == "" {
		provider = cfg.Provider
	}
	if len(cfg.Labels) == 0 {
		lister, err := labelLister(ctx, cmd, provider, config.FromContext(ctx))
		if err != nil {
			return deploy.Request{}, err
		}
		if lister != nil {
			labels, err := mailbox.Fill(ctx, lister, cfg.Labels)
			if err != nil {
				return deploy.Request{}, err
			}
			cfg.Labels = labels
			logger.FromContext(ctx).Info("Loaded mailbox labels", "provider", provider, "count", len(labels))
		}
	}
	return req, nil
}

// withComponents builds the pipeline for the duration of fn.
func withComponents(cmd *cobra.Command, fn func(ctx context.Context, c *server.Components) error) error {
	ctx := cmd.Context()
	components, err := server.NewComponents(ctx, config.FromContext(ctx))
	if err != nil {
		return err
	}
	defer func() {
		if err := components.Stop(context.WithoutCancel(ctx)); err != nil {
			logger.FromContext(ctx).Warn("Failed to stop components", "error", err)
		}
	}()
	return fn(ctx, components)
}

// InjectCmd prints the personalized workflow for a business file.
func InjectCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "inject <business.yaml>",
		Short: "Render the personalized workflow for a business",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(cmd, args[0])
			if err != nil {
				return err
			}
			return withComponents(cmd, func(ctx context.Context, c *server.Components) error {
				res, err := c.Deployer.Preview(ctx, req)
				if err != nil {
					return err
				}
				if full {
					return writeJSON(cmd.OutOrStdout(), res)
				}
				return writeJSON(cmd.OutOrStdout(), res.Workflow)
			})
		},
	}
	addBusinessFlags(cmd)
	cmd.Flags().BoolVar(&full, "full", false, "Print the validation report and pending credentials as well")
	return cmd
}

// ValidateCmd prints the validation report and fails when it is invalid.
func ValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <business.yaml>",
		Short: "Check the personalized workflow for a business",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(cmd, args[0])
			if err != nil {
				return err
			}
			return withComponents(cmd, func(ctx context.Context, c *server.Components) error {
				res, err := c.Deployer.Preview(ctx, req)
				if err != nil {
					return err
				}
				if err := writeJSON(cmd.OutOrStdout(), res.Report); err != nil {
					return err
				}
				if !res.Report.Valid {
					return fmt.Errorf("%w: score %d", errInvalidWorkflow, res.Report.Score)
				}
				return nil
			})
		},
	}
	addBusinessFlags(cmd)
	return cmd
}

// DeployCmd pushes the personalized workflow to n8n.
func DeployCmd() *cobra.Command {
	var (
		workflowID   string
		activate     bool
		allowInvalid bool
	)
	cmd := &cobra.Command{
		Use:   "deploy <business.yaml>",
		Short: "Create or update the personalized workflow in n8n",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := buildRequest(cmd, args[0])
			if err != nil {
				return err
			}
			req.WorkflowID = workflowID
			req.Activate = activate
			req.AllowInvalid = allowInvalid
			return withComponents(cmd, func(ctx context.Context, c *server.Components) error {
				res, err := c.Deployer.Deploy(ctx, req)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	addBusinessFlags(cmd)
	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "Update this workflow instead of creating one")
	cmd.Flags().BoolVar(&activate, "activate", false, "Activate the workflow after storing it")
	cmd.Flags().BoolVar(&allowInvalid, "allow-invalid", false, "Deploy even when validation reports issues")
	return cmd
}
