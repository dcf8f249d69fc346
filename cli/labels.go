package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/inboxflow/inboxflow/engine/mailbox"
	"github.com/inboxflow/inboxflow/engine/workflow"
	"github.com/inboxflow/inboxflow/pkg/config"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const gmailLabelsScope = "https://www.googleapis.com/auth/gmail.labels"

func addLabelFlags(cmd *cobra.Command) {
	cmd.Flags().String("gmail-token", "", "Path to a Gmail OAuth token file used to list labels")
	cmd.Flags().String("graph-token", "", "Microsoft Graph access token used to list Outlook folders")
}

// loadToken reads an OAuth token saved as JSON.
func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}
	return &token, nil
}

// labelLister builds the lister for provider from the command flags, or
// returns nil when no credentials were given.
func labelLister(
	ctx context.Context,
	cmd *cobra.Command,
	provider workflow.Provider,
	cfg *config.Config,
) (mailbox.LabelLister, error) {
	switch provider {
	case workflow.ProviderGmail:
		path, _ := cmd.Flags().GetString("gmail-token")
		if path == "" {
			return nil, nil
		}
		token, err := loadToken(path)
		if err != nil {
			return nil, err
		}
		oauthCfg := &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret.Value(),
			RedirectURL:  cfg.Google.RedirectURL,
			Scopes:       []string{gmailLabelsScope},
			Endpoint:     google.Endpoint,
		}
		lister, err := mailbox.NewGmailLister(ctx, oauthCfg.TokenSource(ctx, token))
		if err != nil {
			return nil, err
		}
		return lister, nil
	case workflow.ProviderOutlook:
		access, _ := cmd.Flags().GetString("graph-token")
		if access == "" {
			return nil, nil
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: access})
		return mailbox.NewOutlookLister(cfg.Graph.BaseURL, cfg.Graph.Timeout, ts), nil
	default:
		return nil, nil
	}
}
