package mailbox

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

const gmailUserLabel = "user"

// GmailLister lists the user labels of a Gmail mailbox. System labels such
// as INBOX are skipped.
type GmailLister struct {
	svc *gmail.Service
}

// NewGmailLister authenticates with ts. Extra client options are appended,
// which lets callers point the service at another endpoint.
func NewGmailLister(ctx context.Context, ts oauth2.TokenSource, opts ...option.ClientOption) (*GmailLister, error) {
	var all []option.ClientOption
	if ts != nil {
		all = append(all, option.WithTokenSource(ts))
	}
	all = append(all, opts...)
	svc, err := gmail.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return &GmailLister{svc: svc}, nil
}

func (g *GmailLister) ListLabels(ctx context.Context) (map[string]string, error) {
	resp, err := g.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list Gmail labels: %w", err)
	}
	labels := make(map[string]string, len(resp.Labels))
	for _, l := range resp.Labels {
		if l.Type != gmailUserLabel || l.Name == "" || l.Id == "" {
			continue
		}
		labels[l.Name] = l.Id
	}
	return labels, nil
}
