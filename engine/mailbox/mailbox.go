// Package mailbox enumerates provider labels and folders so a business file
// can omit its label map.
package mailbox

import (
	"context"
	"fmt"

	"github.com/inboxflow/inboxflow/engine/workflow"
)

// LabelLister returns the mailbox labels as display name -> provider id.
type LabelLister interface {
	ListLabels(ctx context.Context) (map[string]string, error)
}

// Fill returns existing when it has entries, otherwise the labels reported
// by lister.
func Fill(ctx context.Context, lister LabelLister, existing map[string]string) (map[string]string, error) {
	if len(existing) > 0 {
		return existing, nil
	}
	labels, err := lister.ListLabels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list mailbox labels: %w", err)
	}
	return labels, nil
}

// Providers maps each lister to the provider it serves.
type Providers map[workflow.Provider]LabelLister

// For returns the lister for provider, or an error when none is configured.
func (p Providers) For(provider workflow.Provider) (LabelLister, error) {
	if l, ok := p[provider]; ok && l != nil {
		return l, nil
	}
	return nil, fmt.Errorf("no label lister configured for %s", provider)
}
