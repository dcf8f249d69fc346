package mailbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/inboxflow/inboxflow/pkg/logger"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

const (
	// DefaultGraphURL is the Microsoft Graph v1.0 endpoint.
	DefaultGraphURL = "https://graph.microsoft.com/v1.0"
	nextLinkKey     = "@odata.nextLink"
	// maxFolderPages bounds paging in case the service keeps returning links.
	maxFolderPages = 50
)

// OutlookLister lists the mail folders of an Outlook mailbox through
// Microsoft Graph, following @odata.nextLink pages.
type OutlookLister struct {
	http   *resty.Client
	tokens oauth2.TokenSource
}

func NewOutlookLister(baseURL string, timeout time.Duration, ts oauth2.TokenSource) *OutlookLister {
	if baseURL == "" {
		baseURL = DefaultGraphURL
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &OutlookLister{http: client, tokens: ts}
}

func (o *OutlookLister) ListLabels(ctx context.Context) (map[string]string, error) {
	token, err := o.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain Graph token: %w", err)
	}
	labels := make(map[string]string)
	url := "/me/mailFolders?$top=100"
	for page := 0; url != ""; page++ {
		if page == maxFolderPages {
			logger.FromContext(ctx).Warn("Stopped paging Outlook folders", "pages", page)
			break
		}
		resp, err := o.http.R().
			SetContext(ctx).
			SetAuthToken(token.AccessToken).
			Get(url)
		if err != nil {
			return nil, fmt.Errorf("failed to list Outlook folders: %w", err)
		}
		if resp.StatusCode() >= 400 {
			msg := gjson.GetBytes(resp.Body(), "error.message").String()
			return nil, fmt.Errorf("failed to list Outlook folders: status %d: %s", resp.StatusCode(), msg)
		}
		body := gjson.ParseBytes(resp.Body())
		body.Get("value").ForEach(func(_, folder gjson.Result) bool {
			name := folder.Get("displayName").String()
			id := folder.Get("id").String()
			if name != "" && id != "" {
				labels[name] = id
			}
			return true
		})
		url = ""
		body.ForEach(func(key, value gjson.Result) bool {
			if key.String() == nextLinkKey {
				url = value.String()
				return false
			}
			return true
		})
	}
	return labels, nil
}
