package n8n

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/inboxflow/inboxflow/engine/workflow"
	"github.com/inboxflow/inboxflow/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWorkflow() *workflow.Workflow {
	return &workflow.Workflow{
		Name:        "Acme - Gmail AI Email Automation",
		Nodes:       []workflow.Node{{ID: "n1", Name: "Gmail Trigger", Type: workflow.KindGmailTrigger.TypeTag()}},
		Connections: workflow.Connections{},
		Meta:        map[string]any{"templateId": "gmail"},
		Tags:        []workflow.Tag{{Name: "acme"}},
		Active:      true,
	}
}

func newTestClient(url string) *Client {
	return New(Options{BaseURL: url, APIKey: "secret", Timeout: 5 * time.Second, RetryCount: 2, RetryWait: time.Millisecond})
}

func TestClient_Create(t *testing.T) {
	t.Run("Should post the writable fields with the api key and return the id", func(t *testing.T) {
		var body map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/api/v1/workflows", r.URL.Path)
			assert.Equal(t, "secret", r.Header.Get(apiKeyHeader))
			data, err := io.ReadAll(r.Body)
			assert.NoError(t, err)
			assert.NoError(t, json.Unmarshal(data, &body))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"wf-42","name":"Acme"}`))
		}))
		defer srv.Close()

		id, err := newTestClient(srv.URL).Create(context.Background(), sampleWorkflow())
		require.NoError(t, err)

		assert.Equal(t, "wf-42", id)
		assert.Equal(t, "Acme - Gmail AI Email Automation", body["name"])
		assert.Contains(t, body, "nodes")
		assert.Contains(t, body, "connections")
		assert.Equal(t, map[string]any{}, body["settings"])
		assert.NotContains(t, body, "meta")
		assert.NotContains(t, body, "tags")
		assert.NotContains(t, body, "active")
	})

	t.Run("Should retry server errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"id":"wf-7"}`))
		}))
		defer srv.Close()

		id, err := newTestClient(srv.URL).Create(context.Background(), sampleWorkflow())
		require.NoError(t, err)

		assert.Equal(t, "wf-7", id)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("Should surface the API message on client errors", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"request/body must have required property 'settings'"}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Create(context.Background(), sampleWorkflow())

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		assert.Contains(t, apiErr.Message, "settings")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Should fail when the response has no id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Create(context.Background(), sampleWorkflow())
		assert.ErrorContains(t, err, "no id")
	})
}

func TestClient_Lifecycle(t *testing.T) {
	t.Run("Should address the workflow by id", func(t *testing.T) {
		var seen []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = append(seen, r.Method+" "+r.URL.Path)
			_, _ = w.Write([]byte(`{"id":"wf-1"}`))
		}))
		defer srv.Close()
		client := newTestClient(srv.URL)
		ctx := context.Background()

		require.NoError(t, client.Update(ctx, "wf-1", sampleWorkflow()))
		require.NoError(t, client.Activate(ctx, "wf-1"))
		require.NoError(t, client.Delete(ctx, "wf-1"))

		assert.Equal(t, []string{
			"PUT /api/v1/workflows/wf-1",
			"POST /api/v1/workflows/wf-1/activate",
			"DELETE /api/v1/workflows/wf-1",
		}, seen)
	})

	t.Run("Should report a missing workflow", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		err := newTestClient(srv.URL).Activate(context.Background(), "missing")

		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "Not Found", apiErr.Message)
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Run("Should require an api key", func(t *testing.T) {
		_, err := NewFromConfig(&config.N8NConfig{URL: "http://localhost:5678"})
		assert.ErrorContains(t, err, "api key")
	})

	t.Run("Should build a client from configuration", func(t *testing.T) {
		client, err := NewFromConfig(&config.N8NConfig{URL: "http://localhost:5678/", APIKey: "k"})
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:5678/api/v1", client.http.BaseURL)
	})
}
