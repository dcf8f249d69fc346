package template

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/inboxflow/inboxflow/engine/workflow"
	"github.com/sony/gobreaker/v2"
	"github.com/spf13/afero"
)

//go:embed builtin/*.json
var builtinFS embed.FS

// ErrNotFound means the source has no template for the provider. It is not
// retried.
var ErrNotFound = errors.New("template not found")

// Source fetches the raw template document for a provider.
type Source interface {
	Name() string
	Fetch(ctx context.Context, provider workflow.Provider) ([]byte, error)
}

// EmbeddedSource serves the templates compiled into the binary.
type EmbeddedSource struct{}

func NewEmbeddedSource() *EmbeddedSource { return &EmbeddedSource{} }

func (s *EmbeddedSource) Name() string { return "embedded" }

func (s *EmbeddedSource) Fetch(_ context.Context, provider workflow.Provider) ([]byte, error) {
	data, err := builtinFS.ReadFile("builtin/" + string(provider) + ".json")
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, provider)
	}
	return data, nil
}

// DirSource reads {dir}/{provider}.json from a filesystem.
type DirSource struct {
	fs  afero.Fs
	dir string
}

// NewDirSource reads templates from dir on fs; a nil fs means the OS
// filesystem.
func NewDirSource(fs afero.Fs, dir string) *DirSource {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &DirSource{fs: fs, dir: dir}
}

func (s *DirSource) Name() string { return "dir" }

func (s *DirSource) Fetch(_ context.Context, provider workflow.Provider) ([]byte, error) {
	path := filepath.Join(s.dir, string(provider)+".json")
	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	return data, nil
}

// BreakerSettings configures the circuit breaker guarding HTTPSource.
type BreakerSettings struct {
	MaxFailures uint32
	Cooldown    time.Duration
}

// HTTPSource fetches {base}/{provider}.json from a template service.
// Consecutive failures open a circuit breaker so an unavailable service
// fails fast.
type HTTPSource struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func NewHTTPSource(baseURL string, timeout time.Duration, settings BreakerSettings) *HTTPSource {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "templates:" + baseURL,
		MaxRequests: 1,
		Timeout:     settings.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
	})
	return &HTTPSource{client: client, breaker: breaker}
}

func (s *HTTPSource) Name() string { return "http" }

// State exposes the breaker state.
func (s *HTTPSource) State() gobreaker.State {
	return s.breaker.State()
}

func (s *HTTPSource) Fetch(ctx context.Context, provider workflow.Provider) ([]byte, error) {
	return s.breaker.Execute(func() ([]byte, error) {
		resp, err := s.client.R().
			SetContext(ctx).
			SetPathParam("provider", string(provider)).
			Get("/{provider}.json")
		if err != nil {
			return nil, fmt.Errorf("failed to fetch template: %w", err)
		}
		switch {
		case resp.StatusCode() == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, provider)
		case resp.IsError():
			return nil, fmt.Errorf("template service returned %s", resp.Status())
		}
		return resp.Body(), nil
	})
}
