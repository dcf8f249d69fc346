// Package monitoring exports the injection pipeline metrics through an
// OpenTelemetry meter backed by a private Prometheus registry.
package monitoring

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inboxflow/inboxflow/engine/infra/monitoring/middleware"
	"github.com/inboxflow/inboxflow/pkg/logger"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "inboxflow"

// Service owns the meter provider. When the exporter is disabled or failed to
// start, every instrument is a no-op and the exporter route answers 503.
type Service struct {
	cfg      *Config
	meter    metric.Meter
	provider *sdkmetric.MeterProvider
	registry *prom.Registry
	engine   *EngineMetrics
	err      error
}

func noopService(ctx context.Context, cfg *Config, err error) *Service {
	meter := noop.NewMeterProvider().Meter(meterName)
	return &Service{cfg: cfg, meter: meter, engine: NewEngineMetrics(ctx, meter), err: err}
}

// New builds the exporter described by cfg. A nil cfg means DefaultConfig.
func New(ctx context.Context, cfg *Config) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		logger.FromContext(ctx).Debug("Metrics exporter disabled")
		return noopService(ctx, cfg, nil), nil
	}
	registry := prom.NewRegistry()
	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(meterName)
	InitSystemMetrics(ctx, meter)
	logger.FromContext(ctx).Info("Metrics exporter ready", "path", cfg.Path)
	return &Service{
		cfg:      cfg,
		meter:    meter,
		provider: provider,
		registry: registry,
		engine:   NewEngineMetrics(ctx, meter),
	}, nil
}

// NewWithFallback is New, degrading to a no-op service on error.
func NewWithFallback(ctx context.Context, cfg *Config) *Service {
	svc, err := New(ctx, cfg)
	if err == nil {
		return svc
	}
	logger.FromContext(ctx).Error("Metrics exporter unavailable, recording nothing", "error", err)
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return noopService(ctx, cfg, err)
}

func (s *Service) Meter() metric.Meter { return s.meter }

// Engine returns the injection pipeline instruments.
func (s *Service) Engine() *EngineMetrics { return s.engine }

func (s *Service) Path() string { return s.cfg.Path }

// Enabled reports whether metrics reach a registry.
func (s *Service) Enabled() bool { return s.registry != nil }

// Err is the error that forced the fallback, if any.
func (s *Service) Err() error { return s.err }

// Middleware records HTTP request metrics for gin routes.
func (s *Service) Middleware() gin.HandlerFunc {
	if !s.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.HTTPMetrics(s.meter)
}

// Handler serves the Prometheus text exposition.
func (s *Service) Handler() http.Handler {
	if !s.Enabled() {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics exporter disabled", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}
	return s.provider.Shutdown(ctx)
}
