package monitoring

import (
	"context"
	"time"

	"github.com/inboxflow/inboxflow/engine/infra/monitoring/metrics"
	"github.com/inboxflow/inboxflow/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Cache lookup results recorded by RecordTemplateLookup.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheFallback = "fallback"
)

// EngineMetrics holds the injection pipeline instruments. A nil
// *EngineMetrics records nothing, so callers never need to guard it.
type EngineMetrics struct {
	injections        metric.Int64Counter
	injectionDuration metric.Float64Histogram
	validationScore   metric.Float64Histogram
	templateLookups   metric.Int64Counter
	layerFallbacks    metric.Int64Counter
	deployments       metric.Int64Counter
}

// NewEngineMetrics creates the instruments on meter. Instruments that fail
// to register are logged and skipped.
func NewEngineMetrics(ctx context.Context, meter metric.Meter) *EngineMetrics {
	log := logger.FromContext(ctx)
	m := &EngineMetrics{}
	var err error
	m.injections, err = meter.Int64Counter(
		"inboxflow_injections_total",
		metric.WithDescription("Workflow injections by provider and outcome"),
	)
	if err != nil {
		log.Error("Failed to create injections counter", "error", err)
	}
	m.injectionDuration, err = meter.Float64Histogram(
		"inboxflow_injection_duration_seconds",
		metric.WithDescription("Injection pipeline latency"),
		metric.WithExplicitBucketBoundaries(metrics.InjectionDurationBuckets...),
	)
	if err != nil {
		log.Error("Failed to create injection duration histogram", "error", err)
	}
	m.validationScore, err = meter.Float64Histogram(
		"inboxflow_validation_score",
		metric.WithDescription("Structural validation score of injected workflows"),
		metric.WithExplicitBucketBoundaries(metrics.ValidationScoreBuckets...),
	)
	if err != nil {
		log.Error("Failed to create validation score histogram", "error", err)
	}
	m.templateLookups, err = meter.Int64Counter(
		"inboxflow_template_cache_lookups_total",
		metric.WithDescription("Template cache lookups by provider and result"),
	)
	if err != nil {
		log.Error("Failed to create template lookups counter", "error", err)
	}
	m.layerFallbacks, err = meter.Int64Counter(
		"inboxflow_layer_fallbacks_total",
		metric.WithDescription("Layer extractor failures replaced by fallback text"),
	)
	if err != nil {
		log.Error("Failed to create layer fallbacks counter", "error", err)
	}
	m.deployments, err = meter.Int64Counter(
		"inboxflow_deployments_total",
		metric.WithDescription("Deployment attempts by provider and outcome"),
	)
	if err != nil {
		log.Error("Failed to create deployments counter", "error", err)
	}
	return m
}

// RecordInjection records one injection run.
func (m *EngineMetrics) RecordInjection(ctx context.Context, provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("provider", provider), attribute.String("outcome", outcome))
	if m.injections != nil {
		m.injections.Add(ctx, 1, attrs)
	}
	if m.injectionDuration != nil {
		m.injectionDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

// RecordValidationScore records a validator score.
func (m *EngineMetrics) RecordValidationScore(ctx context.Context, provider string, score int) {
	if m == nil || m.validationScore == nil {
		return
	}
	m.validationScore.Record(ctx, float64(score), metric.WithAttributes(attribute.String("provider", provider)))
}

// RecordTemplateLookup records a template cache hit, miss or fallback.
func (m *EngineMetrics) RecordTemplateLookup(ctx context.Context, provider, result string) {
	if m == nil || m.templateLookups == nil {
		return
	}
	m.templateLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("result", result),
	))
}

// RecordLayerFallback records a layer extractor failure.
func (m *EngineMetrics) RecordLayerFallback(ctx context.Context, layer string) {
	if m == nil || m.layerFallbacks == nil {
		return
	}
	m.layerFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("layer", layer)))
}

// RecordDeployment records a deployment attempt.
func (m *EngineMetrics) RecordDeployment(ctx context.Context, provider, outcome string) {
	if m == nil || m.deployments == nil {
		return
	}
	m.deployments.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("outcome", outcome),
	))
}
