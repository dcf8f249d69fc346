package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/inboxflow/inboxflow/engine/infra/monitoring/metrics"
	"github.com/inboxflow/inboxflow/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type httpInstruments struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func newHTTPInstruments(meter metric.Meter) (*httpInstruments, error) {
	requests, err := meter.Int64Counter(
		"inboxflow_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"inboxflow_http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithExplicitBucketBoundaries(metrics.HTTPDurationBuckets...),
	)
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter(
		"inboxflow_http_requests_in_flight",
		metric.WithDescription("Currently active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}
	return &httpInstruments{requests: requests, duration: duration, inFlight: inFlight}, nil
}

// HTTPMetrics returns a Gin middleware that collects request count, latency
// and in-flight gauges labelled by method, route and status.
func HTTPMetrics(meter metric.Meter) gin.HandlerFunc {
	inst, err := newHTTPInstruments(meter)
	if err != nil {
		logger.Error("Failed to create HTTP metrics instruments", "error", err)
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		inst.inFlight.Add(ctx, 1)
		defer inst.inFlight.Add(ctx, -1)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", path),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)
		inst.requests.Add(ctx, 1, attrs)
		inst.duration.Record(ctx, time.Since(start).Seconds(), attrs)
	}
}
