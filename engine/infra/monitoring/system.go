package monitoring

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/inboxflow/inboxflow/pkg/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Version and CommitHash are set through -ldflags at build time.
var (
	Version    = "unknown"
	CommitHash = "unknown"
)

var (
	systemInitOnce sync.Once
	startTime      time.Time
)

// BuildInfo returns the version, commit and Go version of the binary,
// falling back to the module build info when ldflags were not set.
func BuildInfo() (version, commit, goVersion string) {
	version, commit = Version, CommitHash
	if info, ok := debug.ReadBuildInfo(); ok {
		if version == "unknown" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
		for _, setting := range info.Settings {
			if commit == "unknown" && setting.Key == "vcs.revision" {
				commit = setting.Value
			}
		}
	}
	return version, commit, runtime.Version()
}

// InitSystemMetrics registers the build info and uptime gauges once per
// process.
func InitSystemMetrics(ctx context.Context, meter metric.Meter) {
	systemInitOnce.Do(func() {
		log := logger.FromContext(ctx)
		startTime = time.Now()
		version, commit, goVersion := BuildInfo()
		buildInfo, err := meter.Float64Gauge(
			"inboxflow_build_info",
			metric.WithDescription("Build information (value=1)"),
		)
		if err != nil {
			log.Error("Failed to create build info gauge", "error", err)
		} else {
			buildInfo.Record(ctx, 1, metric.WithAttributes(
				attribute.String("version", version),
				attribute.String("commit_hash", commit),
				attribute.String("go_version", goVersion),
			))
		}
		_, err = meter.Float64ObservableGauge(
			"inboxflow_uptime_seconds",
			metric.WithDescription("Service uptime in seconds"),
			metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
				o.Observe(time.Since(startTime).Seconds())
				return nil
			}),
		)
		if err != nil {
			log.Error("Failed to create uptime gauge", "error", err)
		}
		log.Info("System metrics initialized", "version", version, "commit", commit, "go_version", goVersion)
	})
}
