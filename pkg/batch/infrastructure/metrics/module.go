package metrics

import (
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/foottraffic/pkg/batch/core/config"
	metrics "github.com/tigerroll/foottraffic/pkg/batch/core/metrics"
	"github.com/tigerroll/foottraffic/pkg/batch/infrastructure/telemetry"
	logger "github.com/tigerroll/foottraffic/pkg/batch/support/util/logger"
)

// NewMetricRecorder selects the recorder for the configured metrics backend.
func NewMetricRecorder(cfg *config.Config, providers *telemetry.Providers) (metrics.MetricRecorder, error) {
	mc := cfg.Foottraffic.Metrics
	switch mc.Backend {
	case "", "none":
		return metrics.NewNoOpMetricRecorder(), nil
	case "prometheus":
		logger.Infof("Metrics: using Prometheus recorder (pushgateway: %q).", mc.PushgatewayURL)
		return NewPrometheusRecorder(mc.PushgatewayURL, mc.PushJobName), nil
	case "otel":
		logger.Infof("Metrics: using OpenTelemetry recorder.")
		return NewOTelRecorder(providers.MeterProvider)
	default:
		return nil, fmt.Errorf("unsupported metrics backend: %s", mc.Backend)
	}
}

// NewTracer returns an OpenTelemetry tracer when telemetry is enabled and a no-op tracer otherwise.
func NewTracer(providers *telemetry.Providers) metrics.Tracer {
	if !providers.Enabled {
		return metrics.NewNoOpTracer()
	}
	return NewOpenTelemetryTracer(providers.TracerProvider)
}

// Module provides the MetricRecorder and Tracer.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
