package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/foottraffic/pkg/batch/core/config"
	"github.com/tigerroll/foottraffic/pkg/batch/infrastructure/telemetry"
)

func TestSetup_DisabledReturnsNoOpProviders(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, p.Enabled)
	assert.NotNil(t, p.TracerProvider)
	assert.NotNil(t, p.MeterProvider)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_Stdout(t *testing.T) {
	p, err := telemetry.Setup(context.Background(), config.TelemetryConfig{
		Enabled:     true,
		Protocol:    "stdout",
		ServiceName: "foottraffic-test",
	})
	require.NoError(t, err)
	assert.True(t, p.Enabled)

	_, span := p.TracerProvider.Tracer("test").Start(context.Background(), "ingest")
	span.End()

	assert.NoError(t, p.Shutdown(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()), "second shutdown is a no-op")
}

func TestSetup_UnsupportedProtocol(t *testing.T) {
	_, err := telemetry.Setup(context.Background(), config.TelemetryConfig{Enabled: true, Protocol: "zipkin"})
	assert.Error(t, err)
}
