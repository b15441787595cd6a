package telemetry_test

import (
	"context"
	"testing"

	"github.com/erp/manufacturing/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

func TestLoggerProvider_DisabledBridgeKeepsBase(t *testing.T) {
	lp, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{ServiceName: "test"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	base := zap.NewNop()
	assert.False(t, lp.IsEnabled())
	assert.Same(t, base, lp.Bridge(base, zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestMeterProvider_Disabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{ServiceName: "test"}, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	_, err = telemetry.NewEventMetrics(mp.Meter(telemetry.MeterName))
	assert.NoError(t, err, "instruments of the no-op meter still work")
	assert.NoError(t, mp.Shutdown(context.Background()))
}
