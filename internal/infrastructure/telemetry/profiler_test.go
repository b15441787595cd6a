package telemetry_test

import (
	"context"
	"testing"

	"github.com/erp/manufacturing/internal/infrastructure/telemetry"
	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestParseProfileTypes(t *testing.T) {
	types, err := telemetry.ParseProfileTypes(nil)
	require.NoError(t, err)
	assert.Contains(t, types, pyroscope.ProfileCPU)
	assert.Contains(t, types, pyroscope.ProfileInuseSpace)

	types, err = telemetry.ParseProfileTypes([]string{" CPU ", "mutex_duration"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{pyroscope.ProfileCPU, pyroscope.ProfileMutexDuration}, types)

	_, err = telemetry.ParseProfileTypes([]string{"cpu", "heap"})
	assert.ErrorContains(t, err, `"heap"`)
}

func TestNewProfiler(t *testing.T) {
	t.Run("disabled is a no-op", func(t *testing.T) {
		p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{}, zaptest.NewLogger(t))
		require.NoError(t, err)
		assert.False(t, p.IsEnabled())
		assert.NoError(t, p.Stop())
		assert.NoError(t, p.Stop())
	})

	t.Run("enabled needs an address", func(t *testing.T) {
		_, err := telemetry.NewProfiler(telemetry.ProfilerConfig{Enabled: true, ApplicationName: "mfg"}, zaptest.NewLogger(t))
		assert.Error(t, err)
	})
}

func TestWithProfilingLabels_RunsCallback(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "outer")

	called := false
	telemetry.WithProfilingLabels(ctx, "bom.explode", func(inner context.Context) {
		called = true
		assert.Equal(t, "outer", inner.Value(key{}))
	}, "bom_id", "7")
	assert.True(t, called)
}

func TestEnableSpanProfiles_DisabledTracing(t *testing.T) {
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{ServiceName: "test"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	tp.EnableSpanProfiles()
	assert.False(t, tp.IsEnabled())
}
