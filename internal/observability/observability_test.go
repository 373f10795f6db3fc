package observability

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetupLogger(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	t.Run("json to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "engine.log")
		closer, err := SetupLogger(LogConfig{Level: "debug", Format: "json", Output: path})
		require.NoError(t, err)

		logger := WithComponent("engine")
		logger.Debug().Str("round_id", "r1").Msg("round started")
		require.NoError(t, closer.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"component":"engine"`)
		assert.Contains(t, string(data), `"round_id":"r1"`)
		assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := SetupLogger(LogConfig{Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		closer, err := SetupLogger(DefaultLogConfig())
		require.NoError(t, err)
		assert.NoError(t, closer.Close())
		assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	})
}

func TestSetupTracingDisabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	shutdown, err := SetupTracing(context.Background(), DefaultTracingConfig())
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	assert.Equal(t, prev, otel.GetTracerProvider())
}

func TestSetupTracingEnabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := DefaultTracingConfig()
	cfg.Enabled = true
	cfg.SampleRate = 0.5
	shutdown, err := SetupTracing(context.Background(), cfg)
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)

	// Nothing listens on the endpoint; shutdown must not hang past its deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	_ = shutdown(ctx)
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Contains(t, sampler(0.25).Description(), "ParentBased")
}
