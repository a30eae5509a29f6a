package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerProvider_DisabledBridgeIsIdentity(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), LogsConfig{}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())

	base := zap.NewNop()
	assert.Same(t, base, lp.Bridge(base, zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestLoggerProvider_BridgeKeepsBaseOutput(t *testing.T) {
	lp := &LoggerProvider{
		provider: sdklog.NewLoggerProvider(),
		logger:   zap.NewNop(),
		config:   LogsConfig{Enabled: true, ServiceName: "manifest-backend"},
	}
	core, logs := observer.New(zapcore.DebugLevel)

	bridged := lp.Bridge(zap.New(core), zapcore.WarnLevel)
	bridged.Info("kept locally")
	bridged.Warn("exported too")

	assert.Equal(t, 2, logs.Len())
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestLevelFilterCore(t *testing.T) {
	inner, logs := observer.New(zapcore.DebugLevel)
	core := &levelFilterCore{Core: inner, minLevel: zapcore.WarnLevel}

	assert.False(t, core.Enabled(zapcore.InfoLevel))
	assert.True(t, core.Enabled(zapcore.ErrorLevel))

	logger := zap.New(core.With([]zapcore.Field{zap.String("batch_id", "b-1")}))
	logger.Info("dropped")
	logger.Error("kept")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "kept", entry.Message)
	assert.Equal(t, "b-1", entry.ContextMap()["batch_id"])
}
