package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSetReplacesGlobals(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := zap.New(core)
	Set(l)
	t.Cleanup(func() { Set(zap.NewNop()) })

	Log().Info("loaded", zap.String("backend", "onnx"))
	zap.L().Debug("filtered")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "loaded", entry.Message)
	assert.Equal(t, "onnx", entry.ContextMap()["backend"])
	assert.Same(t, l, Log())
}

func TestBuilders(t *testing.T) {
	prod, err := NewProduction()
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zap.DebugLevel))

	dev, err := NewDevelopment()
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zap.DebugLevel))
}
