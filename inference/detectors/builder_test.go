package detectors

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-sahi/inference"
	"github.com/nvr-ai/go-sahi/inference/providers"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, inference.BackendONNX, cfg.Backend)
	assert.Equal(t, providers.CPU, cfg.Device)
	assert.Equal(t, 640, cfg.ImageSize)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Error(t, cfg.Validate(), "model path is required")

	cfg.ModelPath = "model.onnx"
	assert.NoError(t, cfg.Validate())

	cfg.ImageSize = 0
	assert.Error(t, cfg.Validate())
}

func TestPipelineBuilderCollectsConfig(t *testing.T) {
	b := NewPipelineBuilder().
		WithBackend("Remote").
		WithDevice("cuda:1").
		WithModel("http://localhost:5543", 416).
		WithLabels([]string{"person", "car"}).
		WithTimeout(time.Second)

	require.False(t, b.HasError())
	cfg := b.Config()
	assert.Equal(t, inference.BackendRemote, cfg.Backend)
	assert.Equal(t, providers.GPU(1), cfg.Device)
	assert.Equal(t, 416, cfg.ImageSize)
	assert.Equal(t, []string{"person", "car"}, cfg.Labels)
	assert.Equal(t, time.Second, cfg.Timeout)

	p, err := b.Build()
	require.NoError(t, err)
	assert.IsType(t, &RemotePipeline{}, p)
	assert.Equal(t, []string{"person", "car"}, p.Labels())
	assert.NoError(t, p.Close())
}

func TestPipelineBuilderErrors(t *testing.T) {
	tests := []struct {
		name    string
		builder *PipelineBuilder
	}{
		{name: "unknown_backend", builder: NewPipelineBuilder().WithBackend("tensorrt").WithModel("m.onnx", 0)},
		{name: "unknown_device", builder: NewPipelineBuilder().WithDevice("tpu").WithModel("m.onnx", 0)},
		{name: "no_model", builder: NewPipelineBuilder()},
		{name: "missing_labels_file", builder: NewPipelineBuilder().WithLabelsFile("/nonexistent/labels.txt")},
		{name: "missing_onnx_file", builder: NewPipelineBuilder().WithModel("/nonexistent/model.onnx", 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.builder.Build()
			assert.Error(t, err)
			assert.Nil(t, p)
			assert.Panics(t, func() { tt.builder.MustBuild() })
		})
	}
}

func TestPipelineBuilderFirstErrorWins(t *testing.T) {
	b := NewPipelineBuilder().WithBackend("bogus").WithDevice("cpu").WithModel("m.onnx", 320)

	assert.True(t, b.HasError())
	assert.Empty(t, b.Config().ModelPath, "calls after an error are ignored")
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("person\n\ncar\n"), 0o600))

	labels, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"person", "car"}, labels)

	b := NewPipelineBuilder().WithLabelsFile(path)
	require.False(t, b.HasError())
	assert.Equal(t, []string{"person", "car"}, b.Config().Labels)
}

func TestResolveLabelsDefaultsToYOLO(t *testing.T) {
	labels := resolveLabels(nil)
	require.Len(t, labels, 80)
	assert.Equal(t, "car", labels[2])
}
