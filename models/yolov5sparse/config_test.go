package yolov5sparse

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-sahi/inference"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, inference.BackendONNX, cfg.Backend)
	assert.Equal(t, "cpu", cfg.Device)
	assert.Equal(t, float32(0.3), cfg.ConfidenceThreshold)
	assert.Equal(t, RemapByID, cfg.RemapBy)
	assert.Equal(t, 640, cfg.ImageSize)
	assert.True(t, cfg.LoadAtInit)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Nil(t, cfg.CategoryRemapping)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "threshold_zero", mutate: func(c *Config) { c.ConfidenceThreshold = 0 }},
		{name: "threshold_one", mutate: func(c *Config) { c.ConfidenceThreshold = 1 }},
		{name: "threshold_above_one", mutate: func(c *Config) { c.ConfidenceThreshold = 1.01 }, wantErr: true},
		{name: "gpu_ordinal", mutate: func(c *Config) { c.Device = "1" }},
		{name: "cuda_device", mutate: func(c *Config) { c.Device = "cuda:0" }},
		{name: "bad_device", mutate: func(c *Config) { c.Device = "npu" }, wantErr: true},
		{name: "remote_backend", mutate: func(c *Config) { c.Backend = inference.BackendRemote }},
		{name: "negative_image_size", mutate: func(c *Config) { c.ImageSize = -640 }, wantErr: true},
		{name: "negative_timeout", mutate: func(c *Config) { c.Timeout = -time.Second }, wantErr: true},
		{
			name:    "non_numeric_remap_key",
			mutate:  func(c *Config) { c.CategoryRemapping = map[string]int{"car": 1} },
			wantErr: true,
		},
		{
			name: "name_remap_key",
			mutate: func(c *Config) {
				c.RemapBy = RemapByName
				c.CategoryRemapping = map[string]int{"car": 1}
			},
		},
		{
			name:    "padded_remap_key",
			mutate:  func(c *Config) { c.CategoryRemapping = map[string]int{"02": 5} },
			wantErr: true,
		},
		{
			name:    "signed_remap_key",
			mutate:  func(c *Config) { c.CategoryRemapping = map[string]int{"+2": 5} },
			wantErr: true,
		},
		{
			name:    "padded_category_mapping_key",
			mutate:  func(c *Config) { c.CategoryMapping = map[string]string{"02": "car"} },
			wantErr: true,
		},
		{
			name:   "empty_remapping",
			mutate: func(c *Config) { c.CategoryRemapping = map[string]int{} },
		},
		{
			name:    "bad_category_mapping_key",
			mutate:  func(c *Config) { c.CategoryMapping = map[string]string{"-1": "car"} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
model_path: models/yolov5s-pruned-quant.onnx
device: cuda:1
confidence_threshold: 0.45
image_size: 416
load_at_init: false
remap_by: id
category_remapping:
  "2": 3
  "7": 8
category_mapping:
  "2": vehicle
timeout: 5s
`))
	require.NoError(t, err)

	assert.Equal(t, "models/yolov5s-pruned-quant.onnx", cfg.ModelPath)
	assert.Equal(t, inference.BackendONNX, cfg.Backend, "unset fields keep defaults")
	assert.Equal(t, "cuda:1", cfg.Device)
	assert.Equal(t, float32(0.45), cfg.ConfidenceThreshold)
	assert.Equal(t, 416, cfg.ImageSize)
	assert.False(t, cfg.LoadAtInit)
	assert.Equal(t, map[string]int{"2": 3, "7": 8}, cfg.CategoryRemapping)
	assert.Equal(t, map[string]string{"2": "vehicle"}, cfg.CategoryMapping)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestParseConfigEmptyRemapping(t *testing.T) {
	cfg, err := ParseConfig([]byte("category_remapping: {}\n"))
	require.NoError(t, err)

	assert.NotNil(t, cfg.CategoryRemapping)
	assert.Empty(t, cfg.CategoryRemapping)
}

func TestParseConfigErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"bad_yaml":      "model_path: [unterminated",
		"bad_threshold": "confidence_threshold: 2",
		"bad_type":      "image_size: large",
		"padded_key":    "category_remapping:\n  \"02\": 5\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sahi.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model_path: http://localhost:5543\nbackend: remote\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, inference.BackendRemote, cfg.Backend)
	assert.Equal(t, "http://localhost:5543", cfg.ModelPath)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvModelPath, "/models/yolov5n.onnx")
	t.Setenv(EnvDevice, "cuda:2")
	t.Setenv(EnvBackend, "opencv")
	t.Setenv(EnvConfidenceThreshold, "0.55")
	t.Setenv(EnvImageSize, "320")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())

	assert.Equal(t, "/models/yolov5n.onnx", cfg.ModelPath)
	assert.Equal(t, "cuda:2", cfg.Device)
	assert.Equal(t, inference.BackendOpenCV, cfg.Backend)
	assert.Equal(t, float32(0.55), cfg.ConfidenceThreshold)
	assert.Equal(t, 320, cfg.ImageSize)
	assert.NoError(t, cfg.Validate())
}

func TestApplyEnvKeepsUnsetFields(t *testing.T) {
	t.Setenv(EnvModelPath, "")
	t.Setenv(EnvImageSize, "")

	cfg := DefaultConfig()
	cfg.ModelPath = "keep.onnx"
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "keep.onnx", cfg.ModelPath)
	assert.Equal(t, 640, cfg.ImageSize)
}

func TestApplyEnvErrors(t *testing.T) {
	t.Setenv(EnvConfidenceThreshold, "high")
	cfg := DefaultConfig()
	assert.ErrorIs(t, cfg.ApplyEnv(), ErrInvalidConfig)

	t.Setenv(EnvConfidenceThreshold, "")
	t.Setenv(EnvImageSize, "big")
	assert.ErrorIs(t, cfg.ApplyEnv(), ErrInvalidConfig)
}
