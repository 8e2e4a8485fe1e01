package yolov5sparse

import (
	"os"
	"strconv"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-sahi/inference"
	"github.com/nvr-ai/go-sahi/inference/providers"
)

// RemapKey selects what CategoryRemapping keys are matched against.
type RemapKey string

const (
	// RemapByID matches keys against the decimal class id, e.g. "2".
	RemapByID RemapKey = "id"
	// RemapByName matches keys against the resolved category name, e.g. "car".
	RemapByName RemapKey = "name"
)

// Environment variables read by ApplyEnv.
const (
	EnvModelPath           = "SAHI_MODEL_PATH"
	EnvDevice              = "SAHI_DEVICE"
	EnvBackend             = "SAHI_BACKEND"
	EnvConfidenceThreshold = "SAHI_CONFIDENCE_THRESHOLD"
	EnvImageSize           = "SAHI_IMAGE_SIZE"
)

// Config configures a DetectionModel.
type Config struct {
	// ModelPath is the .onnx file for local backends, or the server base URL for the remote backend.
	// Ignored when a pipeline is supplied.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// Backend selects the engine binding.
	Backend inference.Backend `json:"backend" yaml:"backend"`
	// Device is "cpu", "gpu", "cuda", "cuda:N", "gpu:N" or a bare GPU ordinal.
	Device string `json:"device" yaml:"device"`
	// ConfidenceThreshold drops detections scoring below it. Must be in [0, 1].
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
	// CategoryRemapping translates source categories to destination ids. Nil keeps ids as-is.
	CategoryRemapping map[string]int `json:"category_remapping,omitempty" yaml:"category_remapping,omitempty"`
	// RemapBy selects how CategoryRemapping keys are matched.
	RemapBy RemapKey `json:"remap_by" yaml:"remap_by"`
	// CategoryMapping overrides the engine labels, keyed by decimal class id.
	CategoryMapping map[string]string `json:"category_mapping,omitempty" yaml:"category_mapping,omitempty"`
	// LabelsPath is an optional label file handed to the engine binding.
	LabelsPath string `json:"labels_path,omitempty" yaml:"labels_path,omitempty"`
	// ImageSize is the square model input edge.
	ImageSize int `json:"image_size" yaml:"image_size"`
	// LoadAtInit resolves the pipeline in NewDetectionModel instead of on first inference.
	LoadAtInit bool `json:"load_at_init" yaml:"load_at_init"`
	// Timeout bounds each remote request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns the adapter defaults. ModelPath must still be set unless a
// pipeline is supplied.
//
// Returns:
//   - Config: The default configuration.
func DefaultConfig() Config {
	return Config{
		Backend:             inference.BackendONNX,
		Device:              "cpu",
		ConfidenceThreshold: 0.3,
		RemapBy:             RemapByID,
		ImageSize:           640,
		LoadAtInit:          true,
		Timeout:             30 * time.Second,
	}
}

// Validate checks every field except the model source, which depends on whether a
// pipeline is supplied.
//
// Returns:
//   - error: An ErrInvalidConfig error naming the first invalid field, or nil.
func (c Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return newError(ErrInvalidConfig, nil, "confidence_threshold must be in [0, 1], got %v", c.ConfidenceThreshold)
	}
	if c.ImageSize <= 0 {
		return newError(ErrInvalidConfig, nil, "image_size must be positive, got %d", c.ImageSize)
	}
	if _, err := providers.ParseDevice(c.Device); err != nil {
		return newError(ErrInvalidConfig, err, "device")
	}
	if _, err := inference.ParseBackend(string(c.Backend)); err != nil {
		return newError(ErrInvalidConfig, err, "backend")
	}
	switch c.RemapBy {
	case "", RemapByID, RemapByName:
	default:
		return newError(ErrInvalidConfig, nil, "remap_by must be %q or %q, got %q", RemapByID, RemapByName, c.RemapBy)
	}
	if c.RemapBy != RemapByName {
		for _, key := range lo.Keys(c.CategoryRemapping) {
			if !isClassIDKey(key) {
				return newError(ErrInvalidConfig, nil, "category_remapping key %q is not a class id", key)
			}
		}
	}
	for _, key := range lo.Keys(c.CategoryMapping) {
		if !isClassIDKey(key) {
			return newError(ErrInvalidConfig, nil, "category_mapping key %q is not a class id", key)
		}
	}
	if c.Timeout < 0 {
		return newError(ErrInvalidConfig, nil, "timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}

// isClassIDKey reports whether key is a class id in canonical decimal form, the form
// conversion looks ids up by. "02" and "+2" are rejected.
func isClassIDKey(key string) bool {
	id, err := strconv.Atoi(key)
	return err == nil && id >= 0 && strconv.Itoa(id) == key
}

// remapBy returns the effective remap key kind.
func (c Config) remapBy() RemapKey {
	if c.RemapBy == "" {
		return RemapByID
	}
	return c.RemapBy
}

// ParseConfig decodes a YAML document over DefaultConfig and validates the result.
//
// Arguments:
//   - data: The YAML document.
//
// Returns:
//   - Config: The decoded configuration.
//   - error: An ErrInvalidConfig error if decoding or validation fails.
//
// Example:
//
// ```go
//
//	cfg, err := ParseConfig([]byte("model_path: yolov5s.onnx\nconfidence_threshold: 0.4\n"))
//
// ```
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, newError(ErrInvalidConfig, err, "decode yaml")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, newError(ErrInvalidConfig, err, "read config %s", path)
	}
	return ParseConfig(data)
}

// ApplyEnv overrides fields from SAHI_* environment variables that are set and non-empty.
//
// Returns:
//   - error: An ErrInvalidConfig error if a numeric variable does not parse.
func (c *Config) ApplyEnv() error {
	c.ModelPath = getEnv(EnvModelPath, c.ModelPath)
	c.Device = getEnv(EnvDevice, c.Device)
	c.Backend = inference.Backend(getEnv(EnvBackend, string(c.Backend)))

	if value := os.Getenv(EnvConfidenceThreshold); value != "" {
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return newError(ErrInvalidConfig, err, "%s", EnvConfidenceThreshold)
		}
		c.ConfidenceThreshold = float32(v)
	}
	if value := os.Getenv(EnvImageSize); value != "" {
		v, err := strconv.Atoi(value)
		if err != nil {
			return newError(ErrInvalidConfig, err, "%s", EnvImageSize)
		}
		c.ImageSize = v
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
