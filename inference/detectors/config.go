// Package detectors - Engine bindings that run post-NMS YOLO detection graphs.
package detectors

import (
	"fmt"
	"time"

	"github.com/nvr-ai/go-sahi/inference"
	"github.com/nvr-ai/go-sahi/inference/providers"
)

// Config describes how to reach and run a detection graph.
type Config struct {
	// ModelPath is the .onnx file for local backends, or the server base URL for BackendRemote.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// Backend selects the engine binding.
	Backend inference.Backend `json:"backend" yaml:"backend"`
	// Device selects CPU or GPU execution for local backends.
	Device providers.Device `json:"device" yaml:"device"`
	// ImageSize is the square model input edge.
	ImageSize int `json:"image_size" yaml:"image_size"`
	// Labels are the ordered category names. Empty selects the 80 YOLO classes.
	Labels []string `json:"labels" yaml:"labels"`
	// InputName and OutputName pin graph IO names; empty discovers them.
	InputName  string `json:"input_name"  yaml:"input_name"`
	OutputName string `json:"output_name" yaml:"output_name"`
	// Timeout bounds each remote request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// DefaultConfig returns a configuration for a 640×640 graph on the CPU.
//
// Returns:
//   - Config: The default configuration. ModelPath must still be set.
//
// Example:
//
// ```go
//
//	cfg := DefaultConfig()
//	cfg.ModelPath = "yolov5s-pruned-quant.onnx"
//	p, err := NewONNXPipeline(cfg)
//
// ```
func DefaultConfig() Config {
	return Config{
		Backend:   inference.BackendONNX,
		Device:    providers.CPU,
		ImageSize: 640,
		Timeout:   30 * time.Second,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("model path is required")
	}
	if _, err := inference.ParseBackend(string(c.Backend)); err != nil {
		return err
	}
	if c.ImageSize <= 0 {
		return fmt.Errorf("image size must be positive, got %d", c.ImageSize)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	return nil
}
