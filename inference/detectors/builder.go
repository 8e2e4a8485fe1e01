package detectors

import (
	"errors"
	"time"

	"github.com/nvr-ai/go-sahi/inference"
	"github.com/nvr-ai/go-sahi/inference/providers"
)

// PipelineBuilder builds engine pipelines with a fluent API.
type PipelineBuilder struct {
	config Config
	err    error
}

// NewPipelineBuilder creates a new pipeline builder seeded with DefaultConfig.
//
// Returns:
//   - *PipelineBuilder: The pipeline builder.
func NewPipelineBuilder() *PipelineBuilder {
	return &PipelineBuilder{config: DefaultConfig()}
}

// WithBackend sets the engine binding by name.
//
// Arguments:
//   - name: One of the inference.Backends names.
//
// Returns:
//   - *PipelineBuilder: The pipeline builder.
func (b *PipelineBuilder) WithBackend(name string) *PipelineBuilder {
	if b.HasError() {
		return b
	}
	backend, err := inference.ParseBackend(name)
	if err != nil {
		b.err = err
		return b
	}
	b.config.Backend = backend
	return b
}

// WithDevice sets the execution device by name, e.g. "cpu" or "cuda:0".
func (b *PipelineBuilder) WithDevice(name string) *PipelineBuilder {
	if b.HasError() {
		return b
	}
	device, err := providers.ParseDevice(name)
	if err != nil {
		b.err = err
		return b
	}
	b.config.Device = device
	return b
}

// WithModel sets the model path (or server URL) and the square input edge.
//
// Arguments:
//   - path: The model location.
//   - imageSize: The input edge; zero keeps the current value.
//
// Returns:
//   - *PipelineBuilder: The pipeline builder.
func (b *PipelineBuilder) WithModel(path string, imageSize int) *PipelineBuilder {
	if b.HasError() {
		return b
	}
	b.config.ModelPath = path
	if imageSize != 0 {
		b.config.ImageSize = imageSize
	}
	return b
}

// WithLabels sets the category names.
func (b *PipelineBuilder) WithLabels(labels []string) *PipelineBuilder {
	if b.HasError() {
		return b
	}
	b.config.Labels = append([]string(nil), labels...)
	return b
}

// WithLabelsFile loads category names from a file. An empty path is ignored.
func (b *PipelineBuilder) WithLabelsFile(path string) *PipelineBuilder {
	if b.HasError() || path == "" {
		return b
	}
	labels, err := LoadLabels(path)
	if err != nil {
		b.err = err
		return b
	}
	b.config.Labels = labels
	return b
}

// WithTimeout bounds each remote request.
func (b *PipelineBuilder) WithTimeout(timeout time.Duration) *PipelineBuilder {
	if b.HasError() {
		return b
	}
	b.config.Timeout = timeout
	return b
}

// HasError checks if the pipeline builder has errors.
//
// Returns:
//   - bool: True if there are errors, false otherwise.
func (b *PipelineBuilder) HasError() bool {
	return b.err != nil
}

// Config returns the configuration collected so far.
func (b *PipelineBuilder) Config() Config {
	return b.config
}

// MustBuild builds the pipeline and panics on error.
func (b *PipelineBuilder) MustBuild() inference.Pipeline {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}

// Build builds the pipeline for the configured backend.
//
// Returns:
//   - inference.Pipeline: The loaded pipeline.
//   - error: The first error recorded by a With call, or the load error.
func (b *PipelineBuilder) Build() (inference.Pipeline, error) {
	if b.HasError() {
		return nil, b.err
	}
	if b.config.ModelPath == "" {
		return nil, errors.New("model not configured")
	}

	var (
		p   inference.Pipeline
		err error
	)
	switch b.config.Backend {
	case inference.BackendOpenCV:
		p, err = NewOpenCVPipeline(b.config)
	case inference.BackendRemote:
		p, err = NewRemotePipeline(b.config)
	default:
		p, err = NewONNXPipeline(b.config)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
