package detectors

import (
	"context"
	"fmt"
	"image"

	"github.com/nvr-ai/go-sahi/inference"
)

// ONNXPipeline runs a post-NMS detection graph through onnxruntime.
type ONNXPipeline struct {
	session *inference.Session
	config  Config
	labels  []string
	input   []float32
}

// NewONNXPipeline loads the graph at config.ModelPath.
//
// Arguments:
//   - config: The pipeline configuration.
//
// Returns:
//   - *ONNXPipeline: The loaded pipeline.
//   - error: An error if the configuration is invalid or the session cannot be created.
func NewONNXPipeline(config Config) (*ONNXPipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid onnx pipeline config: %w", err)
	}

	session, err := inference.NewSession(config.ModelPath, config.Device, config.InputName, config.OutputName)
	if err != nil {
		return nil, err
	}

	return &ONNXPipeline{
		session: session,
		config:  config,
		labels:  resolveLabels(config.Labels),
		input:   make([]float32, 3*config.ImageSize*config.ImageSize),
	}, nil
}

// Run letterboxes img, executes the graph and maps detections back to img pixels.
func (p *ONNXPipeline) Run(ctx context.Context, img image.Image, opts inference.RunOptions) (*inference.Output, error) {
	lb, err := inference.PrepareInput(img, p.config.ImageSize, p.input)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare input: %w", err)
	}

	data, shape, err := p.session.Run(ctx, p.input, p.config.ImageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to run inference: %w", err)
	}

	detections, err := decodeRows(data, shape, lb, opts.ConfidenceThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to decode output: %w", err)
	}
	return inference.NewOutput(p.Labels(), detections), nil
}

// Labels returns a copy of the category names.
func (p *ONNXPipeline) Labels() []string {
	return append([]string(nil), p.labels...)
}

// Close releases the onnxruntime session.
func (p *ONNXPipeline) Close() error {
	return p.session.Close()
}
