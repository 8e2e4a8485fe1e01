package detectors

import (
	"context"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/nvr-ai/go-sahi/inference"
)

// OpenCVPipeline runs a post-NMS detection graph through the OpenCV DNN module.
type OpenCVPipeline struct {
	net    gocv.Net
	config Config
	labels []string
}

// NewOpenCVPipeline loads the graph at config.ModelPath with gocv.ReadNetFromONNX.
//
// Arguments:
//   - config: The pipeline configuration.
//
// Returns:
//   - *OpenCVPipeline: The loaded pipeline.
//   - error: An error if the model file is missing or OpenCV cannot parse it.
func NewOpenCVPipeline(config Config) (*OpenCVPipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid opencv pipeline config: %w", err)
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("model file %s: %w", config.ModelPath, err)
	}

	net := gocv.ReadNetFromONNX(config.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load ONNX model: %s", config.ModelPath)
	}

	if config.Device.Mode.IsGPU() {
		net.SetPreferableBackend(gocv.NetBackendCUDA)
		net.SetPreferableTarget(gocv.NetTargetCUDA)
	} else {
		net.SetPreferableBackend(gocv.NetBackendOpenCV)
		net.SetPreferableTarget(gocv.NetTargetCPU)
	}

	return &OpenCVPipeline{
		net:    net,
		config: config,
		labels: resolveLabels(config.Labels),
	}, nil
}

// Run letterboxes img, forwards it through the network and maps detections back to img pixels.
func (p *OpenCVPipeline) Run(ctx context.Context, img image.Image, opts inference.RunOptions) (*inference.Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("cannot run on an empty image")
	}

	canvas, lb := inference.LetterboxImage(img, p.config.ImageSize)
	mat, err := gocv.ImageToMatRGB(canvas)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	size := image.Pt(p.config.ImageSize, p.config.ImageSize)
	blob := gocv.BlobFromImage(mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	p.net.SetInput(blob, "")
	out := p.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}
	dims := out.Size()
	shape := make([]int64, len(dims))
	for i, d := range dims {
		shape[i] = int64(d)
	}

	detections, err := decodeRows(append([]float32(nil), data...), shape, lb, opts.ConfidenceThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to decode output: %w", err)
	}
	return inference.NewOutput(p.Labels(), detections), nil
}

// Labels returns a copy of the category names.
func (p *OpenCVPipeline) Labels() []string {
	return append([]string(nil), p.labels...)
}

// Close releases the network.
func (p *OpenCVPipeline) Close() error {
	return p.net.Close()
}
