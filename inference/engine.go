// Package inference - Contract between detection models and the inference engines that run them.
package inference

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/chewxy/math32"
	"github.com/google/uuid"

	"github.com/nvr-ai/go-sahi/common"
)

// Pipeline is a loaded, ready-to-run detection graph owned by an inference engine.
//
// Implementations decode anchors and apply non-maximum suppression themselves;
// callers only see final detections. A Pipeline is not safe for concurrent use.
type Pipeline interface {
	// Run blocks until the engine has produced detections for img.
	Run(ctx context.Context, img image.Image, opts RunOptions) (*Output, error)
	// Labels returns the engine's ordered category names.
	Labels() []string
	// Close releases the engine resources held by the pipeline.
	Close() error
}

// RunOptions are per-call parameters passed through to the engine.
type RunOptions struct {
	// ConfidenceThreshold drops detections scoring below it inside the engine.
	ConfidenceThreshold float32 `json:"confidence_threshold" yaml:"confidence_threshold"`
}

// Detection is one engine detection laid out as x1, y1, x2, y2, confidence, class id.
type Detection [6]float32

// Box returns the detection corners.
func (d Detection) Box() common.BoundingBox {
	return common.NewBoundingBox(d[0], d[1], d[2], d[3])
}

// Score returns the detection confidence.
func (d Detection) Score() float32 {
	return d[4]
}

// ClassID returns the raw class index, truncated toward zero.
func (d Detection) ClassID() int {
	return int(d[5])
}

// Output is the raw result of one engine call.
type Output struct {
	// ID tags the call for log correlation.
	ID string `json:"id"`
	// Boxes holds one detection list per input image, in engine emission order.
	Boxes [][]Detection `json:"boxes"`
	// Labels is the engine's ordered category names, indexed by class id.
	Labels []string `json:"labels"`
}

// NewOutput creates an output for a batch of images.
//
// Arguments:
//   - labels: The engine's category names.
//   - boxes: One detection list per image.
//
// Returns:
//   - *Output: The output tagged with a fresh ID.
func NewOutput(labels []string, boxes ...[]Detection) *Output {
	return &Output{
		ID:     uuid.NewString(),
		Boxes:  boxes,
		Labels: labels,
	}
}

// Validate reports whether the output has the structure callers rely on.
//
// Returns:
//   - error: A description of the first structural problem found, or nil.
func (o *Output) Validate() error {
	if o == nil {
		return errors.New("engine returned no output")
	}
	if len(o.Boxes) == 0 {
		return errors.New("engine output has no image entries")
	}
	if len(o.Labels) == 0 {
		return errors.New("engine output has no category names")
	}
	for i, dets := range o.Boxes {
		for j, d := range dets {
			for _, v := range d {
				if math32.IsNaN(v) || math32.IsInf(v, 0) {
					return fmt.Errorf("engine output image %d detection %d holds a non-finite value", i, j)
				}
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the output.
func (o *Output) Clone() *Output {
	if o == nil {
		return nil
	}
	boxes := make([][]Detection, len(o.Boxes))
	for i, dets := range o.Boxes {
		boxes[i] = append([]Detection(nil), dets...)
	}
	return &Output{
		ID:     o.ID,
		Boxes:  boxes,
		Labels: append([]string(nil), o.Labels...),
	}
}
