// Package postprocess - Normalized detection results handed to callers.
package postprocess

import (
	"fmt"
	"image"

	"github.com/nvr-ai/go-sahi/common"
)

// ObjectPrediction represents a single normalized detection.
//
// BBox is expressed in the pixel space of the image that was passed to the
// engine. When that image is a slice of a larger frame, ShiftAmount holds the
// slice origin and FullShape the size of the full frame.
type ObjectPrediction struct {
	// The category of the detection after any remapping.
	Category common.Category `json:"category" yaml:"category"`
	// The bounding box of the detection.
	BBox common.BoundingBox `json:"bbox" yaml:"bbox"`
	// The confidence score of the detection.
	Score float32 `json:"score" yaml:"score"`
	// The offset of the inferred image inside the full frame.
	ShiftAmount image.Point `json:"shift_amount" yaml:"shift_amount"`
	// The size of the full frame, when known.
	FullShape *image.Point `json:"full_shape,omitempty" yaml:"full_shape,omitempty"`
}

// Shifted returns a copy of the prediction moved into full-frame coordinates.
//
// Returns:
//   - ObjectPrediction: The translated prediction with a zero ShiftAmount.
func (p ObjectPrediction) Shifted() ObjectPrediction {
	shifted := p
	shifted.BBox = p.BBox.Shift(p.ShiftAmount)
	shifted.ShiftAmount = image.Point{}
	if p.FullShape != nil {
		full := *p.FullShape
		shifted.FullShape = &full
	}
	return shifted
}

func (p ObjectPrediction) String() string {
	return fmt.Sprintf("ObjectPrediction<bbox: %s, score: %.4f, category: %s>", p.BBox, p.Score, p.Category)
}
