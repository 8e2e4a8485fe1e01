// Package common - Shared geometry and category types for detection results.
package common

import (
	"fmt"
	"image"

	"github.com/chewxy/math32"
)

// BoundingBox is an axis-aligned box in pixel space stored as two corners.
//
// X2 and Y2 are exclusive edges, so Width is X2-X1 and Height is Y2-Y1.
type BoundingBox struct {
	X1 float32 `json:"x1" yaml:"x1"`
	Y1 float32 `json:"y1" yaml:"y1"`
	X2 float32 `json:"x2" yaml:"x2"`
	Y2 float32 `json:"y2" yaml:"y2"`
}

// NewBoundingBox creates a box from corner coordinates.
//
// Arguments:
//   - x1, y1: The top-left corner.
//   - x2, y2: The bottom-right corner.
//
// Returns:
//   - BoundingBox: The box.
func NewBoundingBox(x1, y1, x2, y2 float32) BoundingBox {
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Width returns the horizontal extent of the box.
func (b BoundingBox) Width() float32 {
	return b.X2 - b.X1
}

// Height returns the vertical extent of the box.
func (b BoundingBox) Height() float32 {
	return b.Y2 - b.Y1
}

// Area returns the box area in square pixels. Degenerate boxes have zero area.
func (b BoundingBox) Area() float32 {
	if !b.Valid() {
		return 0
	}
	return b.Width() * b.Height()
}

// Valid reports whether the box has positive width and height.
func (b BoundingBox) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// ToXYXY returns the corners as [x1, y1, x2, y2].
func (b BoundingBox) ToXYXY() [4]float32 {
	return [4]float32{b.X1, b.Y1, b.X2, b.Y2}
}

// ToXYWH returns the box as [x, y, width, height].
//
// Returns:
//   - [4]float32: Top-left corner followed by the box size.
//
// Example:
//
// ```go
//
//	box := NewBoundingBox(321, 329, 378, 368)
//	xywh := box.ToXYWH() // [321 329 57 39]
//
// ```
func (b BoundingBox) ToXYWH() [4]float32 {
	return [4]float32{b.X1, b.Y1, b.Width(), b.Height()}
}

// Shift translates the box by the given pixel offset.
//
// Arguments:
//   - offset: The amount to add to both corners.
//
// Returns:
//   - BoundingBox: The translated box.
func (b BoundingBox) Shift(offset image.Point) BoundingBox {
	dx, dy := float32(offset.X), float32(offset.Y)
	return BoundingBox{X1: b.X1 + dx, Y1: b.Y1 + dy, X2: b.X2 + dx, Y2: b.Y2 + dy}
}

// ClampMin raises negative coordinates to zero.
func (b BoundingBox) ClampMin() BoundingBox {
	return BoundingBox{
		X1: math32.Max(0, b.X1),
		Y1: math32.Max(0, b.Y1),
		X2: math32.Max(0, b.X2),
		Y2: math32.Max(0, b.Y2),
	}
}

// ClampTo limits the box to a frame of the given size.
//
// Arguments:
//   - size: The frame width (X) and height (Y) in pixels.
//
// Returns:
//   - BoundingBox: The box with every coordinate inside [0, size].
func (b BoundingBox) ClampTo(size image.Point) BoundingBox {
	w, h := float32(size.X), float32(size.Y)
	c := b.ClampMin()
	return BoundingBox{
		X1: math32.Min(w, c.X1),
		Y1: math32.Min(h, c.Y1),
		X2: math32.Min(w, c.X2),
		Y2: math32.Min(h, c.Y2),
	}
}

// ToRect converts the box to an image.Rectangle, rounding each coordinate
// to the nearest pixel.
func (b BoundingBox) ToRect() image.Rectangle {
	return image.Rect(
		int(math32.Round(b.X1)),
		int(math32.Round(b.Y1)),
		int(math32.Round(b.X2)),
		int(math32.Round(b.Y2)),
	).Canon()
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%.2f, %.2f), (%.2f, %.2f)", b.X1, b.Y1, b.X2, b.Y2)
}
