package inference

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/chewxy/math32"
	"github.com/nfnt/resize"

	"github.com/nvr-ai/go-sahi/common"
)

// letterboxGrey pads letterboxed inputs, as in the YOLOv5 exporters.
var letterboxGrey = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// Letterbox describes how a source image was fitted into a square model input.
type Letterbox struct {
	// Size is the edge of the square model input.
	Size int
	// Scale is the factor applied to source pixels.
	Scale float32
	// PadX and PadY are the offsets of the resized image inside the input.
	PadX, PadY int
	// Resized is the size of the source image after scaling.
	Resized image.Point
}

// NewLetterbox computes the aspect-preserving fit of src into a size×size input.
//
// Arguments:
//   - src: The source image width (X) and height (Y).
//   - size: The model input edge.
//
// Returns:
//   - Letterbox: The fit.
func NewLetterbox(src image.Point, size int) Letterbox {
	scale := math32.Min(float32(size)/float32(src.X), float32(size)/float32(src.Y))
	w := clampEdge(int(math32.Round(float32(src.X)*scale)), size)
	h := clampEdge(int(math32.Round(float32(src.Y)*scale)), size)
	return Letterbox{
		Size:    size,
		Scale:   scale,
		PadX:    (size - w) / 2,
		PadY:    (size - h) / 2,
		Resized: image.Pt(w, h),
	}
}

func clampEdge(v, size int) int {
	if v < 1 {
		return 1
	}
	if v > size {
		return size
	}
	return v
}

// Unmap converts a point in model input space back to source pixels.
func (l Letterbox) Unmap(x, y float32) (float32, float32) {
	return (x - float32(l.PadX)) / l.Scale, (y - float32(l.PadY)) / l.Scale
}

// UnmapBox converts a box in model input space back to source pixels.
func (l Letterbox) UnmapBox(b common.BoundingBox) common.BoundingBox {
	x1, y1 := l.Unmap(b.X1, b.Y1)
	x2, y2 := l.Unmap(b.X2, b.Y2)
	return common.NewBoundingBox(x1, y1, x2, y2)
}

// LetterboxImage scales img to fit a size×size canvas and pads the rest with grey.
//
// Arguments:
//   - img: The source image. Must not be empty.
//   - size: The model input edge.
//
// Returns:
//   - *image.RGBA: The size×size canvas.
//   - Letterbox: The fit used, needed to map detections back.
func LetterboxImage(img image.Image, size int) (*image.RGBA, Letterbox) {
	lb := NewLetterbox(img.Bounds().Size(), size)
	resized := resize.Resize(uint(lb.Resized.X), uint(lb.Resized.Y), img, resize.Bilinear)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(letterboxGrey), image.Point{}, draw.Src)
	offset := image.Pt(lb.PadX, lb.PadY)
	draw.Draw(canvas, image.Rectangle{Min: offset, Max: offset.Add(lb.Resized)}, resized, resized.Bounds().Min, draw.Src)
	return canvas, lb
}

// PrepareInput letterboxes img into dst as planar RGB scaled to [0, 1].
//
// Arguments:
//   - img: The image to prepare.
//   - size: The model input edge.
//   - dst: The destination buffer, at least 3*size*size floats (CHW layout).
//
// Returns:
//   - Letterbox: The fit used, needed to map detections back.
//   - error: An error if the image is empty or dst is too small.
func PrepareInput(img image.Image, size int, dst []float32) (Letterbox, error) {
	if img.Bounds().Empty() {
		return Letterbox{}, fmt.Errorf("cannot prepare an empty image")
	}
	channelSize := size * size
	if len(dst) < channelSize*3 {
		return Letterbox{}, fmt.Errorf("destination tensor only holds %d floats, needs %d", len(dst), channelSize*3)
	}

	canvas, lb := LetterboxImage(img, size)

	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]
	for i := 0; i < channelSize; i++ {
		px := canvas.Pix[i*4 : i*4+3]
		red[i] = float32(px[0]) / 255.0
		green[i] = float32(px[1]) / 255.0
		blue[i] = float32(px[2]) / 255.0
	}
	return lb, nil
}
