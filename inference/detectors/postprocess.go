package detectors

import (
	"fmt"

	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-sahi/inference"
)

// rowWidth is the number of values per post-NMS detection row.
const rowWidth = 6

// decodeRows turns a flat post-NMS graph output into detections in source pixels.
//
// The output must be shaped [N, 6] or [1, N, 6] with rows of x1, y1, x2, y2, score, class
// in letterboxed input pixels. It is viewed as an [N, 6] tensor and read one row view at a
// time. Rows scoring below threshold are dropped; order is kept.
//
// Arguments:
//   - data: The flat output data.
//   - shape: The output shape.
//   - lb: The letterbox used to build the input.
//   - threshold: The minimum score to keep.
//
// Returns:
//   - []inference.Detection: The detections in emission order.
//   - error: An error if the shape does not describe detection rows.
func decodeRows(data []float32, shape []int64, lb inference.Letterbox, threshold float32) ([]inference.Detection, error) {
	rows, err := rowCount(shape)
	if err != nil {
		return nil, err
	}
	if len(data) != rows*rowWidth {
		return nil, fmt.Errorf("output holds %d values, shape %v needs %d", len(data), shape, rows*rowWidth)
	}

	detections := make([]inference.Detection, 0, rows)
	if rows == 0 {
		return detections, nil
	}

	dims := make([]int, len(shape))
	for i, n := range shape {
		dims[i] = int(n)
	}
	t := tensor.New(tensor.WithShape(dims...), tensor.WithBacking(data))
	if err := t.Reshape(rows, rowWidth); err != nil {
		return nil, fmt.Errorf("reshaping output %v: %w", shape, err)
	}

	for i := 0; i < rows; i++ {
		view, err := t.Slice(tensor.S(i))
		if err != nil {
			return nil, fmt.Errorf("slicing row %d: %w", i, err)
		}
		row, ok := view.Data().([]float32)
		if !ok || len(row) != rowWidth {
			return nil, fmt.Errorf("row %d is not %d float32 values", i, rowWidth)
		}

		var d inference.Detection
		copy(d[:], row)
		if d.Score() < threshold {
			continue
		}

		box := lb.UnmapBox(d.Box())
		d[0], d[1], d[2], d[3] = box.X1, box.Y1, box.X2, box.Y2
		detections = append(detections, d)
	}
	return detections, nil
}

func rowCount(shape []int64) (int, error) {
	switch {
	case len(shape) == 2 && shape[1] == rowWidth:
		return int(shape[0]), nil
	case len(shape) == 3 && shape[0] == 1 && shape[2] == rowWidth:
		return int(shape[1]), nil
	}
	return 0, fmt.Errorf("unexpected output shape %v, want [N %d] or [1 N %d]", shape, rowWidth, rowWidth)
}
