package inference

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"

	"github.com/nvr-ai/go-sahi/common"
)

func TestDetectionAccessors(t *testing.T) {
	d := Detection{321, 329, 378, 368, 0.87, 2}

	assert.Equal(t, common.NewBoundingBox(321, 329, 378, 368), d.Box())
	assert.Equal(t, float32(0.87), d.Score())
	assert.Equal(t, 2, d.ClassID())
}

func TestNewOutput(t *testing.T) {
	a := NewOutput([]string{"car"}, []Detection{{0, 0, 1, 1, 0.5, 0}})
	b := NewOutput([]string{"car"})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Len(t, a.Boxes, 1)
	assert.Empty(t, b.Boxes)
}

func TestOutputValidate(t *testing.T) {
	labels := []string{"person", "bicycle", "car"}

	tests := []struct {
		name    string
		output  *Output
		wantErr bool
	}{
		{name: "nil", output: nil, wantErr: true},
		{name: "no_images", output: &Output{Labels: labels}, wantErr: true},
		{name: "no_labels", output: &Output{Boxes: [][]Detection{{}}}, wantErr: true},
		{
			name:    "nan",
			output:  &Output{Labels: labels, Boxes: [][]Detection{{{math32.NaN(), 0, 1, 1, 0.5, 2}}}},
			wantErr: true,
		},
		{
			name:    "inf",
			output:  &Output{Labels: labels, Boxes: [][]Detection{{{0, 0, math32.Inf(1), 1, 0.5, 2}}}},
			wantErr: true,
		},
		{name: "empty_detections", output: &Output{Labels: labels, Boxes: [][]Detection{{}}}},
		{
			name:   "valid",
			output: &Output{Labels: labels, Boxes: [][]Detection{{{0, 0, 10, 10, 0.5, 2}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.output.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseBackend(t *testing.T) {
	b, err := ParseBackend("")
	assert.NoError(t, err)
	assert.Equal(t, BackendONNX, b)

	b, err = ParseBackend(" Remote ")
	assert.NoError(t, err)
	assert.Equal(t, BackendRemote, b)

	_, err = ParseBackend("tensorrt")
	assert.Error(t, err)
}

func TestOutputClone(t *testing.T) {
	out := NewOutput([]string{"person", "car"}, []Detection{{1, 2, 3, 4, 0.9, 1}})
	clone := out.Clone()

	assert.Equal(t, out, clone)
	clone.Boxes[0][0][0] = 99
	clone.Labels[0] = "changed"
	assert.Equal(t, float32(1), out.Boxes[0][0][0])
	assert.Equal(t, "person", out.Labels[0])

	var nilOutput *Output
	assert.Nil(t, nilOutput.Clone())
}
