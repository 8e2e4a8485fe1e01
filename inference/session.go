package inference

import (
	"context"
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/nvr-ai/go-sahi/inference/providers"
)

// Session represents a model session from the onnxruntime.
//
// The session binds one float32 image input and one float32 output; tensors are
// allocated per call so the output shape may vary with the detection count.
type Session struct {
	session    *ort.DynamicAdvancedSession
	InputName  string
	OutputName string
	Device     providers.Device
}

// NewSession creates a new ONNX Runtime session for a detection graph.
//
// Order of operations:
//  1. Model check: the file must exist before the native runtime is touched.
//  2. Runtime setup: the shared library is loaded once per process.
//  3. IO discovery: empty names default to the graph's first input and output.
//  4. Session creation with the execution providers for device.
//
// Arguments:
//   - modelPath: Path to the ONNX model file.
//   - device: The device to run on.
//   - inputName: The graph input name, or "" to discover it.
//   - outputName: The graph output name, or "" to discover it.
//
// Returns:
//   - *Session: The session.
//   - error: An error if the session creation fails.
func NewSession(modelPath string, device providers.Device, inputName, outputName string) (*Session, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file %s: %w", modelPath, err)
	}

	if err := providers.InitializeRuntime(); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("error reading model IO info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has %d inputs and %d outputs", modelPath, len(inputs), len(outputs))
	}
	if inputName == "" {
		inputName = inputs[0].Name
	}
	if outputName == "" {
		outputName = outputs[0].Name
	}

	options, err := providers.SessionOptions(device)
	if err != nil {
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		modelPath,
		[]string{inputName},
		[]string{outputName},
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session: %w", err)
	}

	return &Session{
		session:    session,
		InputName:  inputName,
		OutputName: outputName,
		Device:     device,
	}, nil
}

// Run executes the graph on a single CHW image tensor.
//
// Arguments:
//   - ctx: Checked before the native call; the call itself cannot be interrupted.
//   - input: Planar RGB data of length 3*size*size.
//   - size: The square input edge.
//
// Returns:
//   - []float32: A copy of the output data.
//   - []int64: The output shape.
//   - error: An error if the run fails.
func (s *Session) Run(ctx context.Context, input []float32, size int) ([]float32, []int64, error) {
	if s.session == nil {
		return nil, nil, fmt.Errorf("session is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, int64(size), int64(size)), input)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, nil, fmt.Errorf("error running ORT session: %w", err)
	}
	defer outputs[0].Destroy()

	tensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("output %s is %T, want a float32 tensor", s.OutputName, outputs[0])
	}

	data := append([]float32(nil), tensor.GetData()...)
	shape := append([]int64(nil), tensor.GetShape()...)
	return data, shape, nil
}

// Close releases the resources associated with the Session.
func (s *Session) Close() error {
	if s.session == nil {
		return nil
	}
	err := s.session.Destroy()
	s.session = nil
	if err != nil {
		return fmt.Errorf("error destroying ORT session: %w", err)
	}
	return nil
}
