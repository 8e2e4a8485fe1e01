package inference

import (
	"fmt"
	"strings"
)

// Backend is the inference engine binding used to run a model.
type Backend string

const (
	// BackendONNX runs the model in-process through the onnxruntime library.
	BackendONNX Backend = "onnx"
	// BackendOpenCV runs the model in-process through the OpenCV DNN module.
	BackendOpenCV Backend = "opencv"
	// BackendRemote sends images to a DeepSparse-compatible inference server.
	BackendRemote Backend = "remote"
)

// Backends is a list of all supported backends.
var Backends = []Backend{BackendONNX, BackendOpenCV, BackendRemote}

// ParseBackend resolves a backend name. The empty string selects BackendONNX.
//
// Arguments:
//   - s: The backend name, case-insensitive.
//
// Returns:
//   - Backend: The backend.
//   - error: An error if the name is unknown.
func ParseBackend(s string) (Backend, error) {
	if s == "" {
		return BackendONNX, nil
	}
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Backends {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("unsupported backend: %q", s)
}
