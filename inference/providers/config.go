// Package providers - Device selection and ONNX Runtime session options.
package providers

import (
	"fmt"
	"strconv"
	"strings"
)

// Device is the hardware an engine runs on.
type Device struct {
	// Mode selects CPU or GPU execution.
	Mode ProviderMode `json:"mode" yaml:"mode"`
	// ID is the accelerator ordinal. Ignored for CPU.
	ID int `json:"id" yaml:"id"`
}

// CPU is the default device.
var CPU = Device{Mode: ProviderModeCPU}

// GPU returns the accelerator with the given ordinal.
func GPU(id int) Device {
	return Device{Mode: ProviderModeGPU, ID: id}
}

// ParseDevice parses a device string.
//
// Accepted forms are "cpu", "gpu", "cuda", "cuda:N", "gpu:N" and a bare ordinal "N".
// An empty string selects the CPU.
//
// Arguments:
//   - s: The device string.
//
// Returns:
//   - Device: The parsed device.
//   - error: An error if the string names no known device.
func ParseDevice(s string) (Device, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "cpu":
		return CPU, nil
	case "gpu", "cuda":
		return GPU(0), nil
	}

	ordinal := s
	if prefix, rest, ok := strings.Cut(s, ":"); ok {
		if prefix != "cuda" && prefix != "gpu" {
			return Device{}, fmt.Errorf("unknown device %q", s)
		}
		ordinal = rest
	}

	id, err := strconv.Atoi(ordinal)
	if err != nil || id < 0 {
		return Device{}, fmt.Errorf("invalid device ordinal in %q", s)
	}
	return GPU(id), nil
}

// String renders the device in the form accepted by ParseDevice.
func (d Device) String() string {
	if d.Mode.IsGPU() {
		return fmt.Sprintf("cuda:%d", d.ID)
	}
	return string(ProviderModeCPU)
}
