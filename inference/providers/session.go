package providers

import (
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var (
	runtimeOnce sync.Once
	runtimeErr  error
)

// InitializeRuntime loads the ONNX Runtime shared library and prepares its environment.
//
// It runs once per process; later calls return the first result.
//
// Returns:
//   - error: An error if the library is missing or the environment fails to start.
func InitializeRuntime() error {
	runtimeOnce.Do(func() {
		libPath := GetSharedLibPath()
		if _, err := os.Stat(libPath); err != nil {
			runtimeErr = fmt.Errorf(
				"ONNX Runtime library not found at %s (set %s): %w",
				libPath,
				SharedLibraryEnv,
				err,
			)
			return
		}

		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			runtimeErr = fmt.Errorf("error initializing ORT environment: %w", err)
		}
	})
	return runtimeErr
}

// SessionOptions creates session options for the given device.
//
// CPU sessions use extended graph optimizations with runtime-chosen thread counts.
// GPU sessions additionally append the CUDA execution provider.
//
// Arguments:
//   - device: The target device.
//
// Returns:
//   - *ort.SessionOptions: The options. The caller must Destroy them.
//   - error: An error if the options cannot be created.
func SessionOptions(device Device) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating ORT session options: %w", err)
	}

	// A value of 0 lets the runtime choose the thread count.
	if err := options.SetIntraOpNumThreads(0); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("error setting intra-op threads: %w", err)
	}
	if err := options.SetInterOpNumThreads(0); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("error setting inter-op threads: %w", err)
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("error setting graph optimization level: %w", err)
	}

	if !device.Mode.IsGPU() {
		return options, nil
	}

	cuda, err := NewCUDAOptions(device).ToNativeProviderOptions()
	if err != nil {
		options.Destroy()
		return nil, fmt.Errorf("error converting CUDA options: %w", err)
	}
	defer cuda.Destroy()

	if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
		options.Destroy()
		return nil, fmt.Errorf("error enabling CUDA on %s: %w", device, err)
	}
	return options, nil
}
