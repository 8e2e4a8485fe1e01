package providers

import (
	"os"
	"runtime"
)

// SharedLibraryEnv names the environment variable that overrides the ONNX Runtime library path.
const SharedLibraryEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetSharedLibPath returns the path to the shared library for the current platform.
//
// Returns:
//   - string: The value of ONNXRUNTIME_SHARED_LIBRARY_PATH when set, otherwise the platform default.
func GetSharedLibPath() string {
	if path := os.Getenv(SharedLibraryEnv); path != "" {
		return path
	}
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "/usr/lib/aarch64-linux-gnu/libonnxruntime.so"
		}
		return "/usr/lib/libonnxruntime.so"
	}
}
