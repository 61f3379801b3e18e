// Package onnx - YOLO detectors running on the ONNX runtime.
package onnx

import (
	"fmt"
	"runtime"
	"slices"
)

// KindONNX is the registry kind for models loaded by this package.
const KindONNX = "onnx"

// Provider is an onnxruntime execution provider backend.
type Provider string

const (
	// ProviderCPU runs on the default CPU execution provider.
	ProviderCPU Provider = "cpu"
	// ProviderCUDA uses NVIDIA CUDA for inference.
	ProviderCUDA Provider = "cuda"
	// ProviderCoreML uses Apple CoreML on macOS.
	ProviderCoreML Provider = "coreml"
)

// Providers lists the supported execution providers.
var Providers = []Provider{ProviderCPU, ProviderCUDA, ProviderCoreML}

// Config is the configuration shared by the YOLO detector variants.
type Config struct {
	// SharedLibrary is the path to the onnxruntime shared library. Empty
	// selects the platform default.
	SharedLibrary string `json:"shared_library" yaml:"shared_library" mapstructure:"shared_library"`
	// Provider selects the onnxruntime execution provider. Empty means cpu.
	Provider Provider `json:"provider" yaml:"provider" mapstructure:"provider"`
	// DeviceID is the CUDA device ordinal, used by the cuda provider.
	DeviceID int `json:"device_id" yaml:"device_id" mapstructure:"device_id"`
	// InputSize is the square model input edge in pixels, for models exported
	// with a dynamic input. Models with a fixed input edge run at that edge.
	InputSize int `json:"input_size" yaml:"input_size" mapstructure:"input_size"`
	// Confidence filters detections below this score.
	Confidence float32 `json:"confidence" yaml:"confidence" mapstructure:"confidence"`
	// IoU is the overlap above which a lower scoring box of the same class is suppressed.
	IoU float32 `json:"iou" yaml:"iou" mapstructure:"iou"`
	// IntraOpThreads sets onnxruntime intra-op parallelism. 0 keeps the runtime default.
	IntraOpThreads int `json:"intra_op_threads" yaml:"intra_op_threads" mapstructure:"intra_op_threads"`
}

// DefaultConfig returns the thresholds the YOLO models are usually run with.
func DefaultConfig() Config {
	return Config{
		Provider:   ProviderCPU,
		InputSize:  640,
		Confidence: 0.25,
		IoU:        0.7,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if c.InputSize <= 0 {
		return fmt.Errorf("input size must be positive, got %d", c.InputSize)
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("confidence must be within [0, 1], got %v", c.Confidence)
	}
	if c.IoU < 0 || c.IoU > 1 {
		return fmt.Errorf("iou must be within [0, 1], got %v", c.IoU)
	}
	if c.Provider != "" && !slices.Contains(Providers, c.Provider) {
		return fmt.Errorf("unknown provider %q, want one of %v", c.Provider, Providers)
	}
	if c.DeviceID < 0 {
		return fmt.Errorf("device id must not be negative, got %d", c.DeviceID)
	}
	return nil
}

// SharedLibraryPath returns the default onnxruntime library path for the current platform.
func SharedLibraryPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	default:
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
}
