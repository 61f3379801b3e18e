package onnx

import (
	"strconv"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// sessionOptions is the part of ort.SessionOptions used to pick a provider.
type sessionOptions interface {
	AppendExecutionProviderCUDA(*ort.CUDAProviderOptions) error
	AppendExecutionProviderCoreML(uint32) error
}

// cudaOptions returns the provider option map for a CUDA device.
//
// See:
// https://onnxruntime.ai/docs/execution-providers/CUDA-ExecutionProvider.html#configuration-options
func cudaOptions(deviceID int) map[string]string {
	return map[string]string{
		"device_id":                 strconv.Itoa(deviceID),
		"do_copy_in_default_stream": "1",
	}
}

// appendProvider registers the configured execution provider on options.
// The cpu provider is always available and needs no registration.
//
// Arguments:
//   - options: The session options to register the provider on.
//   - cfg: The detector configuration.
//
// Returns:
//   - error: An error if the provider is unknown or cannot be registered.
func appendProvider(options sessionOptions, cfg Config) error {
	switch cfg.Provider {
	case "", ProviderCPU:
		return nil
	case ProviderCUDA:
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return errors.Wrap(err, "error creating CUDA provider options")
		}
		defer cudaOpts.Destroy()
		if err := cudaOpts.Update(cudaOptions(cfg.DeviceID)); err != nil {
			return errors.Wrap(err, "error updating CUDA provider options")
		}
		return errors.Wrap(options.AppendExecutionProviderCUDA(cudaOpts), "error enabling CUDA provider")
	case ProviderCoreML:
		return errors.Wrap(options.AppendExecutionProviderCoreML(0), "error enabling CoreML provider")
	default:
		return errors.Errorf("unknown provider %q", cfg.Provider)
	}
}
