package onnx

import (
	"os"
	"sync"

	"github.com/nvr-ai/model-compare/corpus"
	"github.com/nvr-ai/model-compare/detector"
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	envOnce sync.Once
	envErr  error
)

// initEnvironment initialises the process-wide onnxruntime environment once.
func initEnvironment(libPath string) error {
	envOnce.Do(func() {
		if libPath == "" {
			libPath = SharedLibraryPath()
		}
		if _, err := os.Stat(libPath); err != nil {
			envErr = errors.Wrapf(err, "onnxruntime library not found at %s", libPath)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		if err := ort.InitializeEnvironment(); err != nil {
			envErr = errors.Wrap(err, "error initializing onnxruntime environment")
		}
	})
	return envErr
}

// Shutdown destroys the onnxruntime environment if it was initialised.
func Shutdown() error {
	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// Model runs a YOLO ONNX model with onnxruntime.
type Model struct {
	cfg         Config
	inputSize   int
	session     *ort.AdvancedSession
	input       *ort.Tensor[float32]
	output      *ort.Tensor[float32]
	outputShape []int64
}

// New loads a YOLO model from an ONNX file.
//
// The first input and output of the graph are bound. Dynamic dimensions are
// fixed to a batch of one and the configured input size. A model exported
// with a fixed input edge keeps it and cfg.InputSize is ignored for it.
//
// Arguments:
//   - weights: Path to the .onnx file.
//   - cfg: The detector configuration.
//
// Returns:
//   - *Model: The loaded model.
//   - error: An error if the runtime or the session cannot be created.
func New(weights string, cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := initEnvironment(cfg.SharedLibrary); err != nil {
		return nil, err
	}

	inputs, outputs, err := ort.GetInputOutputInfo(weights)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to inspect %s", weights)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.Errorf("%s has no inputs or outputs", weights)
	}

	inputShape := fixShape(inputs[0].Dimensions, int64(cfg.InputSize))
	size, err := inputEdge(inputShape)
	if err != nil {
		return nil, errors.Wrap(err, weights)
	}
	outputShape := fixShape(outputs[0].Dimensions, int64(size))

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(inputShape...))
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(outputShape...))
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "error creating session options")
	}
	defer options.Destroy()

	if cfg.IntraOpThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.IntraOpThreads); err != nil {
			input.Destroy()
			output.Destroy()
			return nil, errors.Wrap(err, "error setting intra-op threads")
		}
	}
	if err := appendProvider(options, cfg); err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}

	session, err := ort.NewAdvancedSession(
		weights,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "error creating onnxruntime session")
	}

	cfg.InputSize = size
	return &Model{
		cfg:         cfg,
		inputSize:   size,
		session:     session,
		input:       input,
		output:      output,
		outputShape: outputShape,
	}, nil
}

// fixShape replaces dynamic dimensions: the batch axis with 1, others with size.
func fixShape(dims ort.Shape, size int64) []int64 {
	shape := make([]int64, len(dims))
	for i, d := range dims {
		switch {
		case d > 0:
			shape[i] = d
		case i == 0:
			shape[i] = 1
		default:
			shape[i] = size
		}
	}
	return shape
}

// inputEdge returns the square spatial edge of an NCHW input shape.
func inputEdge(shape []int64) (int, error) {
	if len(shape) != 4 || shape[1] != 3 {
		return 0, errors.Errorf("unsupported input shape %v, want [N 3 H W]", shape)
	}
	if shape[2] != shape[3] {
		return 0, errors.Errorf("non-square input %dx%d", shape[3], shape[2])
	}
	return int(shape[2]), nil
}

// Infer decodes the image, runs the session and returns the suppressed detections.
func (m *Model) Infer(img corpus.Image) ([]detector.Detection, error) {
	src, err := corpus.Open(img)
	if err != nil {
		return nil, err
	}

	if err := PrepareInput(src, m.input.GetData(), m.inputSize); err != nil {
		return nil, err
	}

	if err := m.session.Run(); err != nil {
		return nil, errors.Wrapf(err, "failed to run inference on %s", img.Name)
	}

	return Decode(m.output.GetData(), m.outputShape, src.Bounds().Size(), m.cfg)
}

// Close releases the session and its tensors.
func (m *Model) Close() error {
	var err error
	if m.session != nil {
		err = m.session.Destroy()
		m.session = nil
	}
	if m.input != nil {
		m.input.Destroy()
		m.input = nil
	}
	if m.output != nil {
		m.output.Destroy()
		m.output = nil
	}
	return err
}

// Factory returns a detector.Factory loading registrations with cfg.
func Factory(cfg Config) detector.Factory {
	return func(reg detector.Registration) (detector.Model, error) {
		return New(reg.Weights, cfg)
	}
}
