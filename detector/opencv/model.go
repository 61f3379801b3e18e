// Package opencv - YOLO detectors running on the OpenCV DNN module.
//
// Suppression goes through gocv.NMSBoxes with boxes shifted per class, so it
// keeps the same per-class policy as the onnxruntime variant.
package opencv

import (
	"image"

	"github.com/nvr-ai/model-compare/corpus"
	"github.com/nvr-ai/model-compare/detector"
	"github.com/nvr-ai/model-compare/detector/onnx"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// KindOpenCV is the registry kind for models loaded by this package.
const KindOpenCV = "opencv"

// Model runs a YOLO ONNX model with gocv.Net.
type Model struct {
	net gocv.Net
	cfg onnx.Config
}

// New reads an ONNX network with OpenCV.
//
// Arguments:
//   - weights: Path to the .onnx file.
//   - cfg: Input size and thresholds, shared with the onnxruntime variant.
//
// Returns:
//   - *Model: The loaded model.
//   - error: An error if the configuration is invalid or the network is empty.
func New(weights string, cfg onnx.Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	net := gocv.ReadNetFromONNX(weights)
	if net.Empty() {
		net.Close()
		return nil, errors.Errorf("failed to read network from %s", weights)
	}

	return &Model{net: net, cfg: cfg}, nil
}

// Infer reads the image with OpenCV, runs a forward pass and applies
// per-class suppression with gocv.NMSBoxes.
func (m *Model) Infer(img corpus.Image) ([]detector.Detection, error) {
	mat := gocv.IMRead(img.Path, gocv.IMReadColor)
	if mat.Empty() {
		mat.Close()
		return nil, errors.Errorf("failed to read image %s", img.Name)
	}
	defer mat.Close()

	size := image.Pt(m.cfg.InputSize, m.cfg.InputSize)
	blob := gocv.BlobFromImage(mat, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read network output")
	}

	dims := out.Size()
	shape := make([]int64, len(dims))
	for i, d := range dims {
		shape[i] = int64(d)
	}

	candidates, err := onnx.Candidates(data, shape, image.Pt(mat.Cols(), mat.Rows()), m.cfg)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	boxes := onnx.ClassRects(candidates)
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		scores[i] = c.Score
	}

	indices := gocv.NMSBoxes(boxes, scores, m.cfg.Confidence, m.cfg.IoU)
	detections := make([]detector.Detection, 0, len(indices))
	for _, i := range indices {
		detections = append(detections, candidates[i].Detection())
	}
	return detections, nil
}

// Close releases the network.
func (m *Model) Close() error {
	return m.net.Close()
}

// Factory returns a detector.Factory loading registrations with cfg.
func Factory(cfg onnx.Config) detector.Factory {
	return func(reg detector.Registration) (detector.Model, error) {
		return New(reg.Weights, cfg)
	}
}
