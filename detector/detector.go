// Package detector - Detection models behind a uniform inference capability.
package detector

import (
	"errors"
	"image"

	"github.com/nvr-ai/model-compare/corpus"
)

// Detection represents a single predicted object.
type Detection struct {
	// The predicted class index of the detection.
	Class int
	// The confidence score of the detection.
	Score float32
	// The bounding box of the detection in source image pixels.
	Box image.Rectangle
}

// Model is the inference capability every detector variant implements.
type Model interface {
	// Infer runs the model on a single image. Loading and decoding the image
	// is part of the call.
	Infer(img corpus.Image) ([]Detection, error)
	// Close releases the resources held by the model.
	Close() error
}

// Detector is a named model taking part in a comparison.
type Detector struct {
	Name  string
	Model Model
}

// Func adapts a plain function to the Model interface.
type Func func(img corpus.Image) ([]Detection, error)

// Infer calls f(img).
func (f Func) Infer(img corpus.Image) ([]Detection, error) {
	return f(img)
}

// Close is a no-op.
func (f Func) Close() error {
	return nil
}

// Classes returns the class index of every detection, in order.
func Classes(detections []Detection) []int {
	classes := make([]int, len(detections))
	for i, d := range detections {
		classes[i] = d.Class
	}
	return classes
}

// Close releases every detector's model.
//
// Arguments:
//   - detectors: The detectors to release.
//
// Returns:
//   - error: The joined errors of all failed closes, or nil.
func Close(detectors []Detector) error {
	var errs []error
	for _, d := range detectors {
		if d.Model == nil {
			continue
		}
		if err := d.Model.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
