// Package benchmark - Functionality for running model comparison benchmarks.
package benchmark

import (
	"time"
)

// PerImageRecord captures one detector invocation on one image.
type PerImageRecord struct {
	// Image is the display name of the image.
	Image string `json:"image"`
	// Model is the detector name.
	Model string `json:"model"`
	// Elapsed is the wall-clock time of the inference call.
	Elapsed time.Duration `json:"elapsed"`
	// Count is the number of detections returned.
	Count int `json:"count"`
	// Classes are the detection class indices in the order the detector returned them.
	Classes []int `json:"classes"`
}

// ModelSummary holds the aggregate statistics of one detector over the corpus.
type ModelSummary struct {
	Model           string        `json:"model"`
	AvgElapsed      time.Duration `json:"avg_elapsed"`
	TotalDetections int           `json:"total_detections"`
	UniqueClasses   int           `json:"unique_classes"`
}

// Result is the outcome of a complete run.
type Result struct {
	// Records holds one record per (detector, image) pair, detector-outer.
	Records []PerImageRecord `json:"records"`
	// Summaries holds one summary per detector in registration order.
	Summaries []ModelSummary `json:"summaries"`
}

// Accumulator holds the running totals of a single detector's pass.
type Accumulator struct {
	Elapsed    time.Duration
	Detections int
	Classes    map[int]struct{}
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() Accumulator {
	return Accumulator{Classes: make(map[int]struct{})}
}

// Add folds a record into the accumulator and returns it.
func (a Accumulator) Add(r PerImageRecord) Accumulator {
	if a.Classes == nil {
		a.Classes = make(map[int]struct{})
	}
	a.Elapsed += r.Elapsed
	a.Detections += r.Count
	for _, c := range r.Classes {
		a.Classes[c] = struct{}{}
	}
	return a
}

// Summarize derives a detector's summary from its accumulator.
//
// Arguments:
//   - model: The detector name.
//   - acc: The accumulator after the detector's full pass.
//   - imageCount: The corpus size the average is taken over.
//
// Returns:
//   - ModelSummary: The summary. The average is zero when imageCount <= 0.
func Summarize(model string, acc Accumulator, imageCount int) ModelSummary {
	var avg time.Duration
	if imageCount > 0 {
		avg = acc.Elapsed / time.Duration(imageCount)
	}
	return ModelSummary{
		Model:           model,
		AvgElapsed:      avg,
		TotalDetections: acc.Detections,
		UniqueClasses:   len(acc.Classes),
	}
}
