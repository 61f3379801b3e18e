package benchmark

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nvr-ai/model-compare/corpus"
	"github.com/nvr-ai/model-compare/detector"
	"github.com/pkg/errors"
)

// Clock returns the current time.
type Clock func() time.Time

// Runner executes every detector against every image, one call at a time.
type Runner struct {
	now    Clock
	logger *log.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the clock inference calls are timed with.
func WithClock(clock Clock) Option {
	return func(r *Runner) {
		r.now = clock
	}
}

// WithLogger sets the logger progress is reported to.
func WithLogger(logger *log.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a runner timed by time.Now that logs nowhere by default.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		now:    time.Now,
		logger: log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run benchmarks the detectors over the corpus.
//
// Detectors run in the given order and each one sees every image in corpus
// order. The first inference error aborts the whole run and is returned as is;
// no partial result is returned.
//
// Arguments:
//   - detectors: The detectors in registration order.
//   - images: The corpus.
//
// Returns:
//   - *Result: The per-image records and one summary per detector.
//   - error: corpus.ErrEmptyCorpus, or the first inference error.
func (r *Runner) Run(detectors []detector.Detector, images []corpus.Image) (*Result, error) {
	if len(images) == 0 {
		return nil, errors.WithStack(corpus.ErrEmptyCorpus)
	}

	result := &Result{
		Records:   make([]PerImageRecord, 0, len(detectors)*len(images)),
		Summaries: make([]ModelSummary, 0, len(detectors)),
	}

	for _, d := range detectors {
		r.logger.Info("running inference", "model", d.Name, "images", len(images))

		acc := NewAccumulator()
		for _, img := range images {
			record, err := r.measure(d, img)
			if err != nil {
				r.logger.Error("inference failed", "model", d.Name, "image", img.Name, "err", err)
				return nil, err
			}
			result.Records = append(result.Records, record)
			acc = acc.Add(record)
		}

		summary := Summarize(d.Name, acc, len(images))
		r.logger.Info("model finished",
			"model", d.Name,
			"avg", summary.AvgElapsed,
			"detections", summary.TotalDetections,
			"classes", summary.UniqueClasses,
		)
		result.Summaries = append(result.Summaries, summary)
	}

	return result, nil
}

// measure times exactly one inference call.
func (r *Runner) measure(d detector.Detector, img corpus.Image) (PerImageRecord, error) {
	start := r.now()
	detections, err := d.Model.Infer(img)
	elapsed := r.now().Sub(start)
	if err != nil {
		return PerImageRecord{}, err
	}
	if elapsed < 0 {
		elapsed = 0
	}

	r.logger.Debug("inferred", "model", d.Name, "image", img.Name, "elapsed", elapsed, "detections", len(detections))

	return PerImageRecord{
		Image:   img.Name,
		Model:   d.Name,
		Elapsed: elapsed,
		Count:   len(detections),
		Classes: detector.Classes(detections),
	}, nil
}
