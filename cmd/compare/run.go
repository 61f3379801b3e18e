package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/nvr-ai/model-compare/benchmark"
	"github.com/nvr-ai/model-compare/config"
	"github.com/nvr-ai/model-compare/corpus"
	"github.com/nvr-ai/model-compare/detector"
	"github.com/nvr-ai/model-compare/report"
	"github.com/pkg/errors"
)

// run loads the corpus and detectors, benchmarks them and writes the reports.
// Nothing is written unless every inference call succeeded.
func run(cfg *config.Config, registry *detector.Registry, stdout io.Writer, logger *log.Logger) error {
	images, err := corpus.Load(cfg.ImagesDir, cfg.Extensions...)
	if err != nil {
		if errors.Is(err, corpus.ErrEmptyCorpus) {
			return fmt.Errorf("%w in %s", corpus.ErrEmptyCorpus, cfg.ImagesDir)
		}
		return err
	}
	logger.Info("loaded corpus", "dir", cfg.ImagesDir, "images", len(images))

	detectors, err := registry.Build(cfg.Models)
	if err != nil {
		return err
	}
	defer func() {
		if err := detector.Close(detectors); err != nil {
			logger.Warn("failed to release models", "err", err)
		}
	}()

	runner := benchmark.NewRunner(benchmark.WithLogger(logger))
	result, err := runner.Run(detectors, images)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "\nComparison Summary:")
	if err := report.RenderSummary(stdout, result.Summaries); err != nil {
		return err
	}

	if err := report.WriteFiles(cfg.SummaryPath(), cfg.PerImagePath(), result); err != nil {
		return err
	}
	logger.Info("saved summary", "path", cfg.SummaryPath())
	logger.Info("saved per-image details", "path", cfg.PerImagePath())

	return nil
}
