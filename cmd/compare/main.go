package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nvr-ai/model-compare/config"
	"github.com/nvr-ai/model-compare/detector"
	"github.com/nvr-ai/model-compare/detector/onnx"
	"github.com/nvr-ai/model-compare/detector/opencv"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	imagesDir string
	outputDir string
	logLevel  string
	provider  string

	rootCmd = &cobra.Command{
		Use:   "compare",
		Short: "Compare object detection models on a shared image corpus",
		Long: `compare runs every configured detection model over the images in a
directory, timing each inference call, and writes a per-model summary and a
per-image log as CSV files.`,
		Example: fmt.Sprintf(`  %[1]s --images ./test_images
  %[1]s --config ./compare.yaml --output-dir ./results`, filepath.Base(os.Args[0])),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCompare,
	}
)

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.Flags().StringVar(&imagesDir, "images", "", "directory of test images (default \"test_images\")")
	rootCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory the CSV reports are written to (default \".\")")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.Flags().StringVar(&provider, "provider", "", "onnxruntime execution provider: cpu, cuda, coreml")
}

func runCompare(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("images") {
		cfg.ImagesDir = imagesDir
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir = outputDir
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("provider") {
		cfg.ONNX.Provider = onnx.Provider(provider)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "compare",
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	registry := detector.NewRegistry()
	registry.Register(onnx.KindONNX, onnx.Factory(cfg.ONNX))
	registry.Register(opencv.KindOpenCV, opencv.Factory(cfg.ONNX))
	defer func() {
		if err := onnx.Shutdown(); err != nil {
			logger.Warn("failed to shut down onnxruntime", "err", err)
		}
	}()

	return run(cfg, registry, cmd.OutOrStdout(), logger)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
