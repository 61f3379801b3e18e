// Package config - Configuration for the model comparison harness.
package config

import (
	"path/filepath"

	"github.com/nvr-ai/model-compare/corpus"
	"github.com/nvr-ai/model-compare/detector"
	"github.com/nvr-ai/model-compare/detector/onnx"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// DefaultImagesDir is the directory scanned for test images.
	DefaultImagesDir = "test_images"
	// DefaultSummaryFile is the file name of the per-model summary.
	DefaultSummaryFile = "comparison_results.csv"
	// DefaultPerImageFile is the file name of the per-image log.
	DefaultPerImageFile = "per_image_results.csv"
)

// Config holds everything a comparison run needs.
type Config struct {
	ImagesDir    string                  `mapstructure:"images_dir"`
	Extensions   []string                `mapstructure:"extensions"`
	OutputDir    string                  `mapstructure:"output_dir"`
	SummaryFile  string                  `mapstructure:"summary_file"`
	PerImageFile string                  `mapstructure:"per_image_file"`
	LogLevel     string                  `mapstructure:"log_level"`
	Models       []detector.Registration `mapstructure:"models"`
	ONNX         onnx.Config             `mapstructure:"onnx"`
}

// DefaultModels is the registration list used when no models are configured.
func DefaultModels() []detector.Registration {
	return []detector.Registration{
		{Name: "YOLOv5n", Kind: onnx.KindONNX, Weights: "yolov5n.onnx"},
		{Name: "YOLOv5s", Kind: onnx.KindONNX, Weights: "yolov5s.onnx"},
	}
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() *Config {
	return &Config{
		ImagesDir:    DefaultImagesDir,
		Extensions:   append([]string(nil), corpus.DefaultExtensions...),
		OutputDir:    ".",
		SummaryFile:  DefaultSummaryFile,
		PerImageFile: DefaultPerImageFile,
		LogLevel:     "info",
		Models:       DefaultModels(),
		ONNX:         onnx.DefaultConfig(),
	}
}

// Load reads the configuration file at path over the defaults.
//
// An empty path yields the defaults. The file format follows its extension
// (yaml, json, toml, ...).
//
// Arguments:
//   - path: The configuration file path, or "".
//
// Returns:
//   - *Config: The validated configuration.
//   - error: An error if the file cannot be read, decoded or validated.
func Load(path string) (*Config, error) {
	defaults := DefaultConfig()

	v := viper.New()
	v.SetDefault("images_dir", defaults.ImagesDir)
	v.SetDefault("extensions", defaults.Extensions)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("summary_file", defaults.SummaryFile)
	v.SetDefault("per_image_file", defaults.PerImageFile)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("onnx.shared_library", defaults.ONNX.SharedLibrary)
	v.SetDefault("onnx.provider", string(defaults.ONNX.Provider))
	v.SetDefault("onnx.device_id", defaults.ONNX.DeviceID)
	v.SetDefault("onnx.input_size", defaults.ONNX.InputSize)
	v.SetDefault("onnx.confidence", defaults.ONNX.Confidence)
	v.SetDefault("onnx.iou", defaults.ONNX.IoU)
	v.SetDefault("onnx.intra_op_threads", defaults.ONNX.IntraOpThreads)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultModels()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.ImagesDir == "" {
		return errors.New("images_dir is empty")
	}
	if len(c.Extensions) == 0 {
		return errors.New("extensions is empty")
	}
	if c.SummaryFile == "" || c.PerImageFile == "" {
		return errors.New("output file names must be set")
	}
	if len(c.Models) == 0 {
		return errors.New("no models configured")
	}
	for i, m := range c.Models {
		if m.Name == "" {
			return errors.Errorf("models[%d]: name is empty", i)
		}
		if m.Weights == "" {
			return errors.Errorf("models[%d] %s: weights is empty", i, m.Name)
		}
	}
	return errors.Wrap(c.ONNX.Validate(), "onnx")
}

// SummaryPath is the full path of the summary file.
func (c *Config) SummaryPath() string {
	return filepath.Join(c.OutputDir, c.SummaryFile)
}

// PerImagePath is the full path of the per-image file.
func (c *Config) PerImagePath() string {
	return filepath.Join(c.OutputDir, c.PerImageFile)
}
