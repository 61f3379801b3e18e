package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/model-compare/detector"
	"github.com/nvr-ai/model-compare/detector/onnx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "comparison_results.csv", cfg.SummaryPath())
	assert.Equal(t, "per_image_results.csv", cfg.PerImagePath())
	require.Len(t, cfg.Models, 2)
	assert.Equal(t, "YOLOv5n", cfg.Models[0].Name)
	assert.Equal(t, "YOLOv5s", cfg.Models[1].Name)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "compare.yaml", `
images_dir: corpus/street
extensions: [".jpg", ".jpeg", ".webp"]
output_dir: results
log_level: debug
models:
  - name: yolov8n
    kind: onnx
    weights: weights/yolov8n.onnx
  - name: yolov8n-cv
    kind: opencv
    weights: weights/yolov8n.onnx
onnx:
  provider: cuda
  device_id: 1
  input_size: 320
  confidence: 0.4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "corpus/street", cfg.ImagesDir)
	assert.Equal(t, []string{".jpg", ".jpeg", ".webp"}, cfg.Extensions)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, filepath.Join("results", "comparison_results.csv"), cfg.SummaryPath())
	assert.Equal(t, []detector.Registration{
		{Name: "yolov8n", Kind: "onnx", Weights: "weights/yolov8n.onnx"},
		{Name: "yolov8n-cv", Kind: "opencv", Weights: "weights/yolov8n.onnx"},
	}, cfg.Models)
	assert.Equal(t, onnx.ProviderCUDA, cfg.ONNX.Provider)
	assert.Equal(t, 1, cfg.ONNX.DeviceID)
	assert.Equal(t, 320, cfg.ONNX.InputSize)
	assert.InDelta(t, 0.4, cfg.ONNX.Confidence, 1e-6)
	assert.InDelta(t, 0.7, cfg.ONNX.IoU, 1e-6)
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeConfig(t, "bad.yaml", `
models:
  - name: ""
    weights: a.onnx
`)
	_, err = Load(path)
	assert.ErrorContains(t, err, "name is empty")

	path = writeConfig(t, "bad.json", `{"onnx": {"iou": 2}}`)
	_, err = Load(path)
	assert.ErrorContains(t, err, "iou")

	path = writeConfig(t, "provider.yaml", "onnx:\n  provider: tpu\n")
	_, err = Load(path)
	assert.ErrorContains(t, err, "onnx: unknown provider \"tpu\"")
}

func TestLoadDefaultProvider(t *testing.T) {
	path := writeConfig(t, "compare.yaml", "onnx:\n  confidence: 0.5\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, onnx.ProviderCPU, cfg.ONNX.Provider)
	assert.Zero(t, cfg.ONNX.DeviceID)
}
