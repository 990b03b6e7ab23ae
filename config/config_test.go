package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, [][3]int{{66, 180, 105}}, cfg.Foreground)
	assert.Equal(t, [2]int{256, 256}, cfg.Pipeline.ROISize)
	assert.EqualValues(t, 208.0, cfg.Pipeline.Subtrahend)
	assert.EqualValues(t, 388.0, cfg.Pipeline.Divisor)
	assert.EqualValues(t, 0.5, cfg.Pipeline.Threshold)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	body := `
image: /data/scan.nii.gz
model: /models/deepgrow_2d.onnx
foreground:
  - [10, 20, 30]
background:
  - [1, 2, 30]
pipeline:
  roiSize: [128, 128]
  threshold: 0.7
engine:
  numThreads: 2
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/scan.nii.gz", cfg.Image)
	assert.Equal(t, [][3]int{{10, 20, 30}}, cfg.Foreground)
	assert.Equal(t, [2]int{128, 128}, cfg.Pipeline.ROISize)
	assert.EqualValues(t, float32(0.7), cfg.Pipeline.Threshold)
	assert.Equal(t, 2, cfg.Engine.NumThreads)

	fg, bg := cfg.Clicks()
	require.Len(t, fg, 1)
	require.Len(t, bg, 1)
	assert.Equal(t, 30, fg[0].Z)

	ec := cfg.EngineConfig()
	assert.Equal(t, "/models/deepgrow_2d.onnx", ec.ModelPath)
	assert.Equal(t, [2]int{128, 128}, ec.ROISize)
	assert.Equal(t, 2, ec.NumThreads)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pipeline: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
