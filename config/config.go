// Package config loads the demo settings from YAML and provides the defaults
// for the published 2D Deepgrow model.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/medgo/go-medseg"
	"github.com/medgo/go-medseg/deepgrow"
	"github.com/medgo/go-medseg/transform"
)

// Config is the demo's full configuration.
type Config struct {
	// Inputs
	Image          string `yaml:"image"`          // path to the .nii/.nii.gz scan
	Model          string `yaml:"model"`          // path to the exported ONNX model
	OnnxRuntimeLib string `yaml:"onnxRuntimeLib"` // path to the onnxruntime shared library

	// Clicks in original volume index space, [x, y, z]
	Foreground [][3]int `yaml:"foreground"`
	Background [][3]int `yaml:"background"`

	// Pipeline parameters
	Pipeline struct {
		ROISize    [2]int     `yaml:"roiSize"`
		Spacing    [2]float64 `yaml:"spacing"`
		Subtrahend float32    `yaml:"subtrahend"`
		Divisor    float32    `yaml:"divisor"`
		Threshold  float32    `yaml:"threshold"`
		Sigma      float64    `yaml:"sigma"`
	} `yaml:"pipeline"`

	// Engine options
	Engine struct {
		UseCuda    bool `yaml:"useCuda"`
		NumThreads int  `yaml:"numThreads"`
	} `yaml:"engine"`

	// Output
	Output struct {
		Dir         string `yaml:"dir"`         // where figures are written
		StageFrames bool   `yaml:"stageFrames"` // write a figure after every stage
	} `yaml:"output"`
}

// DefaultConfig returns the configuration the tutorial documents: the sample
// scan, one foreground click at [66, 180, 105] and the published model
// constants.
func DefaultConfig() *Config {
	cfg := &Config{
		Image:          "./_image.nii.gz",
		Model:          "./deepgrow_weights/deepgrow_2d.onnx",
		OnnxRuntimeLib: medseg.DefaultLibraryPath(),
		Foreground:     [][3]int{{66, 180, 105}},
	}
	cfg.Pipeline.ROISize = [2]int{deepgrow.DefaultROISize, deepgrow.DefaultROISize}
	cfg.Pipeline.Spacing = [2]float64{deepgrow.DefaultSpacing, deepgrow.DefaultSpacing}
	cfg.Pipeline.Subtrahend = deepgrow.DefaultSubtrahend
	cfg.Pipeline.Divisor = deepgrow.DefaultDivisor
	cfg.Pipeline.Threshold = deepgrow.DefaultThreshold
	cfg.Pipeline.Sigma = deepgrow.DefaultSigma
	cfg.Output.Dir = "./figures"
	cfg.Output.StageFrames = true
	return cfg
}

// Load reads a YAML config. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// EngineConfig maps the file settings onto the engine configuration.
func (c *Config) EngineConfig() deepgrow.Config {
	ec := deepgrow.DefaultConfig()
	ec.ModelPath = c.Model
	ec.OnnxRuntimeLibPath = c.OnnxRuntimeLib
	ec.ROISize = c.Pipeline.ROISize
	ec.Spacing = c.Pipeline.Spacing
	ec.Subtrahend = c.Pipeline.Subtrahend
	ec.Divisor = c.Pipeline.Divisor
	ec.Threshold = c.Pipeline.Threshold
	ec.Sigma = c.Pipeline.Sigma
	ec.UseCuda = c.Engine.UseCuda
	ec.NumThreads = c.Engine.NumThreads
	return ec
}

// Clicks converts the literal click lists into pipeline points.
func (c *Config) Clicks() (foreground, background []transform.Point3) {
	for _, p := range c.Foreground {
		foreground = append(foreground, transform.Point3{X: p[0], Y: p[1], Z: p[2]})
	}
	for _, p := range c.Background {
		background = append(background, transform.Point3{X: p[0], Y: p[1], Z: p[2]})
	}
	return foreground, background
}
