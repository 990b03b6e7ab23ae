// Package deepgrow runs click-guided ("Deepgrow") 2D segmentation inference:
// a pretrained model proposes a mask for one axial slice, steered by the
// user's foreground/background clicks.
package deepgrow

import "github.com/medgo/go-medseg"

// Fixed pipeline constants for the published 2D Deepgrow model.
const (
	// DefaultROISize is the spatial size of the model input window.
	DefaultROISize = 256
	// DefaultSpacing is the isotropic in-plane spacing the volume is
	// resampled to, in mm.
	DefaultSpacing = 1.0
	// Intensity normalization constants baked into the model's training.
	DefaultSubtrahend = 208.0
	DefaultDivisor    = 388.0
	// DefaultThreshold binarizes the sigmoid scores.
	DefaultThreshold = 0.5
	// DefaultSigma spreads the click signal in the guidance channels.
	DefaultSigma = 2.0
)

// Config holds the engine's initialization parameters.
type Config struct {
	// required
	ModelPath          string // ONNX model path
	OnnxRuntimeLibPath string // ONNX Runtime shared library path

	// model I/O (defaults: "image" / "pred")
	InputName  string
	OutputName string

	// pipeline parameters
	ROISize    [2]int     // model input window, (width, height)
	Spacing    [2]float64 // target in-plane spacing, mm
	Subtrahend float32    // intensity shift
	Divisor    float32    // intensity scale
	Threshold  float32    // mask cutoff
	Sigma      float64    // guidance signal spread

	// optional
	UseCuda    bool // enable CUDA
	NumThreads int  // ONNX intra-op threads, defaults to the CPU core count
}

// DefaultConfig returns the configuration for the published 2D model.
func DefaultConfig() Config {
	return Config{
		OnnxRuntimeLibPath: medseg.DefaultLibraryPath(),
		ModelPath:          "./deepgrow_weights/deepgrow_2d.onnx",
		InputName:          "image",
		OutputName:         "pred",
		ROISize:            [2]int{DefaultROISize, DefaultROISize},
		Spacing:            [2]float64{DefaultSpacing, DefaultSpacing},
		Subtrahend:         DefaultSubtrahend,
		Divisor:            DefaultDivisor,
		Threshold:          DefaultThreshold,
		Sigma:              DefaultSigma,
	}
}
