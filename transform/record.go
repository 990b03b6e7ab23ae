// Package transform implements the interactive-segmentation data pipeline: a
// record describing one scan plus user clicks is threaded through a fixed
// chain of transforms that prepare the model input and restore the model
// output to the original image frame.
package transform

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/medgo/go-medseg/nifti"
)

// Tensor is a dense float32 array with a row-major shape. The record's image
// and prediction evolve through the pipeline as tensors.
type Tensor struct {
	Shape []int
	Data  []float32
}

// NewTensor allocates a zeroed tensor with the given shape.
func NewTensor(shape ...int) *Tensor {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return &Tensor{Shape: append([]int(nil), shape...), Data: make([]float32, n)}
}

// Len returns the element count.
func (t *Tensor) Len() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Stats returns min, max and mean over the tensor data.
func (t *Tensor) Stats() (min, max, mean float64) {
	if len(t.Data) == 0 {
		return 0, 0, 0
	}
	min, max = math.Inf(1), math.Inf(-1)
	var sum float64
	for _, v := range t.Data {
		f := float64(v)
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
		sum += f
	}
	return min, max, sum / float64(len(t.Data))
}

// Point3 is a user click in original volume index space, (x, y, z).
type Point3 struct {
	X, Y, Z int
}

// Point2 is a guidance point in the pipeline's current 2D frame.
type Point2 struct {
	X, Y float64
}

// Guidance carries the interaction signal as exactly two parts: positive
// (foreground) and negative (background) clicks, expressed in the current
// working frame.
type Guidance struct {
	Positive []Point2
	Negative []Point2
}

// Meta is the side-channel needed to invert the spatial transforms.
type Meta struct {
	// original in-plane voxel spacing, mm
	Pixdim [3]float64
	// original per-slice extent
	OrigW, OrigH int
	// extent after isotropic resampling
	SpacedW, SpacedH int
	// crop window in the resampled frame
	CropX, CropY, CropW, CropH int
	// extent after the ROI resize
	OutW, OutH int
}

// Record is one image-annotation example flowing through the pipeline. Each
// transform consumes and returns the same record, filling or overwriting
// fields; the chain is strictly linear.
type Record struct {
	// ImagePath is the volume to load, set on construction.
	ImagePath string

	// Volume is the loaded scan with its metadata.
	Volume *nifti.Volume

	// Image is the evolving working image: slice-major volume after load,
	// one 2D slice mid-pipeline, guidance-augmented channels at the end.
	Image *Tensor

	// Foreground and Background are the literal user clicks, read-only.
	Foreground []Point3
	Background []Point3

	// Guidance is derived from the clicks and re-expressed by the spatial
	// stages.
	Guidance *Guidance

	// SliceIndex is the axial slice selected by the foreground clicks.
	SliceIndex int

	// Pred is the model output, present only after inference.
	Pred *Tensor

	// Mask is the host-side binary mask derived from Pred.
	Mask *image.Gray

	Meta Meta
}

// NewRecord builds the pipeline input for one scan and its clicks.
func NewRecord(imagePath string, foreground, background []Point3) *Record {
	return &Record{
		ImagePath:  imagePath,
		Foreground: foreground,
		Background: background,
	}
}

// Describe renders a one-line summary of the record state, printed by the
// demo after every stage.
func Describe(r *Record) string {
	var b strings.Builder
	if r.Image != nil {
		min, max, mean := r.Image.Stats()
		fmt.Fprintf(&b, "image=%v min=%.3f max=%.3f mean=%.3f", r.Image.Shape, min, max, mean)
	} else {
		b.WriteString("image=<nil>")
	}
	if r.Guidance != nil {
		fmt.Fprintf(&b, " guidance=+%d/-%d", len(r.Guidance.Positive), len(r.Guidance.Negative))
	}
	if r.Pred != nil {
		min, max, _ := r.Pred.Stats()
		fmt.Fprintf(&b, " pred=%v min=%.3f max=%.3f", r.Pred.Shape, min, max)
	}
	return b.String()
}
