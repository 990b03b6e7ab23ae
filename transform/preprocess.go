package transform

import (
	"fmt"
	"math"

	"github.com/medgo/go-medseg/nifti"
)

// LoadVolume reads the scan at Record.ImagePath and records the spacing
// metadata every later spatial stage depends on.
type LoadVolume struct{}

func (LoadVolume) Name() string { return "LoadVolume" }

func (LoadVolume) Apply(r *Record) error {
	vol, err := nifti.Load(r.ImagePath)
	if err != nil {
		return err
	}
	r.Volume = vol
	r.Meta.Pixdim = vol.Pixdim
	r.Meta.OrigW, r.Meta.OrigH = vol.SliceExtent()
	return nil
}

// ChannelFirst reorders the volume to slice-major [Z, Y, X] so the slice axis
// leads. NIfTI stores x fastest, so the on-disk layout already is [z][y][x]
// row-major; the data is copied so later stages never alias the volume.
type ChannelFirst struct{}

func (ChannelFirst) Name() string { return "ChannelFirst" }

func (ChannelFirst) Apply(r *Record) error {
	if r.Volume == nil {
		return fmt.Errorf("no volume loaded")
	}
	t := NewTensor(r.Volume.Nz, r.Volume.Ny, r.Volume.Nx)
	copy(t.Data, r.Volume.Data)
	r.Image = t
	return nil
}

// Spacing resamples every axial slice to the target in-plane spacing
// (bilinear). Pixdim is (x, y) in mm.
type Spacing struct {
	Pixdim [2]float64
}

func (Spacing) Name() string { return "Spacing" }

func (s Spacing) Apply(r *Record) error {
	if r.Image == nil || len(r.Image.Shape) != 3 {
		return fmt.Errorf("want a [Z Y X] image, have %v", shapeOf(r.Image))
	}
	if s.Pixdim[0] <= 0 || s.Pixdim[1] <= 0 {
		return fmt.Errorf("bad target spacing %v", s.Pixdim)
	}

	nz, h, w := r.Image.Shape[0], r.Image.Shape[1], r.Image.Shape[2]
	newW := int(math.Round(float64(w) * r.Meta.Pixdim[0] / s.Pixdim[0]))
	newH := int(math.Round(float64(h) * r.Meta.Pixdim[1] / s.Pixdim[1]))
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	out := NewTensor(nz, newH, newW)
	for z := 0; z < nz; z++ {
		plane := resizeBilinear(r.Image.Data[z*h*w:(z+1)*h*w], w, h, newW, newH)
		copy(out.Data[z*newH*newW:], plane)
	}
	r.Image = out
	r.Meta.SpacedW, r.Meta.SpacedH = newW, newH
	return nil
}

// AddGuidanceFromPoints converts the raw 3D clicks into 2D guidance in the
// resampled frame. The axial slice is taken from the first foreground click;
// clicks on other slices are dropped.
type AddGuidanceFromPoints struct{}

func (AddGuidanceFromPoints) Name() string { return "AddGuidanceFromPoints" }

func (AddGuidanceFromPoints) Apply(r *Record) error {
	if len(r.Foreground) == 0 {
		return fmt.Errorf("at least one foreground click is required")
	}
	if r.Meta.SpacedW == 0 || r.Meta.OrigW == 0 {
		return fmt.Errorf("spacing metadata missing, Spacing must run first")
	}

	slice := r.Foreground[0].Z
	sx := float64(r.Meta.SpacedW) / float64(r.Meta.OrigW)
	sy := float64(r.Meta.SpacedH) / float64(r.Meta.OrigH)

	g := &Guidance{Positive: []Point2{}, Negative: []Point2{}}
	for _, p := range r.Foreground {
		if p.Z != slice {
			continue
		}
		g.Positive = append(g.Positive, Point2{X: float64(p.X) * sx, Y: float64(p.Y) * sy})
	}
	for _, p := range r.Background {
		if p.Z != slice {
			continue
		}
		g.Negative = append(g.Negative, Point2{X: float64(p.X) * sx, Y: float64(p.Y) * sy})
	}

	r.Guidance = g
	r.SliceIndex = slice
	return nil
}

// FetchSlice extracts the 2D axial slice at Record.SliceIndex.
type FetchSlice struct{}

func (FetchSlice) Name() string { return "FetchSlice" }

func (FetchSlice) Apply(r *Record) error {
	if r.Image == nil || len(r.Image.Shape) != 3 {
		return fmt.Errorf("want a [Z Y X] image, have %v", shapeOf(r.Image))
	}
	nz, h, w := r.Image.Shape[0], r.Image.Shape[1], r.Image.Shape[2]
	if r.SliceIndex < 0 || r.SliceIndex >= nz {
		return fmt.Errorf("slice %d out of range [0, %d)", r.SliceIndex, nz)
	}

	out := NewTensor(h, w)
	copy(out.Data, r.Image.Data[r.SliceIndex*h*w:(r.SliceIndex+1)*h*w])
	r.Image = out
	return nil
}

// AddChannel prepends a channel axis: [Y, X] becomes [1, Y, X].
type AddChannel struct{}

func (AddChannel) Name() string { return "AddChannel" }

func (AddChannel) Apply(r *Record) error {
	if r.Image == nil || len(r.Image.Shape) != 2 {
		return fmt.Errorf("want a [Y X] image, have %v", shapeOf(r.Image))
	}
	r.Image.Shape = append([]int{1}, r.Image.Shape...)
	return nil
}

// SpatialCropGuidance crops a window of at most ROI size around the guidance
// centroid, clamped to the image bounds. The crop origin and size go into
// Meta so restoration can invert it. ROI is (width, height).
type SpatialCropGuidance struct {
	ROI [2]int
}

func (SpatialCropGuidance) Name() string { return "SpatialCropGuidance" }

func (s SpatialCropGuidance) Apply(r *Record) error {
	if r.Image == nil || len(r.Image.Shape) != 3 {
		return fmt.Errorf("want a [C Y X] image, have %v", shapeOf(r.Image))
	}
	if r.Guidance == nil {
		return fmt.Errorf("guidance missing, AddGuidanceFromPoints must run first")
	}

	c, h, w := r.Image.Shape[0], r.Image.Shape[1], r.Image.Shape[2]
	cw := s.ROI[0]
	ch := s.ROI[1]
	if cw <= 0 || cw > w {
		cw = w
	}
	if ch <= 0 || ch > h {
		ch = h
	}

	// center the window on the click centroid
	var cx, cy float64
	pts := append(append([]Point2{}, r.Guidance.Positive...), r.Guidance.Negative...)
	if len(pts) == 0 {
		cx, cy = float64(w)/2, float64(h)/2
	} else {
		for _, p := range pts {
			cx += p.X
			cy += p.Y
		}
		cx /= float64(len(pts))
		cy /= float64(len(pts))
	}

	x0 := clampInt(int(math.Round(cx))-cw/2, 0, w-cw)
	y0 := clampInt(int(math.Round(cy))-ch/2, 0, h-ch)

	out := NewTensor(c, ch, cw)
	for ci := 0; ci < c; ci++ {
		for y := 0; y < ch; y++ {
			srcOff := ci*h*w + (y0+y)*w + x0
			dstOff := ci*ch*cw + y*cw
			copy(out.Data[dstOff:dstOff+cw], r.Image.Data[srcOff:srcOff+cw])
		}
	}
	r.Image = out
	r.Meta.CropX, r.Meta.CropY = x0, y0
	r.Meta.CropW, r.Meta.CropH = cw, ch
	return nil
}

// Resize scales the image to the fixed ROI size (bilinear). Size is
// (width, height).
type Resize struct {
	Size [2]int
}

func (Resize) Name() string { return "Resize" }

func (s Resize) Apply(r *Record) error {
	if r.Image == nil || len(r.Image.Shape) != 3 {
		return fmt.Errorf("want a [C Y X] image, have %v", shapeOf(r.Image))
	}
	if s.Size[0] <= 0 || s.Size[1] <= 0 {
		return fmt.Errorf("bad target size %v", s.Size)
	}

	c, h, w := r.Image.Shape[0], r.Image.Shape[1], r.Image.Shape[2]
	outW, outH := s.Size[0], s.Size[1]

	out := NewTensor(c, outH, outW)
	for ci := 0; ci < c; ci++ {
		plane := resizeBilinear(r.Image.Data[ci*h*w:(ci+1)*h*w], w, h, outW, outH)
		copy(out.Data[ci*outH*outW:], plane)
	}
	r.Image = out
	r.Meta.OutW, r.Meta.OutH = outW, outH
	return nil
}

// ResizeGuidance re-expresses the guidance through the crop and resize so the
// clicks land on the same anatomy in the ROI frame.
type ResizeGuidance struct{}

func (ResizeGuidance) Name() string { return "ResizeGuidance" }

func (ResizeGuidance) Apply(r *Record) error {
	if r.Guidance == nil {
		return fmt.Errorf("guidance missing")
	}
	m := r.Meta
	if m.CropW == 0 || m.OutW == 0 {
		return fmt.Errorf("crop/resize metadata missing, crop and resize must run first")
	}

	remap := func(pts []Point2) []Point2 {
		out := make([]Point2, len(pts))
		for i, p := range pts {
			x := (p.X - float64(m.CropX)) * float64(m.OutW) / float64(m.CropW)
			y := (p.Y - float64(m.CropY)) * float64(m.OutH) / float64(m.CropH)
			out[i] = Point2{
				X: clampFloat(x, 0, float64(m.OutW-1)),
				Y: clampFloat(y, 0, float64(m.OutH-1)),
			}
		}
		return out
	}
	r.Guidance = &Guidance{
		Positive: remap(r.Guidance.Positive),
		Negative: remap(r.Guidance.Negative),
	}
	return nil
}

// NormalizeIntensity shifts and scales voxel intensities with the fixed
// dataset constants.
type NormalizeIntensity struct {
	Subtrahend float32
	Divisor    float32
}

func (NormalizeIntensity) Name() string { return "NormalizeIntensity" }

func (n NormalizeIntensity) Apply(r *Record) error {
	if r.Image == nil {
		return fmt.Errorf("no image")
	}
	if n.Divisor == 0 {
		return fmt.Errorf("divisor must not be zero")
	}
	for i, v := range r.Image.Data {
		r.Image.Data[i] = (v - n.Subtrahend) / n.Divisor
	}
	return nil
}

// AddGuidanceSignal encodes the clicks as two extra channels: a Gaussian
// falloff around each positive click, then the same for negative clicks. The
// single-channel ROI image becomes the 3-channel model input.
type AddGuidanceSignal struct {
	Sigma float64
}

func (AddGuidanceSignal) Name() string { return "AddGuidanceSignal" }

func (g AddGuidanceSignal) Apply(r *Record) error {
	if r.Image == nil || len(r.Image.Shape) != 3 || r.Image.Shape[0] != 1 {
		return fmt.Errorf("want a [1 Y X] image, have %v", shapeOf(r.Image))
	}
	if r.Guidance == nil {
		return fmt.Errorf("guidance missing")
	}
	sigma := g.Sigma
	if sigma <= 0 {
		sigma = 2.0
	}

	h, w := r.Image.Shape[1], r.Image.Shape[2]
	out := NewTensor(3, h, w)
	copy(out.Data[:h*w], r.Image.Data)
	stampSignal(out.Data[h*w:2*h*w], w, h, r.Guidance.Positive, sigma)
	stampSignal(out.Data[2*h*w:], w, h, r.Guidance.Negative, sigma)

	r.Image = out
	return nil
}

// stampSignal writes max-combined Gaussian bumps centered on each point.
func stampSignal(dst []float32, w, h int, pts []Point2, sigma float64) {
	if len(pts) == 0 {
		return
	}
	inv := 1.0 / (2.0 * sigma * sigma)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var best float64
			for _, p := range pts {
				dx := float64(x) - p.X
				dy := float64(y) - p.Y
				v := math.Exp(-(dx*dx + dy*dy) * inv)
				if v > best {
					best = v
				}
			}
			dst[y*w+x] = float32(best)
		}
	}
}

func shapeOf(t *Tensor) []int {
	if t == nil {
		return nil
	}
	return t.Shape
}
