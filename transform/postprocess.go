package transform

import (
	"fmt"
	"image"
	"image/color"
)

// Activation maps raw model scores to probabilities.
type Activation struct {
	Sigmoid bool
}

func (Activation) Name() string { return "Activation" }

func (a Activation) Apply(r *Record) error {
	if r.Pred == nil {
		return fmt.Errorf("no prediction on record")
	}
	if a.Sigmoid {
		for i, v := range r.Pred.Data {
			r.Pred.Data[i] = sigmoid(v)
		}
	}
	return nil
}

// AsDiscrete thresholds probabilities into a {0, 1} mask.
type AsDiscrete struct {
	Threshold float32
}

func (AsDiscrete) Name() string { return "AsDiscrete" }

func (a AsDiscrete) Apply(r *Record) error {
	if r.Pred == nil {
		return fmt.Errorf("no prediction on record")
	}
	for i, v := range r.Pred.Data {
		if v > a.Threshold {
			r.Pred.Data[i] = 1
		} else {
			r.Pred.Data[i] = 0
		}
	}
	return nil
}

// ToMask materializes the discrete prediction as a host-side grayscale mask
// (0 or 255) on the record.
type ToMask struct{}

func (ToMask) Name() string { return "ToMask" }

func (ToMask) Apply(r *Record) error {
	w, h, err := predExtent(r.Pred)
	if err != nil {
		return err
	}
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if r.Pred.Data[y*w+x] > 0 {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	r.Mask = mask
	return nil
}

// RestoreLabel maps the discrete ROI-frame prediction back to the original
// image's per-slice extent: nearest-neighbor back to the crop size, pasted at
// the crop origin in the resampled frame, then nearest-neighbor to the
// original extent. Pred and Mask are replaced by the restored label.
type RestoreLabel struct{}

func (RestoreLabel) Name() string { return "RestoreLabel" }

func (RestoreLabel) Apply(r *Record) error {
	w, h, err := predExtent(r.Pred)
	if err != nil {
		return err
	}
	m := r.Meta
	if m.CropW == 0 || m.SpacedW == 0 || m.OrigW == 0 {
		return fmt.Errorf("spatial metadata missing, preprocessing must run first")
	}

	// invert the resize
	crop := resizeNearest(r.Pred.Data[:w*h], w, h, m.CropW, m.CropH)

	// invert the crop
	spaced := make([]float32, m.SpacedW*m.SpacedH)
	for y := 0; y < m.CropH; y++ {
		copy(spaced[(m.CropY+y)*m.SpacedW+m.CropX:], crop[y*m.CropW:(y+1)*m.CropW])
	}

	// invert the spacing resample
	orig := resizeNearest(spaced, m.SpacedW, m.SpacedH, m.OrigW, m.OrigH)

	r.Pred = &Tensor{Shape: []int{1, m.OrigH, m.OrigW}, Data: orig}
	if r.Mask != nil {
		return ToMask{}.Apply(r)
	}
	return nil
}

// predExtent accepts [Y X], [C Y X] or [1 C Y X] predictions with a single
// leading channel and returns the spatial extent.
func predExtent(p *Tensor) (w, h int, err error) {
	if p == nil {
		return 0, 0, fmt.Errorf("no prediction on record")
	}
	s := p.Shape
	for len(s) > 2 {
		if s[0] != 1 {
			return 0, 0, fmt.Errorf("want a single-channel prediction, have shape %v", p.Shape)
		}
		s = s[1:]
	}
	if len(s) != 2 {
		return 0, 0, fmt.Errorf("want a 2D prediction, have shape %v", p.Shape)
	}
	return s[1], s[0], nil
}
