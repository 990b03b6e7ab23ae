package deepgrow

import "github.com/medgo/go-medseg/transform"

// Preprocess builds the fixed eleven-stage chain that turns one raw volume
// plus clicks into the guidance-augmented model input. Order matters: the
// guidance is derived in the resampled frame and re-expressed after the
// crop and resize.
func Preprocess(cfg Config) *transform.Compose {
	return transform.NewCompose(
		transform.LoadVolume{},
		transform.ChannelFirst{},
		transform.Spacing{Pixdim: cfg.Spacing},
		transform.AddGuidanceFromPoints{},
		transform.FetchSlice{},
		transform.AddChannel{},
		transform.SpatialCropGuidance{ROI: cfg.ROISize},
		transform.Resize{Size: cfg.ROISize},
		transform.ResizeGuidance{},
		transform.NormalizeIntensity{Subtrahend: cfg.Subtrahend, Divisor: cfg.Divisor},
		transform.AddGuidanceSignal{Sigma: cfg.Sigma},
	)
}

// Postprocess builds the fixed four-stage chain that turns raw scores into a
// binary label in the original image frame.
func Postprocess(cfg Config) *transform.Compose {
	return transform.NewCompose(
		transform.Activation{Sigmoid: true},
		transform.AsDiscrete{Threshold: cfg.Threshold},
		transform.ToMask{},
		transform.RestoreLabel{},
	)
}
