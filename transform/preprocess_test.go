package transform

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medgo/go-medseg/nifti"
)

// writeTestVolume saves a synthetic scan big enough to hold the documented
// sample click [66, 180, 105].
func writeTestVolume(t *testing.T, nx, ny, nz int, pixdim [3]float64) string {
	t.Helper()
	data := make([]float32, nx*ny*nz)
	for i := range data {
		data[i] = float32(i%512) + 100
	}
	path := filepath.Join(t.TempDir(), "scan.nii.gz")
	require.NoError(t, nifti.Save(path, &nifti.Volume{
		Data: data, Nx: nx, Ny: ny, Nz: nz, Pixdim: pixdim,
	}))
	return path
}

func testChain(roi int) *Compose {
	return NewCompose(
		LoadVolume{},
		ChannelFirst{},
		Spacing{Pixdim: [2]float64{1.0, 1.0}},
		AddGuidanceFromPoints{},
		FetchSlice{},
		AddChannel{},
		SpatialCropGuidance{ROI: [2]int{roi, roi}},
		Resize{Size: [2]int{roi, roi}},
		ResizeGuidance{},
		NormalizeIntensity{Subtrahend: 208.0, Divisor: 388.0},
		AddGuidanceSignal{Sigma: 2.0},
	)
}

func TestPreprocess_SampleClick(t *testing.T) {
	path := writeTestVolume(t, 96, 192, 110, [3]float64{1, 1, 1})
	r := NewRecord(path, []Point3{{X: 66, Y: 180, Z: 105}}, nil)

	var stages []string
	err := testChain(256).ApplyWithObserver(r, func(stage string, rec *Record) {
		stages = append(stages, stage)
		assert.NotEmpty(t, Describe(rec))
	})
	require.NoError(t, err)
	require.Len(t, stages, 11)

	// the model input is the ROI-sized slice plus two guidance channels
	assert.Equal(t, []int{3, 256, 256}, r.Image.Shape)
	assert.Equal(t, 105, r.SliceIndex)

	// guidance has exactly two parts, with the click in the positive one,
	// re-expressed through crop (96x192 window at origin) and resize
	require.NotNil(t, r.Guidance)
	require.Len(t, r.Guidance.Positive, 1)
	assert.Empty(t, r.Guidance.Negative)
	assert.InDelta(t, 66.0*256.0/96.0, r.Guidance.Positive[0].X, 1e-9)
	assert.InDelta(t, 180.0*256.0/192.0, r.Guidance.Positive[0].Y, 1e-9)

	// guidance channels peak at the click
	h, w := 256, 256
	px := int(r.Guidance.Positive[0].X)
	py := int(r.Guidance.Positive[0].Y)
	assert.InDelta(t, 1.0, r.Image.Data[h*w+py*w+px], 0.2)
	// no negative clicks, so the negative channel is all zero
	for _, v := range r.Image.Data[2*h*w:] {
		require.Zero(t, v)
	}
}

func TestPreprocess_SpacingScalesGuidance(t *testing.T) {
	// anisotropic 2mm voxels double the resampled extent
	path := writeTestVolume(t, 40, 30, 8, [3]float64{2, 2, 1})
	r := NewRecord(path, []Point3{{X: 10, Y: 12, Z: 3}}, []Point3{{X: 5, Y: 5, Z: 3}})

	pre := NewCompose(
		LoadVolume{},
		ChannelFirst{},
		Spacing{Pixdim: [2]float64{1.0, 1.0}},
		AddGuidanceFromPoints{},
	)
	require.NoError(t, pre.Apply(r))

	assert.Equal(t, 80, r.Meta.SpacedW)
	assert.Equal(t, 60, r.Meta.SpacedH)
	require.Len(t, r.Guidance.Positive, 1)
	require.Len(t, r.Guidance.Negative, 1)
	assert.InDelta(t, 20.0, r.Guidance.Positive[0].X, 1e-9)
	assert.InDelta(t, 24.0, r.Guidance.Positive[0].Y, 1e-9)
	assert.InDelta(t, 10.0, r.Guidance.Negative[0].X, 1e-9)
}

func TestPreprocess_DropsClicksOnOtherSlices(t *testing.T) {
	path := writeTestVolume(t, 16, 16, 6, [3]float64{1, 1, 1})
	r := NewRecord(path,
		[]Point3{{X: 4, Y: 4, Z: 2}, {X: 5, Y: 5, Z: 3}},
		[]Point3{{X: 8, Y: 8, Z: 2}, {X: 9, Y: 9, Z: 5}},
	)

	pre := NewCompose(LoadVolume{}, ChannelFirst{}, Spacing{Pixdim: [2]float64{1, 1}}, AddGuidanceFromPoints{})
	require.NoError(t, pre.Apply(r))

	assert.Equal(t, 2, r.SliceIndex)
	assert.Len(t, r.Guidance.Positive, 1)
	assert.Len(t, r.Guidance.Negative, 1)
}

func TestPreprocess_RequiresForegroundClick(t *testing.T) {
	path := writeTestVolume(t, 8, 8, 4, [3]float64{1, 1, 1})
	r := NewRecord(path, nil, nil)

	err := testChain(64).Apply(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "foreground")
}

func TestSpatialCropGuidance_CentersOnClick(t *testing.T) {
	r := &Record{
		Image:    NewTensor(1, 100, 100),
		Guidance: &Guidance{Positive: []Point2{{X: 50, Y: 50}}},
	}
	require.NoError(t, (SpatialCropGuidance{ROI: [2]int{20, 20}}).Apply(r))

	assert.Equal(t, []int{1, 20, 20}, r.Image.Shape)
	assert.Equal(t, 40, r.Meta.CropX)
	assert.Equal(t, 40, r.Meta.CropY)
}

func TestSpatialCropGuidance_ClampsAtBorder(t *testing.T) {
	r := &Record{
		Image:    NewTensor(1, 100, 100),
		Guidance: &Guidance{Positive: []Point2{{X: 2, Y: 97}}},
	}
	require.NoError(t, (SpatialCropGuidance{ROI: [2]int{20, 20}}).Apply(r))

	assert.Equal(t, 0, r.Meta.CropX)
	assert.Equal(t, 80, r.Meta.CropY)
}

func TestNormalizeIntensity(t *testing.T) {
	r := &Record{Image: &Tensor{Shape: []int{1, 1, 2}, Data: []float32{208, 596}}}
	require.NoError(t, (NormalizeIntensity{Subtrahend: 208, Divisor: 388}).Apply(r))
	assert.InDelta(t, 0.0, r.Image.Data[0], 1e-6)
	assert.InDelta(t, 1.0, r.Image.Data[1], 1e-6)

	err := (NormalizeIntensity{Subtrahend: 1, Divisor: 0}).Apply(r)
	assert.Error(t, err)
}

func TestCompose_FailFast(t *testing.T) {
	r := NewRecord(filepath.Join(t.TempDir(), "missing.nii.gz"), []Point3{{X: 1, Y: 1, Z: 1}}, nil)

	called := 0
	err := testChain(64).ApplyWithObserver(r, func(string, *Record) { called++ })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LoadVolume")
	assert.Zero(t, called)
}
