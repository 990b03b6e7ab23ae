package deepgrow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, [2]int{256, 256}, cfg.ROISize)
	assert.Equal(t, [2]float64{1.0, 1.0}, cfg.Spacing)
	assert.EqualValues(t, 208.0, cfg.Subtrahend)
	assert.EqualValues(t, 388.0, cfg.Divisor)
	assert.EqualValues(t, 0.5, cfg.Threshold)
	assert.Equal(t, "image", cfg.InputName)
	assert.Equal(t, "pred", cfg.OutputName)
}

func TestPipelineStageOrder(t *testing.T) {
	pre := Preprocess(DefaultConfig())
	require.Len(t, pre.Transforms, 11)

	names := make([]string, len(pre.Transforms))
	for i, tr := range pre.Transforms {
		names[i] = tr.Name()
	}
	assert.Equal(t, []string{
		"LoadVolume",
		"ChannelFirst",
		"Spacing",
		"AddGuidanceFromPoints",
		"FetchSlice",
		"AddChannel",
		"SpatialCropGuidance",
		"Resize",
		"ResizeGuidance",
		"NormalizeIntensity",
		"AddGuidanceSignal",
	}, names)

	post := Postprocess(DefaultConfig())
	require.Len(t, post.Transforms, 4)
	assert.Equal(t, "Activation", post.Transforms[0].Name())
	assert.Equal(t, "RestoreLabel", post.Transforms[3].Name())
}

func TestPredictRejectsBadInput(t *testing.T) {
	e := &Engine{config: DefaultConfig()}

	_, err := e.Predict(nil)
	assert.Error(t, err)
}
