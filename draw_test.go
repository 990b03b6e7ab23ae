package medseg

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grayRamp(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x + y) % 256)})
		}
	}
	return img
}

func TestOverlayMask(t *testing.T) {
	img := grayRamp(32, 32)
	mask := image.NewGray(image.Rect(0, 0, 32, 32))
	mask.SetGray(10, 10, color.Gray{Y: 255})

	out := OverlayMask(img, mask, color.RGBA{R: 255, A: 255}, 0.5)
	require.Equal(t, img.Bounds(), out.Bounds())

	// the masked pixel picks up red, its neighbor does not
	on := out.RGBAAt(10, 10)
	off := out.RGBAAt(11, 10)
	assert.Greater(t, on.R, on.G)
	assert.Equal(t, off.R, off.G)
}

func TestOverlayMask_ScalesMaskToImage(t *testing.T) {
	img := grayRamp(64, 64)
	mask := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	out := OverlayMask(img, mask, color.RGBA{B: 255, A: 255}, 1.0)
	require.Equal(t, img.Bounds(), out.Bounds())
	assert.EqualValues(t, 255, out.RGBAAt(63, 63).B)
}

func TestDrawGuidance(t *testing.T) {
	img := grayRamp(64, 64)
	out := DrawGuidance(img, []image.Point{{X: 16, Y: 16}}, []image.Point{{X: 48, Y: 48}}, 3)

	assert.Equal(t, ForegroundColor, out.RGBAAt(16, 16))
	assert.Equal(t, BackgroundColor, out.RGBAAt(48, 48))
}
