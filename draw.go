package medseg

import (
	"image"
	"image/color"
	stddraw "image/draw"

	"github.com/up-zero/gotool/imageutil"
	xdraw "golang.org/x/image/draw"
)

// Marker colors for guidance clicks: green for foreground, red for background.
var (
	ForegroundColor = color.RGBA{G: 255, A: 255}
	BackgroundColor = color.RGBA{R: 255, A: 255}
)

// OverlayMask blends a binary mask over an image. Mask pixels > 0 are painted
// with c at the given alpha (0..1); the mask is scaled to the image bounds
// with nearest-neighbor so label edges stay crisp.
//
// # Params:
//
//	img: base image
//	mask: binary mask, any size
//	c: overlay color
//	alpha: overlay opacity in [0, 1]
func OverlayMask(img image.Image, mask *image.Gray, c color.RGBA, alpha float64) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	stddraw.Draw(dst, img.Bounds(), img, img.Bounds().Min, stddraw.Src)

	scaled := mask
	if mask.Bounds() != img.Bounds() {
		scaled = image.NewGray(img.Bounds())
		xdraw.NearestNeighbor.Scale(scaled, img.Bounds(), mask, mask.Bounds(), xdraw.Src, nil)
	}

	if alpha < 0 {
		alpha = 0
	} else if alpha > 1 {
		alpha = 1
	}

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if scaled.GrayAt(x, y).Y == 0 {
				continue
			}
			r0, g0, b0, _ := dst.At(x, y).RGBA()
			blend := func(base uint32, over uint8) uint8 {
				return uint8((1-alpha)*float64(base>>8) + alpha*float64(over))
			}
			dst.SetRGBA(x, y, color.RGBA{
				R: blend(r0, c.R),
				G: blend(g0, c.G),
				B: blend(b0, c.B),
				A: 255,
			})
		}
	}
	return dst
}

// DrawGuidance stamps filled circles for click points onto the image:
// foreground clicks in ForegroundColor, background clicks in BackgroundColor.
//
// # Params:
//
//	img: base image
//	foreground, background: click points in image coordinates
//	radius: marker radius in pixels
func DrawGuidance(img image.Image, foreground, background []image.Point, radius int) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	stddraw.Draw(dst, img.Bounds(), img, img.Bounds().Min, stddraw.Src)

	for _, pt := range foreground {
		imageutil.DrawFilledCircle(dst, pt, radius, ForegroundColor)
	}
	for _, pt := range background {
		imageutil.DrawFilledCircle(dst, pt, radius, BackgroundColor)
	}
	return dst
}
