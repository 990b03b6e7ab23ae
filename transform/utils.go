package transform

import "math"

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

// resizeBilinear resamples one 2D plane. Sample positions use the pixel-center
// convention so up- and downscaling stay symmetric.
func resizeBilinear(src []float32, srcW, srcH, dstW, dstH int) []float32 {
	dst := make([]float32, dstW*dstH)
	if srcW == dstW && srcH == dstH {
		copy(dst, src)
		return dst
	}
	xRatio := float64(srcW) / float64(dstW)
	yRatio := float64(srcH) / float64(dstH)

	for y := 0; y < dstH; y++ {
		sy := (float64(y)+0.5)*yRatio - 0.5
		y0 := int(math.Floor(sy))
		fy := sy - float64(y0)
		y1 := y0 + 1
		if y0 < 0 {
			y0, y1, fy = 0, 0, 0
		}
		if y1 >= srcH {
			y1 = srcH - 1
		}
		if y0 >= srcH {
			y0 = srcH - 1
		}
		for x := 0; x < dstW; x++ {
			sx := (float64(x)+0.5)*xRatio - 0.5
			x0 := int(math.Floor(sx))
			fx := sx - float64(x0)
			x1 := x0 + 1
			if x0 < 0 {
				x0, x1, fx = 0, 0, 0
			}
			if x1 >= srcW {
				x1 = srcW - 1
			}
			if x0 >= srcW {
				x0 = srcW - 1
			}

			v00 := float64(src[y0*srcW+x0])
			v01 := float64(src[y0*srcW+x1])
			v10 := float64(src[y1*srcW+x0])
			v11 := float64(src[y1*srcW+x1])

			top := v00 + (v01-v00)*fx
			bot := v10 + (v11-v10)*fx
			dst[y*dstW+x] = float32(top + (bot-top)*fy)
		}
	}
	return dst
}

// resizeNearest resamples one 2D plane with nearest-neighbor, used wherever a
// binary label must keep only values from the source.
func resizeNearest(src []float32, srcW, srcH, dstW, dstH int) []float32 {
	dst := make([]float32, dstW*dstH)
	xRatio := float64(srcW) / float64(dstW)
	yRatio := float64(srcH) / float64(dstH)

	for y := 0; y < dstH; y++ {
		srcY := int(float64(y) * yRatio)
		if srcY >= srcH {
			srcY = srcH - 1
		}
		for x := 0; x < dstW; x++ {
			srcX := int(float64(x) * xRatio)
			if srcX >= srcW {
				srcX = srcW - 1
			}
			dst[y*dstW+x] = src[srcY*srcW+srcX]
		}
	}
	return dst
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
