package image

import (
	"image"
	"image/color"
	"runtime"
	"sync"
)

// PixelDiff flags pixels whose luma-weighted absolute difference reaches the
// threshold. Both inputs must already share dimensions (see Reconcile).
type PixelDiff struct {
	threshold uint8
}

func NewPixelDiff(threshold uint8) *PixelDiff {
	return &PixelDiff{
		threshold,
	}
}

func (p *PixelDiff) Calculate(baseline image.Image, target image.Image) *Mask {
	bounds := baseline.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	mask := NewMask(width, height)

	if baseline == target || width == 0 || height == 0 {
		return mask
	}

	baselineRGBA, baselineIsRGBA := baseline.(*image.RGBA)
	targetRGBA, targetIsRGBA := target.(*image.RGBA)
	fast := baselineIsRGBA && targetIsRGBA && targetRGBA.Bounds().Size() == bounds.Size()

	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	// https://tip.golang.org/doc/go1.25#container-aware-gomaxprocs
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > height {
		numWorkers = height
	}
	rowsPerWorker := height / numWorkers

	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = height
		}

		go func(startY int, endY int) {
			defer wg.Done()
			if fast {
				p.processRGBA(baselineRGBA, targetRGBA, mask, startY, endY)
			} else {
				p.processGeneric(baseline, target, mask, startY, endY)
			}
		}(startY, endY)
	}

	wg.Wait()

	return mask
}

func (p *PixelDiff) processRGBA(baseline *image.RGBA, target *image.RGBA, mask *Mask, startY int, endY int) {
	bMin := baseline.Bounds().Min
	tMin := target.Bounds().Min

	for y := startY; y < endY; y++ {
		baselineRowStart := baseline.PixOffset(bMin.X, bMin.Y+y)
		targetRowStart := target.PixOffset(tMin.X, tMin.Y+y)
		maskRowStart := y * mask.Width

		for x := 0; x < mask.Width; x++ {
			bo := baselineRowStart + x*4
			to := targetRowStart + x*4

			dr := absDiff(baseline.Pix[bo], target.Pix[to])
			dg := absDiff(baseline.Pix[bo+1], target.Pix[to+1])
			db := absDiff(baseline.Pix[bo+2], target.Pix[to+2])

			if luma(dr, dg, db) >= p.threshold {
				mask.Pix[maskRowStart+x] = true
			}
		}
	}
}

func (p *PixelDiff) processGeneric(baseline image.Image, target image.Image, mask *Mask, startY int, endY int) {
	bMin := baseline.Bounds().Min
	tMin := target.Bounds().Min

	for y := startY; y < endY; y++ {
		for x := 0; x < mask.Width; x++ {
			bc := color.RGBAModel.Convert(baseline.At(bMin.X+x, bMin.Y+y)).(color.RGBA)
			tc := color.RGBAModel.Convert(target.At(tMin.X+x, tMin.Y+y)).(color.RGBA)

			if luma(absDiff(bc.R, tc.R), absDiff(bc.G, tc.G), absDiff(bc.B, tc.B)) >= p.threshold {
				mask.Pix[y*mask.Width+x] = true
			}
		}
	}
}

func absDiff(a uint8, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// luma converts an RGB triple to grey with ITU-R BT.601 weights
// (0.299, 0.587, 0.114) in 16.16 fixed point, rounding to nearest.
func luma(r uint8, g uint8, b uint8) uint8 {
	y := (19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16
	return uint8(y)
}
