package image

import (
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// Reconcile brings baseline and target to identical pixel dimensions. The
// image with the smaller area is scaled up to the other's exact size, which
// may distort its aspect ratio. On equal areas with different shapes the
// baseline is the one scaled. Both results are fresh *image.RGBA anchored at
// the origin.
func Reconcile(baseline image.Image, target image.Image, scaler xdraw.Scaler) (*image.RGBA, *image.RGBA) {
	bb := baseline.Bounds()
	tb := target.Bounds()

	if bb.Dx() == tb.Dx() && bb.Dy() == tb.Dy() {
		return toRGBA(baseline), toRGBA(target)
	}

	if scaler == nil {
		scaler = xdraw.CatmullRom
	}

	if bb.Dx()*bb.Dy() > tb.Dx()*tb.Dy() {
		return toRGBA(baseline), scale(target, bb.Dx(), bb.Dy(), scaler)
	}
	return scale(baseline, tb.Dx(), tb.Dy(), scaler), toRGBA(target)
}

func scale(src image.Image, width int, height int, scaler xdraw.Scaler) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	scaler.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func toRGBA(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	if rgba, ok := src.(*image.RGBA); ok && bounds.Min == (image.Point{}) && rgba.Stride == 4*bounds.Dx() {
		return rgba
	}

	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return dst
}
