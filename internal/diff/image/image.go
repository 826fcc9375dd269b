package image

import "image"

// Region is one external difference region: a connected cluster of flagged
// pixels together with any holes it encloses.
type Region struct {
	Bounds image.Rectangle
	Area   int
}

type DiffResult struct {
	// Baseline and Target are the inputs after dimension reconciliation.
	Baseline  *image.RGBA
	Target    *image.RGBA
	Highlight *image.RGBA
	Mask      *Mask
	Regions   []Region

	DiffPixels int
	DiffAmount float64
}

type Differ interface {
	Calculate(baseline image.Image, target image.Image) *DiffResult
}
