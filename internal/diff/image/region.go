package image

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
)

// RegionDiff reconciles dimensions, thresholds the pixel difference and keeps
// only the external regions whose area exceeds the noise floor.
type RegionDiff struct {
	pixel      *PixelDiff
	noiseFloor int
	scaler     xdraw.Scaler
	color      color.RGBA
}

func NewRegionDiff(threshold uint8, noiseFloor int, scaler xdraw.Scaler) *RegionDiff {
	return &RegionDiff{
		pixel:      NewPixelDiff(threshold),
		noiseFloor: noiseFloor,
		scaler:     scaler,
		color:      color.RGBA{R: 255, A: 255}, // Red color for differences
	}
}

func (r *RegionDiff) Calculate(baseline image.Image, target image.Image) *DiffResult {
	b, t := Reconcile(baseline, target, r.scaler)

	provisional := r.pixel.Calculate(b, t)
	mask, regions := r.findRegions(provisional)

	diffPixels := mask.Count()
	totalPixels := mask.Width * mask.Height

	diffAmount := 0.0
	if totalPixels > 0 {
		diffAmount = float64(diffPixels) / float64(totalPixels)
	}

	return &DiffResult{
		Baseline:   b,
		Target:     t,
		Highlight:  Highlight(b, mask, r.color),
		Mask:       mask,
		Regions:    regions,
		DiffPixels: diffPixels,
		DiffAmount: diffAmount,
	}
}

type point struct {
	x int
	y int
}

// findRegions returns the filled mask of the surviving regions.
//
// Unflagged pixels reachable from the border through 4-connected unflagged
// neighbours are outside every region. Each 8-connected component of the
// remaining pixels is one external region, so enclosed holes and anything
// nested inside them belong to the enclosing region.
func (r *RegionDiff) findRegions(provisional *Mask) (*Mask, []Region) {
	width := provisional.Width
	height := provisional.Height
	result := NewMask(width, height)
	if width == 0 || height == 0 {
		return result, nil
	}

	outside := r.markOutside(provisional)

	labels := make([]int32, width*height)
	var regions []Region
	var areas []int

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := y*width + x
			if outside[i] || labels[i] != 0 {
				continue
			}

			label := int32(len(areas) + 1)
			region := r.fillComponent(outside, labels, x, y, width, height, label)
			areas = append(areas, region.Area)
			if region.Area > r.noiseFloor {
				regions = append(regions, region)
			}
		}
	}

	for i, label := range labels {
		if label != 0 && areas[label-1] > r.noiseFloor {
			result.Pix[i] = true
		}
	}

	return result, regions
}

func (r *RegionDiff) markOutside(provisional *Mask) []bool {
	width := provisional.Width
	height := provisional.Height
	outside := make([]bool, width*height)

	queue := make([]point, 0, 2*(width+height))
	push := func(x int, y int) {
		i := y*width + x
		if !provisional.Pix[i] && !outside[i] {
			outside[i] = true
			queue = append(queue, point{x, y})
		}
	}

	for x := 0; x < width; x++ {
		push(x, 0)
		push(x, height-1)
	}
	for y := 0; y < height; y++ {
		push(0, y)
		push(width-1, y)
	}

	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		if p.x > 0 {
			push(p.x-1, p.y)
		}
		if p.x < width-1 {
			push(p.x+1, p.y)
		}
		if p.y > 0 {
			push(p.x, p.y-1)
		}
		if p.y < height-1 {
			push(p.x, p.y+1)
		}
	}

	return outside
}

func (r *RegionDiff) fillComponent(outside []bool, labels []int32, startX int, startY int, width int, height int, label int32) Region {
	minX, minY, maxX, maxY := startX, startY, startX, startY
	area := 0

	queue := []point{{startX, startY}}
	labels[startY*width+startX] = label

	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		area++

		if p.x < minX {
			minX = p.x
		}
		if p.x > maxX {
			maxX = p.x
		}
		if p.y < minY {
			minY = p.y
		}
		if p.y > maxY {
			maxY = p.y
		}

		// Check 8 neighbors
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}

				nx := p.x + dx
				ny := p.y + dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}

				ni := ny*width + nx
				if !outside[ni] && labels[ni] == 0 {
					labels[ni] = label
					queue = append(queue, point{nx, ny})
				}
			}
		}
	}

	return Region{
		Bounds: image.Rect(minX, minY, maxX+1, maxY+1),
		Area:   area,
	}
}
