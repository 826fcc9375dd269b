package image

import (
	"image"
	"image/color"
)

// Mask is a single-channel binary grid. Pix is row-major, Width*Height long.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

func NewMask(width int, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

func (m *Mask) Flagged(x int, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

func (m *Mask) Set(x int, y int, flagged bool) {
	m.Pix[y*m.Width+x] = flagged
}

func (m *Mask) Count() int {
	n := 0
	for _, f := range m.Pix {
		if f {
			n++
		}
	}
	return n
}

// Gray renders the mask as white-on-black, handy for debugging output.
func (m *Mask) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, f := range m.Pix {
		if f {
			g.Pix[i] = 255
		}
	}
	return g
}

// Highlight returns a copy of base with every flagged pixel replaced by c.
func Highlight(base *image.RGBA, m *Mask, c color.RGBA) *image.RGBA {
	bounds := base.Bounds()
	out := image.NewRGBA(bounds)
	copy(out.Pix, base.Pix)

	for y := 0; y < m.Height && y < bounds.Dy(); y++ {
		row := out.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		for x := 0; x < m.Width && x < bounds.Dx(); x++ {
			if !m.Pix[y*m.Width+x] {
				continue
			}
			offset := row + x*4
			out.Pix[offset] = c.R
			out.Pix[offset+1] = c.G
			out.Pix[offset+2] = c.B
			out.Pix[offset+3] = c.A
		}
	}
	return out
}
