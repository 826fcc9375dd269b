package composite

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/xerrors"
)

type Panel struct {
	Image image.Image
	Label string
}

// Compositor is safe for concurrent use; label drawing is serialised because
// font.Face implementations are not.
type Compositor struct {
	mu          sync.Mutex
	face        font.Face
	fill        color.Color
	outline     color.Color
	strokeWidth int
	margin      int
}

func NewCompositor(face font.Face) *Compositor {
	if face == nil {
		face = basicfont.Face7x13
	}
	return &Compositor{
		face:        face,
		fill:        color.White,
		outline:     color.Black,
		strokeWidth: 2,
		margin:      10,
	}
}

// Compose lays the panels out left to right, top-aligned, on a canvas as tall
// as the tallest panel, and labels each one near its top-left corner.
func (c *Compositor) Compose(panels ...Panel) *image.RGBA {
	width := 0
	height := 0
	for _, p := range panels {
		b := p.Image.Bounds()
		width += b.Dx()
		if b.Dy() > height {
			height = b.Dy()
		}
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	offset := 0
	for _, p := range panels {
		b := p.Image.Bounds()
		draw.Draw(canvas, image.Rect(offset, 0, offset+b.Dx(), b.Dy()), p.Image, b.Min, draw.Src)
		c.label(canvas, offset+c.margin, c.margin, p.Label)
		offset += b.Dx()
	}

	return canvas
}

func (c *Compositor) label(dst draw.Image, x int, y int, text string) {
	if text == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	baseline := y + c.face.Metrics().Ascent.Ceil()

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c.outline),
		Face: c.face,
	}

	s := c.strokeWidth
	for dy := -s; dy <= s; dy++ {
		for dx := -s; dx <= s; dx++ {
			if dx*dx+dy*dy > s*s {
				continue
			}
			drawer.Dot = fixed.P(x+dx, baseline+dy)
			drawer.DrawString(text)
		}
	}

	drawer.Src = image.NewUniform(c.fill)
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(text)
}

// Encode picks the codec from the output path: JPEG for .jpg/.jpeg, PNG
// for everything else.
func Encode(img image.Image, path string) ([]byte, error) {
	var buffer bytes.Buffer

	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		if err := jpeg.Encode(&buffer, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, xerrors.Errorf("failed to encode jpeg: %w", err)
		}
	default:
		if err := png.Encode(&buffer, img); err != nil {
			return nil, xerrors.Errorf("failed to encode png: %w", err)
		}
	}

	return buffer.Bytes(), nil
}
