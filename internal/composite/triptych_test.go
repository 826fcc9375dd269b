package composite

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/basicfont"
)

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func countColor(img *image.RGBA, r image.Rectangle, c color.RGBA) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestCompositor_Compose(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	green := color.RGBA{G: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}

	c := NewCompositor(basicfont.Face7x13)

	t.Run("Layout", func(t *testing.T) {
		out := c.Compose(
			Panel{Image: createTestImage(100, 50, red)},
			Panel{Image: createTestImage(80, 40, green)},
			Panel{Image: createTestImage(60, 70, blue)},
		)

		if got := out.Bounds(); got != image.Rect(0, 0, 240, 70) {
			t.Fatalf("Expected 240x70 canvas, got %v", got)
		}
		if got := out.RGBAAt(50, 25); got != red {
			t.Errorf("Expected first panel at x=0, got %v", got)
		}
		if got := out.RGBAAt(140, 20); got != green {
			t.Errorf("Expected second panel at x=100, got %v", got)
		}
		if got := out.RGBAAt(210, 65); got != blue {
			t.Errorf("Expected third panel at x=180, got %v", got)
		}
		if got := out.RGBAAt(140, 60); got != (color.RGBA{A: 255}) {
			t.Errorf("Expected uncovered canvas to be black, got %v", got)
		}
	})

	t.Run("LabelsAreStroked", func(t *testing.T) {
		out := c.Compose(
			Panel{Image: createTestImage(120, 60, red), Label: "Image 1"},
			Panel{Image: createTestImage(120, 60, red), Label: "Image 2"},
			Panel{Image: createTestImage(120, 60, red), Label: "Differences"},
		)

		for i := 0; i < 3; i++ {
			area := image.Rect(i*120, 0, i*120+100, 35)
			if countColor(out, area, white) == 0 {
				t.Errorf("Expected white label text in panel %d", i)
			}
			if countColor(out, area, color.RGBA{A: 255}) == 0 {
				t.Errorf("Expected black stroke in panel %d", i)
			}
		}
		if got := out.RGBAAt(60, 55); got != red {
			t.Errorf("Expected panel body outside the label to be untouched, got %v", got)
		}
	})

	t.Run("NilFaceFallsBack", func(t *testing.T) {
		out := NewCompositor(nil).Compose(Panel{Image: createTestImage(50, 30, red), Label: "x"})
		if out.Bounds().Dx() != 50 {
			t.Errorf("Expected 50 wide canvas, got %d", out.Bounds().Dx())
		}
	})
}

func TestLoadFace(t *testing.T) {
	t.Run("MissingFontFallsBack", func(t *testing.T) {
		face := LoadFace(FontSystem, filepath.Join(t.TempDir(), "missing.ttf"), 20, nil)
		if face == nil {
			t.Fatal("Expected a face")
		}
	})

	t.Run("CorruptFontFallsBack", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "corrupt.ttf")
		if err := os.WriteFile(path, []byte("not a font"), 0644); err != nil {
			t.Fatal(err)
		}
		face := LoadFace(FontSystem, path, 20, nil)
		if face == nil {
			t.Fatal("Expected a face")
		}
	})

	t.Run("BasicStrategy", func(t *testing.T) {
		if face := LoadFace(FontBasic, "", 20, nil); face != basicfont.Face7x13 {
			t.Errorf("Expected basic face")
		}
	})
}

func TestParseFontStrategy(t *testing.T) {
	if _, err := ParseFontStrategy("system"); err != nil {
		t.Errorf("Expected system to parse: %v", err)
	}
	if _, err := ParseFontStrategy("comic"); err == nil {
		t.Errorf("Expected unknown strategy to fail")
	}
}

func TestEncode(t *testing.T) {
	img := createTestImage(10, 10, color.White)

	t.Run("PNG", func(t *testing.T) {
		data, err := Encode(img, "/tmp/out/diff.png")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := png.Decode(bytes.NewReader(data)); err != nil {
			t.Errorf("Expected PNG output: %v", err)
		}
	})

	t.Run("JPEG", func(t *testing.T) {
		data, err := Encode(img, "/tmp/out/diff.JPG")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
			t.Errorf("Expected JPEG output: %v", err)
		}
	})

	t.Run("UnknownExtensionIsPNG", func(t *testing.T) {
		data, err := Encode(img, "/tmp/out/diff")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := png.Decode(bytes.NewReader(data)); err != nil {
			t.Errorf("Expected PNG output: %v", err)
		}
	})
}
