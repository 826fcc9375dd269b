package compare

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"visual-regression/internal/composite"
	"visual-regression/internal/config"
	"visual-regression/internal/storage"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) *image.RGBA {
	draw.Draw(img, r, &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

func writePNG(t *testing.T, path string, img image.Image) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestPairDiffer(t *testing.T) *PairDiffer {
	t.Helper()

	s, err := storage.NewFileStorage(context.Background(), storage.FileConfig{Directory: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}

	c := config.Default()
	c.Font = composite.FontBasic
	return NewPairDiffer(c, s, nil)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
