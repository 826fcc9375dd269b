package composite

import (
	"log/slog"
	"os"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/xerrors"
)

type FontStrategy string

const (
	// FontSystem tries a configured TrueType file, then well-known system
	// fonts, and falls back to FontBasic.
	FontSystem FontStrategy = "system"
	FontBasic  FontStrategy = "basic"
)

func ParseFontStrategy(s string) (FontStrategy, error) {
	switch FontStrategy(s) {
	case FontSystem, FontBasic:
		return FontStrategy(s), nil
	default:
		return "", xerrors.Errorf("unknown font strategy: %s", s)
	}
}

var systemFontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/usr/share/fonts/liberation/LiberationSans-Regular.ttf",
	"/Library/Fonts/Arial.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
	`C:\Windows\Fonts\arial.ttf`,
}

// LoadFace resolves the label face for a strategy. It never fails: any
// problem with a TrueType candidate is logged and the built-in bitmap face
// is used instead.
func LoadFace(strategy FontStrategy, path string, size float64, logger *slog.Logger) font.Face {
	if logger == nil {
		logger = slog.Default()
	}

	if strategy != FontSystem {
		return basicfont.Face7x13
	}

	candidates := systemFontPaths
	if path != "" {
		candidates = append([]string{path}, systemFontPaths...)
	}

	for _, candidate := range candidates {
		face, err := loadTrueType(candidate, size)
		if err != nil {
			if candidate == path {
				logger.Warn("failed to load label font", "path", path, "error", err)
			}
			continue
		}
		logger.Debug("loaded label font", "path", candidate)
		return face
	}

	logger.Debug("no system font available, using basic face")
	return basicfont.Face7x13
}

func loadTrueType(path string, size float64) (font.Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to read font: %w", err)
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, xerrors.Errorf("failed to parse font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, xerrors.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}
