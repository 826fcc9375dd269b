// Package config holds the comparison settings as an immutable value.
// Overrides never mutate a Config; they return a new one.
package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"
	"visual-regression/internal/capability"
	"visual-regression/internal/composite"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

type ResampleStrategy string

const (
	ResampleCatmullRom     ResampleStrategy = "catmull-rom"
	ResampleBiLinear       ResampleStrategy = "bilinear"
	ResampleApproxBiLinear ResampleStrategy = "approx-bilinear"
	ResampleNearest        ResampleStrategy = "nearest"
)

func ParseResampleStrategy(s string) (ResampleStrategy, error) {
	switch ResampleStrategy(s) {
	case ResampleCatmullRom, ResampleBiLinear, ResampleApproxBiLinear, ResampleNearest:
		return ResampleStrategy(s), nil
	default:
		return "", xerrors.Errorf("unknown resample strategy: %s", s)
	}
}

func (r ResampleStrategy) Scaler() xdraw.Scaler {
	switch r {
	case ResampleBiLinear:
		return xdraw.BiLinear
	case ResampleApproxBiLinear:
		return xdraw.ApproxBiLinear
	case ResampleNearest:
		return xdraw.NearestNeighbor
	default:
		return xdraw.CatmullRom
	}
}

type ScreenSize struct {
	Name    string `yaml:"name"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Enabled bool   `yaml:"enabled"`
}

func (s ScreenSize) String() string {
	return fmt.Sprintf("%s (%dx%d)", s.Name, s.Width, s.Height)
}

// Filename is the name upstream capture gives a screenshot taken at this
// size, e.g. "home_Mobile_375x667_20240102_150405.png".
func (s ScreenSize) Filename(prefix string, t time.Time) string {
	if prefix == "" {
		prefix = "screenshot"
	}
	return fmt.Sprintf("%s_%s_%dx%d_%s.png", prefix, s.Name, s.Width, s.Height, t.Format("20060102_150405"))
}

type Browser struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`
}

type Config struct {
	Threshold     uint8
	NoiseFloor    int
	Resample      ResampleStrategy
	Font          composite.FontStrategy
	LabelFontPath string
	LabelSize     float64
	Concurrency   int

	screenSizes []ScreenSize
	browsers    []Browser
}

func Default() Config {
	return Config{
		Threshold:   30,
		NoiseFloor:  100,
		Resample:    ResampleCatmullRom,
		Font:        composite.FontSystem,
		LabelSize:   20,
		Concurrency: runtime.GOMAXPROCS(0),
		screenSizes: []ScreenSize{
			{Name: "Mobile", Width: 375, Height: 667, Enabled: true},
			{Name: "Tablet", Width: 768, Height: 1024, Enabled: true},
			{Name: "Desktop", Width: 1366, Height: 768, Enabled: true},
		},
		browsers: []Browser{
			{Name: "Chrome", Enabled: true},
			{Name: "Firefox", Enabled: false},
			{Name: "Edge", Enabled: false},
			{Name: "Safari", Enabled: false},
		},
	}
}

func (c Config) ScreenSizes() []ScreenSize {
	return append([]ScreenSize(nil), c.screenSizes...)
}

func (c Config) Browsers() []Browser {
	return append([]Browser(nil), c.browsers...)
}

func (c Config) EnabledScreenSizes() []ScreenSize {
	var sizes []ScreenSize
	for _, s := range c.screenSizes {
		if s.Enabled {
			sizes = append(sizes, s)
		}
	}
	return sizes
}

func (c Config) EnabledBrowsers() []Browser {
	var browsers []Browser
	for _, b := range c.browsers {
		if b.Enabled {
			browsers = append(browsers, b)
		}
	}
	return browsers
}

// AvailableBrowsers narrows the enabled browsers to those the capability
// set reports as installed.
func (c Config) AvailableBrowsers(set capability.Set) []Browser {
	var browsers []Browser
	for _, b := range c.EnabledBrowsers() {
		if set.Has(b.Name) {
			browsers = append(browsers, b)
		}
	}
	return browsers
}

type overrides struct {
	Threshold     *int     `yaml:"threshold"`
	NoiseFloor    *int     `yaml:"noise_floor"`
	Resample      *string  `yaml:"resample"`
	Font          *string  `yaml:"font"`
	LabelFontPath *string  `yaml:"label_font_path"`
	LabelSize     *float64 `yaml:"label_size"`
	Concurrency   *int     `yaml:"concurrency"`

	ScreenSizes []screenSizeOverride `yaml:"screen_sizes"`
	Browsers    []browserOverride    `yaml:"browsers"`
}

type screenSizeOverride struct {
	Name    *string `yaml:"name"`
	Width   *int    `yaml:"width"`
	Height  *int    `yaml:"height"`
	Enabled *bool   `yaml:"enabled"`
}

type browserOverride struct {
	Name    string `yaml:"name"`
	Enabled *bool  `yaml:"enabled"`
}

// LoadOverrides parses YAML overrides from r and returns the resulting
// configuration. Keys absent from the document keep c's values; a present
// screen_sizes or browsers list replaces the whole list.
func (c Config) LoadOverrides(r io.Reader) (Config, error) {
	var o overrides
	if err := yaml.NewDecoder(r).Decode(&o); err != nil && err != io.EOF {
		return Config{}, xerrors.Errorf("failed to decode overrides: %w", err)
	}

	next := c
	next.screenSizes = c.ScreenSizes()
	next.browsers = c.Browsers()

	if o.Threshold != nil {
		if *o.Threshold < 0 || *o.Threshold > 255 {
			return Config{}, xerrors.Errorf("threshold out of range: %d", *o.Threshold)
		}
		next.Threshold = uint8(*o.Threshold)
	}
	if o.NoiseFloor != nil {
		if *o.NoiseFloor < 0 {
			return Config{}, xerrors.Errorf("noise floor must not be negative: %d", *o.NoiseFloor)
		}
		next.NoiseFloor = *o.NoiseFloor
	}
	if o.Resample != nil {
		s, err := ParseResampleStrategy(*o.Resample)
		if err != nil {
			return Config{}, err
		}
		next.Resample = s
	}
	if o.Font != nil {
		s, err := composite.ParseFontStrategy(*o.Font)
		if err != nil {
			return Config{}, err
		}
		next.Font = s
	}
	if o.LabelFontPath != nil {
		next.LabelFontPath = *o.LabelFontPath
	}
	if o.LabelSize != nil {
		if *o.LabelSize <= 0 {
			return Config{}, xerrors.Errorf("label size must be positive: %g", *o.LabelSize)
		}
		next.LabelSize = *o.LabelSize
	}
	if o.Concurrency != nil {
		if *o.Concurrency < 1 {
			return Config{}, xerrors.Errorf("concurrency must be at least 1: %d", *o.Concurrency)
		}
		next.Concurrency = *o.Concurrency
	}

	if o.ScreenSizes != nil {
		next.screenSizes = make([]ScreenSize, 0, len(o.ScreenSizes))
		for _, s := range o.ScreenSizes {
			size := ScreenSize{Name: "Unknown", Width: 1366, Height: 768, Enabled: true}
			if s.Name != nil {
				size.Name = *s.Name
			}
			if s.Width != nil {
				size.Width = *s.Width
			}
			if s.Height != nil {
				size.Height = *s.Height
			}
			if s.Enabled != nil {
				size.Enabled = *s.Enabled
			}
			if size.Width <= 0 || size.Height <= 0 {
				return Config{}, xerrors.Errorf("invalid screen size %s", size)
			}
			next.screenSizes = append(next.screenSizes, size)
		}
	}

	if o.Browsers != nil {
		next.browsers = make([]Browser, 0, len(o.Browsers))
		for _, b := range o.Browsers {
			if strings.TrimSpace(b.Name) == "" {
				return Config{}, xerrors.New("browser name must not be empty")
			}
			browser := Browser{Name: b.Name, Enabled: true}
			if b.Enabled != nil {
				browser.Enabled = *b.Enabled
			}
			next.browsers = append(next.browsers, browser)
		}
	}

	return next, nil
}

func (c Config) LoadOverridesFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, xerrors.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	next, err := c.LoadOverrides(f)
	if err != nil {
		return Config{}, xerrors.Errorf("failed to load %s: %w", path, err)
	}
	return next, nil
}

// FromEnv returns c with THRESHOLD, NOISE_FLOOR, RESAMPLE, FONT,
// LABEL_FONT_PATH and CONCURRENCY applied. Unparsable values are ignored.
func (c Config) FromEnv() Config {
	next := c
	next.screenSizes = c.ScreenSizes()
	next.browsers = c.Browsers()

	next.Threshold = EnvOrDefault("THRESHOLD", c.Threshold)
	if n := EnvOrDefault("NOISE_FLOOR", c.NoiseFloor); n >= 0 {
		next.NoiseFloor = n
	}
	if s, err := ParseResampleStrategy(EnvOrDefault("RESAMPLE", string(c.Resample))); err == nil {
		next.Resample = s
	}
	if s, err := composite.ParseFontStrategy(EnvOrDefault("FONT", string(c.Font))); err == nil {
		next.Font = s
	}
	next.LabelFontPath = EnvOrDefault("LABEL_FONT_PATH", c.LabelFontPath)
	if n := EnvOrDefault("CONCURRENCY", c.Concurrency); n >= 1 {
		next.Concurrency = n
	}

	return next
}
