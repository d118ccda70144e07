// Package config holds the persisted configuration of a sky map.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/skymap/fingerprint"
	"github.com/aukilabs/skymap/geom"
	"github.com/aukilabs/skymap/layouts"
	"github.com/aukilabs/skymap/layouts/cells"
	"github.com/aukilabs/skymap/layouts/discrete"
	"github.com/aukilabs/skymap/layouts/dodeca"
	"github.com/aukilabs/skymap/layouts/equat"
	"github.com/aukilabs/skymap/layouts/rings"
	"github.com/aukilabs/skymap/models"
	"github.com/aukilabs/skymap/projection"
	"github.com/golang/geo/s1"
	"gopkg.in/yaml.v3"
)

const arcsec = s1.Degree / 3600

// MapConfig is the configuration a sky map is built from. Angles are in
// degrees except the pixel scale which is in arcseconds per pixel.
type MapConfig struct {
	PixelScale         float64      `json:"pixelScale" yaml:"pixelScale"`
	PatchInnerWidth    int          `json:"patchInnerWidth" yaml:"patchInnerWidth"`
	PatchInnerHeight   int          `json:"patchInnerHeight" yaml:"patchInnerHeight"`
	PatchBorder        int          `json:"patchBorder" yaml:"patchBorder"`
	TractOverlap       float64      `json:"tractOverlap" yaml:"tractOverlap"`
	Projection         string       `json:"projection" yaml:"projection"`
	PadToPatchMultiple bool         `json:"padToPatchMultiple" yaml:"padToPatchMultiple"`
	IndexResolution    float64      `json:"indexResolution,omitempty" yaml:"indexResolution"`
	Layout             LayoutConfig `json:"layout" yaml:"layout"`
}

// LayoutConfig selects a layout and holds its parameters. Only the
// parameters of the selected kind are read.
type LayoutConfig struct {
	Kind     string           `json:"kind" yaml:"kind"`
	Dodeca   *dodeca.Config   `json:"dodeca,omitempty" yaml:"dodeca"`
	Equat    *equat.Config    `json:"equat,omitempty" yaml:"equat"`
	Rings    *rings.Config    `json:"rings,omitempty" yaml:"rings"`
	Discrete *discrete.Config `json:"discrete,omitempty" yaml:"discrete"`
	Cells    *cells.Config    `json:"cells,omitempty" yaml:"cells"`
}

// DefaultMapConfig returns the configuration of a dodecahedral map with one
// arcsecond pixels.
func DefaultMapConfig() MapConfig {
	return MapConfig{
		PixelScale:       1,
		PatchInnerWidth:  4000,
		PatchInnerHeight: 4000,
		PatchBorder:      100,
		TractOverlap:     1,
		Projection:       string(projection.Stereographic),
		Layout: LayoutConfig{
			Kind:   dodeca.Name,
			Dodeca: &dodeca.Config{},
		},
	}
}

// Load reads a YAML map configuration. Missing fields keep the value of the
// default configuration.
func Load(path string) (MapConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MapConfig{}, errors.New("reading map config failed").
			WithTag("path", path).
			Wrap(err)
	}
	return Parse(data)
}

// Parse parses a YAML map configuration.
func Parse(data []byte) (MapConfig, error) {
	c := DefaultMapConfig()
	c.Layout = LayoutConfig{}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return MapConfig{}, errors.New("parsing map config failed").
			WithType(geom.ErrTypeConfig).
			Wrap(err)
	}

	if c.Layout.Kind == "" {
		c.Layout = DefaultMapConfig().Layout
	}
	c.Layout.Kind = strings.ToLower(c.Layout.Kind)
	return c, nil
}

// ModelConfig returns the tract parameters of the configuration.
func (c MapConfig) ModelConfig() (models.Config, error) {
	kind, err := projection.ParseKind(c.Projection)
	if err != nil {
		return models.Config{}, err
	}

	return models.Config{
		PixelScale:         s1.Angle(c.PixelScale) * arcsec,
		PatchInnerWidth:    c.PatchInnerWidth,
		PatchInnerHeight:   c.PatchInnerHeight,
		PatchBorder:        c.PatchBorder,
		TractOverlap:       s1.Angle(c.TractOverlap) * s1.Degree,
		Projection:         kind,
		PadToPatchMultiple: c.PadToPatchMultiple,
		IndexResolution:    s1.Angle(c.IndexResolution) * s1.Degree,
	}, nil
}

// Layout returns the layout selected by the configuration.
func (c MapConfig) BuildLayout() (layouts.Layout, error) {
	l := c.Layout
	switch strings.ToLower(l.Kind) {
	case dodeca.Name:
		return dodeca.New(valueOrZero(l.Dodeca)), nil

	case equat.Name:
		return equat.New(valueOrZero(l.Equat)), nil

	case rings.Name:
		return rings.New(valueOrZero(l.Rings)), nil

	case discrete.Name:
		return discrete.New(valueOrZero(l.Discrete)), nil

	case cells.Name:
		return cells.New(valueOrZero(l.Cells), cells.S2Enumerator{}), nil

	default:
		return nil, errors.New("unknown layout kind").
			WithType(geom.ErrTypeConfig).
			WithTag("kind", l.Kind)
	}
}

// Validate returns a config error when no map can be built from the
// configuration.
func (c MapConfig) Validate() error {
	mc, err := c.ModelConfig()
	if err != nil {
		return err
	}
	if err := mc.Validate(); err != nil {
		return err
	}

	if _, err := c.BuildLayout(); err != nil {
		return err
	}

	l := c.Layout
	switch strings.ToLower(l.Kind) {
	case equat.Name:
		return valueOrZero(l.Equat).Validate()

	case rings.Name:
		return valueOrZero(l.Rings).Validate()

	case discrete.Name:
		return valueOrZero(l.Discrete).Validate()

	case cells.Name:
		if level := valueOrZero(l.Cells).Level; level < 0 || level > cells.MaxS2Level {
			return errors.New("cell level out of range").
				WithType(geom.ErrTypeConfig).
				WithTag("level", level).
				WithTag("max_level", cells.MaxS2Level)
		}
	}
	return nil
}

// Fingerprint returns the identity of the map built from the configuration.
// Parameters of layouts other than the selected one are ignored.
func (c MapConfig) Fingerprint() (fingerprint.Fingerprint, error) {
	return fingerprint.Of(c.selected())
}

// VerifyFingerprint checks that the configuration builds the map identified
// by the expected fingerprint.
func (c MapConfig) VerifyFingerprint(expected string) error {
	return fingerprint.Verify(c.selected(), expected)
}

func (c MapConfig) selected() MapConfig {
	l := c.Layout
	c.Layout = LayoutConfig{Kind: strings.ToLower(l.Kind)}

	switch c.Layout.Kind {
	case dodeca.Name:
		c.Layout.Dodeca = l.Dodeca
	case equat.Name:
		c.Layout.Equat = l.Equat
	case rings.Name:
		c.Layout.Rings = l.Rings
	case discrete.Name:
		c.Layout.Discrete = l.Discrete
	case cells.Name:
		c.Layout.Cells = l.Cells
	}
	return c
}

// BuildOption tunes how a sky map is built without changing the map.
type BuildOption func(*models.Config)

// WithLinearScan makes lookups scan every tract instead of using the index.
func WithLinearScan() BuildOption {
	return func(c *models.Config) {
		c.LinearScan = true
	}
}

// WithParallelism sets the maximum number of tracts built concurrently.
func WithParallelism(n int) BuildOption {
	return func(c *models.Config) {
		c.Parallelism = n
	}
}

// Build validates the configuration and builds its sky map.
func Build(c MapConfig, options ...BuildOption) (*models.SkyMap, error) {
	start := time.Now()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	layout, err := c.BuildLayout()
	if err != nil {
		return nil, err
	}

	mc, err := c.ModelConfig()
	if err != nil {
		return nil, err
	}
	for _, option := range options {
		option(&mc)
	}

	f, err := c.Fingerprint()
	if err != nil {
		return nil, err
	}

	m, err := models.New(layout, mc)
	if err != nil {
		return nil, errors.New("building sky map failed").
			WithType(errors.Type(err)).
			WithTag("fingerprint", f.String()).
			Wrap(err)
	}

	logs.WithTag("layout", layout.Name()).
		WithTag("tracts", m.Len()).
		WithTag("fingerprint", f.String()).
		WithTag("uuid", f.UUID().String()).
		WithTag("duration", time.Since(start)).
		Info("sky map ready")
	return m, nil
}

func valueOrZero[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
