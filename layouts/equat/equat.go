// Package equat lays tracts out in a band of declination.
package equat

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/skymap/geom"
	"github.com/aukilabs/skymap/layouts"
	"github.com/golang/geo/s1"
)

// The layout name.
const Name = "equat"

// Config is the configuration of a declination-banded layout. Angles are in
// degrees.
type Config struct {
	// The declination range covered by the band.
	DecMin float64 `json:"decMin" yaml:"decMin"`
	DecMax float64 `json:"decMax" yaml:"decMax"`

	// The nominal RA extent of a tract, measured along the row circle closest
	// to the equator. Ignored when NumTracts is set.
	TractWidth float64 `json:"tractWidth,omitempty" yaml:"tractWidth"`

	// The nominal declination extent of a row. Zero makes a single row.
	TractHeight float64 `json:"tractHeight,omitempty" yaml:"tractHeight"`

	// The number of tracts of every row.
	NumTracts int `json:"numTracts,omitempty" yaml:"numTracts"`

	// The RA where the first tract of every row begins.
	RAStart float64 `json:"raStart,omitempty" yaml:"raStart"`
}

// Validate returns a config error when the configuration cannot produce a
// tiling of the band.
func (c Config) Validate() error {
	switch {
	case c.DecMin < -90 || c.DecMax > 90 || c.DecMin >= c.DecMax:
		return errors.New("invalid declination range").
			WithType(geom.ErrTypeConfig).
			WithTag("dec_min", c.DecMin).
			WithTag("dec_max", c.DecMax)

	case c.NumTracts < 0:
		return errors.New("number of tracts must not be negative").
			WithType(geom.ErrTypeConfig).
			WithTag("num_tracts", c.NumTracts)

	case c.NumTracts == 0 && c.TractWidth <= 0:
		return errors.New("tract width must be positive").
			WithType(geom.ErrTypeConfig).
			WithTag("tract_width", c.TractWidth)

	case c.TractHeight < 0:
		return errors.New("tract height must not be negative").
			WithType(geom.ErrTypeConfig).
			WithTag("tract_height", c.TractHeight)

	default:
		return nil
	}
}

// Layout is a declination-banded tract layout. Rows go from south to north
// and tracts within a row by increasing RA.
type Layout struct {
	config Config
}

// New creates a declination-banded layout.
func New(c Config) *Layout {
	return &Layout{config: c}
}

func (l *Layout) Name() string {
	return Name
}

func (l *Layout) Config() Config {
	return l.config
}

// TotalCoverage reports whether the band runs from pole to pole.
func (l *Layout) TotalCoverage() bool {
	return l.config.DecMin <= -90 && l.config.DecMax >= 90
}

func (l *Layout) Tracts() ([]layouts.TractSpec, error) {
	if err := l.config.Validate(); err != nil {
		return nil, err
	}

	bounds := l.rowBounds()
	raStart := s1.Angle(l.config.RAStart) * s1.Degree

	var tracts []layouts.TractSpec
	for row := 0; row+1 < len(bounds); row++ {
		decLo, decHi := bounds[row], bounds[row+1]
		count := l.rowCount(decLo, decHi)
		width := s1.Angle(2 * math.Pi / float64(count))

		for i := 0; i < count; i++ {
			tracts = append(tracts, layouts.TractSpec{
				Center: geom.NewCoord(raStart+width*(s1.Angle(i)+0.5), (decLo+decHi)/2),
				Region: geom.BandRegion{
					RAStart:   raStart,
					Count:     count,
					Index:     i,
					DecLo:     decLo,
					DecHi:     decHi,
					ClosedTop: row+2 == len(bounds),
				},
			})
		}
	}
	return tracts, nil
}

// rowBounds returns the declination boundaries between rows, south to north.
// Adjacent rows share the same boundary value.
func (l *Layout) rowBounds() []s1.Angle {
	span := l.config.DecMax - l.config.DecMin
	rows := 1
	if l.config.TractHeight > 0 {
		rows = max(int(math.Ceil(span/l.config.TractHeight)), 1)
	}

	bounds := make([]s1.Angle, rows+1)
	for i := range bounds {
		bounds[i] = s1.Angle(l.config.DecMin+span*float64(i)/float64(rows)) * s1.Degree
	}
	bounds[0] = s1.Angle(l.config.DecMin) * s1.Degree
	bounds[rows] = s1.Angle(l.config.DecMax) * s1.Degree
	return bounds
}

// rowCount returns the number of tracts of a row. It is computed on the
// circle of the row closest to the equator, which is the longest one.
func (l *Layout) rowCount(decLo, decHi s1.Angle) int {
	if l.config.NumTracts > 0 {
		return l.config.NumTracts
	}

	dec := 0.0
	if decLo > 0 || decHi < 0 {
		dec = math.Min(math.Abs(decLo.Radians()), math.Abs(decHi.Radians()))
	}

	count := int(math.Ceil(360 * math.Cos(dec) / l.config.TractWidth))
	return max(count, 1)
}
