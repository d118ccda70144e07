// Package discrete places tracts at explicit sky positions.
package discrete

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/skymap/geom"
	"github.com/aukilabs/skymap/layouts"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// The layout name.
const Name = "discrete"

// The largest accepted tract half width, in degrees.
const maxHalfWidth = 60

// Field is a tract position. Angles are in degrees.
type Field struct {
	RA  float64 `json:"ra" yaml:"ra"`
	Dec float64 `json:"dec" yaml:"dec"`

	// The angular distance between the center and the middle of each side
	// of the square inner region.
	HalfWidth float64 `json:"halfWidth" yaml:"halfWidth"`
}

// Config is the configuration of a discrete layout.
type Config struct {
	Tracts []Field `json:"tracts" yaml:"tracts"`
}

func (c Config) Validate() error {
	if len(c.Tracts) == 0 {
		return errors.New("discrete layout has no tracts").
			WithType(geom.ErrTypeConfig)
	}

	for i, f := range c.Tracts {
		if f.HalfWidth <= 0 || f.HalfWidth > maxHalfWidth {
			return errors.New("tract half width out of range").
				WithType(geom.ErrTypeConfig).
				WithTag("tract", i).
				WithTag("half_width", f.HalfWidth)
		}

		if f.Dec < -90 || f.Dec > 90 {
			return errors.New("tract declination out of range").
				WithType(geom.ErrTypeConfig).
				WithTag("tract", i).
				WithTag("dec", f.Dec)
		}
	}
	return nil
}

// Layout is a discrete tract layout. Tract ids follow the order of the
// configured fields.
type Layout struct {
	config Config
}

// New creates a discrete layout.
func New(c Config) *Layout {
	return &Layout{config: c}
}

func (l *Layout) Name() string {
	return Name
}

// TotalCoverage always returns false: coordinates between fields belong to
// no tract.
func (l *Layout) TotalCoverage() bool {
	return false
}

func (l *Layout) Config() Config {
	return l.config
}

// Tracts returns the tracts of the layout. It returns a config error when
// the inner regions of two tracts overlap.
func (l *Layout) Tracts() ([]layouts.TractSpec, error) {
	if err := l.config.Validate(); err != nil {
		return nil, err
	}

	tracts := make([]layouts.TractSpec, len(l.config.Tracts))
	regions := make([]*geom.PolygonRegion, len(l.config.Tracts))

	for i, f := range l.config.Tracts {
		center := geom.NewCoordDegrees(f.RA, f.Dec)
		region, err := squareRegion(center, s1.Angle(f.HalfWidth)*s1.Degree)
		if err != nil {
			return nil, errors.New("creating tract region failed").
				WithType(geom.ErrTypeConfig).
				WithTag("tract", i).
				Wrap(err)
		}

		for j := 0; j < i; j++ {
			if region.Intersects(regions[j]) {
				return nil, errors.New("tract inner regions overlap").
					WithType(geom.ErrTypeConfig).
					WithTag("tract", i).
					WithTag("other_tract", j)
			}
		}

		regions[i] = region
		tracts[i] = layouts.TractSpec{
			Center: center,
			Region: region,
		}
	}
	return tracts, nil
}

// squareRegion returns the region whose gnomonic projection centered on
// center is a square with sides at halfWidth from the center.
func squareRegion(center geom.Coord, halfWidth s1.Angle) (*geom.PolygonRegion, error) {
	east, north := geom.TangentBasis(center, 0)
	c := center.Point().Vector
	t := math.Tan(halfWidth.Radians())

	corners := [][2]float64{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	points := make([]s2.Point, len(corners))
	for i, k := range corners {
		v := c.Add(east.Mul(k[0] * t)).Add(north.Mul(k[1] * t))
		points[i] = s2.Point{Vector: v.Normalize()}
	}
	return geom.NewPolygonRegion(points)
}
