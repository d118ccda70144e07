// Package rings lays tracts out in rings of declination capped by a tract on
// each pole.
package rings

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/skymap/geom"
	"github.com/aukilabs/skymap/layouts"
	"github.com/golang/geo/s1"
)

// The layout name.
const Name = "rings"

// Config is the configuration of a ring layout.
type Config struct {
	// The number of rings between the polar caps.
	NumRings int `json:"numRings" yaml:"numRings"`

	// The RA of the first tract center of every ring, in degrees.
	RAStart float64 `json:"raStart,omitempty" yaml:"raStart"`
}

func (c Config) Validate() error {
	if c.NumRings <= 0 {
		return errors.New("number of rings must be positive").
			WithType(geom.ErrTypeConfig).
			WithTag("num_rings", c.NumRings)
	}

	if c.RAStart < 0 || c.RAStart >= 360 {
		return errors.New("ra start must be in [0, 360)").
			WithType(geom.ErrTypeConfig).
			WithTag("ra_start", c.RAStart)
	}
	return nil
}

// Layout is a ring tract layout. Tract 0 is the south polar cap, followed by
// the rings from south to north. The last tract is the north polar cap.
type Layout struct {
	config   Config
	ringSize s1.Angle
	counts   []int
}

// New creates a ring layout.
func New(c Config) *Layout {
	l := &Layout{
		config:   c,
		ringSize: s1.Angle(math.Pi / float64(c.NumRings+1)),
	}

	for i := 0; i < c.NumRings; i++ {
		start, stop := l.ringBound(i), l.ringBound(i+1)
		dec := math.Min(math.Abs(start.Radians()), math.Abs(stop.Radians()))
		l.counts = append(l.counts, int(2*math.Pi*math.Cos(dec)/l.ringSize.Radians())+1)
	}
	return l
}

func (l *Layout) Name() string {
	return Name
}

func (l *Layout) TotalCoverage() bool {
	return true
}

func (l *Layout) Config() Config {
	return l.config
}

// RingSize returns the declination extent of a ring.
func (l *Layout) RingSize() s1.Angle {
	return l.ringSize
}

// NumTracts returns the number of tracts, caps included.
func (l *Layout) NumTracts() int {
	n := 2
	for _, c := range l.counts {
		n += c
	}
	return n
}

// ringIndices returns the ring and the position within the ring of a tract.
// The south cap is ring -1 and the north cap is ring NumRings.
func (l *Layout) ringIndices(id int) (ring int, index int) {
	if id <= 0 {
		return -1, 0
	}
	if id >= l.NumTracts()-1 {
		return l.config.NumRings, 0
	}

	id--
	for ring < len(l.counts) && id >= l.counts[ring] {
		id -= l.counts[ring]
		ring++
	}
	return ring, id
}

func (l *Layout) Tracts() ([]layouts.TractSpec, error) {
	if err := l.config.Validate(); err != nil {
		return nil, err
	}

	raStart := s1.Angle(l.config.RAStart) * s1.Degree
	tracts := make([]layouts.TractSpec, 0, l.NumTracts())

	tracts = append(tracts, layouts.TractSpec{
		Center: geom.NewCoord(0, -math.Pi/2),
		Region: geom.CapRegion{Boundary: l.ringBound(0)},
	})

	for ring, count := range l.counts {
		half := s1.Angle(math.Pi / float64(count))
		dec := l.ringSize*s1.Angle(ring+1) - math.Pi/2

		for i := 0; i < count; i++ {
			ra := raStart + s1.Angle(2*math.Pi*float64(i)/float64(count))
			tracts = append(tracts, layouts.TractSpec{
				Center: geom.NewCoord(ra, dec),
				Region: geom.BandRegion{
					RAStart: raStart - half,
					Count:   count,
					Index:   i,
					DecLo:   l.ringBound(ring),
					DecHi:   l.ringBound(ring + 1),
				},
			})
		}
	}

	tracts = append(tracts, layouts.TractSpec{
		Center: geom.NewCoord(0, math.Pi/2),
		Region: geom.CapRegion{North: true, Boundary: l.ringBound(l.config.NumRings)},
	})
	return tracts, nil
}

// TractID returns the id of the tract holding c without scanning the
// tracts.
func (l *Layout) TractID(c geom.Coord) int {
	dec := c.Dec()
	if dec < l.ringBound(0) {
		return 0
	}
	if dec >= l.ringBound(l.config.NumRings) {
		return l.NumTracts() - 1
	}

	ring := int(math.Floor((dec - l.ringBound(0)).Radians() / l.ringSize.Radians()))
	ring = min(max(ring, 0), l.config.NumRings-1)

	// Boundaries are computed independently from the floor above, so
	// rounding can put dec on either side of them.
	if dec < l.ringBound(ring) {
		ring--
	} else if dec >= l.ringBound(ring+1) {
		ring++
	}

	id := 1
	for i := 0; i < ring; i++ {
		id += l.counts[i]
	}

	count := l.counts[ring]
	half := s1.Angle(math.Pi / float64(count))
	raStart := s1.Angle(l.config.RAStart) * s1.Degree
	return id + geom.RAIndex(c.RA(), raStart-half, count)
}

// ringBound returns the southern declination boundary of ring i. Boundary
// NumRings is the northern boundary of the last ring.
func (l *Layout) ringBound(i int) s1.Angle {
	return l.ringSize*(s1.Angle(i)+0.5) - math.Pi/2
}
