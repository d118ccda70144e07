package geom

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// The number of samples taken along each region edge by Outline.
const outlineSteps = 32

// Region is the inner region of a tract on the sky.
type Region interface {
	// Reports whether the coordinate belongs to the region. Regions that tile
	// the sphere together never both contain the same coordinate.
	Contains(c Coord) bool

	// Returns the corners of the region.
	Vertices() []Coord

	// Returns a closed, densely sampled boundary of the region. Samples
	// alternate so that every odd sample lies midway along the boundary
	// between its two neighbours.
	Outline() []Coord

	// Returns a latitude/longitude rectangle holding the region.
	RectBound() s2.Rect
}

// PolygonRegion is a spherical polygon with great circle edges. Points on an
// edge shared by two adjacent polygons with identical vertices belong to
// exactly one of them.
type PolygonRegion struct {
	loop     *s2.Loop
	vertices []Coord
}

// NewPolygonRegion creates a polygon from its vertices. Vertex order does not
// matter: the polygon always holds the smaller of the two areas the vertices
// delimit.
func NewPolygonRegion(points []s2.Point) (*PolygonRegion, error) {
	if len(points) < 3 {
		return nil, errors.New("polygon needs at least 3 vertices").
			WithType(ErrTypeDomain).
			WithTag("vertices", len(points))
	}

	loop := s2.LoopFromPoints(points)
	if err := loop.Validate(); err != nil {
		return nil, errors.New("invalid polygon").
			WithType(ErrTypeDomain).
			WithTag("vertices", len(points)).
			Wrap(err)
	}
	loop.Normalize()

	vertices := make([]Coord, 0, loop.NumVertices())
	for _, v := range loop.Vertices() {
		vertices = append(vertices, CoordFromPoint(v))
	}

	return &PolygonRegion{
		loop:     loop,
		vertices: vertices,
	}, nil
}

func (r *PolygonRegion) Contains(c Coord) bool {
	return r.loop.ContainsPoint(c.Point())
}

func (r *PolygonRegion) ContainsPoint(p s2.Point) bool {
	return r.loop.ContainsPoint(p)
}

func (r *PolygonRegion) Vertices() []Coord {
	return append([]Coord(nil), r.vertices...)
}

func (r *PolygonRegion) Outline() []Coord {
	points := r.loop.Vertices()
	outline := make([]Coord, 0, len(points)*outlineSteps)

	for i, a := range points {
		b := points[(i+1)%len(points)]
		for k := 0; k < outlineSteps; k++ {
			p := s2.Interpolate(float64(k)/outlineSteps, a, b)
			outline = append(outline, CoordFromPoint(p))
		}
	}
	return outline
}

func (r *PolygonRegion) RectBound() s2.Rect {
	return r.loop.RectBound()
}

// Intersects reports whether the interiors of two polygons overlap.
func (r *PolygonRegion) Intersects(o *PolygonRegion) bool {
	return r.loop.Intersects(o.loop)
}

// Loop returns the underlying loop.
func (r *PolygonRegion) Loop() *s2.Loop {
	return r.loop
}

// BandRegion is one slice of a declination band cut into Count equal RA
// slices. The slice covers [RAStart + Index*w, RAStart + (Index+1)*w) in RA
// and [DecLo, DecHi) in Dec, where w = 2π/Count. DecHi is included when
// ClosedTop is set.
type BandRegion struct {
	RAStart   s1.Angle
	Count     int
	Index     int
	DecLo     s1.Angle
	DecHi     s1.Angle
	ClosedTop bool
}

func (r BandRegion) width() s1.Angle {
	return s1.Angle(twoPi / float64(max(r.Count, 1)))
}

func (r BandRegion) raBounds() (lo s1.Angle, hi s1.Angle) {
	w := r.width()
	lo = r.RAStart + s1.Angle(r.Index)*w
	return lo, lo + w
}

func (r BandRegion) Contains(c Coord) bool {
	dec := c.Dec()
	if dec < r.DecLo || dec > r.DecHi {
		return false
	}
	if dec == r.DecHi && !r.ClosedTop {
		return false
	}
	return RAIndex(c.RA(), r.RAStart, r.Count) == r.Index
}

func (r BandRegion) Vertices() []Coord {
	lo, hi := r.raBounds()
	return []Coord{
		NewCoord(lo, r.DecLo),
		NewCoord(hi, r.DecLo),
		NewCoord(hi, r.DecHi),
		NewCoord(lo, r.DecHi),
	}
}

func (r BandRegion) Outline() []Coord {
	lo, hi := r.raBounds()
	outline := make([]Coord, 0, 4*outlineSteps)

	edge := func(ra0, dec0, ra1, dec1 s1.Angle) {
		for k := 0; k < outlineSteps; k++ {
			t := s1.Angle(float64(k) / outlineSteps)
			outline = append(outline, NewCoord(ra0+(ra1-ra0)*t, dec0+(dec1-dec0)*t))
		}
	}

	edge(lo, r.DecLo, hi, r.DecLo)
	edge(hi, r.DecLo, hi, r.DecHi)
	edge(hi, r.DecHi, lo, r.DecHi)
	edge(lo, r.DecHi, lo, r.DecLo)
	return outline
}

func (r BandRegion) RectBound() s2.Rect {
	lng := s1.FullInterval()
	if r.Count > 1 {
		lo, hi := r.raBounds()
		lng = s1.IntervalFromEndpoints(
			math.Remainder(lo.Radians(), twoPi),
			math.Remainder(hi.Radians(), twoPi),
		)
	}

	return s2.Rect{
		Lat: r1.Interval{Lo: r.DecLo.Radians(), Hi: r.DecHi.Radians()},
		Lng: lng,
	}
}

// CapRegion is a polar cap. A north cap holds every coordinate with
// Dec >= Boundary, pole included. A south cap holds every coordinate with
// Dec < Boundary.
type CapRegion struct {
	North    bool
	Boundary s1.Angle
}

func (r CapRegion) Contains(c Coord) bool {
	if r.North {
		return c.Dec() >= r.Boundary
	}
	return c.Dec() < r.Boundary
}

func (r CapRegion) Vertices() []Coord {
	vertices := make([]Coord, 4)
	for i := range vertices {
		vertices[i] = NewCoord(s1.Angle(i)*math.Pi/2, r.Boundary)
	}
	return vertices
}

// Outline samples the boundary starting at RA 0, so samples fall on the
// axes of a projection centered on the pole with RA 0.
func (r CapRegion) Outline() []Coord {
	n := 4 * outlineSteps
	outline := make([]Coord, n)
	for i := range outline {
		outline[i] = NewCoord(s1.Angle(twoPi*float64(i)/float64(n)), r.Boundary)
	}
	return outline
}

func (r CapRegion) RectBound() s2.Rect {
	lat := r1.Interval{Lo: -math.Pi / 2, Hi: r.Boundary.Radians()}
	if r.North {
		lat = r1.Interval{Lo: r.Boundary.Radians(), Hi: math.Pi / 2}
	}

	return s2.Rect{
		Lat: lat,
		Lng: s1.FullInterval(),
	}
}
