// Package projection maps sky coordinates to the pixel plane of a tract and
// back.
package projection

import (
	"strings"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/skymap/geom"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Kind is the kind of a projection.
type Kind string

const (
	// Gnomonic projects great circles to straight lines. It can only map the
	// hemisphere centered on the tangent point.
	Gnomonic Kind = "TAN"

	// Stereographic is conformal and maps every point but the antipode of the
	// tangent point.
	Stereographic Kind = "STG"
)

// The distance to the singular point under which a coordinate is rejected.
const singularEpsilon = 1e-12

// ParseKind returns the projection kind with the given name. The empty string
// selects Gnomonic.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(s)); k {
	case "":
		return Gnomonic, nil

	case Gnomonic, Stereographic:
		return k, nil

	default:
		return "", errors.New("unknown projection").
			WithType(geom.ErrTypeConfig).
			WithTag("projection", s)
	}
}

// Projection is the bidirectional mapping between the sky and the pixel
// plane of one tract. The tangent point sits at pixel CRPix. Pixel X grows
// towards the west of the tangent point and pixel Y grows towards the north,
// both rotated counterclockwise by the orientation.
type Projection struct {
	kind        Kind
	center      geom.Coord
	scale       s1.Angle
	orientation s1.Angle
	crpix       r2.Point

	c     r3.Vector
	east  r3.Vector
	north r3.Vector
}

// New creates a projection tangent at center with the tangent point at pixel
// (0, 0). Scale is the angle covered by one pixel.
func New(kind Kind, center geom.Coord, scale s1.Angle, orientation s1.Angle) (Projection, error) {
	if kind != Gnomonic && kind != Stereographic {
		return Projection{}, errors.New("unknown projection").
			WithType(geom.ErrTypeConfig).
			WithTag("projection", kind)
	}

	if scale <= 0 {
		return Projection{}, errors.New("pixel scale must be positive").
			WithType(geom.ErrTypeConfig).
			WithTag("scale", scale.Degrees())
	}

	east, north := geom.TangentBasis(center, orientation)

	return Projection{
		kind:        kind,
		center:      center,
		scale:       scale,
		orientation: orientation,
		c:           center.Point().Vector,
		east:        east,
		north:       north,
	}, nil
}

func (p Projection) Kind() Kind {
	return p.kind
}

func (p Projection) Center() geom.Coord {
	return p.center
}

func (p Projection) Scale() s1.Angle {
	return p.scale
}

func (p Projection) Orientation() s1.Angle {
	return p.orientation
}

// CRPix returns the pixel position of the tangent point.
func (p Projection) CRPix() r2.Point {
	return p.crpix
}

// Shift returns a copy of the projection where every pixel position is moved
// by d.
func (p Projection) Shift(d r2.Point) Projection {
	p.crpix = p.crpix.Add(d)
	return p
}

// ToPixel returns the pixel position of c. It returns a domain error when c
// cannot be projected.
func (p Projection) ToPixel(c geom.Coord) (r2.Point, error) {
	return p.ToPixelPoint(c.Point())
}

// ToPixelPoint is ToPixel for a point on the unit sphere.
func (p Projection) ToPixelPoint(pt s2.Point) (r2.Point, error) {
	v := pt.Vector
	dot := v.Dot(p.c)

	var k float64
	switch p.kind {
	case Gnomonic:
		if dot <= singularEpsilon {
			return r2.Point{}, p.singularError(pt)
		}
		k = 1 / dot

	default:
		if 1+dot <= singularEpsilon {
			return r2.Point{}, p.singularError(pt)
		}
		k = 2 / (1 + dot)
	}

	u := k * v.Dot(p.east)
	w := k * v.Dot(p.north)

	return r2.Point{
		X: p.crpix.X - u/p.scale.Radians(),
		Y: p.crpix.Y + w/p.scale.Radians(),
	}, nil
}

// ToSky returns the sky coordinate at a pixel position.
func (p Projection) ToSky(px r2.Point) geom.Coord {
	return geom.CoordFromPointWithRA(p.ToSkyPoint(px), p.center.RA())
}

// ToSkyPoint is ToSky returning a point on the unit sphere.
func (p Projection) ToSkyPoint(px r2.Point) s2.Point {
	u := (p.crpix.X - px.X) * p.scale.Radians()
	w := (px.Y - p.crpix.Y) * p.scale.Radians()
	tangent := p.east.Mul(u).Add(p.north.Mul(w))

	var v r3.Vector
	switch p.kind {
	case Gnomonic:
		v = p.c.Add(tangent).Normalize()

	default:
		rr := u*u + w*w
		v = p.c.Mul((4 - rr) / (4 + rr)).Add(tangent.Mul(4 / (4 + rr)))
	}
	return s2.Point{Vector: v}
}

func (p Projection) singularError(pt s2.Point) error {
	c := geom.CoordFromPoint(pt)
	return errors.New("coordinate cannot be projected").
		WithType(geom.ErrTypeDomain).
		WithTag("projection", p.kind).
		WithTag("center", p.center.String()).
		WithTag("ra", c.RA().Degrees()).
		WithTag("dec", c.Dec().Degrees())
}
