package geom

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// The smallest x and y components for which a vector is not considered to be
// on a pole.
const poleEpsilon = 1e-300

// Coord is an ICRS sky coordinate. RA is kept in [0, 2π) and Dec in
// [-π/2, π/2].
type Coord struct {
	ra  s1.Angle
	dec s1.Angle
}

func NewCoord(ra, dec s1.Angle) Coord {
	if dec > math.Pi/2 {
		dec = math.Pi / 2
	} else if dec < -math.Pi/2 {
		dec = -math.Pi / 2
	}

	return Coord{
		ra:  NormalizeRA(ra),
		dec: dec,
	}
}

func NewCoordDegrees(ra, dec float64) Coord {
	return NewCoord(s1.Angle(ra)*s1.Degree, s1.Angle(dec)*s1.Degree)
}

// CoordFromPoint converts a point on the unit sphere to a coordinate. The RA
// of a pole is 0.
func CoordFromPoint(p s2.Point) Coord {
	return CoordFromPointWithRA(p, 0)
}

// CoordFromPointWithRA converts a point on the unit sphere to a coordinate,
// using defaultRA when the point is too close to a pole for its RA to be
// meaningful.
func CoordFromPointWithRA(p s2.Point, defaultRA s1.Angle) Coord {
	v := p.Vector
	if math.Abs(v.X) < poleEpsilon && math.Abs(v.Y) < poleEpsilon {
		dec := s1.Angle(math.Pi / 2)
		if v.Z < 0 {
			dec = -dec
		}
		return NewCoord(defaultRA, dec)
	}

	ll := s2.LatLngFromPoint(p)
	return NewCoord(ll.Lng, ll.Lat)
}

func (c Coord) RA() s1.Angle {
	return c.ra
}

func (c Coord) Dec() s1.Angle {
	return c.dec
}

// Point returns the unit vector of the coordinate.
func (c Coord) Point() s2.Point {
	sinRA, cosRA := math.Sincos(c.ra.Radians())
	sinDec, cosDec := math.Sincos(c.dec.Radians())
	return s2.Point{Vector: r3.Vector{
		X: cosDec * cosRA,
		Y: cosDec * sinRA,
		Z: sinDec,
	}}
}

// Separation returns the great circle distance between two coordinates.
func (c Coord) Separation(o Coord) s1.Angle {
	return c.Point().Distance(o.Point())
}

// Offset moves the coordinate along a great circle by distance, starting in
// the direction of bearing. Bearing is measured from east towards north.
func (c Coord) Offset(bearing s1.Angle, distance s1.Angle) Coord {
	east, north := TangentBasis(c, 0)

	sinB, cosB := math.Sincos(bearing.Radians())
	dir := east.Mul(cosB).Add(north.Mul(sinB))

	sinD, cosD := math.Sincos(distance.Radians())
	v := c.Point().Vector.Mul(cosD).Add(dir.Mul(sinD))
	return CoordFromPointWithRA(s2.Point{Vector: v.Normalize()}, c.ra)
}

func (c Coord) String() string {
	return fmt.Sprintf("(%.8f, %.8f)", c.ra.Degrees(), c.dec.Degrees())
}
