package geom

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
)

const twoPi = 2 * math.Pi

func EqualWithEpsilon(a float64, b float64, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// NormalizeRA wraps an angle into [0, 2π).
func NormalizeRA(a s1.Angle) s1.Angle {
	r := math.Mod(a.Radians(), twoPi)
	if r < 0 {
		r += twoPi
	}
	if r >= twoPi {
		r = 0
	}
	return s1.Angle(r)
}

// RAIndex returns the index of the slice containing ra when the circle is cut
// into count equal slices starting at start. Every ra maps to exactly one
// index.
func RAIndex(ra s1.Angle, start s1.Angle, count int) int {
	if count <= 1 {
		return 0
	}
	d := NormalizeRA(ra - start).Radians()
	i := int(math.Floor(d / (twoPi / float64(count))))
	if i < 0 {
		return 0
	}
	if i >= count {
		return count - 1
	}
	return i
}

// TangentBasis returns the unit vectors pointing east and north at c, rotated
// counterclockwise by orientation. At the poles east is derived from the RA of
// c.
func TangentBasis(c Coord, orientation s1.Angle) (east r3.Vector, north r3.Vector) {
	sinRA, cosRA := math.Sincos(c.ra.Radians())
	sinDec, cosDec := math.Sincos(c.dec.Radians())

	east = r3.Vector{X: -sinRA, Y: cosRA, Z: 0}
	north = r3.Vector{X: -sinDec * cosRA, Y: -sinDec * sinRA, Z: cosDec}

	if orientation == 0 {
		return east, north
	}

	sinO, cosO := math.Sincos(orientation.Radians())
	rotatedEast := east.Mul(cosO).Add(north.Mul(sinO))
	rotatedNorth := north.Mul(cosO).Sub(east.Mul(sinO))
	return rotatedEast, rotatedNorth
}
