package geom

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	"github.com/stretchr/testify/require"
)

const testDelta = 1e-9

func TestEqualWithEpsilon(t *testing.T) {
	require.True(t, EqualWithEpsilon(0.1, 0.2, 0.11))
	require.False(t, EqualWithEpsilon(0.1, 0.3, 0.11))
}

func TestNormalizeRA(t *testing.T) {
	require.InDelta(t, 350, NormalizeRA(-10*s1.Degree).Degrees(), testDelta)
	require.InDelta(t, 10, NormalizeRA(370*s1.Degree).Degrees(), testDelta)
	require.Equal(t, s1.Angle(0), NormalizeRA(0))
}

func TestRAIndex(t *testing.T) {
	t.Run("every ra has one index", func(t *testing.T) {
		for ra := -720.0; ra < 720; ra += 0.37 {
			i := RAIndex(s1.Angle(ra)*s1.Degree, 10*s1.Degree, 7)
			require.GreaterOrEqual(t, i, 0)
			require.Less(t, i, 7)
		}
	})

	t.Run("single slice", func(t *testing.T) {
		require.Equal(t, 0, RAIndex(3, 0, 1))
	})

	t.Run("slices follow start", func(t *testing.T) {
		require.Equal(t, 0, RAIndex(0, -45*s1.Degree, 4))
		require.Equal(t, 1, RAIndex(90*s1.Degree, -45*s1.Degree, 4))
		require.Equal(t, 3, RAIndex(-80*s1.Degree, -45*s1.Degree, 4))
	})
}

func TestTangentBasis(t *testing.T) {
	c := NewCoordDegrees(0, 0)

	east, north := TangentBasis(c, 0)
	require.True(t, east.ApproxEqual(r3.Vector{X: 0, Y: 1, Z: 0}))
	require.True(t, north.ApproxEqual(r3.Vector{X: 0, Y: 0, Z: 1}))

	east, north = TangentBasis(c, 90*s1.Degree)
	require.True(t, east.ApproxEqual(r3.Vector{X: 0, Y: 0, Z: 1}))
	require.True(t, north.ApproxEqual(r3.Vector{X: 0, Y: -1, Z: 0}))
}

func TestCoord(t *testing.T) {
	t.Run("normalizes", func(t *testing.T) {
		c := NewCoordDegrees(-10, 95)
		require.InDelta(t, 350, c.RA().Degrees(), testDelta)
		require.InDelta(t, 90, c.Dec().Degrees(), testDelta)
	})

	t.Run("point round trip", func(t *testing.T) {
		for _, c := range []Coord{
			NewCoordDegrees(12, 34),
			NewCoordDegrees(359.5, -89),
			NewCoordDegrees(180, 0),
		} {
			got := CoordFromPoint(c.Point())
			require.InDelta(t, c.RA().Radians(), got.RA().Radians(), testDelta)
			require.InDelta(t, c.Dec().Radians(), got.Dec().Radians(), testDelta)
		}
	})

	t.Run("pole uses default ra", func(t *testing.T) {
		north := CoordFromPointWithRA(s2.Point{Vector: r3.Vector{X: 0, Y: 0, Z: 1}}, 1)
		require.Equal(t, s1.Angle(1), north.RA())
		require.InDelta(t, math.Pi/2, north.Dec().Radians(), testDelta)

		south := CoordFromPoint(s2.Point{Vector: r3.Vector{X: 0, Y: 0, Z: -1}})
		require.Equal(t, s1.Angle(0), south.RA())
		require.InDelta(t, -math.Pi/2, south.Dec().Radians(), testDelta)
	})

	t.Run("separation", func(t *testing.T) {
		a := NewCoordDegrees(0, 0)
		b := NewCoordDegrees(90, 0)
		require.InDelta(t, 90, a.Separation(b).Degrees(), testDelta)
		require.InDelta(t, 90, a.Separation(NewCoordDegrees(0, 90)).Degrees(), testDelta)
	})

	t.Run("offset", func(t *testing.T) {
		c := NewCoordDegrees(0, 0)

		east := c.Offset(0, 10*s1.Degree)
		require.InDelta(t, 10, east.RA().Degrees(), testDelta)
		require.InDelta(t, 0, east.Dec().Degrees(), testDelta)

		north := c.Offset(90*s1.Degree, 10*s1.Degree)
		require.InDelta(t, 0, north.RA().Degrees(), testDelta)
		require.InDelta(t, 10, north.Dec().Degrees(), testDelta)

		c = NewCoordDegrees(40, 60)
		require.InDelta(t, 3, c.Separation(c.Offset(1, 3*s1.Degree)).Degrees(), testDelta)
	})

	t.Run("string", func(t *testing.T) {
		require.Equal(t, "(10.00000000, -5.00000000)", NewCoordDegrees(10, -5).String())
	})
}
