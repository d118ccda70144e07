package rings

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/aukilabs/skymap/geom"
	"github.com/golang/geo/s1"
	"github.com/stretchr/testify/require"
)

func TestLayout(t *testing.T) {
	l := New(Config{NumRings: 3})
	require.Equal(t, Name, l.Name())
	require.True(t, l.TotalCoverage())
	require.InDelta(t, 45, l.RingSize().Degrees(), 1e-9)
	require.Equal(t, 26, l.NumTracts())

	tracts, err := l.Tracts()
	require.NoError(t, err)
	require.Len(t, tracts, 26)

	t.Run("caps", func(t *testing.T) {
		require.InDelta(t, -90, tracts[0].Center.Dec().Degrees(), 1e-9)
		require.InDelta(t, 90, tracts[25].Center.Dec().Degrees(), 1e-9)
		require.True(t, tracts[0].Region.Contains(geom.NewCoordDegrees(12, -90)))
		require.True(t, tracts[25].Region.Contains(geom.NewCoordDegrees(12, 90)))
	})

	t.Run("ring indices", func(t *testing.T) {
		tests := []struct {
			id    int
			ring  int
			index int
		}{
			{id: 0, ring: -1, index: 0},
			{id: 1, ring: 0, index: 0},
			{id: 8, ring: 0, index: 7},
			{id: 9, ring: 1, index: 0},
			{id: 24, ring: 2, index: 7},
			{id: 25, ring: 3, index: 0},
		}

		for _, test := range tests {
			ring, index := l.ringIndices(test.id)
			require.Equal(t, test.ring, ring, "id %d", test.id)
			require.Equal(t, test.index, index, "id %d", test.id)
		}
	})

	t.Run("centers", func(t *testing.T) {
		require.InDelta(t, -45, tracts[1].Center.Dec().Degrees(), 1e-9)
		require.InDelta(t, 0, tracts[9].Center.Dec().Degrees(), 1e-9)
		require.InDelta(t, 45, tracts[10].Center.RA().Degrees(), 1e-9)
		for i, tract := range tracts {
			require.True(t, tract.Region.Contains(tract.Center), "tract %d", i)
			require.Equal(t, i, l.TractID(tract.Center), "tract %d", i)
		}
	})

	t.Run("tracts tile the sphere", func(t *testing.T) {
		r := rand.New(rand.NewPCG(5, 6))
		for i := 0; i < 5000; i++ {
			c := geom.NewCoord(
				s1.Angle(r.Float64()*2*math.Pi),
				s1.Angle(math.Asin(2*r.Float64()-1)),
			)

			var ids []int
			for id, tract := range tracts {
				if tract.Region.Contains(c) {
					ids = append(ids, id)
				}
			}
			require.Len(t, ids, 1, "coord %s", c)
			require.Equal(t, ids[0], l.TractID(c), "coord %s", c)
		}
	})

	t.Run("ring boundaries", func(t *testing.T) {
		for ring := 0; ring <= 3; ring++ {
			c := geom.NewCoord(1, l.ringBound(ring))
			var ids []int
			for id, tract := range tracts {
				if tract.Region.Contains(c) {
					ids = append(ids, id)
				}
			}
			require.Len(t, ids, 1)
			require.Equal(t, ids[0], l.TractID(c))
		}
	})
}

func TestRAStart(t *testing.T) {
	tracts, err := New(Config{NumRings: 3, RAStart: 10}).Tracts()
	require.NoError(t, err)
	require.InDelta(t, 10, tracts[1].Center.RA().Degrees(), 1e-9)
}

func TestValidate(t *testing.T) {
	_, err := New(Config{}).Tracts()
	require.True(t, geom.IsConfigError(err))

	_, err = New(Config{NumRings: 2, RAStart: 360}).Tracts()
	require.True(t, geom.IsConfigError(err))
}
