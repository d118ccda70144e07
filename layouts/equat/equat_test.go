package equat

import (
	"math/rand/v2"
	"testing"

	"github.com/aukilabs/skymap/geom"
	"github.com/aukilabs/skymap/layouts"
	"github.com/golang/geo/s1"
	"github.com/stretchr/testify/require"
)

func owners(tracts []layouts.TractSpec, c geom.Coord) []int {
	var ids []int
	for i, tract := range tracts {
		if tract.Region.Contains(c) {
			ids = append(ids, i)
		}
	}
	return ids
}

func TestLayout(t *testing.T) {
	l := New(Config{DecMin: -5, DecMax: 5, TractWidth: 4})
	require.Equal(t, Name, l.Name())
	require.False(t, l.TotalCoverage())

	tracts, err := l.Tracts()
	require.NoError(t, err)
	require.Len(t, tracts, 90)

	t.Run("row covers every ra", func(t *testing.T) {
		for ra := 0.0; ra < 360; ra += 0.1 {
			for _, dec := range []float64{-5, -2.5, 0, 4.99, 5} {
				require.Len(t, owners(tracts, geom.NewCoordDegrees(ra, dec)), 1, "ra %v dec %v", ra, dec)
			}
		}
	})

	t.Run("seam resolves to one tract", func(t *testing.T) {
		require.Equal(t, []int{0}, owners(tracts, geom.NewCoordDegrees(0, 0)))
		require.Equal(t, []int{0}, owners(tracts, geom.NewCoordDegrees(360, 0)))
		require.Equal(t, []int{89}, owners(tracts, geom.NewCoordDegrees(359.999, 0)))
	})

	t.Run("outside the band", func(t *testing.T) {
		require.Empty(t, owners(tracts, geom.NewCoordDegrees(10, 5.01)))
		require.Empty(t, owners(tracts, geom.NewCoordDegrees(10, -5.01)))
	})

	t.Run("centers", func(t *testing.T) {
		require.InDelta(t, 2, tracts[0].Center.RA().Degrees(), 1e-9)
		require.InDelta(t, 0, tracts[0].Center.Dec().Degrees(), 1e-9)
		for _, tract := range tracts {
			require.True(t, tract.Region.Contains(tract.Center))
		}
	})
}

func TestRows(t *testing.T) {
	l := New(Config{DecMin: -30, DecMax: 30, TractWidth: 4, TractHeight: 10, RAStart: 15})
	tracts, err := l.Tracts()
	require.NoError(t, err)
	require.Len(t, tracts, 2*85+2*89+2*90)

	r := rand.New(rand.NewPCG(3, 4))
	for i := 0; i < 5000; i++ {
		c := geom.NewCoord(s1.Angle(r.Float64()*360)*s1.Degree, s1.Angle(r.Float64()*60-30)*s1.Degree)
		require.Len(t, owners(tracts, c), 1, "coord %s", c)
	}
}

func TestNumTracts(t *testing.T) {
	l := New(Config{DecMin: -1.25, DecMax: 1.25, NumTracts: 3})
	tracts, err := l.Tracts()
	require.NoError(t, err)
	require.Len(t, tracts, 3)
	require.InDelta(t, 60, tracts[0].Center.RA().Degrees(), 1e-9)
}

func TestTotalCoverage(t *testing.T) {
	require.True(t, New(Config{DecMin: -90, DecMax: 90, TractWidth: 10}).TotalCoverage())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{name: "empty range", config: Config{DecMin: 5, DecMax: 5, TractWidth: 4}},
		{name: "range out of sphere", config: Config{DecMin: -95, DecMax: 5, TractWidth: 4}},
		{name: "no width", config: Config{DecMin: -5, DecMax: 5}},
		{name: "negative count", config: Config{DecMin: -5, DecMax: 5, NumTracts: -1}},
		{name: "negative height", config: Config{DecMin: -5, DecMax: 5, TractWidth: 4, TractHeight: -1}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.config.Validate()
			require.Error(t, err)
			require.True(t, geom.IsConfigError(err))

			_, err = New(test.config).Tracts()
			require.True(t, geom.IsConfigError(err))
		})
	}
}
