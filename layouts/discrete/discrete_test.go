package discrete

import (
	"testing"

	"github.com/aukilabs/skymap/geom"
	"github.com/stretchr/testify/require"
)

func TestLayout(t *testing.T) {
	l := New(Config{Tracts: []Field{
		{RA: 0, Dec: 0, HalfWidth: 2},
		{RA: 10, Dec: 0, HalfWidth: 2},
	}})
	require.Equal(t, Name, l.Name())
	require.False(t, l.TotalCoverage())

	tracts, err := l.Tracts()
	require.NoError(t, err)
	require.Len(t, tracts, 2)

	t.Run("centers", func(t *testing.T) {
		require.True(t, tracts[0].Region.Contains(geom.NewCoordDegrees(0, 0)))
		require.True(t, tracts[1].Region.Contains(geom.NewCoordDegrees(10, 0)))
		require.InDelta(t, 10, tracts[1].Center.RA().Degrees(), 1e-9)
	})

	t.Run("square inner region", func(t *testing.T) {
		r := tracts[0].Region
		require.Len(t, r.Vertices(), 4)
		require.True(t, r.Contains(geom.NewCoordDegrees(1.9, 0)))
		require.True(t, r.Contains(geom.NewCoordDegrees(358.1, 1.9)))
		require.False(t, r.Contains(geom.NewCoordDegrees(2.1, 0)))
		require.False(t, r.Contains(geom.NewCoordDegrees(0, -2.1)))
	})

	t.Run("between tracts", func(t *testing.T) {
		c := geom.NewCoordDegrees(5, 0)
		for _, tract := range tracts {
			require.False(t, tract.Region.Contains(c))
		}
	})
}

func TestOverlap(t *testing.T) {
	_, err := New(Config{Tracts: []Field{
		{RA: 0, Dec: 0, HalfWidth: 2},
		{RA: 50, Dec: 50, HalfWidth: 2},
		{RA: 3, Dec: 0, HalfWidth: 2},
	}}).Tracts()
	require.Error(t, err)
	require.True(t, geom.IsConfigError(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{name: "no tracts", config: Config{}},
		{name: "zero half width", config: Config{Tracts: []Field{{RA: 1, Dec: 1}}}},
		{name: "huge half width", config: Config{Tracts: []Field{{RA: 1, Dec: 1, HalfWidth: 80}}}},
		{name: "bad declination", config: Config{Tracts: []Field{{RA: 1, Dec: 91, HalfWidth: 1}}}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.True(t, geom.IsConfigError(test.config.Validate()))
		})
	}
}
