package models

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/skymap/geom"
	"github.com/aukilabs/skymap/layouts"
	"github.com/aukilabs/skymap/layouts/cells"
	"github.com/aukilabs/skymap/layouts/discrete"
	"github.com/aukilabs/skymap/layouts/dodeca"
	"github.com/aukilabs/skymap/layouts/equat"
	"github.com/aukilabs/skymap/layouts/rings"
	"github.com/aukilabs/skymap/projection"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
	"github.com/stretchr/testify/require"
)

type fakeLayout struct {
	tracts []layouts.TractSpec
	total  bool
	err    error
}

func (l fakeLayout) Name() string {
	return "fake"
}

func (l fakeLayout) Tracts() ([]layouts.TractSpec, error) {
	return l.tracts, l.err
}

func (l fakeLayout) TotalCoverage() bool {
	return l.total
}

func randomCoords(seed uint64, n int) []geom.Coord {
	r := rand.New(rand.NewPCG(seed, seed*31+7))
	coords := make([]geom.Coord, n)
	for i := range coords {
		coords[i] = geom.NewCoord(
			s1.Angle(r.Float64()*2*math.Pi),
			s1.Angle(math.Asin(2*r.Float64()-1)),
		)
	}
	return coords
}

func requireTotalCoverage(t *testing.T, m *SkyMap, coords []geom.Coord) {
	for _, c := range coords {
		tract, patch, err := m.FindTractAndPatch(c)
		require.NoError(t, err, "coord %s", c)

		owners := 0
		for _, other := range m.All() {
			if other.Contains(c) {
				owners++
			}
		}
		require.Equal(t, 1, owners, "coord %s", c)

		p, err := tract.Projection().ToPixel(c)
		require.NoError(t, err)
		require.True(t, patch.InnerBBox.ContainsPoint(p))
		require.Contains(t, m.FindAllTracts(c), tract)

		found := false
		for _, tp := range m.FindTractPatchList(c) {
			if tp.Tract == tract {
				require.Contains(t, tp.Patches, patch)
				found = true
			}
		}
		require.True(t, found, "coord %s", c)
	}
}

func requirePatchTiling(t *testing.T, m *SkyMap) {
	for _, tract := range m.All() {
		bbox := tract.BBox()
		border := tract.PatchBorder()

		area := 0
		for _, p := range tract.Patches() {
			in, out := p.InnerBBox, p.OuterBBox
			area += in.Width() * in.Height()

			require.Equal(t, max(in.MinX-border, bbox.MinX), out.MinX)
			require.Equal(t, max(in.MinY-border, bbox.MinY), out.MinY)
			require.Equal(t, min(in.MaxX+border, bbox.MaxX), out.MaxX)
			require.Equal(t, min(in.MaxY+border, bbox.MaxY), out.MaxY)
		}
		require.Equal(t, bbox.Width()*bbox.Height(), area, "tract %d", tract.ID())
	}
}

func requireRoundTrip(t *testing.T, m *SkyMap) {
	for _, tract := range m.All() {
		proj := tract.Projection()
		b := tract.BBox()
		for i := 0; i <= 4; i++ {
			for j := 0; j <= 4; j++ {
				px := r2.Point{
					X: float64(b.MinX) + float64(b.Width()*i)/4,
					Y: float64(b.MinY) + float64(b.Height()*j)/4,
				}
				got, err := proj.ToPixel(proj.ToSky(px))
				require.NoError(t, err)
				require.InDelta(t, px.X, got.X, 1e-6)
				require.InDelta(t, px.Y, got.Y, 1e-6)
			}
		}
	}
}

func TestSkyMapLayouts(t *testing.T) {
	tests := []struct {
		name   string
		layout layouts.Layout
		tracts int
	}{
		{name: "dodeca", layout: dodeca.New(dodeca.Config{}), tracts: 12},
		{name: "dodeca with tracts on poles", layout: dodeca.New(dodeca.Config{WithTractsOnPoles: true}), tracts: 12},
		{name: "rings", layout: rings.New(rings.Config{NumRings: 5}), tracts: rings.New(rings.Config{NumRings: 5}).NumTracts()},
		{name: "cells", layout: cells.New(cells.Config{Level: 1}, cells.S2Enumerator{}), tracts: 24},
		{name: "full sky band", layout: equat.New(equat.Config{DecMin: -90, DecMax: 90, TractWidth: 31, TractHeight: 30}), tracts: 58},
	}

	for i, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m, err := New(test.layout, testConfig())
			require.NoError(t, err)
			require.Equal(t, test.tracts, m.Len())
			require.True(t, m.TotalCoverage())
			require.Equal(t, test.layout.Name(), m.Layout())

			coords := randomCoords(uint64(i+1), 1500)
			requireTotalCoverage(t, m, coords)
			requirePatchTiling(t, m)
			requireRoundTrip(t, m)

			c := testConfig()
			c.LinearScan = true
			linear, err := New(test.layout, c)
			require.NoError(t, err)
			require.Empty(t, linear.IndexDebugInfo().RowOccupancy)

			for _, c := range coords[:300] {
				a, err := m.FindTract(c)
				require.NoError(t, err)
				b, err := linear.FindTract(c)
				require.NoError(t, err)
				require.Equal(t, a.ID(), b.ID())
				require.Equal(t, len(m.FindAllTracts(c)), len(linear.FindAllTracts(c)))
			}
		})
	}
}

func TestSkyMapRingsTractID(t *testing.T) {
	for _, numRings := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("%d rings", numRings), func(t *testing.T) {
			l := rings.New(rings.Config{NumRings: numRings})
			m, err := New(l, testConfig())
			require.NoError(t, err)

			coords := append(randomCoords(uint64(numRings), 2000),
				geom.NewCoordDegrees(0, 90),
				geom.NewCoordDegrees(0, -90),
			)
			for _, c := range coords {
				tract, err := m.FindTract(c)
				require.NoError(t, err)
				require.Equal(t, tract.ID(), l.TractID(c), "coord %s", c)
			}
		})
	}
}

func TestSkyMapDeterministic(t *testing.T) {
	c := testConfig()
	c.Projection = projection.Stereographic
	c.TractOverlap = s1.Degree

	a, err := New(dodeca.New(dodeca.Config{}), c)
	require.NoError(t, err)
	b, err := New(dodeca.New(dodeca.Config{}), c)
	require.NoError(t, err)

	require.Equal(t, a.Len(), b.Len())
	for id, tract := range a.All() {
		other, err := b.Tract(id)
		require.NoError(t, err)
		require.Equal(t, tract.BBox(), other.BBox())
		require.Equal(t, tract.Patches(), other.Patches())
		require.Equal(t, tract.VertexList(), other.VertexList())
	}

	for _, coord := range randomCoords(42, 500) {
		ta, pa, err := a.FindTractAndPatch(coord)
		require.NoError(t, err)
		tb, pb, err := b.FindTractAndPatch(coord)
		require.NoError(t, err)
		require.Equal(t, ta.ID(), tb.ID())
		require.Equal(t, pa, pb)
	}
}

func TestSkyMapBanded(t *testing.T) {
	m, err := New(equat.New(equat.Config{DecMin: -5, DecMax: 5, TractWidth: 4}), testConfig())
	require.NoError(t, err)
	require.Equal(t, 90, m.Len())
	require.False(t, m.TotalCoverage())

	t.Run("seam", func(t *testing.T) {
		a, err := m.FindTract(geom.NewCoordDegrees(0, 0))
		require.NoError(t, err)
		b, err := m.FindTract(geom.NewCoordDegrees(360, 0))
		require.NoError(t, err)
		require.Equal(t, 0, a.ID())
		require.Equal(t, a, b)

		c, err := m.FindTract(geom.NewCoordDegrees(359.9999, 0))
		require.NoError(t, err)
		require.Equal(t, 89, c.ID())

		require.Len(t, m.FindAllTracts(geom.NewCoordDegrees(0, 0)), 2)
	})

	t.Run("row is complete", func(t *testing.T) {
		for ra := 0.0; ra < 360; ra += 0.05 {
			c := geom.NewCoordDegrees(ra, 4.5)
			_, _, err := m.FindTractAndPatch(c)
			require.NoError(t, err, "ra %v", ra)
		}
	})

	t.Run("outside the band", func(t *testing.T) {
		_, err := m.FindTract(geom.NewCoordDegrees(10, 20))
		require.Error(t, err)
		require.True(t, geom.IsNotFound(err))
		require.False(t, geom.IsCoverageError(err))
	})
}

func TestSkyMapDiscrete(t *testing.T) {
	m, err := New(discrete.New(discrete.Config{Tracts: []discrete.Field{
		{RA: 0, Dec: 0, HalfWidth: 2},
		{RA: 10, Dec: 0, HalfWidth: 2},
	}}), testConfig())
	require.NoError(t, err)

	tract, err := m.FindTract(geom.NewCoordDegrees(10.5, 0.5))
	require.NoError(t, err)
	require.Equal(t, 1, tract.ID())

	_, err = m.FindTract(geom.NewCoordDegrees(5, 0))
	require.True(t, geom.IsNotFound(err))
	require.False(t, geom.IsCoverageError(err))

	_, _, err = m.FindTractAndPatch(geom.NewCoordDegrees(5, 0))
	require.True(t, geom.IsNotFound(err))

	require.Empty(t, m.FindAllTracts(geom.NewCoordDegrees(5, 0)))
	require.Empty(t, m.FindTractPatchList(geom.NewCoordDegrees(5, 0)))
}

func TestSkyMapCoverageError(t *testing.T) {
	spec := squareSpec(t, 0, 0, 2)
	m, err := New(fakeLayout{tracts: []layouts.TractSpec{spec}, total: true}, testConfig())
	require.NoError(t, err)

	var b strings.Builder
	logs.SetInlineEncoder()
	logs.SetLogger(func(e logs.Entry) {
		fmt.Fprint(&b, e)
	})

	_, err = m.FindTract(geom.NewCoordDegrees(90, 45))
	require.Error(t, err)
	require.True(t, geom.IsCoverageError(err))
	require.False(t, geom.IsNotFound(err))
	require.NotEmpty(t, b.String())
}

func TestSkyMapBuildErrors(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		c := testConfig()
		c.PatchInnerWidth = 0
		_, err := New(dodeca.New(dodeca.Config{}), c)
		require.True(t, geom.IsConfigError(err))
	})

	t.Run("layout error", func(t *testing.T) {
		_, err := New(rings.New(rings.Config{}), testConfig())
		require.Error(t, err)
		require.True(t, geom.IsConfigError(err))
	})

	t.Run("layout failure", func(t *testing.T) {
		_, err := New(fakeLayout{err: errors.New("boom")}, testConfig())
		require.Error(t, err)
	})

	t.Run("no tracts", func(t *testing.T) {
		_, err := New(fakeLayout{}, testConfig())
		require.True(t, geom.IsConfigError(err))
	})

	t.Run("unprojectable tract", func(t *testing.T) {
		_, err := New(equat.New(equat.Config{DecMin: -5, DecMax: 5, NumTracts: 1}), testConfig())
		require.Error(t, err)
		require.True(t, geom.IsDomainError(err))
	})
}

func TestSkyMapAccessors(t *testing.T) {
	m, err := New(dodeca.New(dodeca.Config{}), testConfig())
	require.NoError(t, err)

	_, err = m.Tract(12)
	require.True(t, geom.IsNotFound(err))
	_, err = m.Tract(-1)
	require.True(t, geom.IsNotFound(err))

	ids := []int{}
	for id, tract := range m.All() {
		require.Equal(t, id, tract.ID())
		ids = append(ids, id)
		if id == 4 {
			break
		}
	}
	require.Equal(t, []int{0, 1, 2, 3, 4}, ids)

	info := m.IndexDebugInfo()
	require.Equal(t, 180, info.RowCount)
	require.Equal(t, 360, info.ColCount)
	require.Zero(t, info.EmptyCellCount)
	require.GreaterOrEqual(t, info.MaxInner, 1)
	require.Equal(t, testConfig(), m.Config())
}

func TestFindTractPatchListForRegion(t *testing.T) {
	m, err := New(equat.New(equat.Config{DecMin: -5, DecMax: 5, TractWidth: 4}), testConfig())
	require.NoError(t, err)

	res, err := m.FindTractPatchListForRegion([]geom.Coord{
		geom.NewCoordDegrees(1, 0),
		geom.NewCoordDegrees(3, 0),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res)
	require.Equal(t, 0, res[0].Tract.ID())
	for _, tp := range res {
		require.NotEmpty(t, tp.Patches)
	}
}
