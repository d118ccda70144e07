package models

import (
	"testing"

	"github.com/aukilabs/skymap/geom"
	"github.com/aukilabs/skymap/layouts"
	"github.com/aukilabs/skymap/layouts/discrete"
	"github.com/aukilabs/skymap/projection"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
	"github.com/stretchr/testify/require"
)

const arcsec = s1.Degree / 3600

func testConfig() Config {
	return Config{
		PixelScale:       10 * arcsec,
		PatchInnerWidth:  1000,
		PatchInnerHeight: 1000,
		PatchBorder:      50,
		Projection:       projection.Gnomonic,
	}
}

func squareSpec(t *testing.T, ra, dec, halfWidth float64) layouts.TractSpec {
	tracts, err := discrete.New(discrete.Config{Tracts: []discrete.Field{
		{RA: ra, Dec: dec, HalfWidth: halfWidth},
	}}).Tracts()
	require.NoError(t, err)
	return tracts[0]
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		update func(*Config)
	}{
		{name: "pixel scale", update: func(c *Config) { c.PixelScale = 0 }},
		{name: "patch width", update: func(c *Config) { c.PatchInnerWidth = 0 }},
		{name: "patch height", update: func(c *Config) { c.PatchInnerHeight = -3 }},
		{name: "border", update: func(c *Config) { c.PatchBorder = -1 }},
		{name: "tract overlap", update: func(c *Config) { c.TractOverlap = -arcsec }},
		{name: "index resolution", update: func(c *Config) { c.IndexResolution = -s1.Degree }},
		{name: "projection", update: func(c *Config) { c.Projection = "MOL" }},
	}

	require.NoError(t, testConfig().Validate())

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := testConfig()
			test.update(&c)
			require.True(t, geom.IsConfigError(c.Validate()))
		})
	}
}

func TestNewTractInfo(t *testing.T) {
	spec := squareSpec(t, 30, 20, 1)
	tract, err := NewTractInfo(7, spec, testConfig())
	require.NoError(t, err)

	t.Run("accessors", func(t *testing.T) {
		require.Equal(t, 7, tract.ID())
		require.Equal(t, spec.Center, tract.Center())
		require.Len(t, tract.VertexList(), 4)
		require.Equal(t, 50, tract.PatchBorder())
		require.Equal(t, "TractInfo(id=7)", tract.String())

		w, h := tract.PatchInnerDimensions()
		require.Equal(t, 1000, w)
		require.Equal(t, 1000, h)
	})

	t.Run("bounding box starts at origin", func(t *testing.T) {
		b := tract.BBox()
		require.Equal(t, 0, b.MinX)
		require.Equal(t, 0, b.MinY)

		// 2 tan(1°) / 10" is about 720 pixels.
		require.InDelta(t, 721, b.Width(), 2)
		require.InDelta(t, 721, b.Height(), 2)

		nx, ny := tract.NumPatches()
		require.Equal(t, 1, nx)
		require.Equal(t, 1, ny)
	})

	t.Run("vertices are inside the bounding box", func(t *testing.T) {
		for _, v := range tract.VertexList() {
			p, err := tract.Projection().ToPixel(v)
			require.NoError(t, err)
			require.True(t, tract.BBox().ContainsPoint(p))
		}
	})

	t.Run("find patch", func(t *testing.T) {
		p, err := tract.FindPatch(spec.Center)
		require.NoError(t, err)
		require.Equal(t, PatchIndex{X: 0, Y: 0}, p.Index)

		_, err = tract.FindPatch(geom.NewCoordDegrees(40, 20))
		require.True(t, geom.IsNotFound(err))

		_, err = tract.FindPatch(geom.NewCoordDegrees(210, -20))
		require.True(t, geom.IsNotFound(err))
	})

	t.Run("find patch list", func(t *testing.T) {
		require.Len(t, tract.FindPatchList(spec.Center), 1)
		require.Empty(t, tract.FindPatchList(geom.NewCoordDegrees(40, 20)))
		require.Empty(t, tract.FindPatchList(geom.NewCoordDegrees(210, -20)))
	})

	t.Run("contains", func(t *testing.T) {
		require.True(t, tract.Contains(spec.Center))
		require.True(t, tract.ContainsOuter(spec.Center))
		require.False(t, tract.Contains(geom.NewCoordDegrees(32, 20)))
		require.False(t, tract.ContainsOuter(geom.NewCoordDegrees(40, 20)))
		require.True(t, tract.OuterCap().ContainsPoint(spec.Center.Point()))
	})

	t.Run("patch info", func(t *testing.T) {
		p, err := tract.PatchInfo(PatchIndex{X: 0, Y: 0})
		require.NoError(t, err)
		require.Equal(t, tract.BBox(), p.InnerBBox)
		require.Equal(t, tract.BBox(), p.OuterBBox)
		require.Len(t, tract.Patches(), 1)

		_, err = tract.PatchInfo(PatchIndex{X: 1, Y: 0})
		require.True(t, geom.IsNotFound(err))
	})
}

func TestTractPatches(t *testing.T) {
	c := testConfig()
	c.PatchInnerWidth = 200
	c.PatchInnerHeight = 150

	spec := squareSpec(t, 100, -40, 1)
	tract, err := NewTractInfo(0, spec, c)
	require.NoError(t, err)

	t.Run("grid", func(t *testing.T) {
		nx, ny := tract.NumPatches()
		b := tract.BBox()
		require.Equal(t, (b.Width()+199)/200, nx)
		require.Equal(t, (b.Height()+149)/150, ny)
	})

	t.Run("round trip", func(t *testing.T) {
		proj := tract.Projection()
		b := tract.BBox()
		for x := b.MinX; x <= b.MaxX; x += 60 {
			for y := b.MinY; y <= b.MaxY; y += 60 {
				px := r2.Point{X: float64(x), Y: float64(y)}
				got, err := proj.ToPixel(proj.ToSky(px))
				require.NoError(t, err)
				require.InDelta(t, px.X, got.X, 1e-6)
				require.InDelta(t, px.Y, got.Y, 1e-6)
			}
		}
	})

	t.Run("patch holds its coordinates", func(t *testing.T) {
		proj := tract.Projection()
		for _, p := range tract.Patches() {
			center := r2.Point{
				X: float64(p.InnerBBox.MinX+p.InnerBBox.MaxX) / 2,
				Y: float64(p.InnerBBox.MinY+p.InnerBBox.MaxY) / 2,
			}

			found, err := tract.FindPatch(proj.ToSky(center))
			require.NoError(t, err)
			require.Equal(t, p.Index, found.Index)

			list := tract.FindPatchList(proj.ToSky(center))
			require.Contains(t, list, p)
		}
	})

	t.Run("patch list for region", func(t *testing.T) {
		proj := tract.Projection()
		coords := []geom.Coord{
			proj.ToSky(r2.Point{X: 10, Y: 10}),
			proj.ToSky(r2.Point{X: 390, Y: 10}),
		}

		patches, err := tract.FindPatchListForRegion(coords)
		require.NoError(t, err)
		require.Len(t, patches, 3)

		patches, err = tract.FindPatchListForRegion(nil)
		require.NoError(t, err)
		require.Empty(t, patches)

		_, err = tract.FindPatchListForRegion([]geom.Coord{geom.NewCoordDegrees(280, 40)})
		require.True(t, geom.IsDomainError(err))
	})
}

func TestTractOptions(t *testing.T) {
	spec := squareSpec(t, 200, 60, 1)

	base, err := NewTractInfo(0, spec, testConfig())
	require.NoError(t, err)

	t.Run("tract overlap", func(t *testing.T) {
		c := testConfig()
		c.TractOverlap = 0.5 * s1.Degree

		tract, err := NewTractInfo(0, spec, c)
		require.NoError(t, err)
		require.Greater(t, tract.BBox().Width(), base.BBox().Width()+80)
		require.Greater(t, tract.BBox().Height(), base.BBox().Height()+80)
		require.Equal(t, c.TractOverlap, tract.TractOverlap())
	})

	t.Run("pad to patch multiple", func(t *testing.T) {
		c := testConfig()
		c.PatchInnerWidth = 300
		c.PatchInnerHeight = 500
		c.PadToPatchMultiple = true

		tract, err := NewTractInfo(0, spec, c)
		require.NoError(t, err)
		require.Zero(t, tract.BBox().Width()%300)
		require.Zero(t, tract.BBox().Height()%500)

		for _, p := range tract.Patches() {
			require.Equal(t, 300, p.InnerBBox.Width())
			require.Equal(t, 500, p.InnerBBox.Height())
		}

		_, err = tract.FindPatch(spec.Center)
		require.NoError(t, err)
	})

	t.Run("stereographic", func(t *testing.T) {
		c := testConfig()
		c.Projection = projection.Stereographic

		tract, err := NewTractInfo(0, spec, c)
		require.NoError(t, err)
		require.Equal(t, projection.Stereographic, tract.Projection().Kind())
		for _, v := range tract.VertexList() {
			_, err := tract.FindPatch(v)
			require.NoError(t, err)
		}
	})

	t.Run("orientation", func(t *testing.T) {
		rotated := spec
		rotated.Orientation = 45 * s1.Degree

		tract, err := NewTractInfo(0, rotated, testConfig())
		require.NoError(t, err)

		// A square rotated by 45° has a bounding box √2 times larger.
		require.InDelta(t, float64(base.BBox().Width())*1.414, float64(tract.BBox().Width()), 4)
		require.Equal(t, 45*s1.Degree, tract.Orientation())
	})

	t.Run("unprojectable region", func(t *testing.T) {
		wide := layouts.TractSpec{
			Center: geom.NewCoordDegrees(0, 0),
			Region: geom.BandRegion{Count: 1, DecLo: -s1.Degree, DecHi: s1.Degree},
		}
		_, err := NewTractInfo(0, wide, testConfig())
		require.Error(t, err)
		require.True(t, geom.IsDomainError(err))
	})
}
