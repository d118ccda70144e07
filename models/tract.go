package models

import (
	"fmt"
	"math"
	"runtime"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/skymap/geom"
	"github.com/aukilabs/skymap/layouts"
	"github.com/aukilabs/skymap/projection"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

const (
	// The number of directions in which each vertex is offset to widen a
	// tract by the tract overlap.
	overlapDirections = 24

	// The angle added to the outer cap of a tract to absorb rounding.
	capEpsilon = 1e-9

	defaultIndexResolution = s1.Degree
)

// Config holds the parameters shared by every tract of a sky map.
type Config struct {
	// The angle covered by a pixel at the center of a tract.
	PixelScale s1.Angle

	// The dimensions of a full patch inner box, in pixels.
	PatchInnerWidth  int
	PatchInnerHeight int

	// The number of pixels by which patch outer boxes extend their inner
	// box.
	PatchBorder int

	// The minimum angle by which a tract extends past its inner region.
	TractOverlap s1.Angle

	// The projection of every tract.
	Projection projection.Kind

	// Grows tracts to a multiple of the patch inner dimensions, keeping them
	// centered. Otherwise the last patch row and column are narrower.
	PadToPatchMultiple bool

	// The cell size of the index used to look tracts up.
	IndexResolution s1.Angle

	// Disables the index and scans every tract on lookup.
	LinearScan bool

	// The maximum number of tracts built concurrently. Zero uses the number
	// of CPUs.
	Parallelism int
}

// Validate returns a config error when tracts cannot be built with the
// config.
func (c Config) Validate() error {
	switch {
	case c.PixelScale <= 0:
		return errors.New("pixel scale must be positive").
			WithType(geom.ErrTypeConfig).
			WithTag("pixel_scale", c.PixelScale.Degrees())

	case c.PatchInnerWidth <= 0 || c.PatchInnerHeight <= 0:
		return errors.New("patch inner dimensions must be positive").
			WithType(geom.ErrTypeConfig).
			WithTag("inner_width", c.PatchInnerWidth).
			WithTag("inner_height", c.PatchInnerHeight)

	case c.PatchBorder < 0:
		return errors.New("patch border must not be negative").
			WithType(geom.ErrTypeConfig).
			WithTag("border", c.PatchBorder)

	case c.TractOverlap < 0:
		return errors.New("tract overlap must not be negative").
			WithType(geom.ErrTypeConfig).
			WithTag("tract_overlap", c.TractOverlap.Degrees())

	case c.IndexResolution < 0:
		return errors.New("index resolution must not be negative").
			WithType(geom.ErrTypeConfig).
			WithTag("index_resolution", c.IndexResolution.Degrees())
	}

	if _, err := projection.ParseKind(string(c.Projection)); err != nil {
		return err
	}
	return nil
}

func (c Config) indexResolution() s1.Angle {
	if c.IndexResolution <= 0 {
		return defaultIndexResolution
	}
	return c.IndexResolution
}

func (c Config) parallelism() int {
	if c.Parallelism <= 0 {
		return runtime.NumCPU()
	}
	return c.Parallelism
}

// TractInfo describes a tract: its inner region on the sky, its projection
// and its patches. A TractInfo is immutable.
type TractInfo struct {
	id           int
	center       geom.Coord
	region       geom.Region
	orientation  s1.Angle
	tractOverlap s1.Angle
	projection   projection.Projection
	patches      PatchGrid
	outerCap     s2.Cap
}

// NewTractInfo builds a tract from its layout description. The tract
// bounding box holds the projection of the whole inner region, widened by the
// tract overlap, and starts at pixel (0, 0).
func NewTractInfo(id int, spec layouts.TractSpec, c Config) (*TractInfo, error) {
	kind, err := projection.ParseKind(string(c.Projection))
	if err != nil {
		return nil, err
	}

	proj, err := projection.New(kind, spec.Center, c.PixelScale, spec.Orientation)
	if err != nil {
		return nil, err
	}

	bbox, err := tractBBox(proj, spec.Region, c.TractOverlap)
	if err != nil {
		return nil, errors.New("computing tract bounding box failed").
			WithType(geom.ErrTypeDomain).
			WithTag("tract", id).
			WithTag("center", spec.Center.String()).
			Wrap(err)
	}

	if c.PadToPatchMultiple {
		bbox = padToMultiple(bbox, c.PatchInnerWidth, c.PatchInnerHeight)
	}
	proj = proj.Shift(r2.Point{X: float64(-bbox.MinX), Y: float64(-bbox.MinY)})

	patches, err := NewPatchGrid(bbox.Width(), bbox.Height(), c.PatchInnerWidth, c.PatchInnerHeight, c.PatchBorder)
	if err != nil {
		return nil, errors.New("creating patch grid failed").
			WithType(errors.Type(err)).
			WithTag("tract", id).
			Wrap(err)
	}

	t := &TractInfo{
		id:           id,
		center:       spec.Center,
		region:       spec.Region,
		orientation:  spec.Orientation,
		tractOverlap: c.TractOverlap,
		projection:   proj,
		patches:      patches,
	}
	t.outerCap = t.computeOuterCap()
	return t, nil
}

// tractBBox returns the pixel box holding the projected inner region with a
// projection tangent at pixel (0, 0).
func tractBBox(proj projection.Projection, region geom.Region, overlap s1.Angle) (geom.Box, error) {
	outline := region.Outline()
	points := make([]r2.Point, 0, len(outline))
	for _, c := range outline {
		p, err := proj.ToPixel(c)
		if err != nil {
			return geom.Box{}, err
		}
		points = append(points, p)
	}
	rect := r2.RectFromPoints(points...)

	if overlap > 0 {
		for _, v := range region.Vertices() {
			for i := 0; i < overlapDirections; i++ {
				bearing := s1.Angle(2*math.Pi*float64(i)/overlapDirections) * s1.Radian
				p, err := proj.ToPixel(v.Offset(bearing, overlap/2))
				if err != nil {
					return geom.Box{}, err
				}
				rect = rect.AddPoint(p)
			}
		}
	}

	rect = rect.ExpandedByMargin(outlineMargin(points))
	return geom.BoxFromRect(rect), nil
}

// outlineMargin bounds how far the projected boundary can bulge past the
// sampled outline. Every odd sample sits midway between its neighbours, so
// its distance to their chord bounds the bulge at the sampling step.
func outlineMargin(points []r2.Point) float64 {
	margin := 0.0
	for i := 1; i < len(points); i += 2 {
		prev := points[i-1]
		next := points[(i+1)%len(points)]
		mid := prev.Add(next).Mul(0.5)
		margin = math.Max(margin, points[i].Sub(mid).Norm())
	}
	return margin
}

// padToMultiple grows b to a multiple of the patch dimensions, keeping it
// centered.
func padToMultiple(b geom.Box, innerWidth, innerHeight int) geom.Box {
	grow := func(lo, size, inner int) (int, int) {
		n := (size + inner - 1) / inner
		delta := n*inner - size
		return lo - delta/2, size + delta
	}

	x, w := grow(b.MinX, b.Width(), innerWidth)
	y, h := grow(b.MinY, b.Height(), innerHeight)
	return geom.NewBox(x, y, w, h)
}

// computeOuterCap returns a cap holding the whole bounding box on the sky.
// Both projections are radial, so the farthest pixel from the center is a
// corner of the box.
func (t *TractInfo) computeOuterCap() s2.Cap {
	b := t.patches.BBox()
	corners := []r2.Point{
		{X: float64(b.MinX), Y: float64(b.MinY)},
		{X: float64(b.MaxX), Y: float64(b.MinY)},
		{X: float64(b.MaxX), Y: float64(b.MaxY)},
		{X: float64(b.MinX), Y: float64(b.MaxY)},
	}

	center := t.center.Point()
	radius := s1.Angle(0)
	for _, c := range corners {
		radius = max(radius, center.Distance(t.projection.ToSkyPoint(c)))
	}
	return s2.CapFromCenterAngle(center, radius+capEpsilon)
}

func (t *TractInfo) ID() int {
	return t.id
}

// Center returns the tangent point of the tract projection.
func (t *TractInfo) Center() geom.Coord {
	return t.center
}

// Region returns the inner region of the tract.
func (t *TractInfo) Region() geom.Region {
	return t.region
}

func (t *TractInfo) Orientation() s1.Angle {
	return t.orientation
}

func (t *TractInfo) TractOverlap() s1.Angle {
	return t.tractOverlap
}

func (t *TractInfo) Projection() projection.Projection {
	return t.projection
}

// VertexList returns the corners of the inner region.
func (t *TractInfo) VertexList() []geom.Coord {
	return t.region.Vertices()
}

// BBox returns the bounding box of the tract, patch borders included.
func (t *TractInfo) BBox() geom.Box {
	return t.patches.BBox()
}

// NumPatches returns the number of patches along x and y.
func (t *TractInfo) NumPatches() (int, int) {
	return t.patches.NumPatches()
}

// PatchInnerDimensions returns the width and height of a full patch inner
// box.
func (t *TractInfo) PatchInnerDimensions() (int, int) {
	return t.patches.InnerDimensions()
}

func (t *TractInfo) PatchBorder() int {
	return t.patches.Border()
}

// PatchInfo returns the patch at the given index.
func (t *TractInfo) PatchInfo(i PatchIndex) (PatchInfo, error) {
	p, err := t.patches.Patch(i)
	if err != nil {
		return PatchInfo{}, errors.New("patch not found").
			WithType(geom.ErrTypeNotFound).
			WithTag("tract", t.id).
			Wrap(err)
	}
	return p, nil
}

// Patches returns the patches of the tract, row by row.
func (t *TractInfo) Patches() []PatchInfo {
	return t.patches.Patches()
}

// PatchGrid returns the patch grid of the tract.
func (t *TractInfo) PatchGrid() PatchGrid {
	return t.patches
}

// OuterCap returns a cap holding the tract bounding box on the sky.
func (t *TractInfo) OuterCap() s2.Cap {
	return t.outerCap
}

// Contains reports whether c is in the inner region of the tract.
func (t *TractInfo) Contains(c geom.Coord) bool {
	return t.region.Contains(c)
}

// ContainsOuter reports whether c projects inside the tract bounding box.
func (t *TractInfo) ContainsOuter(c geom.Coord) bool {
	p, err := t.projection.ToPixel(c)
	if err != nil {
		return false
	}
	return t.patches.BBox().ContainsPoint(p)
}

// FindPatch returns the patch whose inner box holds c. It returns a not found
// error when c is outside of the tract bounding box.
func (t *TractInfo) FindPatch(c geom.Coord) (PatchInfo, error) {
	p, err := t.projection.ToPixel(c)
	if err != nil {
		return PatchInfo{}, errors.New("coordinate cannot be projected on the tract").
			WithType(geom.ErrTypeNotFound).
			WithTag("tract", t.id).
			WithTag("coord", c.String()).
			Wrap(err)
	}

	patch, ok := t.patches.Locate(p)
	if !ok {
		return PatchInfo{}, errors.New("coordinate is outside of the tract").
			WithType(geom.ErrTypeNotFound).
			WithTag("tract", t.id).
			WithTag("coord", c.String()).
			WithTag("x", p.X).
			WithTag("y", p.Y)
	}
	return patch, nil
}

// FindPatchList returns the patches whose outer box holds c. The list is
// empty when c is outside of the tract bounding box.
func (t *TractInfo) FindPatchList(c geom.Coord) []PatchInfo {
	p, err := t.projection.ToPixel(c)
	if err != nil {
		return nil
	}
	return t.patches.Overlapping(p)
}

// FindPatchListForRegion returns the patches whose outer box overlaps the
// pixel bounding box of the given coordinates. It returns a domain error when
// a coordinate cannot be projected.
func (t *TractInfo) FindPatchListForRegion(coords []geom.Coord) ([]PatchInfo, error) {
	if len(coords) == 0 {
		return nil, nil
	}

	rect := r2.EmptyRect()
	for _, c := range coords {
		p, err := t.projection.ToPixel(c)
		if err != nil {
			return nil, errors.New("projecting region failed").
				WithType(geom.ErrTypeDomain).
				WithTag("tract", t.id).
				Wrap(err)
		}
		rect = rect.AddPoint(p)
	}
	return t.patches.OverlappingBox(geom.BoxFromRect(rect)), nil
}

func (t *TractInfo) String() string {
	return fmt.Sprintf("TractInfo(id=%d)", t.id)
}
