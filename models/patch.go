package models

import (
	"fmt"
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/skymap/geom"
	"github.com/golang/geo/r2"
)

// PatchIndex is the position of a patch within the patch grid of a tract.
// Patch (0, 0) is at the minimum corner of the tract bounding box.
type PatchIndex struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (i PatchIndex) String() string {
	return fmt.Sprintf("%d,%d", i.X, i.Y)
}

// PatchInfo describes a patch of a tract.
type PatchInfo struct {
	Index PatchIndex `json:"index"`

	// The region of the tract that belongs to this patch only. Inner boxes
	// of a tract tile its bounding box.
	InnerBBox geom.Box `json:"inner_bbox"`

	// The inner box grown by the patch border, without going past the
	// tract bounding box.
	OuterBBox geom.Box `json:"outer_bbox"`
}

// PatchGrid is the regular grid of patches of a tract. Patches are stored
// row by row.
type PatchGrid struct {
	bbox        geom.Box
	innerWidth  int
	innerHeight int
	border      int
	numX        int
	numY        int
	patches     []PatchInfo
}

// NewPatchGrid creates the patch grid of a tract with the given size. The
// last row and column are narrower when the tract size is not a multiple of
// the patch size.
func NewPatchGrid(width, height, innerWidth, innerHeight, border int) (PatchGrid, error) {
	if innerWidth <= 0 || innerHeight <= 0 {
		return PatchGrid{}, errors.New("patch inner dimensions must be positive").
			WithType(geom.ErrTypeConfig).
			WithTag("inner_width", innerWidth).
			WithTag("inner_height", innerHeight)
	}

	if border < 0 {
		return PatchGrid{}, errors.New("patch border must not be negative").
			WithType(geom.ErrTypeConfig).
			WithTag("border", border)
	}

	if width <= 0 || height <= 0 {
		return PatchGrid{}, errors.New("tract has no pixels").
			WithType(geom.ErrTypeDomain).
			WithTag("width", width).
			WithTag("height", height)
	}

	g := PatchGrid{
		bbox:        geom.NewBox(0, 0, width, height),
		innerWidth:  innerWidth,
		innerHeight: innerHeight,
		border:      border,
		numX:        (width + innerWidth - 1) / innerWidth,
		numY:        (height + innerHeight - 1) / innerHeight,
	}

	g.patches = make([]PatchInfo, 0, g.numX*g.numY)
	for y := 0; y < g.numY; y++ {
		for x := 0; x < g.numX; x++ {
			inner := geom.NewBox(x*innerWidth, y*innerHeight, innerWidth, innerHeight).Clip(g.bbox)
			g.patches = append(g.patches, PatchInfo{
				Index:     PatchIndex{X: x, Y: y},
				InnerBBox: inner,
				OuterBBox: inner.Grow(border).Clip(g.bbox),
			})
		}
	}
	return g, nil
}

// BBox returns the box tiled by the patches.
func (g PatchGrid) BBox() geom.Box {
	return g.bbox
}

// NumPatches returns the number of patches along x and y.
func (g PatchGrid) NumPatches() (int, int) {
	return g.numX, g.numY
}

func (g PatchGrid) Len() int {
	return len(g.patches)
}

// InnerDimensions returns the width and height of a full patch inner box.
func (g PatchGrid) InnerDimensions() (int, int) {
	return g.innerWidth, g.innerHeight
}

func (g PatchGrid) Border() int {
	return g.border
}

// Patch returns the patch at the given index.
func (g PatchGrid) Patch(i PatchIndex) (PatchInfo, error) {
	if i.X < 0 || i.X >= g.numX || i.Y < 0 || i.Y >= g.numY {
		return PatchInfo{}, errors.New("patch index out of range").
			WithType(geom.ErrTypeNotFound).
			WithTag("index", i).
			WithTag("num_x", g.numX).
			WithTag("num_y", g.numY)
	}
	return g.patches[g.SequentialIndex(i)], nil
}

// Patches returns a copy of the patches, row by row.
func (g PatchGrid) Patches() []PatchInfo {
	return append([]PatchInfo(nil), g.patches...)
}

// SequentialIndex returns the position of a patch in row by row order.
func (g PatchGrid) SequentialIndex(i PatchIndex) int {
	return i.Y*g.numX + i.X
}

// Locate returns the patch whose inner box holds the pixel of p. Pixels on
// a shared inner edge belong to the patch whose box starts at that edge,
// which is the higher-index patch rather than the lower-index one, so that
// inner boxes stay half-open. Positions outside the grid are not located.
func (g PatchGrid) Locate(p r2.Point) (PatchInfo, bool) {
	if !g.bbox.ContainsPoint(p) {
		return PatchInfo{}, false
	}

	x := clamp(int(math.Floor(p.X)), 0, g.bbox.MaxX-1) / g.innerWidth
	y := clamp(int(math.Floor(p.Y)), 0, g.bbox.MaxY-1) / g.innerHeight
	return g.patches[g.SequentialIndex(PatchIndex{X: x, Y: y})], true
}

// Overlapping returns the patches whose outer box holds the pixel of p.
func (g PatchGrid) Overlapping(p r2.Point) []PatchInfo {
	if !g.bbox.ContainsPoint(p) {
		return nil
	}

	px := int(math.Floor(p.X))
	py := int(math.Floor(p.Y))
	return g.OverlappingBox(geom.NewBox(px, py, 1, 1))
}

// OverlappingBox returns the patches whose outer box overlaps b.
func (g PatchGrid) OverlappingBox(b geom.Box) []PatchInfo {
	b = b.Clip(g.bbox)
	if b.Empty() {
		return nil
	}

	minX := clamp((b.MinX-g.border)/g.innerWidth, 0, g.numX-1)
	maxX := clamp((b.MaxX-1+g.border)/g.innerWidth, 0, g.numX-1)
	minY := clamp((b.MinY-g.border)/g.innerHeight, 0, g.numY-1)
	maxY := clamp((b.MaxY-1+g.border)/g.innerHeight, 0, g.numY-1)

	var patches []PatchInfo
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if p := g.patches[y*g.numX+x]; p.OuterBBox.Overlaps(b) {
				patches = append(patches, p)
			}
		}
	}
	return patches
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
