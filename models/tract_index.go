package models

import (
	"math"

	"github.com/aukilabs/skymap/geom"
	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// Absorbs rounding when counting index rows and columns.
const indexEpsilon = 1e-9

// TractIndex is a regular RA/Dec grid where each cell lists the tracts whose
// inner region or outer box may reach it. Cells hold tract ids in ascending
// order.
//
// Cell limits are in the range [lo, hi[. A tract is registered in every cell
// touched by its bounding rectangle plus one cell on each side, so that
// rounding never drops a candidate.
type TractIndex struct {
	resolution s1.Angle
	rows       int
	cols       int
	inner      [][]int
	outer      [][]int
}

// IndexDebugInfo summarizes the occupancy of a tract index.
type IndexDebugInfo struct {
	Resolution     float64 `json:"resolution_deg"`
	RowCount       int     `json:"row_count"`
	ColCount       int     `json:"col_count"`
	MaxInner       int     `json:"max_inner"`
	MaxOuter       int     `json:"max_outer"`
	MeanInner      float64 `json:"mean_inner"`
	MeanOuter      float64 `json:"mean_outer"`
	EmptyCellCount int     `json:"empty_cell_count"`
	RowOccupancy   []int   `json:"row_occupancy"`
}

// NewTractIndex creates the index of the given tracts.
func NewTractIndex(tracts []*TractInfo, resolution s1.Angle) *TractIndex {
	if resolution <= 0 {
		resolution = defaultIndexResolution
	}

	rows := max(int(math.Ceil(math.Pi/resolution.Radians()-indexEpsilon)), 1)
	cols := max(int(math.Ceil(2*math.Pi/resolution.Radians()-indexEpsilon)), 1)

	idx := &TractIndex{
		resolution: resolution,
		rows:       rows,
		cols:       cols,
		inner:      make([][]int, rows*cols),
		outer:      make([][]int, rows*cols),
	}

	for _, t := range tracts {
		idx.insert(idx.inner, t.ID(), t.Region().RectBound())
		idx.insert(idx.outer, t.ID(), t.OuterCap().RectBound())
	}
	return idx
}

func (idx *TractIndex) insert(cells [][]int, id int, rect s2.Rect) {
	if rect.IsEmpty() {
		return
	}

	minRow := idx.row(s1.Angle(rect.Lat.Lo)) - 1
	maxRow := idx.row(s1.Angle(rect.Lat.Hi)) + 1

	var minCol, maxCol int
	if rect.Lng.IsFull() || rect.Lng.Length() >= 2*math.Pi-2*idx.resolution.Radians() {
		minCol, maxCol = 0, idx.cols-1
	} else {
		lo := geom.NormalizeRA(s1.Angle(rect.Lng.Lo))
		minCol = int(math.Floor(lo.Radians()/idx.resolution.Radians())) - 1
		maxCol = int(math.Floor((lo.Radians()+rect.Lng.Length())/idx.resolution.Radians())) + 1
	}

	for row := max(minRow, 0); row <= min(maxRow, idx.rows-1); row++ {
		for col := minCol; col <= maxCol; col++ {
			i := row*idx.cols + ((col%idx.cols)+idx.cols)%idx.cols
			if n := len(cells[i]); n == 0 || cells[i][n-1] != id {
				cells[i] = append(cells[i], id)
			}
		}
	}
}

func (idx *TractIndex) row(dec s1.Angle) int {
	r := int(math.Floor((dec.Radians() + math.Pi/2) / idx.resolution.Radians()))
	return min(max(r, 0), idx.rows-1)
}

func (idx *TractIndex) cell(c geom.Coord) int {
	col := int(math.Floor(c.RA().Radians() / idx.resolution.Radians()))
	col = min(max(col, 0), idx.cols-1)
	return idx.row(c.Dec())*idx.cols + col
}

// InnerCandidates returns the ids of the tracts whose inner region may hold
// c, in ascending order.
func (idx *TractIndex) InnerCandidates(c geom.Coord) []int {
	return idx.inner[idx.cell(c)]
}

// OuterCandidates returns the ids of the tracts whose bounding box may hold
// c, in ascending order.
func (idx *TractIndex) OuterCandidates(c geom.Coord) []int {
	return idx.outer[idx.cell(c)]
}

func (idx *TractIndex) DebugInfo() IndexDebugInfo {
	info := IndexDebugInfo{
		Resolution:   idx.resolution.Degrees(),
		RowCount:     idx.rows,
		ColCount:     idx.cols,
		RowOccupancy: make([]int, idx.rows),
	}

	var innerTotal, outerTotal int
	for i := range idx.inner {
		n, m := len(idx.inner[i]), len(idx.outer[i])
		innerTotal += n
		outerTotal += m
		info.MaxInner = max(info.MaxInner, n)
		info.MaxOuter = max(info.MaxOuter, m)
		info.RowOccupancy[i/idx.cols] += n
		if n == 0 {
			info.EmptyCellCount++
		}
	}

	cells := float64(len(idx.inner))
	info.MeanInner = float64(innerTotal) / cells
	info.MeanOuter = float64(outerTotal) / cells
	return info
}
