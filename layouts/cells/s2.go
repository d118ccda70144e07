package cells

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/skymap/geom"
	"github.com/golang/geo/s2"
)

// The deepest S2 level accepted by S2Enumerator.
const MaxS2Level = 8

// S2Enumerator enumerates the cells of the S2 hierarchy at a level. Cells
// are ordered along the Hilbert curve, face after face.
type S2Enumerator struct{}

func (S2Enumerator) Name() string {
	return "s2"
}

func (S2Enumerator) Cells(level int) ([]Cell, error) {
	if level < 0 || level > MaxS2Level {
		return nil, errors.New("s2 level out of range").
			WithType(geom.ErrTypeConfig).
			WithTag("level", level).
			WithTag("max_level", MaxS2Level)
	}

	ids := make([]s2.CellID, 0, 6<<(2*level))
	positions := make(map[s2.CellID]int, cap(ids))
	for face := 0; face < 6; face++ {
		parent := s2.CellIDFromFace(face)
		end := parent.ChildEndAtLevel(level)
		for id := parent.ChildBeginAtLevel(level); id != end; id = id.Next() {
			positions[id] = len(ids)
			ids = append(ids, id)
		}
	}

	cells := make([]Cell, len(ids))
	for i, id := range ids {
		cell := s2.CellFromCellID(id)

		vertices := make([]s2.Point, 4)
		for k := range vertices {
			vertices[k] = cell.Vertex(k)
		}

		neighbors := id.EdgeNeighbors()
		cells[i] = Cell{
			Center:    id.Point(),
			Neighbors: make([]int, 0, len(neighbors)),
			Vertices:  vertices,
		}
		for _, n := range neighbors {
			cells[i].Neighbors = append(cells[i].Neighbors, positions[n])
		}
	}
	return cells, nil
}
