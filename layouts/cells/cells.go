// Package cells lays tracts out on the cells of a uniform sky cell
// enumeration.
package cells

import (
	"math"
	"sort"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/skymap/geom"
	"github.com/aukilabs/skymap/layouts"
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s2"
)

const (
	// The layout name.
	Name = "cells"

	// The precision under which two enumerated vertices are the same.
	vertexPrecision = 1e-12
)

// Cell is a cell of a sky cell enumeration.
type Cell struct {
	Center s2.Point

	// The positions of the cells sharing an edge with this cell.
	Neighbors []int

	// The boundary of the cell. When empty, the boundary is derived from
	// the centers of the neighbors.
	Vertices []s2.Point
}

// Enumerator is the interface that describes a uniform sky cell
// enumeration.
type Enumerator interface {
	// Returns the name of the enumeration.
	Name() string

	// Returns the cells that cover the sphere at the given resolution.
	Cells(resolution int) ([]Cell, error)
}

// Config is the configuration of a cell layout.
type Config struct {
	// The resolution passed to the enumerator.
	Level int `json:"level" yaml:"level"`
}

// Layout is a tract layout with one tract per enumerated cell. Tract ids
// follow the enumeration order.
type Layout struct {
	config     Config
	enumerator Enumerator
}

// New creates a cell layout.
func New(c Config, e Enumerator) *Layout {
	return &Layout{
		config:     c,
		enumerator: e,
	}
}

func (l *Layout) Name() string {
	return Name
}

func (l *Layout) TotalCoverage() bool {
	return true
}

func (l *Layout) Config() Config {
	return l.config
}

func (l *Layout) Tracts() ([]layouts.TractSpec, error) {
	cells, err := l.enumerator.Cells(l.config.Level)
	if err != nil {
		return nil, errors.New("enumerating cells failed").
			WithType(geom.ErrTypeConfig).
			WithTag("enumerator", l.enumerator.Name()).
			WithTag("level", l.config.Level).
			Wrap(err)
	}

	if len(cells) == 0 {
		return nil, errors.New("enumerator returned no cells").
			WithType(geom.ErrTypeConfig).
			WithTag("enumerator", l.enumerator.Name()).
			WithTag("level", l.config.Level)
	}

	shared := make(map[[3]int64]s2.Point)
	tracts := make([]layouts.TractSpec, len(cells))

	for i, cell := range cells {
		vertices := cell.Vertices
		if len(vertices) == 0 {
			if vertices, err = voronoiVertices(i, cells); err != nil {
				return nil, err
			}
		}

		points := make([]s2.Point, len(vertices))
		for j, v := range vertices {
			points[j] = canonicalVertex(shared, v)
		}

		region, err := geom.NewPolygonRegion(points)
		if err != nil {
			return nil, errors.New("creating cell region failed").
				WithType(geom.ErrTypeConfig).
				WithTag("cell", i).
				Wrap(err)
		}

		tracts[i] = layouts.TractSpec{
			Center: geom.CoordFromPoint(cell.Center),
			Region: region,
		}
	}
	return tracts, nil
}

// canonicalVertex returns the first vertex seen at the position of v, so
// that adjacent cells share bit-identical vertices.
func canonicalVertex(shared map[[3]int64]s2.Point, v s2.Point) s2.Point {
	key := [3]int64{
		int64(math.Round(v.X / vertexPrecision)),
		int64(math.Round(v.Y / vertexPrecision)),
		int64(math.Round(v.Z / vertexPrecision)),
	}

	if p, ok := shared[key]; ok {
		return p
	}
	shared[key] = v
	return v
}

// voronoiVertices derives the boundary of a cell from its neighbors: each
// vertex is the point equidistant from the cell center and two consecutive
// neighbors.
func voronoiVertices(i int, cells []Cell) ([]s2.Point, error) {
	cell := cells[i]
	if len(cell.Neighbors) < 3 {
		return nil, errors.New("cell has too few neighbors").
			WithType(geom.ErrTypeConfig).
			WithTag("cell", i).
			WithTag("neighbors", len(cell.Neighbors))
	}

	neighbors := append([]int(nil), cell.Neighbors...)
	for _, n := range neighbors {
		if n < 0 || n >= len(cells) || n == i {
			return nil, errors.New("invalid cell neighbor").
				WithType(geom.ErrTypeConfig).
				WithTag("cell", i).
				WithTag("neighbor", n)
		}
	}

	east, north := geom.TangentBasis(geom.CoordFromPoint(cell.Center), 0)
	angle := func(n int) float64 {
		v := cells[n].Center.Vector
		return math.Atan2(v.Dot(north), v.Dot(east))
	}
	sort.Slice(neighbors, func(a, b int) bool {
		return angle(neighbors[a]) < angle(neighbors[b])
	})

	vertices := make([]s2.Point, len(neighbors))
	for k, n := range neighbors {
		next := neighbors[(k+1)%len(neighbors)]
		vertices[k] = circumcenter(cells, i, n, next)
	}
	return vertices, nil
}

// circumcenter returns the point equidistant from the centers of three
// cells, on the side of the cells. The result only depends on the set of
// cells, not on their order.
func circumcenter(cells []Cell, a, b, c int) s2.Point {
	ids := []int{a, b, c}
	sort.Ints(ids)

	pa := cells[ids[0]].Center.Vector
	pb := cells[ids[1]].Center.Vector
	pc := cells[ids[2]].Center.Vector

	v := pb.Sub(pa).Cross(pc.Sub(pa))
	if v.Dot(pa) < 0 {
		v = v.Mul(-1)
	}
	return s2.Point{Vector: normalize(v)}
}

func normalize(v r3.Vector) r3.Vector {
	if n := v.Norm(); n > 0 {
		return v.Mul(1 / n)
	}
	return v
}
