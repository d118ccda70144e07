// Package dodeca lays 12 tracts out on the faces of a dodecahedron.
package dodeca

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
	Name = "dodeca"

	// The number of faces of a dodecahedron.
	NumFaces = 12

	verticesPerFace = 5
	sortEpsilon     = 1e-9
)

var phi = (1 + math.Sqrt(5)) / 2

// Config is the configuration of a dodecahedral layout.
type Config struct {
	// Centers a tract on each pole when true. Otherwise a vertex sits on
	// each pole.
	WithTractsOnPoles bool `json:"withTractsOnPoles" yaml:"withTractsOnPoles"`
}

// Layout is a dodecahedral tract layout. Faces are ordered from north to
// south, then by increasing RA.
type Layout struct {
	config   Config
	centers  []s2.Point
	vertices []s2.Point
	faces    [][]int
}

// New creates a dodecahedral layout.
func New(c Config) *Layout {
	centers := faceCenters()
	vertices := dodecahedronVertices()

	// Align either a face center or a vertex with the north pole.
	axis := vertices[0]
	if c.WithTractsOnPoles {
		axis = centers[0]
	}
	for i, v := range centers {
		centers[i] = rotateToPole(v, axis)
	}
	for i, v := range vertices {
		vertices[i] = rotateToPole(v, axis)
	}

	sortNorthToSouth(centers)

	faces := make([][]int, len(centers))
	for i, ctr := range centers {
		faces[i] = faceVertices(ctr, vertices)
	}

	return &Layout{
		config:   c,
		centers:  centers,
		vertices: vertices,
		faces:    faces,
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
	tracts := make([]layouts.TractSpec, 0, len(l.centers))

	for i, ctr := range l.centers {
		points := make([]s2.Point, len(l.faces[i]))
		for j, v := range l.faces[i] {
			points[j] = l.vertices[v]
		}

		region, err := geom.NewPolygonRegion(points)
		if err != nil {
			return nil, errors.New("creating face region failed").
				WithType(geom.ErrTypeDomain).
				WithTag("face", i).
				Wrap(err)
		}

		tracts = append(tracts, layouts.TractSpec{
			Center: geom.CoordFromPoint(ctr),
			Region: region,
		})
	}
	return tracts, nil
}

// faceIndex returns the index of the face whose center is the closest to c.
func (l *Layout) faceIndex(c geom.Coord) int {
	p := c.Point().Vector
	best, bestDot := 0, math.Inf(-1)
	for i, ctr := range l.centers {
		if d := ctr.Dot(p); d > bestDot {
			best, bestDot = i, d
		}
	}
	return best
}

// faceCenters returns the face centers, which are the vertices of the dual
// icosahedron.
func faceCenters() []s2.Point {
	var centers []s2.Point
	for _, a := range []float64{1, -1} {
		for _, b := range []float64{phi, -phi} {
			centers = append(centers,
				s2.PointFromCoords(a, 0, b),
				s2.PointFromCoords(0, b, a),
				s2.PointFromCoords(b, a, 0),
			)
		}
	}
	return centers
}

func dodecahedronVertices() []s2.Point {
	vertices := []s2.Point{s2.PointFromCoords(0, 1/phi, phi)}
	for _, x := range []float64{1, -1} {
		for _, y := range []float64{1, -1} {
			for _, z := range []float64{1, -1} {
				vertices = append(vertices, s2.PointFromCoords(x, y, z))
			}
		}
	}

	for _, a := range []float64{1 / phi, -1 / phi} {
		for _, b := range []float64{phi, -phi} {
			if a > 0 && b > 0 {
				continue
			}
			vertices = append(vertices, s2.PointFromCoords(0, a, b))
		}
	}

	for _, a := range []float64{1 / phi, -1 / phi} {
		for _, b := range []float64{phi, -phi} {
			vertices = append(vertices,
				s2.PointFromCoords(a, b, 0),
				s2.PointFromCoords(b, 0, a),
			)
		}
	}
	return vertices
}

// rotateToPole rotates v by the rotation that brings axis onto the north
// pole.
func rotateToPole(v s2.Point, axis s2.Point) s2.Point {
	z := r3.Vector{X: 0, Y: 0, Z: 1}
	k := axis.Cross(z)
	sin := k.Norm()
	cos := axis.Dot(z)
	if sin == 0 {
		return v
	}
	k = k.Mul(1 / sin)

	rotated := v.Mul(cos).
		Add(k.Cross(v.Vector).Mul(sin)).
		Add(k.Mul(k.Dot(v.Vector) * (1 - cos)))
	return s2.Point{Vector: rotated.Normalize()}
}

func sortNorthToSouth(points []s2.Point) {
	sort.SliceStable(points, func(i, j int) bool {
		zi, zj := points[i].Z, points[j].Z
		if !geom.EqualWithEpsilon(zi, zj, sortEpsilon) {
			return zi > zj
		}
		return geom.CoordFromPoint(points[i]).RA() < geom.CoordFromPoint(points[j]).RA()
	})
}

// faceVertices returns the indexes of the vertices closest to a face center,
// counterclockwise around it.
func faceVertices(ctr s2.Point, vertices []s2.Point) []int {
	ids := make([]int, len(vertices))
	for i := range ids {
		ids[i] = i
	}
	sort.SliceStable(ids, func(i, j int) bool {
		return vertices[ids[i]].Dot(ctr.Vector) > vertices[ids[j]].Dot(ctr.Vector)
	})
	ids = ids[:verticesPerFace]

	east, north := geom.TangentBasis(geom.CoordFromPoint(ctr), 0)
	angle := func(id int) float64 {
		v := vertices[id].Vector
		return math.Atan2(v.Dot(north), v.Dot(east))
	}
	sort.Slice(ids, func(i, j int) bool {
		return angle(ids[i]) < angle(ids[j])
	})
	return ids
}
