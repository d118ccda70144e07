// Package layouts defines how the sky is cut into tracts.
package layouts

import (
	"github.com/aukilabs/skymap/geom"
	"github.com/golang/geo/s1"
)

// Layout is the interface that describes a strategy to lay tracts out on the
// sky.
type Layout interface {
	// Returns the layout name.
	Name() string

	// Returns the tracts of the layout. The position of a tract in the
	// returned slice is its id. Calling Tracts twice returns identical
	// tracts.
	Tracts() ([]TractSpec, error)

	// Reports whether the inner regions of the tracts cover the whole sphere.
	TotalCoverage() bool
}

// TractSpec describes where a tract lies on the sky.
type TractSpec struct {
	// The tangent point of the tract projection.
	Center geom.Coord

	// The inner region of the tract. Inner regions of distinct tracts never
	// overlap.
	Region geom.Region

	// The counterclockwise rotation of the tract pixel grid.
	Orientation s1.Angle
}
