package geom

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// Box is a half-open integer pixel box: a pixel (x, y) is inside when
// MinX <= x < MaxX and MinY <= y < MaxY. A continuous position p belongs to
// pixel floor(p).
type Box struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// NewBox returns the box starting at (x, y) with the given size.
func NewBox(x, y, width, height int) Box {
	return Box{
		MinX: x,
		MinY: y,
		MaxX: x + width,
		MaxY: y + height,
	}
}

// BoxFromRect returns the smallest box holding every pixel touched by r.
func BoxFromRect(r r2.Rect) Box {
	if r.IsEmpty() {
		return Box{}
	}

	return Box{
		MinX: int(math.Floor(r.X.Lo)),
		MinY: int(math.Floor(r.Y.Lo)),
		MaxX: int(math.Floor(r.X.Hi)) + 1,
		MaxY: int(math.Floor(r.Y.Hi)) + 1,
	}
}

func (b Box) Width() int {
	if b.MaxX < b.MinX {
		return 0
	}
	return b.MaxX - b.MinX
}

func (b Box) Height() int {
	if b.MaxY < b.MinY {
		return 0
	}
	return b.MaxY - b.MinY
}

func (b Box) Empty() bool {
	return b.MaxX <= b.MinX || b.MaxY <= b.MinY
}

func (b Box) Contains(x, y int) bool {
	return x >= b.MinX && x < b.MaxX && y >= b.MinY && y < b.MaxY
}

// ContainsPoint reports whether the pixel holding p is inside the box.
func (b Box) ContainsPoint(p r2.Point) bool {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return false
	}
	return b.Contains(int(math.Floor(p.X)), int(math.Floor(p.Y)))
}

func (b Box) ContainsBox(o Box) bool {
	if o.Empty() {
		return true
	}
	return o.MinX >= b.MinX && o.MaxX <= b.MaxX && o.MinY >= b.MinY && o.MaxY <= b.MaxY
}

// Grow expands the box by n pixels on every side.
func (b Box) Grow(n int) Box {
	return Box{
		MinX: b.MinX - n,
		MinY: b.MinY - n,
		MaxX: b.MaxX + n,
		MaxY: b.MaxY + n,
	}
}

// Clip returns the intersection of two boxes. The result is empty when they
// do not overlap.
func (b Box) Clip(o Box) Box {
	c := Box{
		MinX: max(b.MinX, o.MinX),
		MinY: max(b.MinY, o.MinY),
		MaxX: min(b.MaxX, o.MaxX),
		MaxY: min(b.MaxY, o.MaxY),
	}
	if c.Empty() {
		return Box{}
	}
	return c
}

func (b Box) Overlaps(o Box) bool {
	return !b.Clip(o).Empty()
}

func (b Box) Shift(dx, dy int) Box {
	return Box{
		MinX: b.MinX + dx,
		MinY: b.MinY + dy,
		MaxX: b.MaxX + dx,
		MaxY: b.MaxY + dy,
	}
}

func (b Box) String() string {
	return fmt.Sprintf("[%d:%d, %d:%d]", b.MinX, b.MaxX, b.MinY, b.MaxY)
}
