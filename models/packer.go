package models

import (
	"math/bits"
	"slices"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/skymap/geom"
)

// Filters are the filter names a DataIDPacker can pack. The empty name is
// the absence of filter. New filters must be appended to keep packed ids
// stable.
var Filters = []string{"", "u", "g", "r", "i", "z", "y", "U", "B", "G", "V", "R", "I", "Z", "Y", "J", "H", "K"}

// DataID is the storage key of a patch.
type DataID struct {
	Tract  int        `json:"tract"`
	Patch  PatchIndex `json:"patch"`
	Filter string     `json:"filter,omitempty"`
}

// DataIDPacker packs a tract, a patch and optionally a filter into a single
// integer.
type DataIDPacker struct {
	tractMax      uint64
	patchNX       uint64
	patchNY       uint64
	patchMax      uint64
	tractPatchMax uint64
	withFilter    bool
}

// NewDataIDPacker creates a packer for tract ids below tractMax and patch
// indexes below (patchNX, patchNY).
func NewDataIDPacker(tractMax, patchNX, patchNY int, withFilter bool) (*DataIDPacker, error) {
	if tractMax <= 0 || patchNX <= 0 || patchNY <= 0 {
		return nil, errors.New("packer bounds must be positive").
			WithType(geom.ErrTypeConfig).
			WithTag("tract_max", tractMax).
			WithTag("patch_nx", patchNX).
			WithTag("patch_ny", patchNY)
	}

	p := &DataIDPacker{
		tractMax:   uint64(tractMax),
		patchNX:    uint64(patchNX),
		patchNY:    uint64(patchNY),
		withFilter: withFilter,
	}
	p.patchMax = p.patchNX * p.patchNY
	p.tractPatchMax = p.patchMax * p.tractMax

	if p.tractPatchMax/p.patchMax != p.tractMax || (withFilter && p.tractPatchMax > ^uint64(0)/uint64(len(Filters))) {
		return nil, errors.New("packed ids do not fit in 64 bits").
			WithType(geom.ErrTypeConfig).
			WithTag("tract_max", tractMax)
	}
	return p, nil
}

// DataIDPacker returns a packer sized for the tracts of the map.
func (m *SkyMap) DataIDPacker(withFilter bool) (*DataIDPacker, error) {
	var nx, ny int
	for _, t := range m.tracts {
		x, y := t.NumPatches()
		nx = max(nx, x)
		ny = max(ny, y)
	}
	return NewDataIDPacker(len(m.tracts), nx, ny, withFilter)
}

// MaxBits returns the number of bits needed by packed ids.
func (p *DataIDPacker) MaxBits() int {
	packedMax := p.tractPatchMax
	if p.withFilter {
		packedMax *= uint64(len(Filters))
	}
	return bits.Len64(packedMax)
}

func (p *DataIDPacker) Pack(id DataID) (uint64, error) {
	if id.Tract < 0 || uint64(id.Tract) >= p.tractMax ||
		id.Patch.X < 0 || uint64(id.Patch.X) >= p.patchNX ||
		id.Patch.Y < 0 || uint64(id.Patch.Y) >= p.patchNY {
		return 0, errors.New("data id out of range").
			WithType(geom.ErrTypeNotFound).
			WithTag("tract", id.Tract).
			WithTag("patch", id.Patch)
	}

	packed := uint64(id.Patch.Y)*p.patchNX + uint64(id.Patch.X) + p.patchMax*uint64(id.Tract)
	if !p.withFilter {
		return packed, nil
	}

	filter := slices.Index(Filters, id.Filter)
	if filter < 0 {
		return 0, errors.New("filter not supported").
			WithType(geom.ErrTypeNotFound).
			WithTag("filter", id.Filter)
	}
	return packed + uint64(filter)*p.tractPatchMax, nil
}

func (p *DataIDPacker) Unpack(packed uint64) (DataID, error) {
	var id DataID

	if p.withFilter {
		filter := packed / p.tractPatchMax
		if filter >= uint64(len(Filters)) {
			return DataID{}, errors.New("packed id out of range").
				WithType(geom.ErrTypeNotFound).
				WithTag("packed", packed)
		}
		id.Filter = Filters[filter]
		packed %= p.tractPatchMax
	} else if packed >= p.tractPatchMax {
		return DataID{}, errors.New("packed id out of range").
			WithType(geom.ErrTypeNotFound).
			WithTag("packed", packed)
	}

	patch := packed % p.patchMax
	id.Tract = int(packed / p.patchMax)
	id.Patch = PatchIndex{
		X: int(patch % p.patchNX),
		Y: int(patch / p.patchNX),
	}
	return id, nil
}
