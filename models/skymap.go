package models

import (
	"iter"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/skymap/geom"
	"github.com/aukilabs/skymap/layouts"
	"golang.org/x/sync/errgroup"
)

// SkyMap is a pixelization of the sky into tracts. Tract ids are dense from
// 0. A SkyMap is immutable and safe for concurrent use.
type SkyMap struct {
	layout        string
	totalCoverage bool
	config        Config
	tracts        []*TractInfo
	index         *TractIndex
}

// TractPatches is a tract with some of its patches.
type TractPatches struct {
	Tract   *TractInfo
	Patches []PatchInfo
}

// New builds the sky map of a layout. Building is all or nothing: the first
// tract that fails aborts it.
func New(layout layouts.Layout, c Config) (*SkyMap, error) {
	start := time.Now()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	specs, err := layout.Tracts()
	if err != nil {
		return nil, errors.New("laying tracts out failed").
			WithType(errors.Type(err)).
			WithTag("layout", layout.Name()).
			Wrap(err)
	}

	if len(specs) == 0 {
		return nil, errors.New("layout has no tracts").
			WithType(geom.ErrTypeConfig).
			WithTag("layout", layout.Name())
	}

	tracts := make([]*TractInfo, len(specs))

	var g errgroup.Group
	g.SetLimit(c.parallelism())
	for i, spec := range specs {
		g.Go(func() error {
			t, err := NewTractInfo(i, spec, c)
			if err != nil {
				return err
			}
			tracts[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.New("building tracts failed").
			WithType(errors.Type(err)).
			WithTag("layout", layout.Name()).
			Wrap(err)
	}

	m := &SkyMap{
		layout:        layout.Name(),
		totalCoverage: layout.TotalCoverage(),
		config:        c,
		tracts:        tracts,
	}
	if !c.LinearScan {
		m.index = NewTractIndex(tracts, c.indexResolution())
	}

	duration := time.Since(start)
	instrumentBuild(m.layout, len(tracts), duration)

	logs.WithTag("layout", m.layout).
		WithTag("tracts", len(tracts)).
		WithTag("projection", c.Projection).
		WithTag("duration", duration).
		Info("sky map built")
	return m, nil
}

// Layout returns the name of the layout the map was built from.
func (m *SkyMap) Layout() string {
	return m.layout
}

// TotalCoverage reports whether the tracts cover the whole sphere.
func (m *SkyMap) TotalCoverage() bool {
	return m.totalCoverage
}

func (m *SkyMap) Config() Config {
	return m.config
}

// Len returns the number of tracts.
func (m *SkyMap) Len() int {
	return len(m.tracts)
}

// Tract returns the tract with the given id.
func (m *SkyMap) Tract(id int) (*TractInfo, error) {
	if id < 0 || id >= len(m.tracts) {
		return nil, errors.New("tract not found").
			WithType(geom.ErrTypeNotFound).
			WithTag("tract", id).
			WithTag("tracts", len(m.tracts))
	}
	return m.tracts[id], nil
}

// All iterates over the tracts by increasing id.
func (m *SkyMap) All() iter.Seq2[int, *TractInfo] {
	return func(yield func(int, *TractInfo) bool) {
		for i, t := range m.tracts {
			if !yield(i, t) {
				return
			}
		}
	}
}

// FindTract returns the tract whose inner region holds c. Candidates are
// checked by increasing id and the first match wins.
//
// A coordinate outside every tract is a not found error, unless the layout
// covers the whole sphere: it is then a coverage error, which is logged.
func (m *SkyMap) FindTract(c geom.Coord) (*TractInfo, error) {
	for _, id := range m.innerCandidates(c) {
		if t := m.tracts[id]; t.Contains(c) {
			instrumentTractLookup(m.layout, lookupFound)
			return t, nil
		}
	}

	if m.totalCoverage {
		err := errors.New("coordinate is not covered by any tract").
			WithType(geom.ErrTypeCoverage).
			WithTag("layout", m.layout).
			WithTag("ra", c.RA().Degrees()).
			WithTag("dec", c.Dec().Degrees())

		logs.Error(err)
		instrumentTractLookup(m.layout, lookupCoverage)
		instrumentCoverageError(m.layout)
		return nil, err
	}

	instrumentTractLookup(m.layout, lookupNotFound)
	return nil, errors.New("coordinate is outside of the sky map").
		WithType(geom.ErrTypeNotFound).
		WithTag("layout", m.layout).
		WithTag("ra", c.RA().Degrees()).
		WithTag("dec", c.Dec().Degrees())
}

// FindTractAndPatch returns the tract whose inner region holds c and the
// patch of that tract whose inner box holds c.
func (m *SkyMap) FindTractAndPatch(c geom.Coord) (*TractInfo, PatchInfo, error) {
	t, err := m.FindTract(c)
	if err != nil {
		return nil, PatchInfo{}, err
	}

	p, err := t.FindPatch(c)
	if err != nil {
		err = errors.New("inner region is outside of the tract bounding box").
			WithType(geom.ErrTypeCoverage).
			WithTag("layout", m.layout).
			WithTag("tract", t.ID()).
			Wrap(err)

		logs.Error(err)
		instrumentCoverageError(m.layout)
		return nil, PatchInfo{}, err
	}
	return t, p, nil
}

// FindAllTracts returns the tracts whose bounding box holds c, by increasing
// id.
func (m *SkyMap) FindAllTracts(c geom.Coord) []*TractInfo {
	var tracts []*TractInfo
	for _, id := range m.outerCandidates(c) {
		if t := m.tracts[id]; t.ContainsOuter(c) {
			tracts = append(tracts, t)
		}
	}
	return tracts
}

// FindTractPatchList returns every tract whose bounding box holds c, with
// the patches of that tract whose outer box holds c.
func (m *SkyMap) FindTractPatchList(c geom.Coord) []TractPatches {
	var res []TractPatches
	for _, t := range m.FindAllTracts(c) {
		if patches := t.FindPatchList(c); len(patches) != 0 {
			res = append(res, TractPatches{
				Tract:   t,
				Patches: patches,
			})
		}
	}
	return res
}

// FindTractPatchListForRegion returns every tract whose bounding box holds
// one of the coordinates, with the patches of that tract whose outer box
// overlaps the pixel bounding box of the coordinates. Tracts on which some
// coordinates cannot be projected are skipped.
func (m *SkyMap) FindTractPatchListForRegion(coords []geom.Coord) ([]TractPatches, error) {
	seen := make(map[int]bool)
	var res []TractPatches

	for _, c := range coords {
		for _, t := range m.FindAllTracts(c) {
			if seen[t.ID()] {
				continue
			}
			seen[t.ID()] = true

			patches, err := t.FindPatchListForRegion(coords)
			if geom.IsDomainError(err) {
				continue
			}
			if err != nil {
				return nil, err
			}
			if len(patches) != 0 {
				res = append(res, TractPatches{
					Tract:   t,
					Patches: patches,
				})
			}
		}
	}
	return res, nil
}

// IndexDebugInfo returns the occupancy of the lookup index. It is empty when
// the map scans every tract.
func (m *SkyMap) IndexDebugInfo() IndexDebugInfo {
	if m.index == nil {
		return IndexDebugInfo{}
	}
	return m.index.DebugInfo()
}

func (m *SkyMap) innerCandidates(c geom.Coord) []int {
	if m.index == nil {
		return m.allIDs()
	}
	return m.index.InnerCandidates(c)
}

func (m *SkyMap) outerCandidates(c geom.Coord) []int {
	if m.index == nil {
		return m.allIDs()
	}
	return m.index.OuterCandidates(c)
}

func (m *SkyMap) allIDs() []int {
	ids := make([]int, len(m.tracts))
	for i := range ids {
		ids[i] = i
	}
	return ids
}
