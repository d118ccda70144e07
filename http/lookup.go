package http

import (
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/skymap/geom"
	"github.com/aukilabs/skymap/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/segmentio/encoding/json"
)

const (
	tractPathPrefix = "/tract/"

	// The maximum number of coordinates of a region lookup.
	maxRegionCoords = 1024
)

// Coord is a sky coordinate in degrees.
type Coord struct {
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`
}

func coordOf(c geom.Coord) Coord {
	return Coord{
		RA:  c.RA().Degrees(),
		Dec: c.Dec().Degrees(),
	}
}

func (c Coord) toGeom() (geom.Coord, error) {
	if math.IsNaN(c.RA) || math.IsInf(c.RA, 0) ||
		math.IsNaN(c.Dec) || c.Dec < -90 || c.Dec > 90 {
		return geom.Coord{}, errors.New("invalid coordinate").
			WithType(geom.ErrTypeDomain).
			WithTag("ra", c.RA).
			WithTag("dec", c.Dec)
	}
	return geom.NewCoordDegrees(c.RA, c.Dec), nil
}

// Tract describes a tract.
type Tract struct {
	ID          int      `json:"id"`
	Center      Coord    `json:"center"`
	Vertices    []Coord  `json:"vertices"`
	BBox        geom.Box `json:"bbox"`
	NumPatchesX int      `json:"num_patches_x"`
	NumPatchesY int      `json:"num_patches_y"`
	Projection  string   `json:"projection"`
	Orientation float64  `json:"orientation"`
}

func tractOf(t *models.TractInfo) Tract {
	vertices := t.VertexList()
	res := Tract{
		ID:          t.ID(),
		Center:      coordOf(t.Center()),
		Vertices:    make([]Coord, len(vertices)),
		BBox:        t.BBox(),
		Projection:  string(t.Projection().Kind()),
		Orientation: t.Orientation().Degrees(),
	}
	for i, v := range vertices {
		res.Vertices[i] = coordOf(v)
	}
	res.NumPatchesX, res.NumPatchesY = t.NumPatches()
	return res
}

// TractLookup is the tract and patch holding a coordinate.
type TractLookup struct {
	Coord Coord            `json:"coord"`
	Tract Tract            `json:"tract"`
	Patch models.PatchInfo `json:"patch"`
}

// TractPatches is a tract id with some of its patches.
type TractPatches struct {
	Tract   int                `json:"tract"`
	Patches []models.PatchInfo `json:"patches"`
}

func tractPatchesOf(list []models.TractPatches) []TractPatches {
	res := make([]TractPatches, len(list))
	for i, tp := range list {
		res[i] = TractPatches{
			Tract:   tp.Tract.ID(),
			Patches: tp.Patches,
		}
	}
	return res
}

// RegionRequest is the body of a region patch list lookup.
type RegionRequest struct {
	Coords []Coord `json:"coords"`
}

// LookupHandler serves sky map lookups.
type LookupHandler struct {
	skyMap *models.SkyMap
	cache  *lru.Cache[string, []byte]
}

// NewLookupHandler creates a lookup handler. Successful point lookups are
// kept in a cache of the given size. A zero size disables the cache.
func NewLookupHandler(m *models.SkyMap, cacheSize int) (*LookupHandler, error) {
	h := &LookupHandler{skyMap: m}

	if cacheSize > 0 {
		cache, err := lru.New[string, []byte](cacheSize)
		if err != nil {
			return nil, errors.New("creating lookup cache failed").
				WithTag("size", cacheSize).
				Wrap(err)
		}
		h.cache = cache
	}
	return h, nil
}

// Register adds the lookup routes to mux.
func (h *LookupHandler) Register(mux *http.ServeMux) {
	mux.Handle("GET /tract", HandleWithCORS(http.HandlerFunc(h.HandleTract)))
	mux.Handle("GET "+tractPathPrefix+"{id}", HandleWithCORS(http.HandlerFunc(h.HandleTractByID)))
	mux.Handle("GET /tract-patch-list", HandleWithCORS(http.HandlerFunc(h.HandleTractPatchList)))
	mux.Handle("POST /tract-patch-list", HandleWithCORS(http.HandlerFunc(h.HandleRegionPatchList)))
	mux.HandleFunc("GET /debug/index", h.HandleIndexDebug)
}

// HandleTract responds with the tract and patch holding the ra and dec query
// parameters.
func (h *LookupHandler) HandleTract(w http.ResponseWriter, r *http.Request) {
	c, err := queryCoord(r)
	if err != nil {
		BadRequest(w, err)
		return
	}

	key := "tract:" + strconv.FormatFloat(c.RA, 'g', -1, 64) + ":" + strconv.FormatFloat(c.Dec, 'g', -1, 64)
	if b, ok := h.cachedLookup(key); ok {
		writeJSONBytes(w, http.StatusOK, b)
		return
	}

	gc, err := c.toGeom()
	if err != nil {
		BadRequest(w, err)
		return
	}

	tract, patch, err := h.skyMap.FindTractAndPatch(gc)
	if err != nil {
		WriteError(w, err)
		return
	}

	b, err := json.Marshal(TractLookup{
		Coord: c,
		Tract: tractOf(tract),
		Patch: patch,
	})
	if err != nil {
		InternalServerError(w, errors.New("encoding lookup failed").Wrap(err))
		return
	}

	if h.cache != nil {
		h.cache.Add(key, b)
	}
	writeJSONBytes(w, http.StatusOK, b)
}

// HandleTractByID responds with the tract of the id path parameter.
func (h *LookupHandler) HandleTractByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		BadRequest(w, errors.New("invalid tract id").
			WithTag("id", r.PathValue("id")).
			Wrap(err))
		return
	}

	tract, err := h.skyMap.Tract(id)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, tractOf(tract))
}

// HandleTractPatchList responds with every tract and patch whose outer
// region holds the ra and dec query parameters.
func (h *LookupHandler) HandleTractPatchList(w http.ResponseWriter, r *http.Request) {
	c, err := queryCoord(r)
	if err != nil {
		BadRequest(w, err)
		return
	}

	gc, err := c.toGeom()
	if err != nil {
		BadRequest(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, tractPatchesOf(h.skyMap.FindTractPatchList(gc)))
}

// HandleRegionPatchList responds with every tract and patch overlapping the
// coordinates of a RegionRequest body.
func (h *LookupHandler) HandleRegionPatchList(w http.ResponseWriter, r *http.Request) {
	b, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		InternalServerError(w, errors.New("reading body failed").Wrap(err))
		return
	}

	var req RegionRequest
	if err := json.Unmarshal(b, &req); err != nil {
		BadRequest(w, errors.New("decoding region request failed").Wrap(err))
		return
	}

	if len(req.Coords) == 0 || len(req.Coords) > maxRegionCoords {
		BadRequest(w, errors.New("region must have between 1 and 1024 coordinates").
			WithTag("coords", len(req.Coords)))
		return
	}

	coords := make([]geom.Coord, len(req.Coords))
	for i, c := range req.Coords {
		if coords[i], err = c.toGeom(); err != nil {
			BadRequest(w, err)
			return
		}
	}

	list, err := h.skyMap.FindTractPatchListForRegion(coords)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, tractPatchesOf(list))
}

// HandleIndexDebug responds with the occupancy of the tract lookup index.
func (h *LookupHandler) HandleIndexDebug(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.skyMap.IndexDebugInfo())
}

func (h *LookupHandler) cachedLookup(key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}

	b, ok := h.cache.Get(key)
	instrumentLookupCache(ok)
	return b, ok
}

func queryCoord(r *http.Request) (Coord, error) {
	q := r.URL.Query()

	ra, err := strconv.ParseFloat(q.Get("ra"), 64)
	if err != nil {
		return Coord{}, errors.New("invalid ra").
			WithType(geom.ErrTypeDomain).
			WithTag("ra", q.Get("ra")).
			Wrap(err)
	}

	dec, err := strconv.ParseFloat(q.Get("dec"), 64)
	if err != nil {
		return Coord{}, errors.New("invalid dec").
			WithType(geom.ErrTypeDomain).
			WithTag("dec", q.Get("dec")).
			Wrap(err)
	}
	return Coord{RA: ra, Dec: dec}, nil
}
