// Package smoketest checks that a sky map tiles the sky the way its layout
// promises, on a sample of random coordinates.
package smoketest

import (
	"context"
	"io"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	httpcmn "github.com/aukilabs/skymap/http"
	"github.com/aukilabs/skymap/geom"
	"github.com/aukilabs/skymap/models"
	"github.com/golang/geo/s1"
	"github.com/segmentio/encoding/json"
)

const (
	DefaultSamples = 10000

	// The maximum number of samples of a smoke test run over HTTP.
	MaxSamples = 1000000

	// The distance in pixels above which a sky to pixel round trip fails.
	roundTripTolerance = 1e-3

	// The number of samples between context checks.
	cancelCheckInterval = 1024
)

type Options struct {
	// The number of random coordinates to check.
	Samples int

	// The seed of the coordinate generator. Runs with the same seed check
	// the same coordinates.
	Seed uint64
}

// SmokeTestRequest is the body of a smoke test request.
type SmokeTestRequest struct {
	Samples int    `json:"samples"`
	Seed    uint64 `json:"seed"`
}

// SmokeTestResults is the report of a smoke test.
type SmokeTestResults struct {
	Layout  string `json:"layout"`
	Samples int    `json:"samples"`
	Seed    uint64 `json:"seed"`

	// Coordinates outside every tract of a partial layout.
	Outside int `json:"outside"`

	// Coordinates outside every tract, or outside the bounding box of their
	// tract, on a layout covering the whole sphere.
	Uncovered int `json:"uncovered"`

	// Coordinates held by the inner region of more than one tract.
	MultipleOwners int `json:"multiple_owners"`

	RoundTripErrors      int     `json:"round_trip_errors"`
	MaxRoundTripErrorPix float64 `json:"max_round_trip_error_px"`

	// Tracts whose patch inner boxes do not tile their bounding box.
	PatchTilingErrors int `json:"patch_tiling_errors"`

	DurationMilliSec float64 `json:"duration_ms"`
	Passed           bool    `json:"passed"`
}

// Run checks the sky map on random coordinates. It returns an error only
// when ctx is canceled; failed checks are reported in the results.
func Run(ctx context.Context, m *models.SkyMap, opts Options) (SmokeTestResults, error) {
	start := time.Now()

	if opts.Samples <= 0 {
		opts.Samples = DefaultSamples
	}

	res := SmokeTestResults{
		Layout:  m.Layout(),
		Samples: opts.Samples,
		Seed:    opts.Seed,
	}

	for _, t := range m.All() {
		if !patchesTileTract(t) {
			res.PatchTilingErrors++
		}
	}

	r := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	for i := 0; i < opts.Samples; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, errors.New("smoke test canceled").
					WithTag("layout", res.Layout).
					WithTag("checked_samples", i).
					Wrap(err)
			}
		}

		c := geom.NewCoord(
			s1.Angle(r.Float64()*2*math.Pi),
			s1.Angle(math.Asin(2*r.Float64()-1)),
		)
		checkCoord(m, c, &res)
	}

	res.DurationMilliSec = float64(time.Since(start)) / float64(time.Millisecond)
	res.Passed = res.Uncovered == 0 &&
		res.MultipleOwners == 0 &&
		res.RoundTripErrors == 0 &&
		res.PatchTilingErrors == 0

	entry := logs.WithTag("layout", res.Layout).
		WithTag("samples", res.Samples).
		WithTag("outside", res.Outside).
		WithTag("uncovered", res.Uncovered).
		WithTag("multiple_owners", res.MultipleOwners).
		WithTag("round_trip_errors", res.RoundTripErrors).
		WithTag("patch_tiling_errors", res.PatchTilingErrors).
		WithTag("duration_ms", res.DurationMilliSec)
	if res.Passed {
		entry.Info("smoke test passed")
	} else {
		entry.Warn(errors.New("smoke test failed"))
	}
	return res, nil
}

func checkCoord(m *models.SkyMap, c geom.Coord, res *SmokeTestResults) {
	tract, _, err := m.FindTractAndPatch(c)
	switch {
	case err == nil:

	case geom.IsNotFound(err) && !m.TotalCoverage():
		res.Outside++
		return

	default:
		res.Uncovered++
		return
	}

	owners := 0
	for _, t := range m.FindAllTracts(c) {
		if t.Contains(c) {
			owners++
		}
	}
	if owners > 1 {
		res.MultipleOwners++
	}

	proj := tract.Projection()
	p, err := proj.ToPixel(c)
	if err != nil {
		res.RoundTripErrors++
		return
	}

	back := proj.ToSky(p)
	dist := float64(c.Separation(back) / proj.Scale())
	res.MaxRoundTripErrorPix = math.Max(res.MaxRoundTripErrorPix, dist)
	if dist > roundTripTolerance {
		res.RoundTripErrors++
	}
}

func patchesTileTract(t *models.TractInfo) bool {
	bbox := t.BBox()

	area := 0
	for _, p := range t.Patches() {
		if !bbox.ContainsBox(p.InnerBBox) || !bbox.ContainsBox(p.OuterBBox) ||
			!p.OuterBBox.ContainsBox(p.InnerBBox) {
			return false
		}
		area += p.InnerBBox.Width() * p.InnerBBox.Height()
	}
	return area == bbox.Width()*bbox.Height()
}

// HandleSmokeTest runs a smoke test on the sky map and responds with its
// results. The request body is an optional SmokeTestRequest.
func HandleSmokeTest(m *models.SkyMap, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
		if err != nil {
			httpcmn.InternalServerError(w, errors.New("reading body failed").Wrap(err))
			return
		}

		runOpts := opts
		if len(b) != 0 {
			var req SmokeTestRequest
			if err := json.Unmarshal(b, &req); err != nil {
				httpcmn.BadRequest(w, errors.New("decoding smoke test request failed").Wrap(err))
				return
			}
			if req.Samples < 0 || req.Samples > MaxSamples {
				httpcmn.BadRequest(w, errors.New("samples out of range").
					WithTag("samples", req.Samples).
					WithTag("max_samples", MaxSamples))
				return
			}
			if req.Samples != 0 {
				runOpts.Samples = req.Samples
			}
			runOpts.Seed = req.Seed
		}

		res, err := Run(r.Context(), m, runOpts)
		if err != nil {
			logs.Warn(err)
			httpcmn.WriteJSON(w, http.StatusServiceUnavailable, res)
			return
		}
		httpcmn.WriteJSON(w, http.StatusOK, res)
	}
}
