package websocket

import (
	"context"
	"math"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/skymap/geom"
	"github.com/aukilabs/skymap/models"
	"github.com/google/uuid"
	"golang.org/x/net/websocket"
)

const (
	// The header where clients may pass their id.
	ClientIDHeader = "X-Skymap-Client-Id"

	DefaultMaxBatchSize = 1024
	DefaultIdleTimeout  = 5 * time.Minute
)

// Coord is a sky coordinate in degrees.
type Coord struct {
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`
}

// FindRequest is the data of find_tract and find_tract_patch_list requests.
type FindRequest struct {
	Coords []Coord `json:"coords"`
}

// FindTractResult is the lookup result of a coordinate. Error is set when
// the coordinate has no tract.
type FindTractResult struct {
	Coord     Coord              `json:"coord"`
	Tract     int                `json:"tract"`
	Patch     *models.PatchIndex `json:"patch,omitempty"`
	Error     string             `json:"error,omitempty"`
	ErrorType string             `json:"error_type,omitempty"`
}

// FindTractResponse is the data of find_tract responses. Results are in the
// order of the request coordinates.
type FindTractResponse struct {
	Results []FindTractResult `json:"results"`
}

// TractPatches is a tract id with some of its patches.
type TractPatches struct {
	Tract   int                `json:"tract"`
	Patches []models.PatchInfo `json:"patches"`
}

// FindTractPatchListResponse is the data of find_tract_patch_list
// responses.
type FindTractPatchListResponse struct {
	Tracts []TractPatches `json:"tracts"`
}

// ErrorData is the data of error messages.
type ErrorData struct {
	Error string `json:"error"`
	Type  string `json:"type,omitempty"`
}

// LookupHandler answers sky map lookups of a single connection.
type LookupHandler struct {
	SkyMap            *models.SkyMap
	ClientIdleTimeout time.Duration
	MaxBatchSize      int

	conn     *websocket.Conn
	clientID string
}

func (h *LookupHandler) HandleConnect(conn *websocket.Conn) {
	h.clientID = conn.Request().Header.Get(ClientIDHeader)
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}
	h.conn = conn
}

func (h *LookupHandler) HandleDisconnect(error) {
}

func (h *LookupHandler) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.respond(respond, MsgTypePong, msg.RequestID, nil)
}

func (h *LookupHandler) HandleFindTract(ctx context.Context, respond ResponseSender, msg Msg) error {
	coords, err := h.decodeCoords(msg)
	if err != nil {
		return err
	}

	res := FindTractResponse{
		Results: make([]FindTractResult, len(coords)),
	}
	for i, c := range coords {
		r := &res.Results[i]
		r.Coord = Coord{RA: c.RA().Degrees(), Dec: c.Dec().Degrees()}
		r.Tract = -1

		tract, patch, err := h.SkyMap.FindTractAndPatch(c)
		if err != nil {
			r.Error = err.Error()
			r.ErrorType = errors.Type(err)
			continue
		}
		r.Tract = tract.ID()
		r.Patch = &patch.Index
	}
	return h.respond(respond, MsgTypeFindTractResponse, msg.RequestID, res)
}

func (h *LookupHandler) HandleFindTractPatchList(ctx context.Context, respond ResponseSender, msg Msg) error {
	coords, err := h.decodeCoords(msg)
	if err != nil {
		return err
	}

	var list []models.TractPatches
	if len(coords) == 1 {
		list = h.SkyMap.FindTractPatchList(coords[0])
	} else if list, err = h.SkyMap.FindTractPatchListForRegion(coords); err != nil {
		return errors.New("finding region patches failed").
			WithType(ErrTypeMsgMalformed).
			Wrap(err)
	}

	res := FindTractPatchListResponse{
		Tracts: make([]TractPatches, len(list)),
	}
	for i, tp := range list {
		res.Tracts[i] = TractPatches{
			Tract:   tp.Tract.ID(),
			Patches: tp.Patches,
		}
	}
	return h.respond(respond, MsgTypeFindTractPatchListResponse, msg.RequestID, res)
}

func (h *LookupHandler) decodeCoords(msg Msg) ([]geom.Coord, error) {
	var req FindRequest
	if err := msg.DataTo(&req); err != nil {
		return nil, err
	}

	maxBatchSize := h.MaxBatchSize
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	if len(req.Coords) == 0 || len(req.Coords) > maxBatchSize {
		return nil, errors.New("invalid number of coordinates").
			WithType(ErrTypeMsgMalformed).
			WithTag("coords", len(req.Coords)).
			WithTag("max_coords", maxBatchSize)
	}

	coords := make([]geom.Coord, len(req.Coords))
	for i, c := range req.Coords {
		if math.IsNaN(c.RA) || math.IsInf(c.RA, 0) ||
			math.IsNaN(c.Dec) || c.Dec < -90 || c.Dec > 90 {
			return nil, errors.New("invalid coordinate").
				WithType(ErrTypeMsgMalformed).
				WithTag("ra", c.RA).
				WithTag("dec", c.Dec)
		}
		coords[i] = geom.NewCoordDegrees(c.RA, c.Dec)
	}
	return coords, nil
}

func (h *LookupHandler) respond(respond ResponseSender, msgType MsgType, requestID uint32, data any) error {
	msg, err := NewMsg(msgType, requestID, data)
	if err != nil {
		return err
	}
	respond.Send(msg)
	return nil
}

func (h *LookupHandler) Receiver() Receiver {
	return func() (Msg, int, error) {
		return Receive(h.conn)
	}
}

func (h *LookupHandler) Sender() Sender {
	return func(msg Msg) (int, error) {
		return Send(h.conn, msg)
	}
}

func (h *LookupHandler) Close() {
}

func (h *LookupHandler) IdleTimeout() time.Duration {
	if h.ClientIdleTimeout <= 0 {
		return DefaultIdleTimeout
	}
	return h.ClientIdleTimeout
}

func (h *LookupHandler) GetClientID() string {
	return h.clientID
}
